package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/kendall-kelly/delivery-admin-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultLocation is the location created by Seed
const DefaultLocation = "Downtown"

// Fixture holds a minimal dataset: one location, one client, one available
// driver and two products
type Fixture struct {
	Location models.Location
	Client   models.Client
	Driver   models.Driver
	Water    models.Product
	Gas      models.Product
}

// Seed creates the minimal dataset
func Seed(t *testing.T, db *gorm.DB) *Fixture {
	t.Helper()
	f := &Fixture{}
	f.Location = CreateLocation(t, db, DefaultLocation)
	f.Client = CreateClient(t, db, "Amal Haddad", DefaultLocation)
	f.Driver = CreateDriver(t, db, "Omar Saleh", models.DriverAvailable)
	f.Water = CreateProduct(t, db, "Water 20L", "10.00")
	f.Gas = CreateProduct(t, db, "Gas cylinder", "10.00")
	return f
}

// Money parses a decimal literal
func Money(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", value, err)
	}
	return d
}

// CreateLocation inserts a location
func CreateLocation(t *testing.T, db *gorm.DB, name string) models.Location {
	t.Helper()
	location := models.Location{Name: name}
	must(t, db.Create(&location).Error)
	return location
}

// CreateClient inserts a client
func CreateClient(t *testing.T, db *gorm.DB, name, location string) models.Client {
	t.Helper()
	client := models.Client{FullName: name, Location: location, PhoneNumber: "+962700000001"}
	must(t, db.Create(&client).Error)
	return client
}

// CreateDriver inserts a driver with the given status and no ledger row
func CreateDriver(t *testing.T, db *gorm.DB, name, status string) models.Driver {
	t.Helper()
	driver := models.Driver{
		FullName:    name,
		CarType:     "Pickup",
		Location:    DefaultLocation,
		PhoneNumber: "+962700000002",
		Status:      status,
	}
	must(t, db.Create(&driver).Error)
	return driver
}

// CreateProduct inserts a product with the given admin price
func CreateProduct(t *testing.T, db *gorm.DB, name, adminPrice string) models.Product {
	t.Helper()
	product := models.Product{Name: name, AdminPrice: Money(t, adminPrice)}
	must(t, db.Create(&product).Error)
	return product
}

// SetDriverPrice inserts a driver override for a product
func SetDriverPrice(t *testing.T, db *gorm.DB, driverID, productID uuid.UUID, price string) {
	t.Helper()
	must(t, db.Create(&models.DriverProductPrice{DriverID: driverID, ProductID: productID, DriverPrice: Money(t, price)}).Error)
}

// SetBalance creates the driver's ledger row with the given balances
func SetBalance(t *testing.T, db *gorm.DB, driverID uuid.UUID, pending, paid string) models.DriverPayment {
	t.Helper()
	payment := models.DriverPayment{DriverID: driverID, PendingAmount: Money(t, pending), PaidAmount: Money(t, paid)}
	must(t, db.Create(&payment).Error)
	return payment
}

// CreateAdmin inserts an admin, optionally already linked to an Auth0 subject
func CreateAdmin(t *testing.T, db *gorm.DB, email, role string, auth0ID *string) models.Admin {
	t.Helper()
	admin := models.Admin{Email: email, FullName: email, Role: role, Auth0ID: auth0ID}
	must(t, db.Create(&admin).Error)
	return admin
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("fixture setup failed: %v", err)
	}
}
