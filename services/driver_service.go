package services

import (
	"context"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"github.com/kendall-kelly/delivery-admin-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DriverPriceInput overrides the driver price of one product
type DriverPriceInput struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Price     decimal.Decimal `json:"price" validate:"-"`
}

// DriverInput creates or updates a driver. On update a nil Prices keeps the
// existing overrides and a non-nil one replaces them.
type DriverInput struct {
	FullName    string             `json:"full_name" validate:"required,max=200"`
	CarType     string             `json:"car_type" validate:"required,max=100"`
	Location    string             `json:"location" validate:"required,max=100"`
	PhoneNumber string             `json:"phone_number" validate:"required,max=30"`
	Status      string             `json:"status" validate:"omitempty,oneof=available in_delivery offline"`
	Prices      []DriverPriceInput `json:"prices" validate:"omitempty,dive"`
}

// DriverFilter narrows driver listings
type DriverFilter struct {
	Search string
	Status string
}

// DriverService manages drivers and their price overrides
type DriverService struct {
	db     *gorm.DB
	images ImageService
}

// NewDriverService creates a driver service
func NewDriverService(db *gorm.DB, images ImageService) *DriverService {
	return &DriverService{db: db, images: images}
}

// List returns drivers ordered by name
func (s *DriverService) List(ctx context.Context, filter DriverFilter) ([]models.Driver, error) {
	query := s.db.WithContext(ctx).Order("full_name asc")
	if filter.Status != "" {
		if !models.IsValidDriverStatus(filter.Status) {
			return nil, invalid("INVALID_STATUS", "unknown driver status %q", filter.Status)
		}
		query = query.Where("status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR LOWER(phone_number) LIKE ? OR LOWER(car_type) LIKE ? OR LOWER(location) LIKE ?", like, like, like, like)
	}
	var drivers []models.Driver
	if err := query.Find(&drivers).Error; err != nil {
		return nil, remote("list drivers", err)
	}
	for i := range drivers {
		drivers[i].CarImageURL = imageURL(ctx, s.images, drivers[i].CarImageKey)
	}
	return drivers, nil
}

// Get loads one driver
func (s *DriverService) Get(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	driver, err := findDriver(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	driver.CarImageURL = imageURL(ctx, s.images, driver.CarImageKey)
	return driver, nil
}

// Create stores the driver, an empty ledger row and the positive price
// overrides in one transaction
func (s *DriverService) Create(ctx context.Context, input DriverInput) (*models.Driver, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := checkLocation(ctx, s.db, input.Location); err != nil {
		return nil, err
	}
	status := input.Status
	if status == "" {
		status = models.DriverAvailable
	}

	driver := models.Driver{
		FullName:    strings.TrimSpace(input.FullName),
		CarType:     strings.TrimSpace(input.CarType),
		Location:    input.Location,
		PhoneNumber: strings.TrimSpace(input.PhoneNumber),
		Status:      status,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&driver).Error; err != nil {
			return remote("create driver", err)
		}
		payment := models.DriverPayment{DriverID: driver.ID, PendingAmount: decimal.Zero, PaidAmount: decimal.Zero}
		if err := tx.Create(&payment).Error; err != nil {
			return remote("create driver payment", err)
		}
		return writeOverrides(tx, driver.ID, input.Prices)
	})
	if err != nil {
		return nil, remote("create driver", err)
	}
	return &driver, nil
}

// Update changes the driver's details and, when given, replaces its overrides
func (s *DriverService) Update(ctx context.Context, id uuid.UUID, input DriverInput) (*models.Driver, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	driver, err := findDriver(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if err := checkLocation(ctx, s.db, input.Location); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"full_name":    strings.TrimSpace(input.FullName),
		"car_type":     strings.TrimSpace(input.CarType),
		"location":     input.Location,
		"phone_number": strings.TrimSpace(input.PhoneNumber),
	}
	if input.Status != "" {
		updates["status"] = input.Status
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(driver).Updates(updates).Error; err != nil {
			return remote("update driver", err)
		}
		if input.Prices == nil {
			return nil
		}
		if err := tx.Where("driver_id = ?", id).Delete(&models.DriverProductPrice{}).Error; err != nil {
			return remote("clear driver prices", err)
		}
		return writeOverrides(tx, id, input.Prices)
	})
	if err != nil {
		return nil, remote("update driver", err)
	}
	return s.Get(ctx, id)
}

// UpdateStatus sets the driver's availability
func (s *DriverService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Driver, error) {
	if !models.IsValidDriverStatus(status) {
		return nil, invalid("INVALID_STATUS", "unknown driver status %q", status)
	}
	driver, err := findDriver(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(driver).Update("status", status).Error; err != nil {
		return nil, remote("update driver status", err)
	}
	return s.Get(ctx, id)
}

// Prices returns the driver's overrides with their products
func (s *DriverService) Prices(ctx context.Context, id uuid.UUID) ([]models.DriverProductPrice, error) {
	if _, err := findDriver(ctx, s.db, id); err != nil {
		return nil, err
	}
	var prices []models.DriverProductPrice
	if err := s.db.WithContext(ctx).Preload("Product").Where("driver_id = ?", id).Find(&prices).Error; err != nil {
		return nil, remote("list driver prices", err)
	}
	return prices, nil
}

// Delete removes a driver whose balances are settled. Orders keep their
// snapshot and lose the driver reference.
func (s *DriverService) Delete(ctx context.Context, id uuid.UUID) error {
	driver, err := findDriver(ctx, s.db, id)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.DriverPayment
		err := tx.Where("driver_id = ?", id).First(&payment).Error
		switch {
		case err == nil:
			if !payment.PendingAmount.IsZero() || !payment.PaidAmount.IsZero() {
				return conflict("DRIVER_HAS_BALANCE", "driver %s still has pending %s and paid %s", driver.FullName, payment.PendingAmount, payment.PaidAmount)
			}
		case !IsRecordNotFound(err):
			return remote("load driver payment", err)
		}

		if err := tx.Model(&models.Order{}).Where("driver_id = ?", id).Update("driver_id", nil).Error; err != nil {
			return remote("detach driver orders", err)
		}
		if err := tx.Model(&models.ScheduledOrder{}).Where("driver_id = ?", id).Update("driver_id", nil).Error; err != nil {
			return remote("detach driver scheduled orders", err)
		}
		if err := tx.Where("driver_id = ?", id).Delete(&models.DriverProductPrice{}).Error; err != nil {
			return remote("delete driver prices", err)
		}
		if err := tx.Where("driver_id = ?", id).Delete(&models.DriverPayment{}).Error; err != nil {
			return remote("delete driver payment", err)
		}
		if err := tx.Delete(&models.Driver{}, "id = ?", id).Error; err != nil {
			return remote("delete driver", err)
		}
		return nil
	})
	if err != nil {
		return remote("delete driver", err)
	}
	if s.images != nil && driver.CarImageKey != nil {
		_ = s.images.DeleteImage(ctx, *driver.CarImageKey)
	}
	return nil
}

// SetCarImage uploads a new car image for the driver
func (s *DriverService) SetCarImage(ctx context.Context, id uuid.UUID, fileHeader *multipart.FileHeader) (*models.Driver, error) {
	driver, err := findDriver(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	_, err = replaceImage(ctx, s.images, DriverCarFolder, fileHeader, driver.CarImageKey, func(key *string) error {
		return remote("store car image", s.db.WithContext(ctx).Model(driver).Update("car_image_key", key).Error)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// RemoveCarImage deletes the driver's car image
func (s *DriverService) RemoveCarImage(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	driver, err := findDriver(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	err = removeImage(ctx, s.images, driver.CarImageKey, func(key *string) error {
		return remote("clear car image", s.db.WithContext(ctx).Model(driver).Update("car_image_key", key).Error)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// writeOverrides inserts the positive overrides; zero or negative prices mean
// "use the admin price" and are skipped
func writeOverrides(tx *gorm.DB, driverID uuid.UUID, prices []DriverPriceInput) error {
	seen := make(map[uuid.UUID]bool, len(prices))
	rows := make([]models.DriverProductPrice, 0, len(prices))
	for _, p := range prices {
		if !p.Price.IsPositive() || seen[p.ProductID] {
			continue
		}
		if !p.Price.Equal(p.Price.Round(2)) {
			return invalid("INVALID_PRICE", "driver price cannot have more than two decimal places")
		}
		seen[p.ProductID] = true
		rows = append(rows, models.DriverProductPrice{DriverID: driverID, ProductID: p.ProductID, DriverPrice: p.Price})
	}
	if len(rows) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ProductID)
	}
	var known int64
	if err := tx.Model(&models.Product{}).Where("id IN ?", ids).Count(&known).Error; err != nil {
		return remote("check products", err)
	}
	if int(known) != len(ids) {
		return invalid("PRODUCT_NOT_FOUND", "one or more override products do not exist")
	}

	if err := tx.Create(&rows).Error; err != nil {
		return remote("create driver prices", err)
	}
	return nil
}
