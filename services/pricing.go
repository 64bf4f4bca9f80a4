package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/kendall-kelly/delivery-admin-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaxLineQuantity caps a single line so totals stay within numeric(12,2)
const MaxLineQuantity = 100000

// LineInput is one requested order line
type LineInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=1,lte=100000"`
}

// PricedLine is a line resolved against the catalog and the driver's overrides
type PricedLine struct {
	ProductID       uuid.UUID       `json:"product_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	AdminPrice      decimal.Decimal `json:"admin_price"`
	DriverPrice     decimal.Decimal `json:"driver_price"`
	LineAdminTotal  decimal.Decimal `json:"line_admin_total"`
	LineDriverTotal decimal.Decimal `json:"line_driver_total"`
}

// PriceSnapshot is the full result of pricing a set of lines
type PriceSnapshot struct {
	Lines        []PricedLine    `json:"lines"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	DriverAmount decimal.Decimal `json:"driver_amount"`
}

// PriceLines resolves every line to an admin price and a driver price. The
// driver price is the override for the line's product when one exists and the
// product's admin price otherwise. It has no side effects; any unknown product
// or bad quantity fails the whole computation.
func PriceLines(catalog map[uuid.UUID]models.Product, overrides map[uuid.UUID]decimal.Decimal, lines []LineInput) (*PriceSnapshot, error) {
	if len(lines) == 0 {
		return nil, invalid("EMPTY_LINES", "at least one product line is required")
	}

	snapshot := &PriceSnapshot{
		Lines:        make([]PricedLine, 0, len(lines)),
		TotalAmount:  decimal.Zero,
		DriverAmount: decimal.Zero,
	}
	for i, line := range lines {
		if line.Quantity < 1 || line.Quantity > MaxLineQuantity {
			return nil, invalid("INVALID_QUANTITY", "line %d: quantity must be between 1 and %d", i+1, MaxLineQuantity)
		}
		product, ok := catalog[line.ProductID]
		if !ok {
			return nil, invalid("PRODUCT_NOT_FOUND", "line %d: product %s does not exist", i+1, line.ProductID)
		}

		driverPrice := product.AdminPrice
		if override, ok := overrides[line.ProductID]; ok {
			driverPrice = override
		}

		qty := decimal.NewFromInt(int64(line.Quantity))
		priced := PricedLine{
			ProductID:       product.ID,
			ProductName:     product.Name,
			Quantity:        line.Quantity,
			AdminPrice:      product.AdminPrice,
			DriverPrice:     driverPrice,
			LineAdminTotal:  product.AdminPrice.Mul(qty),
			LineDriverTotal: driverPrice.Mul(qty),
		}
		snapshot.Lines = append(snapshot.Lines, priced)
		snapshot.TotalAmount = snapshot.TotalAmount.Add(priced.LineAdminTotal)
		snapshot.DriverAmount = snapshot.DriverAmount.Add(priced.LineDriverTotal)
	}
	return snapshot, nil
}

// PricingService loads catalog and override state and prices lines against it
type PricingService struct {
	db *gorm.DB
}

// NewPricingService creates a pricing service bound to db (or a transaction)
func NewPricingService(db *gorm.DB) *PricingService {
	return &PricingService{db: db}
}

// Snapshot prices lines for an optional driver using the current catalog
func (s *PricingService) Snapshot(ctx context.Context, driverID *uuid.UUID, lines []LineInput) (*PriceSnapshot, error) {
	if len(lines) == 0 {
		return nil, invalid("EMPTY_LINES", "at least one product line is required")
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}

	var products []models.Product
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, remote("load products", err)
	}
	catalog := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}

	overrides := map[uuid.UUID]decimal.Decimal{}
	if driverID != nil {
		var prices []models.DriverProductPrice
		if err := s.db.WithContext(ctx).
			Where("driver_id = ? AND product_id IN ?", *driverID, ids).
			Find(&prices).Error; err != nil {
			return nil, remote("load driver prices", err)
		}
		for _, p := range prices {
			overrides[p.ProductID] = p.DriverPrice
		}
	}

	return PriceLines(catalog, overrides, lines)
}
