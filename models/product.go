package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog entry; AdminPrice is the unit price charged to clients
type Product struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string           `gorm:"not null" json:"name"`
	AdminPrice   decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"admin_price"`
	ProfitAmount *decimal.Decimal `gorm:"type:numeric(12,2)" json:"profit_amount"`
	Note         *string          `json:"note"`
	PhotoKey     *string          `json:"photo_key"`                    // nullable, S3 key for the product photo
	PhotoURL     *string          `gorm:"-" json:"photo_url,omitempty"` // computed field, presigned URL for the photo
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
