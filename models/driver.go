package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Driver statuses
const (
	DriverAvailable  = "available"
	DriverInDelivery = "in_delivery"
	DriverOffline    = "offline"
)

// Driver delivers orders; only available drivers can be assigned new orders
type Driver struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName    string    `gorm:"not null" json:"full_name"`
	CarType     string    `gorm:"not null" json:"car_type"`
	CarImageKey *string   `json:"car_image_key"`
	CarImageURL *string   `gorm:"-" json:"car_image_url,omitempty"`
	Location    string    `gorm:"not null" json:"location"`
	PhoneNumber string    `gorm:"not null" json:"phone_number"`
	Status      string    `gorm:"not null;default:'available'" json:"status"` // available, in_delivery, offline
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Driver model
func (Driver) TableName() string {
	return "drivers"
}

func (d *Driver) BeforeCreate(tx *gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// IsValidDriverStatus reports whether status is one of the driver statuses
func IsValidDriverStatus(status string) bool {
	switch status {
	case DriverAvailable, DriverInDelivery, DriverOffline:
		return true
	}
	return false
}

// DriverProductPrice overrides what a driver is paid for one unit of a product
type DriverProductPrice struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	DriverID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_driver_product" json:"driver_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_driver_product" json:"product_id"`
	Product     *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	DriverPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"driver_price"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TableName specifies the table name for the DriverProductPrice model
func (DriverProductPrice) TableName() string {
	return "driver_product_prices"
}

func (p *DriverProductPrice) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
