package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Scheduled order statuses. After activation a scheduled order mirrors the
// lifecycle of the order it produced.
const (
	ScheduledStatusScheduled = "scheduled"
	ScheduledStatusActive    = "active"
)

// ScheduledOrder holds a locked-in price snapshot that becomes a live Order
// once ScheduledDatetime has passed.
type ScheduledOrder struct {
	ID                uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID          uuid.UUID            `gorm:"type:uuid;not null;index" json:"client_id"`
	Client            *Client              `gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT" json:"client,omitempty"`
	DriverID          *uuid.UUID           `gorm:"type:uuid;index" json:"driver_id"`
	Driver            *Driver              `gorm:"foreignKey:DriverID;constraint:OnDelete:SET NULL" json:"driver,omitempty"`
	Location          string               `gorm:"not null" json:"location"`
	TotalAmount       decimal.Decimal      `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	DriverAmount      decimal.Decimal      `gorm:"type:numeric(12,2);not null" json:"driver_amount"`
	Status            string               `gorm:"not null;default:'scheduled';index:idx_scheduled_due,priority:1" json:"status"`
	ScheduledDatetime time.Time            `gorm:"not null;index:idx_scheduled_due,priority:2" json:"scheduled_datetime"` // stored as UTC
	ActualOrderRef    *uuid.UUID           `gorm:"type:uuid" json:"actual_order_ref"`
	Items             []ScheduledOrderItem `gorm:"foreignKey:ScheduledOrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// TableName specifies the table name for the ScheduledOrder model
func (ScheduledOrder) TableName() string {
	return "scheduled_orders"
}

func (s *ScheduledOrder) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// IsValidScheduledStatus reports whether status is a scheduled order status
func IsValidScheduledStatus(status string) bool {
	return status == ScheduledStatusScheduled || status == ScheduledStatusActive || IsValidOrderStatus(status)
}

// ScheduledOrderItem mirrors OrderItem for a scheduled order
type ScheduledOrderItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ScheduledOrderID uuid.UUID       `gorm:"type:uuid;not null;index" json:"scheduled_order_id"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product          *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	Quantity         int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	AdminPrice       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"admin_price"`
	DriverPrice      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"driver_price"`
	CreatedAt        time.Time       `json:"created_at"`
}

// TableName specifies the table name for the ScheduledOrderItem model
func (ScheduledOrderItem) TableName() string {
	return "scheduled_order_items"
}

func (i *ScheduledOrderItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
