package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order statuses
const (
	OrderNew        = "new"
	OrderInProgress = "in_progress"
	OrderCompleted  = "completed"
	OrderCancelled  = "cancelled"
)

// Order is a live delivery order. Prices are snapshotted on its items at creation.
type Order struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"client_id"`
	Client           *Client         `gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT" json:"client,omitempty"`
	DriverID         *uuid.UUID      `gorm:"type:uuid;index" json:"driver_id"` // nullable, unassigned orders have no driver
	Driver           *Driver         `gorm:"foreignKey:DriverID;constraint:OnDelete:SET NULL" json:"driver,omitempty"`
	Location         string          `gorm:"not null" json:"location"`
	Status           string          `gorm:"not null;default:'new';index" json:"status"` // new, in_progress, completed, cancelled
	TotalAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	DriverAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"driver_amount"`
	ScheduledOrderID *uuid.UUID      `gorm:"type:uuid;uniqueIndex" json:"scheduled_order_id,omitempty"` // set when materialized from a scheduled order
	Items            []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// IsValidOrderStatus reports whether status is one of the order statuses
func IsValidOrderStatus(status string) bool {
	switch status {
	case OrderNew, OrderInProgress, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// OrderItem is the price snapshot of one order line
type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product     *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	Quantity    int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	AdminPrice  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"admin_price"`
	DriverPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"driver_price"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
