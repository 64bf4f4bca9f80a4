package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment transaction kinds
const (
	TransactionPayment    = "payment"
	TransactionWithdrawal = "withdrawal"
)

// DriverPayment holds a driver's running balances. Pending is earned but not yet
// paid; paid has been paid out and is available to be withdrawn.
type DriverPayment struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	DriverID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"driver_id"`
	Driver        *Driver         `gorm:"foreignKey:DriverID;constraint:OnDelete:CASCADE" json:"driver,omitempty"`
	PendingAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"pending_amount"`
	PaidAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"paid_amount"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the DriverPayment model
func (DriverPayment) TableName() string {
	return "driver_payments"
}

func (p *DriverPayment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// PaymentTransaction is an append-only audit row for a balance movement
type PaymentTransaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	DriverID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"driver_id"`
	Kind        string          `gorm:"not null;default:'payment'" json:"kind"` // payment, withdrawal
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PaymentDate time.Time       `gorm:"not null" json:"payment_date"`
	Notes       *string         `json:"notes"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TableName specifies the table name for the PaymentTransaction model
func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}

func (t *PaymentTransaction) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// DriverWithdrawal records money handed to a driver out of the paid balance
type DriverWithdrawal struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	DriverID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"driver_id"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	WithdrawalDate time.Time       `gorm:"not null" json:"withdrawal_date"`
	Notes          *string         `json:"notes"`
	CreatedAt      time.Time       `json:"created_at"`
}

// TableName specifies the table name for the DriverWithdrawal model
func (DriverWithdrawal) TableName() string {
	return "driver_withdrawals"
}

func (w *DriverWithdrawal) BeforeCreate(tx *gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

// DriverEarning proves that a completed order's driver amount was credited to
// the driver's pending balance. One row per order.
type DriverEarning struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"order_id"`
	DriverID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"driver_id"`
	Amount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// TableName specifies the table name for the DriverEarning model
func (DriverEarning) TableName() string {
	return "driver_earnings"
}

func (e *DriverEarning) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
