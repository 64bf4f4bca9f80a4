package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/delivery-admin-api/events"
	"github.com/kendall-kelly/delivery-admin-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DriverBalance is a driver's ledger position. Persisted is false for drivers
// that never had a ledger row; their balances are zero.
type DriverBalance struct {
	DriverID      uuid.UUID       `json:"driver_id"`
	DriverName    string          `json:"driver_name"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	UpdatedAt     *time.Time      `json:"updated_at"`
	Persisted     bool            `json:"persisted"`
}

// PaymentInput moves Amount from pending to paid
type PaymentInput struct {
	DriverID uuid.UUID       `validate:"required"`
	Amount   decimal.Decimal `validate:"-"`
	Notes    *string         `validate:"omitempty,max=500"`
}

// WithdrawalInput removes Amount from the paid balance
type WithdrawalInput struct {
	DriverID uuid.UUID       `validate:"required"`
	Amount   decimal.Decimal `validate:"-"`
	Notes    *string         `validate:"omitempty,max=500"`
}

// PaymentResult is returned by MakePayment
type PaymentResult struct {
	Balance     DriverBalance             `json:"balance"`
	Transaction models.PaymentTransaction `json:"transaction"`
}

// WithdrawalResult is returned by RecordWithdrawal
type WithdrawalResult struct {
	Balance     DriverBalance             `json:"balance"`
	Withdrawal  models.DriverWithdrawal   `json:"withdrawal"`
	Transaction models.PaymentTransaction `json:"transaction"`
}

// LedgerService adjusts driver balances. Every balance change is an atomic
// conditional update paired with an audit row in the same transaction.
type LedgerService struct {
	db        *gorm.DB
	publisher events.Publisher
	metrics   *Metrics
	now       func() time.Time
}

// NewLedgerService creates a ledger service
func NewLedgerService(db *gorm.DB, publisher events.Publisher, metrics *Metrics) *LedgerService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &LedgerService{db: db, publisher: publisher, metrics: metrics, now: func() time.Time { return time.Now().UTC() }}
}

// GetBalance returns the driver's balance, or a zero balance when the driver
// has no ledger row yet
func (s *LedgerService) GetBalance(ctx context.Context, driverID uuid.UUID) (*DriverBalance, error) {
	driver, err := findDriver(ctx, s.db, driverID)
	if err != nil {
		return nil, err
	}
	return s.balanceFor(ctx, s.db, driver)
}

// ListBalances returns a balance for every driver, most recently updated first
func (s *LedgerService) ListBalances(ctx context.Context) ([]DriverBalance, error) {
	var drivers []models.Driver
	if err := s.db.WithContext(ctx).Order("full_name asc").Find(&drivers).Error; err != nil {
		return nil, remote("list drivers", err)
	}
	var payments []models.DriverPayment
	if err := s.db.WithContext(ctx).Order("updated_at desc").Find(&payments).Error; err != nil {
		return nil, remote("list driver payments", err)
	}

	byDriver := make(map[uuid.UUID]models.Driver, len(drivers))
	for _, d := range drivers {
		byDriver[d.ID] = d
	}

	balances := make([]DriverBalance, 0, len(drivers))
	seen := make(map[uuid.UUID]bool, len(payments))
	for _, p := range payments {
		d, ok := byDriver[p.DriverID]
		if !ok {
			continue
		}
		seen[p.DriverID] = true
		balances = append(balances, persistedBalance(d, p))
	}
	for _, d := range drivers {
		if !seen[d.ID] {
			balances = append(balances, defaultBalance(d))
		}
	}
	return balances, nil
}

// MakePayment transfers amount from pending to paid and appends a payment
// transaction. Requires 0 < amount <= pending.
func (s *LedgerService) MakePayment(ctx context.Context, input PaymentInput) (*PaymentResult, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	driver, err := findDriver(ctx, s.db, input.DriverID)
	if err != nil {
		return nil, err
	}

	var result PaymentResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.DriverPayment
		if err := tx.Where("driver_id = ?", input.DriverID).First(&payment).Error; err != nil {
			if IsRecordNotFound(err) {
				return invalid("AMOUNT_EXCEEDS_PENDING", "payment of %s exceeds pending balance of 0", input.Amount)
			}
			return remote("load driver payment", err)
		}
		if input.Amount.GreaterThan(payment.PendingAmount) {
			return invalid("AMOUNT_EXCEEDS_PENDING", "payment of %s exceeds pending balance of %s", input.Amount, payment.PendingAmount)
		}

		now := s.now()
		res := tx.Model(&models.DriverPayment{}).
			Where("id = ? AND pending_amount >= ?", payment.ID, input.Amount).
			Updates(map[string]interface{}{
				"pending_amount": gorm.Expr("pending_amount - ?", input.Amount),
				"paid_amount":    gorm.Expr("paid_amount + ?", input.Amount),
				"updated_at":     now,
			})
		if res.Error != nil {
			return remote("update driver payment", res.Error)
		}
		if res.RowsAffected == 0 {
			return conflict("BALANCE_CHANGED", "pending balance changed while recording the payment, reload and retry")
		}

		txn := models.PaymentTransaction{
			DriverID:    input.DriverID,
			Kind:        models.TransactionPayment,
			Amount:      input.Amount,
			PaymentDate: now,
			Notes:       input.Notes,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return remote("create payment transaction", err)
		}

		if err := tx.First(&payment, "id = ?", payment.ID).Error; err != nil {
			return remote("reload driver payment", err)
		}
		result = PaymentResult{Balance: persistedBalance(*driver, payment), Transaction: txn}
		return nil
	})
	if err != nil {
		return nil, remote("make payment", err)
	}

	s.metrics.observeLedger(models.TransactionPayment)
	s.publish(ctx, events.NewEvent(events.DriverPaymentRecorded, input.DriverID.String(), result.Transaction))
	return &result, nil
}

// RecordWithdrawal removes amount from the paid balance, appending a
// withdrawal and a withdrawal-kind transaction. Requires 0 < amount <= paid.
func (s *LedgerService) RecordWithdrawal(ctx context.Context, input WithdrawalInput) (*WithdrawalResult, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	driver, err := findDriver(ctx, s.db, input.DriverID)
	if err != nil {
		return nil, err
	}

	var result WithdrawalResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.DriverPayment
		if err := tx.Where("driver_id = ?", input.DriverID).First(&payment).Error; err != nil {
			if IsRecordNotFound(err) {
				return invalid("AMOUNT_EXCEEDS_PAID", "withdrawal of %s exceeds paid balance of 0", input.Amount)
			}
			return remote("load driver payment", err)
		}
		if input.Amount.GreaterThan(payment.PaidAmount) {
			return invalid("AMOUNT_EXCEEDS_PAID", "withdrawal of %s exceeds paid balance of %s", input.Amount, payment.PaidAmount)
		}

		now := s.now()
		res := tx.Model(&models.DriverPayment{}).
			Where("id = ? AND paid_amount >= ?", payment.ID, input.Amount).
			Updates(map[string]interface{}{
				"paid_amount": gorm.Expr("paid_amount - ?", input.Amount),
				"updated_at":  now,
			})
		if res.Error != nil {
			return remote("update driver payment", res.Error)
		}
		if res.RowsAffected == 0 {
			return conflict("BALANCE_CHANGED", "paid balance changed while recording the withdrawal, reload and retry")
		}

		withdrawal := models.DriverWithdrawal{
			DriverID:       input.DriverID,
			Amount:         input.Amount,
			WithdrawalDate: now,
			Notes:          input.Notes,
		}
		if err := tx.Create(&withdrawal).Error; err != nil {
			return remote("create driver withdrawal", err)
		}
		txn := models.PaymentTransaction{
			DriverID:    input.DriverID,
			Kind:        models.TransactionWithdrawal,
			Amount:      input.Amount,
			PaymentDate: now,
			Notes:       input.Notes,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return remote("create withdrawal transaction", err)
		}

		if err := tx.First(&payment, "id = ?", payment.ID).Error; err != nil {
			return remote("reload driver payment", err)
		}
		result = WithdrawalResult{Balance: persistedBalance(*driver, payment), Withdrawal: withdrawal, Transaction: txn}
		return nil
	})
	if err != nil {
		return nil, remote("record withdrawal", err)
	}

	s.metrics.observeLedger(models.TransactionWithdrawal)
	s.publish(ctx, events.NewEvent(events.DriverWithdrawalRecorded, input.DriverID.String(), result.Withdrawal))
	return &result, nil
}

// CreditOrderEarnings adds a completed order's driver amount to the assigned
// driver's pending balance. It must run inside the transaction that completes
// the order. The DriverEarning row keyed by order id makes the credit happen at
// most once; a nil earning means nothing was credited.
func (s *LedgerService) CreditOrderEarnings(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.DriverEarning, error) {
	if order.DriverID == nil || !order.DriverAmount.IsPositive() {
		return nil, nil
	}

	earning := models.DriverEarning{
		OrderID:  order.ID,
		DriverID: *order.DriverID,
		Amount:   order.DriverAmount,
	}
	res := tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "order_id"}}, DoNothing: true}).
		Create(&earning)
	if res.Error != nil {
		return nil, remote("create driver earning", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	payment := models.DriverPayment{DriverID: *order.DriverID, PendingAmount: decimal.Zero, PaidAmount: decimal.Zero}
	if err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "driver_id"}}, DoNothing: true}).
		Create(&payment).Error; err != nil {
		return nil, remote("ensure driver payment", err)
	}

	res = tx.WithContext(ctx).Model(&models.DriverPayment{}).
		Where("driver_id = ?", *order.DriverID).
		Updates(map[string]interface{}{
			"pending_amount": gorm.Expr("pending_amount + ?", order.DriverAmount),
			"updated_at":     s.now(),
		})
	if res.Error != nil {
		return nil, remote("credit pending amount", res.Error)
	}

	s.metrics.observeEarning()
	return &earning, nil
}

// ListTransactions returns payment transactions, newest first, optionally for one driver
func (s *LedgerService) ListTransactions(ctx context.Context, driverID *uuid.UUID) ([]models.PaymentTransaction, error) {
	query := s.db.WithContext(ctx).Order("payment_date desc").Order("created_at desc")
	if driverID != nil {
		query = query.Where("driver_id = ?", *driverID)
	}
	var txns []models.PaymentTransaction
	if err := query.Find(&txns).Error; err != nil {
		return nil, remote("list payment transactions", err)
	}
	return txns, nil
}

// ListWithdrawals returns withdrawals, newest first, optionally for one driver
func (s *LedgerService) ListWithdrawals(ctx context.Context, driverID *uuid.UUID) ([]models.DriverWithdrawal, error) {
	query := s.db.WithContext(ctx).Order("withdrawal_date desc").Order("created_at desc")
	if driverID != nil {
		query = query.Where("driver_id = ?", *driverID)
	}
	var withdrawals []models.DriverWithdrawal
	if err := query.Find(&withdrawals).Error; err != nil {
		return nil, remote("list driver withdrawals", err)
	}
	return withdrawals, nil
}

func (s *LedgerService) balanceFor(ctx context.Context, db *gorm.DB, driver *models.Driver) (*DriverBalance, error) {
	var payment models.DriverPayment
	if err := db.WithContext(ctx).Where("driver_id = ?", driver.ID).First(&payment).Error; err != nil {
		if IsRecordNotFound(err) {
			b := defaultBalance(*driver)
			return &b, nil
		}
		return nil, remote("load driver payment", err)
	}
	b := persistedBalance(*driver, payment)
	return &b, nil
}

func (s *LedgerService) publish(ctx context.Context, evs ...events.Event) {
	if err := s.publisher.Publish(ctx, evs...); err != nil {
		slog.Warn("failed to publish ledger event", slog.Any("error", err))
	}
}

func persistedBalance(d models.Driver, p models.DriverPayment) DriverBalance {
	updated := p.UpdatedAt
	return DriverBalance{
		DriverID:      d.ID,
		DriverName:    d.FullName,
		PendingAmount: p.PendingAmount,
		PaidAmount:    p.PaidAmount,
		UpdatedAt:     &updated,
		Persisted:     true,
	}
}

func defaultBalance(d models.Driver) DriverBalance {
	return DriverBalance{
		DriverID:      d.ID,
		DriverName:    d.FullName,
		PendingAmount: decimal.Zero,
		PaidAmount:    decimal.Zero,
	}
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalid("INVALID_AMOUNT", "amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return invalid("INVALID_AMOUNT", "amount cannot have more than two decimal places")
	}
	return nil
}

func findDriver(ctx context.Context, db *gorm.DB, id uuid.UUID) (*models.Driver, error) {
	var driver models.Driver
	if err := db.WithContext(ctx).First(&driver, "id = ?", id).Error; err != nil {
		if IsRecordNotFound(err) {
			return nil, notFound("DRIVER_NOT_FOUND", "driver %s not found", id)
		}
		return nil, remote("load driver", err)
	}
	return &driver, nil
}
