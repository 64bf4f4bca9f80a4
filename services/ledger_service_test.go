package services

import (
	"context"
	"testing"

	"github.com/kendall-kelly/delivery-admin-api/events"
	"github.com/kendall-kelly/delivery-admin-api/models"
	"github.com/kendall-kelly/delivery-admin-api/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func loadPayment(t *testing.T, db *gorm.DB, driverID interface{}) models.DriverPayment {
	t.Helper()
	var payment models.DriverPayment
	require.NoError(t, db.Where("driver_id = ?", driverID).First(&payment).Error)
	return payment
}

func TestLedgerPaymentAndWithdrawalScenario(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := testutil.Seed(t, db)
	testutil.SetBalance(t, db, f.Driver.ID, "100", "20")

	publisher := events.NewMemoryPublisher()
	metrics := NewMetrics(prometheus.NewRegistry())
	ledger := NewLedgerService(db, publisher, metrics)
	ctx := context.Background()

	paid, err := ledger.MakePayment(ctx, PaymentInput{DriverID: f.Driver.ID, Amount: testutil.Money(t, "60")})
	require.NoError(t, err)
	assert.True(t, testutil.Money(t, "40").Equal(paid.Balance.PendingAmount))
	assert.True(t, testutil.Money(t, "80").Equal(paid.Balance.PaidAmount))
	assert.True(t, testutil.Money(t, "60").Equal(paid.Transaction.Amount))
	assert.Equal(t, models.TransactionPayment, paid.Transaction.Kind)

	var payments []models.PaymentTransaction
	require.NoError(t, db.Where("driver_id = ? AND kind = ?", f.Driver.ID, models.TransactionPayment).Find(&payments).Error)
	require.Len(t, payments, 1)

	withdrawn, err := ledger.RecordWithdrawal(ctx, WithdrawalInput{DriverID: f.Driver.ID, Amount: testutil.Money(t, "50")})
	require.NoError(t, err)
	assert.True(t, testutil.Money(t, "30").Equal(withdrawn.Balance.PaidAmount))
	assert.True(t, testutil.Money(t, "40").Equal(withdrawn.Balance.PendingAmount))
	assert.True(t, testutil.Money(t, "50").Equal(withdrawn.Withdrawal.Amount))
	assert.Equal(t, models.TransactionWithdrawal, withdrawn.Transaction.Kind)

	_, err = ledger.RecordWithdrawal(ctx, WithdrawalInput{DriverID: f.Driver.ID, Amount: testutil.Money(t, "50")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "AMOUNT_EXCEEDS_PAID", verr.Code)

	payment := loadPayment(t, db, f.Driver.ID)
	assert.True(t, testutil.Money(t, "40").Equal(payment.PendingAmount))
	assert.True(t, testutil.Money(t, "30").Equal(payment.PaidAmount))

	var withdrawals []models.DriverWithdrawal
	require.NoError(t, db.Where("driver_id = ?", f.Driver.ID).Find(&withdrawals).Error)
	assert.Len(t, withdrawals, 1)

	assert.Len(t, publisher.OfType(events.DriverPaymentRecorded), 1)
	assert.Len(t, publisher.OfType(events.DriverWithdrawalRecorded), 1)
	assert.Equal(t, 1.0, promtestutil.ToFloat64(metrics.ledger.WithLabelValues(models.TransactionPayment)))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(metrics.ledger.WithLabelValues(models.TransactionWithdrawal)))
}

func TestMakePaymentRejectsOutOfRangeAmounts(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := testutil.Seed(t, db)
	testutil.SetBalance(t, db, f.Driver.ID, "100", "20")
	ledger := NewLedgerService(db, nil, nil)

	tests := []struct {
		name   string
		amount string
		code   string
	}{
		{"zero", "0", "INVALID_AMOUNT"},
		{"negative", "-5", "INVALID_AMOUNT"},
		{"too many decimals", "1.005", "INVALID_AMOUNT"},
		{"above pending", "100.01", "AMOUNT_EXCEEDS_PENDING"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.MakePayment(context.Background(), PaymentInput{DriverID: f.Driver.ID, Amount: testutil.Money(t, tt.amount)})
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.code, verr.Code)
		})
	}

	payment := loadPayment(t, db, f.Driver.ID)
	assert.True(t, testutil.Money(t, "100").Equal(payment.PendingAmount))
	assert.True(t, testutil.Money(t, "20").Equal(payment.PaidAmount))

	var count int64
	require.NoError(t, db.Model(&models.PaymentTransaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRecordWithdrawalRejectsOutOfRangeAmounts(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := testutil.Seed(t, db)
	testutil.SetBalance(t, db, f.Driver.ID, "5", "20")
	ledger := NewLedgerService(db, nil, nil)

	tests := []struct {
		name   string
		amount string
		code   string
	}{
		{"zero", "0", "INVALID_AMOUNT"},
		{"negative", "-1", "INVALID_AMOUNT"},
		{"too many decimals", "0.001", "INVALID_AMOUNT"},
		{"above paid", "20.01", "AMOUNT_EXCEEDS_PAID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.RecordWithdrawal(context.Background(), WithdrawalInput{DriverID: f.Driver.ID, Amount: testutil.Money(t, tt.amount)})
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.code, verr.Code)
		})
	}

	payment := loadPayment(t, db, f.Driver.ID)
	assert.True(t, testutil.Money(t, "5").Equal(payment.PendingAmount))
	assert.True(t, testutil.Money(t, "20").Equal(payment.PaidAmount))
	assert.Zero(t, countRows(t, db, &models.DriverWithdrawal{}))
	assert.Zero(t, countRows(t, db, &models.PaymentTransaction{}))
}

// drainBalanceBeforeUpdate empties every balance right before the next
// conditional update runs, as a concurrent writer committing first would.
func drainBalanceBeforeUpdate(t *testing.T, db *gorm.DB) {
	t.Helper()
	drained := false
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:drain_balance", func(tx *gorm.DB) {
		if drained || tx.Statement.Schema == nil || tx.Statement.Schema.Table != "driver_payments" {
			return
		}
		drained = true
		if _, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"UPDATE driver_payments SET pending_amount = 0, paid_amount = 0"); err != nil {
			_ = tx.AddError(err)
		}
	}))
	t.Cleanup(func() { _ = db.Callback().Update().Remove("test:drain_balance") })
}

func TestLedgerLostRaceReturnsBalanceChanged(t *testing.T) {
	tests := []struct {
		name   string
		record func(ctx context.Context, ledger *LedgerService, f *testutil.Fixture) error
	}{
		{"payment", func(ctx context.Context, ledger *LedgerService, f *testutil.Fixture) error {
			_, err := ledger.MakePayment(ctx, PaymentInput{DriverID: f.Driver.ID, Amount: decimal.NewFromInt(60)})
			return err
		}},
		{"withdrawal", func(ctx context.Context, ledger *LedgerService, f *testutil.Fixture) error {
			_, err := ledger.RecordWithdrawal(ctx, WithdrawalInput{DriverID: f.Driver.ID, Amount: decimal.NewFromInt(10)})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.NewTestDB(t)
			f := testutil.Seed(t, db)
			testutil.SetBalance(t, db, f.Driver.ID, "100", "20")
			publisher := events.NewMemoryPublisher()
			ledger := NewLedgerService(db, publisher, nil)
			drainBalanceBeforeUpdate(t, db)

			err := tt.record(context.Background(), ledger, f)
			var cerr *ConflictError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, "BALANCE_CHANGED", cerr.Code)

			// the drain ran inside the rolled back transaction
			payment := loadPayment(t, db, f.Driver.ID)
			assert.True(t, testutil.Money(t, "100").Equal(payment.PendingAmount))
			assert.True(t, testutil.Money(t, "20").Equal(payment.PaidAmount))
			assert.Zero(t, countRows(t, db, &models.PaymentTransaction{}))
			assert.Zero(t, countRows(t, db, &models.DriverWithdrawal{}))
			assert.Empty(t, publisher.Events())
		})
	}
}

func TestMakePaymentExactPendingAmount(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := testutil.Seed(t, db)
	testutil.SetBalance(t, db, f.Driver.ID, "12.50", "0")
	ledger := NewLedgerService(db, nil, nil)

	result, err := ledger.MakePayment(context.Background(), PaymentInput{DriverID: f.Driver.ID, Amount: testutil.Money(t, "12.50")})
	require.NoError(t, err)
	assert.True(t, result.Balance.PendingAmount.IsZero())
	assert.True(t, testutil.Money(t, "12.50").Equal(result.Balance.PaidAmount))
}

func TestLedgerWithoutRow(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := testutil.Seed(t, db)
	ledger := NewLedgerService(db, nil, nil)
	ctx := context.Background()

	balance, err := ledger.GetBalance(ctx, f.Driver.ID)
	require.NoError(t, err)
	assert.False(t, balance.Persisted)
	assert.True(t, balance.PendingAmount.IsZero())
	assert.True(t, balance.PaidAmount.IsZero())

	_, err = ledger.MakePayment(ctx, PaymentInput{DriverID: f.Driver.ID, Amount: testutil.Money(t, "1")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "AMOUNT_EXCEEDS_PENDING", verr.Code)
}

func TestLedgerUnknownDriver(t *testing.T) {
	db := testutil.NewTestDB(t)
	ledger := NewLedgerService(db, nil, nil)

	_, err := ledger.GetBalance(context.Background(), testutil.Seed(t, db).Client.ID)
	var nerr *NotFoundError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "DRIVER_NOT_FOUND", nerr.Code)
}

func TestListBalancesIncludesDriversWithoutRows(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := testutil.Seed(t, db)
	other := testutil.CreateDriver(t, db, "Basel Noor", models.DriverOffline)
	testutil.SetBalance(t, db, other.ID, "5", "1")

	balances, err := NewLedgerService(db, nil, nil).ListBalances(context.Background())
	require.NoError(t, err)
	require.Len(t, balances, 2)

	assert.Equal(t, other.ID, balances[0].DriverID)
	assert.True(t, balances[0].Persisted)
	assert.Equal(t, f.Driver.ID, balances[1].DriverID)
	assert.False(t, balances[1].Persisted)
}

func TestListTransactionsFiltersByDriver(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := testutil.Seed(t, db)
	other := testutil.CreateDriver(t, db, "Basel Noor", models.DriverAvailable)
	testutil.SetBalance(t, db, f.Driver.ID, "10", "0")
	testutil.SetBalance(t, db, other.ID, "10", "0")

	ledger := NewLedgerService(db, nil, nil)
	ctx := context.Background()
	_, err := ledger.MakePayment(ctx, PaymentInput{DriverID: f.Driver.ID, Amount: testutil.Money(t, "3")})
	require.NoError(t, err)
	_, err = ledger.MakePayment(ctx, PaymentInput{DriverID: other.ID, Amount: testutil.Money(t, "4")})
	require.NoError(t, err)

	all, err := ledger.ListTransactions(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := ledger.ListTransactions(ctx, &f.Driver.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.True(t, testutil.Money(t, "3").Equal(mine[0].Amount))
}

func TestCreditOrderEarningsOncePerOrder(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := testutil.Seed(t, db)
	metrics := NewMetrics(prometheus.NewRegistry())
	ledger := NewLedgerService(db, nil, metrics)

	order := models.Order{
		ClientID:     f.Client.ID,
		DriverID:     &f.Driver.ID,
		Location:     testutil.DefaultLocation,
		Status:       models.OrderCompleted,
		TotalAmount:  testutil.Money(t, "30"),
		DriverAmount: testutil.Money(t, "25"),
	}
	require.NoError(t, db.Create(&order).Error)

	for i := 0; i < 2; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			_, err := ledger.CreditOrderEarnings(context.Background(), tx, &order)
			return err
		})
		require.NoError(t, err)
	}

	payment := loadPayment(t, db, f.Driver.ID)
	assert.True(t, testutil.Money(t, "25").Equal(payment.PendingAmount))
	assert.True(t, payment.PaidAmount.IsZero())

	var earnings int64
	require.NoError(t, db.Model(&models.DriverEarning{}).Where("order_id = ?", order.ID).Count(&earnings).Error)
	assert.EqualValues(t, 1, earnings)
	assert.Equal(t, 1.0, promtestutil.ToFloat64(metrics.earningsCredited))
}

func TestCreditOrderEarningsSkipsUnassignedOrders(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := testutil.Seed(t, db)
	ledger := NewLedgerService(db, nil, nil)

	order := models.Order{
		ClientID:     f.Client.ID,
		Location:     testutil.DefaultLocation,
		Status:       models.OrderCompleted,
		TotalAmount:  decimal.NewFromInt(10),
		DriverAmount: decimal.NewFromInt(10),
	}
	require.NoError(t, db.Create(&order).Error)

	earning, err := ledger.CreditOrderEarnings(context.Background(), db, &order)
	require.NoError(t, err)
	assert.Nil(t, earning)

	var count int64
	require.NoError(t, db.Model(&models.DriverPayment{}).Count(&count).Error)
	assert.Zero(t, count)
}
