package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/delivery-admin-api/models"
	"github.com/kendall-kelly/delivery-admin-api/services"
	"github.com/kendall-kelly/delivery-admin-api/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupPaymentRouter(db *gorm.DB) *gin.Engine {
	pc := NewPaymentController(services.NewLedgerService(db, nil, nil))
	router := newRouter(&models.Admin{Role: models.RoleSubAdmin})
	router.GET("/payments", pc.ListBalances)
	router.GET("/payments/transactions", pc.ListTransactions)
	router.GET("/payments/withdrawals", pc.ListWithdrawals)
	router.GET("/payments/:driverId", pc.GetBalance)
	router.POST("/payments/:driverId/pay", pc.Pay)
	router.POST("/payments/:driverId/withdraw", pc.Withdraw)
	return router
}

func TestPaymentFlow(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := testutil.Seed(t, db)
	testutil.SetBalance(t, db, f.Driver.ID, "100", "0")
	router := setupPaymentRouter(db)
	base := "/payments/" + f.Driver.ID.String()

	w := performRequest(t, router, http.MethodPost, base+"/pay", gin.H{"amount": "150"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "AMOUNT_EXCEEDS_PENDING", errorCode(t, w))

	w = performRequest(t, router, http.MethodPost, base+"/pay", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))

	w = performRequest(t, router, http.MethodPost, base+"/pay", gin.H{"amount": 40, "notes": "cash"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var paid services.PaymentResult
	decodeEnvelope(t, w, &paid)
	requireMoney(t, "60", paid.Balance.PendingAmount)
	requireMoney(t, "40", paid.Balance.PaidAmount)

	w = performRequest(t, router, http.MethodPost, base+"/withdraw", gin.H{"amount": "50"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "AMOUNT_EXCEEDS_PAID", errorCode(t, w))

	w = performRequest(t, router, http.MethodPost, base+"/withdraw", gin.H{"amount": "15.25"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var withdrawn services.WithdrawalResult
	decodeEnvelope(t, w, &withdrawn)
	requireMoney(t, "24.75", withdrawn.Balance.PaidAmount)
	requireMoney(t, "60", withdrawn.Balance.PendingAmount)

	w = performRequest(t, router, http.MethodGet, "/payments/transactions?driver_id="+f.Driver.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var transactions []models.PaymentTransaction
	decodeEnvelope(t, w, &transactions)
	assert.Len(t, transactions, 2)

	w = performRequest(t, router, http.MethodGet, "/payments/withdrawals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var withdrawals []models.DriverWithdrawal
	decodeEnvelope(t, w, &withdrawals)
	assert.Len(t, withdrawals, 1)
}

func TestListBalancesIncludesDriversWithoutLedger(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := testutil.Seed(t, db)
	other := testutil.CreateDriver(t, db, "Khaled", models.DriverAvailable)
	testutil.SetBalance(t, db, other.ID, "5", "1")
	router := setupPaymentRouter(db)

	w := performRequest(t, router, http.MethodGet, "/payments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var balances []services.DriverBalance
	decodeEnvelope(t, w, &balances)
	require.Len(t, balances, 2)

	byDriver := map[string]services.DriverBalance{}
	for _, b := range balances {
		byDriver[b.DriverID.String()] = b
	}
	assert.False(t, byDriver[f.Driver.ID.String()].Persisted)
	assert.True(t, byDriver[f.Driver.ID.String()].PendingAmount.IsZero())
	requireMoney(t, "5", byDriver[other.ID.String()].PendingAmount)

	w = performRequest(t, router, http.MethodGet, "/payments/7c9e6679-7425-40de-944b-e07fc1f90ae7", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "DRIVER_NOT_FOUND", errorCode(t, w))
}
