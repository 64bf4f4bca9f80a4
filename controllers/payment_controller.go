package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/delivery-admin-api/services"
	"github.com/shopspring/decimal"
)

// LedgerRequest is the body of the pay and withdraw endpoints. Amount accepts
// a JSON number or a decimal string.
type LedgerRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
	Notes  *string          `json:"notes"`
}

// PaymentController serves /payments
type PaymentController struct {
	ledger *services.LedgerService
}

// NewPaymentController creates a payment controller
func NewPaymentController(ledger *services.LedgerService) *PaymentController {
	return &PaymentController{ledger: ledger}
}

// ListBalances handles GET /api/v1/payments
func (pc *PaymentController) ListBalances(c *gin.Context) {
	balances, err := pc.ledger.ListBalances(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, balances)
}

// GetBalance handles GET /api/v1/payments/:driverId
func (pc *PaymentController) GetBalance(c *gin.Context) {
	driverID, ok := uuidParam(c, "driverId")
	if !ok {
		return
	}
	balance, err := pc.ledger.GetBalance(c.Request.Context(), driverID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, balance)
}

// Pay handles POST /api/v1/payments/:driverId/pay
func (pc *PaymentController) Pay(c *gin.Context) {
	driverID, ok := uuidParam(c, "driverId")
	if !ok {
		return
	}
	var req LedgerRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := pc.ledger.MakePayment(c.Request.Context(), services.PaymentInput{
		DriverID: driverID,
		Amount:   *req.Amount,
		Notes:    req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusCreated, result)
}

// Withdraw handles POST /api/v1/payments/:driverId/withdraw
func (pc *PaymentController) Withdraw(c *gin.Context) {
	driverID, ok := uuidParam(c, "driverId")
	if !ok {
		return
	}
	var req LedgerRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := pc.ledger.RecordWithdrawal(c.Request.Context(), services.WithdrawalInput{
		DriverID: driverID,
		Amount:   *req.Amount,
		Notes:    req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusCreated, result)
}

// ListTransactions handles GET /api/v1/payments/transactions?driver_id=
func (pc *PaymentController) ListTransactions(c *gin.Context) {
	driverID, ok := optionalUUIDQuery(c, "driver_id")
	if !ok {
		return
	}
	transactions, err := pc.ledger.ListTransactions(c.Request.Context(), driverID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, transactions)
}

// ListWithdrawals handles GET /api/v1/payments/withdrawals?driver_id=
func (pc *PaymentController) ListWithdrawals(c *gin.Context) {
	driverID, ok := optionalUUIDQuery(c, "driver_id")
	if !ok {
		return
	}
	withdrawals, err := pc.ledger.ListWithdrawals(c.Request.Context(), driverID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, withdrawals)
}
