package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/delivery-admin-api/services"
)

// ScheduledOrderController serves /scheduled-orders
type ScheduledOrderController struct {
	scheduled *services.ScheduledOrderService
	activator services.DueActivator
}

// NewScheduledOrderController creates a scheduled order controller
func NewScheduledOrderController(scheduled *services.ScheduledOrderService, activator services.DueActivator) *ScheduledOrderController {
	return &ScheduledOrderController{scheduled: scheduled, activator: activator}
}

// List handles GET /api/v1/scheduled-orders?search=&status=
func (sc *ScheduledOrderController) List(c *gin.Context) {
	orders, err := sc.scheduled.List(c.Request.Context(), services.ScheduledOrderFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, orders)
}

// Get handles GET /api/v1/scheduled-orders/:id
func (sc *ScheduledOrderController) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	order, err := sc.scheduled.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, order)
}

// Create handles POST /api/v1/scheduled-orders
func (sc *ScheduledOrderController) Create(c *gin.Context) {
	var req services.CreateScheduledOrderInput
	if !bindJSON(c, &req) {
		return
	}
	order, err := sc.scheduled.Create(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusCreated, order)
}

// Cancel handles POST /api/v1/scheduled-orders/:id/cancel
func (sc *ScheduledOrderController) Cancel(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	order, err := sc.scheduled.Cancel(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, order)
}

// Delete handles DELETE /api/v1/scheduled-orders/:id
func (sc *ScheduledOrderController) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := sc.scheduled.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id})
}

// ActivateDue handles POST /api/v1/scheduled-orders/activate-due and runs one
// activation pass synchronously.
func (sc *ScheduledOrderController) ActivateDue(c *gin.Context) {
	result, err := sc.activator.ActivateDue(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, result)
}
