package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kendall-kelly/delivery-admin-api/services"
)

// UpdateOrderStatusRequest is the body of PATCH /orders/:id/status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AssignDriverRequest is the body of PATCH /orders/:id/driver. A null
// driver_id unassigns the order.
type AssignDriverRequest struct {
	DriverID *uuid.UUID `json:"driver_id"`
}

// SnapshotRequest is the body of POST /pricing/snapshot
type SnapshotRequest struct {
	DriverID *uuid.UUID          `json:"driver_id"`
	Items    []services.LineInput `json:"items"`
}

// OrderController serves /orders and /pricing
type OrderController struct {
	orders  *services.OrderService
	pricing *services.PricingService
}

// NewOrderController creates an order controller
func NewOrderController(orders *services.OrderService, pricing *services.PricingService) *OrderController {
	return &OrderController{orders: orders, pricing: pricing}
}

// List handles GET /api/v1/orders?search=&status=
func (oc *OrderController) List(c *gin.Context) {
	orders, err := oc.orders.List(c.Request.Context(), services.OrderFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, orders)
}

// Get handles GET /api/v1/orders/:id
func (oc *OrderController) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	order, err := oc.orders.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, order)
}

// Create handles POST /api/v1/orders. Prices are snapshotted server side.
func (oc *OrderController) Create(c *gin.Context) {
	var req services.CreateOrderInput
	if !bindJSON(c, &req) {
		return
	}
	order, err := oc.orders.Create(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusCreated, order)
}

// UpdateStatus handles PATCH /api/v1/orders/:id/status
func (oc *OrderController) UpdateStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := oc.orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, order)
}

// AssignDriver handles PATCH /api/v1/orders/:id/driver
func (oc *OrderController) AssignDriver(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req AssignDriverRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := oc.orders.AssignDriver(c.Request.Context(), id, req.DriverID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, order)
}

// Delete handles DELETE /api/v1/orders/:id
func (oc *OrderController) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := oc.orders.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id})
}

// Snapshot handles POST /api/v1/pricing/snapshot. It prices lines without
// writing anything.
func (oc *OrderController) Snapshot(c *gin.Context) {
	var req SnapshotRequest
	if !bindJSON(c, &req) {
		return
	}
	snapshot, err := oc.pricing.Snapshot(c.Request.Context(), req.DriverID, req.Items)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, snapshot)
}
