package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/delivery-admin-api/services"
)

// UpdateDriverStatusRequest is the body of PATCH /drivers/:id/status
type UpdateDriverStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// DriverController serves /drivers
type DriverController struct {
	drivers *services.DriverService
}

// NewDriverController creates a driver controller
func NewDriverController(drivers *services.DriverService) *DriverController {
	return &DriverController{drivers: drivers}
}

// List handles GET /api/v1/drivers?search=&status=
func (dc *DriverController) List(c *gin.Context) {
	drivers, err := dc.drivers.List(c.Request.Context(), services.DriverFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, drivers)
}

// Get handles GET /api/v1/drivers/:id
func (dc *DriverController) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	driver, err := dc.drivers.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, driver)
}

// Create handles POST /api/v1/drivers
func (dc *DriverController) Create(c *gin.Context) {
	var req services.DriverInput
	if !bindJSON(c, &req) {
		return
	}
	driver, err := dc.drivers.Create(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusCreated, driver)
}

// Update handles PUT /api/v1/drivers/:id. Omitting "prices" keeps the
// driver's overrides.
func (dc *DriverController) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.DriverInput
	if !bindJSON(c, &req) {
		return
	}
	driver, err := dc.drivers.Update(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, driver)
}

// UpdateStatus handles PATCH /api/v1/drivers/:id/status
func (dc *DriverController) UpdateStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateDriverStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	driver, err := dc.drivers.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, driver)
}

// Prices handles GET /api/v1/drivers/:id/prices
func (dc *DriverController) Prices(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	prices, err := dc.drivers.Prices(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, prices)
}

// Delete handles DELETE /api/v1/drivers/:id
func (dc *DriverController) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := dc.drivers.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id})
}

// UploadImage handles POST /api/v1/drivers/:id/image (multipart "image")
func (dc *DriverController) UploadImage(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	fileHeader, ok := formImage(c)
	if !ok {
		return
	}
	driver, err := dc.drivers.SetCarImage(c.Request.Context(), id, fileHeader)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, driver)
}

// DeleteImage handles DELETE /api/v1/drivers/:id/image
func (dc *DriverController) DeleteImage(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	driver, err := dc.drivers.RemoveCarImage(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, driver)
}
