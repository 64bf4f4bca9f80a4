package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/delivery-admin-api/services"
	"gorm.io/gorm"
)

// DashboardController serves /dashboard and /health
type DashboardController struct {
	dashboard *services.DashboardService
	db        *gorm.DB
}

// NewDashboardController creates a dashboard controller
func NewDashboardController(dashboard *services.DashboardService, db *gorm.DB) *DashboardController {
	return &DashboardController{dashboard: dashboard, db: db}
}

// Stats handles GET /api/v1/dashboard
func (dc *DashboardController) Stats(c *gin.Context) {
	stats, err := dc.dashboard.Stats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, stats)
}

// Health handles GET /api/v1/health. It pings the database.
func (dc *DashboardController) Health(c *gin.Context) {
	status := http.StatusOK
	database := "ok"
	if sqlDB, err := dc.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status = http.StatusServiceUnavailable
		database = "unavailable"
	}
	c.JSON(status, gin.H{
		"success": status == http.StatusOK,
		"data": gin.H{
			"status":   http.StatusText(status),
			"database": database,
			"time":     time.Now().UTC(),
		},
	})
}
