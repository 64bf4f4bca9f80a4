package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/delivery-admin-api/middleware"
	"github.com/kendall-kelly/delivery-admin-api/services"
)

// AdminController serves /admins
type AdminController struct {
	admins *services.AdminService
}

// NewAdminController creates an admin controller
func NewAdminController(admins *services.AdminService) *AdminController {
	return &AdminController{admins: admins}
}

// List handles GET /api/v1/admins
func (ac *AdminController) List(c *gin.Context) {
	admins, err := ac.admins.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, admins)
}

// Me handles GET /api/v1/admins/me
func (ac *AdminController) Me(c *gin.Context) {
	admin, err := middleware.GetAdmin(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract admin information", nil)
		return
	}
	respondData(c, http.StatusOK, admin)
}

// Create handles POST /api/v1/admins (super admins only)
func (ac *AdminController) Create(c *gin.Context) {
	var req services.AdminInput
	if !bindJSON(c, &req) {
		return
	}
	admin, err := ac.admins.Create(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusCreated, admin)
}

// Delete handles DELETE /api/v1/admins/:id (super admins only)
func (ac *AdminController) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	actor, err := middleware.GetAdmin(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract admin information", nil)
		return
	}
	if err := ac.admins.Delete(c.Request.Context(), actor, id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id})
}
