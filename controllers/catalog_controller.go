package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/delivery-admin-api/services"
)

// LocationController serves /locations
type LocationController struct {
	locations *services.LocationService
}

// NewLocationController creates a location controller
func NewLocationController(locations *services.LocationService) *LocationController {
	return &LocationController{locations: locations}
}

// List handles GET /api/v1/locations?search=
func (lc *LocationController) List(c *gin.Context) {
	locations, err := lc.locations.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, locations)
}

// Create handles POST /api/v1/locations
func (lc *LocationController) Create(c *gin.Context) {
	var req services.LocationInput
	if !bindJSON(c, &req) {
		return
	}
	location, err := lc.locations.Create(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusCreated, location)
}

// Update handles PUT /api/v1/locations/:id
func (lc *LocationController) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.LocationInput
	if !bindJSON(c, &req) {
		return
	}
	location, err := lc.locations.Update(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, location)
}

// Delete handles DELETE /api/v1/locations/:id
func (lc *LocationController) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := lc.locations.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id})
}

// ProductController serves /products
type ProductController struct {
	products *services.ProductService
}

// NewProductController creates a product controller
func NewProductController(products *services.ProductService) *ProductController {
	return &ProductController{products: products}
}

// List handles GET /api/v1/products?search=
func (pc *ProductController) List(c *gin.Context) {
	products, err := pc.products.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, products)
}

// Get handles GET /api/v1/products/:id
func (pc *ProductController) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	product, err := pc.products.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, product)
}

// Create handles POST /api/v1/products
func (pc *ProductController) Create(c *gin.Context) {
	var req services.ProductInput
	if !bindJSON(c, &req) {
		return
	}
	product, err := pc.products.Create(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusCreated, product)
}

// Update handles PUT /api/v1/products/:id
func (pc *ProductController) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.ProductInput
	if !bindJSON(c, &req) {
		return
	}
	product, err := pc.products.Update(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, product)
}

// Delete handles DELETE /api/v1/products/:id
func (pc *ProductController) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := pc.products.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id})
}

// UploadPhoto handles POST /api/v1/products/:id/photo (multipart "image")
func (pc *ProductController) UploadPhoto(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	fileHeader, ok := formImage(c)
	if !ok {
		return
	}
	product, err := pc.products.SetPhoto(c.Request.Context(), id, fileHeader)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, product)
}

// DeletePhoto handles DELETE /api/v1/products/:id/photo
func (pc *ProductController) DeletePhoto(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	product, err := pc.products.RemovePhoto(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, product)
}

// ClientController serves /clients
type ClientController struct {
	clients *services.ClientService
}

// NewClientController creates a client controller
func NewClientController(clients *services.ClientService) *ClientController {
	return &ClientController{clients: clients}
}

// List handles GET /api/v1/clients?search=
func (cc *ClientController) List(c *gin.Context) {
	clients, err := cc.clients.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, clients)
}

// Get handles GET /api/v1/clients/:id
func (cc *ClientController) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	client, err := cc.clients.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, client)
}

// Create handles POST /api/v1/clients
func (cc *ClientController) Create(c *gin.Context) {
	var req services.ClientInput
	if !bindJSON(c, &req) {
		return
	}
	client, err := cc.clients.Create(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusCreated, client)
}

// Update handles PUT /api/v1/clients/:id
func (cc *ClientController) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.ClientInput
	if !bindJSON(c, &req) {
		return
	}
	client, err := cc.clients.Update(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, client)
}

// Delete handles DELETE /api/v1/clients/:id
func (cc *ClientController) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := cc.clients.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id})
}

// UploadImage handles POST /api/v1/clients/:id/image (multipart "image")
func (cc *ClientController) UploadImage(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	fileHeader, ok := formImage(c)
	if !ok {
		return
	}
	client, err := cc.clients.SetHouseImage(c.Request.Context(), id, fileHeader)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, client)
}

// DeleteImage handles DELETE /api/v1/clients/:id/image
func (cc *ClientController) DeleteImage(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	client, err := cc.clients.RemoveHouseImage(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, client)
}
