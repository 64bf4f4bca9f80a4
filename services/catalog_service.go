package services

import (
	"context"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"github.com/kendall-kelly/delivery-admin-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LocationInput creates or renames a location
type LocationInput struct {
	Name    string  `json:"name" validate:"required,max=100"`
	Address *string `json:"address" validate:"omitempty,max=300"`
}

// LocationService manages the reference set of delivery locations
type LocationService struct {
	db *gorm.DB
}

// NewLocationService creates a location service
func NewLocationService(db *gorm.DB) *LocationService {
	return &LocationService{db: db}
}

// List returns locations ordered by name
func (s *LocationService) List(ctx context.Context, search string) ([]models.Location, error) {
	query := s.db.WithContext(ctx).Order("name asc")
	if search = strings.TrimSpace(search); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	var locations []models.Location
	if err := query.Find(&locations).Error; err != nil {
		return nil, remote("list locations", err)
	}
	return locations, nil
}

// Create adds a location; names are unique
func (s *LocationService) Create(ctx context.Context, input LocationInput) (*models.Location, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	location := models.Location{Name: strings.TrimSpace(input.Name), Address: input.Address}
	if err := s.db.WithContext(ctx).Create(&location).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, conflict("LOCATION_EXISTS", "location %q already exists", location.Name)
		}
		return nil, remote("create location", err)
	}
	return &location, nil
}

// Update renames a location or changes its address
func (s *LocationService) Update(ctx context.Context, id uuid.UUID, input LocationInput) (*models.Location, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	var location models.Location
	if err := s.db.WithContext(ctx).First(&location, "id = ?", id).Error; err != nil {
		if IsRecordNotFound(err) {
			return nil, notFound("LOCATION_NOT_FOUND", "location %s not found", id)
		}
		return nil, remote("load location", err)
	}
	location.Name = strings.TrimSpace(input.Name)
	location.Address = input.Address
	if err := s.db.WithContext(ctx).Save(&location).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, conflict("LOCATION_EXISTS", "location %q already exists", location.Name)
		}
		return nil, remote("update location", err)
	}
	return &location, nil
}

// Delete removes a location
func (s *LocationService) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.Location{}, "id = ?", id)
	if res.Error != nil {
		return remote("delete location", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("LOCATION_NOT_FOUND", "location %s not found", id)
	}
	return nil
}

// ProductInput creates or updates a catalog product
type ProductInput struct {
	Name         string           `json:"name" validate:"required,max=200"`
	AdminPrice   decimal.Decimal  `json:"admin_price" validate:"-"`
	ProfitAmount *decimal.Decimal `json:"profit_amount" validate:"-"`
	Note         *string          `json:"note" validate:"omitempty,max=1000"`
}

// ProductService manages the product catalog
type ProductService struct {
	db     *gorm.DB
	images ImageService
}

// NewProductService creates a product service. images may be nil when
// storage is not configured.
func NewProductService(db *gorm.DB, images ImageService) *ProductService {
	return &ProductService{db: db, images: images}
}

// List returns products ordered by name
func (s *ProductService) List(ctx context.Context, search string) ([]models.Product, error) {
	query := s.db.WithContext(ctx).Order("name asc")
	if search = strings.TrimSpace(search); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, remote("list products", err)
	}
	for i := range products {
		products[i].PhotoURL = imageURL(ctx, s.images, products[i].PhotoKey)
	}
	return products, nil
}

// Get loads one product
func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if IsRecordNotFound(err) {
			return nil, notFound("PRODUCT_NOT_FOUND", "product %s not found", id)
		}
		return nil, remote("load product", err)
	}
	product.PhotoURL = imageURL(ctx, s.images, product.PhotoKey)
	return &product, nil
}

// Create adds a product
func (s *ProductService) Create(ctx context.Context, input ProductInput) (*models.Product, error) {
	if err := validateProduct(input); err != nil {
		return nil, err
	}
	product := models.Product{
		Name:         strings.TrimSpace(input.Name),
		AdminPrice:   input.AdminPrice,
		ProfitAmount: input.ProfitAmount,
		Note:         input.Note,
	}
	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, remote("create product", err)
	}
	return &product, nil
}

// Update changes a product's catalog fields. Orders keep the prices they were
// created with.
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, input ProductInput) (*models.Product, error) {
	if err := validateProduct(input); err != nil {
		return nil, err
	}
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(product).Updates(map[string]interface{}{
		"name":          strings.TrimSpace(input.Name),
		"admin_price":   input.AdminPrice,
		"profit_amount": input.ProfitAmount,
		"note":          input.Note,
	}).Error
	if err != nil {
		return nil, remote("update product", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a product and its driver overrides. Products referenced by
// any order line are kept.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var used int64
		if err := tx.Model(&models.OrderItem{}).Where("product_id = ?", id).Count(&used).Error; err != nil {
			return remote("check order items", err)
		}
		var scheduled int64
		if err := tx.Model(&models.ScheduledOrderItem{}).Where("product_id = ?", id).Count(&scheduled).Error; err != nil {
			return remote("check scheduled order items", err)
		}
		if used+scheduled > 0 {
			return conflict("PRODUCT_IN_USE", "product %s is used by %d order lines", product.Name, used+scheduled)
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.DriverProductPrice{}).Error; err != nil {
			return remote("delete driver prices", err)
		}
		if err := tx.Delete(&models.Product{}, "id = ?", id).Error; err != nil {
			return remote("delete product", err)
		}
		return nil
	})
	if err != nil {
		return remote("delete product", err)
	}
	if s.images != nil && product.PhotoKey != nil {
		_ = s.images.DeleteImage(ctx, *product.PhotoKey)
	}
	return nil
}

// SetPhoto uploads a new product photo, replacing the previous one
func (s *ProductService) SetPhoto(ctx context.Context, id uuid.UUID, fileHeader *multipart.FileHeader) (*models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	_, err = replaceImage(ctx, s.images, ProductPhotoFolder, fileHeader, product.PhotoKey, func(key *string) error {
		return remote("store product photo", s.db.WithContext(ctx).Model(product).Update("photo_key", key).Error)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// RemovePhoto deletes the product photo
func (s *ProductService) RemovePhoto(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	err = removeImage(ctx, s.images, product.PhotoKey, func(key *string) error {
		return remote("clear product photo", s.db.WithContext(ctx).Model(product).Update("photo_key", key).Error)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func validateProduct(input ProductInput) error {
	if err := validateInput(input); err != nil {
		return err
	}
	if input.AdminPrice.IsNegative() || !input.AdminPrice.Equal(input.AdminPrice.Round(2)) {
		return invalid("INVALID_PRICE", "admin price must be a non-negative amount with at most two decimals")
	}
	if input.ProfitAmount != nil && !input.ProfitAmount.Equal(input.ProfitAmount.Round(2)) {
		return invalid("INVALID_PRICE", "profit amount cannot have more than two decimal places")
	}
	return nil
}

// ClientInput creates or updates a client
type ClientInput struct {
	FullName    string `json:"full_name" validate:"required,max=200"`
	Location    string `json:"location" validate:"required,max=100"`
	PhoneNumber string `json:"phone_number" validate:"required,max=30"`
}

// ClientService manages delivery recipients
type ClientService struct {
	db     *gorm.DB
	images ImageService
}

// NewClientService creates a client service
func NewClientService(db *gorm.DB, images ImageService) *ClientService {
	return &ClientService{db: db, images: images}
}

// List returns clients ordered by name. Search matches name, phone or location.
func (s *ClientService) List(ctx context.Context, search string) ([]models.Client, error) {
	query := s.db.WithContext(ctx).Order("full_name asc")
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR LOWER(phone_number) LIKE ? OR LOWER(location) LIKE ?", like, like, like)
	}
	var clients []models.Client
	if err := query.Find(&clients).Error; err != nil {
		return nil, remote("list clients", err)
	}
	for i := range clients {
		clients[i].HouseImageURL = imageURL(ctx, s.images, clients[i].HouseImageKey)
	}
	return clients, nil
}

// Get loads one client
func (s *ClientService) Get(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, "id = ?", id).Error; err != nil {
		if IsRecordNotFound(err) {
			return nil, notFound("CLIENT_NOT_FOUND", "client %s not found", id)
		}
		return nil, remote("load client", err)
	}
	client.HouseImageURL = imageURL(ctx, s.images, client.HouseImageKey)
	return &client, nil
}

// Create adds a client at a known location
func (s *ClientService) Create(ctx context.Context, input ClientInput) (*models.Client, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := checkLocation(ctx, s.db, input.Location); err != nil {
		return nil, err
	}
	client := models.Client{
		FullName:    strings.TrimSpace(input.FullName),
		Location:    input.Location,
		PhoneNumber: strings.TrimSpace(input.PhoneNumber),
	}
	if err := s.db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, remote("create client", err)
	}
	return &client, nil
}

// Update changes a client's details
func (s *ClientService) Update(ctx context.Context, id uuid.UUID, input ClientInput) (*models.Client, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	client, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkLocation(ctx, s.db, input.Location); err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(client).Updates(map[string]interface{}{
		"full_name":    strings.TrimSpace(input.FullName),
		"location":     input.Location,
		"phone_number": strings.TrimSpace(input.PhoneNumber),
	}).Error
	if err != nil {
		return nil, remote("update client", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a client that has no orders
func (s *ClientService) Delete(ctx context.Context, id uuid.UUID) error {
	client, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	var orders, scheduled int64
	if err := s.db.WithContext(ctx).Model(&models.Order{}).Where("client_id = ?", id).Count(&orders).Error; err != nil {
		return remote("check client orders", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.ScheduledOrder{}).Where("client_id = ?", id).Count(&scheduled).Error; err != nil {
		return remote("check client scheduled orders", err)
	}
	if orders+scheduled > 0 {
		return conflict("CLIENT_HAS_ORDERS", "client %s has %d orders", client.FullName, orders+scheduled)
	}
	if err := s.db.WithContext(ctx).Delete(&models.Client{}, "id = ?", id).Error; err != nil {
		return remote("delete client", err)
	}
	if s.images != nil && client.HouseImageKey != nil {
		_ = s.images.DeleteImage(ctx, *client.HouseImageKey)
	}
	return nil
}

// SetHouseImage uploads a new house image for the client
func (s *ClientService) SetHouseImage(ctx context.Context, id uuid.UUID, fileHeader *multipart.FileHeader) (*models.Client, error) {
	client, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	_, err = replaceImage(ctx, s.images, ClientHouseFolder, fileHeader, client.HouseImageKey, func(key *string) error {
		return remote("store house image", s.db.WithContext(ctx).Model(client).Update("house_image_key", key).Error)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// RemoveHouseImage deletes the client's house image
func (s *ClientService) RemoveHouseImage(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	client, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	err = removeImage(ctx, s.images, client.HouseImageKey, func(key *string) error {
		return remote("clear house image", s.db.WithContext(ctx).Model(client).Update("house_image_key", key).Error)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func checkLocation(ctx context.Context, db *gorm.DB, name string) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Location{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return remote("check location", err)
	}
	if count == 0 {
		return invalid("LOCATION_NOT_FOUND", "location %q is not a known location", name)
	}
	return nil
}
