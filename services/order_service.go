package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/kendall-kelly/delivery-admin-api/events"
	"github.com/kendall-kelly/delivery-admin-api/models"
	"gorm.io/gorm"
)

// CreateOrderInput is an order request before pricing
type CreateOrderInput struct {
	ClientID uuid.UUID   `json:"client_id" validate:"required"`
	DriverID *uuid.UUID  `json:"driver_id"`
	Location string      `json:"location" validate:"required,max=200"`
	Items    []LineInput `json:"items"`
}

// OrderFilter narrows order listings
type OrderFilter struct {
	Search string
	Status string
}

// OrderService manages live orders
type OrderService struct {
	db        *gorm.DB
	ledger    *LedgerService
	publisher events.Publisher
}

// NewOrderService creates an order service. ledger credits drivers when an
// order completes.
func NewOrderService(db *gorm.DB, ledger *LedgerService, publisher events.Publisher) *OrderService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &OrderService{db: db, ledger: ledger, publisher: publisher}
}

// Create prices the lines and stores the order with its items in one
// transaction. Nothing is written when validation or pricing fails.
func (s *OrderService) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := checkOrderParties(ctx, s.db, input.ClientID, input.DriverID, input.Location); err != nil {
		return nil, err
	}

	snapshot, err := NewPricingService(s.db).Snapshot(ctx, input.DriverID, input.Items)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		ClientID:     input.ClientID,
		DriverID:     input.DriverID,
		Location:     input.Location,
		Status:       models.OrderNew,
		TotalAmount:  snapshot.TotalAmount,
		DriverAmount: snapshot.DriverAmount,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(&order).Error; err != nil {
			return remote("create order", err)
		}
		items := make([]models.OrderItem, 0, len(snapshot.Lines))
		for _, line := range snapshot.Lines {
			items = append(items, models.OrderItem{
				OrderID:     order.ID,
				ProductID:   line.ProductID,
				Quantity:    line.Quantity,
				AdminPrice:  line.AdminPrice,
				DriverPrice: line.DriverPrice,
			})
		}
		if err := tx.Create(&items).Error; err != nil {
			return remote("create order items", err)
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return nil, remote("create order", err)
	}

	s.publish(ctx, events.NewEvent(events.OrderCreated, order.ID.String(), order))
	return &order, nil
}

// Get loads an order with its client, driver and items
func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Client").
		Preload("Driver").
		Preload("Items.Product").
		First(&order, "id = ?", id).Error
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, notFound("ORDER_NOT_FOUND", "order %s not found", id)
		}
		return nil, remote("load order", err)
	}
	return &order, nil
}

// List returns orders newest first. Search matches client name or phone,
// driver name and location.
func (s *OrderService) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{}).
		Preload("Client").
		Preload("Driver").
		Order("orders.created_at desc")

	if filter.Status != "" {
		if !models.IsValidOrderStatus(filter.Status) {
			return nil, invalid("INVALID_STATUS", "unknown order status %q", filter.Status)
		}
		query = query.Where("orders.status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.
			Joins("LEFT JOIN clients ON clients.id = orders.client_id").
			Joins("LEFT JOIN drivers ON drivers.id = orders.driver_id").
			Where("LOWER(clients.full_name) LIKE ? OR LOWER(clients.phone_number) LIKE ? OR LOWER(drivers.full_name) LIKE ? OR LOWER(orders.location) LIKE ?",
				like, like, like, like)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, remote("list orders", err)
	}
	return orders, nil
}

// UpdateStatus sets any order status. Completing an order with a driver
// credits the driver's pending balance once; an order produced by a scheduled
// order carries the new status back to it.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error) {
	if !models.IsValidOrderStatus(status) {
		return nil, invalid("INVALID_STATUS", "unknown order status %q", status)
	}

	var (
		order    models.Order
		previous string
		earning  *models.DriverEarning
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, "id = ?", id).Error; err != nil {
			if IsRecordNotFound(err) {
				return notFound("ORDER_NOT_FOUND", "order %s not found", id)
			}
			return remote("load order", err)
		}
		previous = order.Status

		if err := tx.Model(&order).Update("status", status).Error; err != nil {
			return remote("update order status", err)
		}
		order.Status = status

		if order.ScheduledOrderID != nil {
			if err := tx.Model(&models.ScheduledOrder{}).
				Where("id = ?", *order.ScheduledOrderID).
				Update("status", status).Error; err != nil {
				return remote("mirror scheduled order status", err)
			}
		}

		if status == models.OrderCompleted && s.ledger != nil {
			credited, err := s.ledger.CreditOrderEarnings(ctx, tx, &order)
			if err != nil {
				return err
			}
			earning = credited
		}
		return nil
	})
	if err != nil {
		return nil, remote("update order status", err)
	}

	evs := []events.Event{events.NewEvent(events.OrderStatusChanged, order.ID.String(), map[string]interface{}{
		"order_id": order.ID,
		"from":     previous,
		"to":       status,
	})}
	if earning != nil {
		evs = append(evs, events.NewEvent(events.DriverEarningsCredited, earning.DriverID.String(), earning))
	}
	s.publish(ctx, evs...)
	return &order, nil
}

// AssignDriver sets or clears the order's driver. Prices stay as snapshotted.
func (s *OrderService) AssignDriver(ctx context.Context, id uuid.UUID, driverID *uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, "id = ?", id).Error; err != nil {
			if IsRecordNotFound(err) {
				return notFound("ORDER_NOT_FOUND", "order %s not found", id)
			}
			return remote("load order", err)
		}
		if driverID != nil {
			if err := checkAvailableDriver(ctx, tx, *driverID); err != nil {
				return err
			}
		}
		if err := tx.Model(&order).Update("driver_id", driverID).Error; err != nil {
			return remote("assign driver", err)
		}
		order.DriverID = driverID
		return nil
	})
	if err != nil {
		return nil, remote("assign driver", err)
	}
	return &order, nil
}

// Delete removes the order's items and then the order, atomically
func (s *OrderService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, "id = ?", id).Error; err != nil {
			if IsRecordNotFound(err) {
				return notFound("ORDER_NOT_FOUND", "order %s not found", id)
			}
			return remote("load order", err)
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return remote("delete order items", err)
		}
		if err := tx.Delete(&order).Error; err != nil {
			return remote("delete order", err)
		}
		return nil
	})
	return remote("delete order", err)
}

func (s *OrderService) publish(ctx context.Context, evs ...events.Event) {
	if err := s.publisher.Publish(ctx, evs...); err != nil {
		slog.Warn("failed to publish order event", slog.Any("error", err))
	}
}

// checkOrderParties verifies the client, the location and the optional driver
// referenced by an order or scheduled order
func checkOrderParties(ctx context.Context, db *gorm.DB, clientID uuid.UUID, driverID *uuid.UUID, location string) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Client{}).Where("id = ?", clientID).Count(&count).Error; err != nil {
		return remote("check client", err)
	}
	if count == 0 {
		return invalid("CLIENT_NOT_FOUND", "client %s does not exist", clientID)
	}

	if err := checkLocation(ctx, db, location); err != nil {
		return err
	}

	if driverID != nil {
		return checkAvailableDriver(ctx, db, *driverID)
	}
	return nil
}

func checkAvailableDriver(ctx context.Context, db *gorm.DB, driverID uuid.UUID) error {
	var driver models.Driver
	if err := db.WithContext(ctx).First(&driver, "id = ?", driverID).Error; err != nil {
		if IsRecordNotFound(err) {
			return invalid("DRIVER_NOT_FOUND", "driver %s does not exist", driverID)
		}
		return remote("check driver", err)
	}
	if driver.Status != models.DriverAvailable {
		return invalid("DRIVER_UNAVAILABLE", "driver %s is %s", driver.FullName, driver.Status)
	}
	return nil
}
