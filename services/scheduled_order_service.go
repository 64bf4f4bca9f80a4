package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/delivery-admin-api/events"
	"github.com/kendall-kelly/delivery-admin-api/models"
	"github.com/kendall-kelly/delivery-admin-api/utils"
	"gorm.io/gorm"
)

// ActivationScheduler arranges for a scheduled order to be activated at its
// due time. Implementations must tolerate being asked twice for the same id.
type ActivationScheduler interface {
	ScheduleActivation(ctx context.Context, scheduledOrderID uuid.UUID, at time.Time) error
}

// CreateScheduledOrderInput is a scheduled order request before pricing.
// ScheduledDatetime is RFC3339 or a UTC+3 wall-clock time.
type CreateScheduledOrderInput struct {
	ClientID          uuid.UUID   `json:"client_id" validate:"required"`
	DriverID          *uuid.UUID  `json:"driver_id"`
	Location          string      `json:"location" validate:"required,max=200"`
	ScheduledDatetime string      `json:"scheduled_datetime" validate:"required"`
	Items             []LineInput `json:"items"`
}

// ScheduledOrderFilter narrows scheduled order listings
type ScheduledOrderFilter struct {
	Search string
	Status string
}

// ScheduledOrderService manages scheduled orders up to their activation
type ScheduledOrderService struct {
	db        *gorm.DB
	scheduler ActivationScheduler
	publisher events.Publisher
	now       func() time.Time
}

// NewScheduledOrderService creates the service. scheduler may be nil, in which
// case only the periodic sweep activates orders.
func NewScheduledOrderService(db *gorm.DB, scheduler ActivationScheduler, publisher events.Publisher) *ScheduledOrderService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &ScheduledOrderService{
		db:        db,
		scheduler: scheduler,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create validates and prices the request and stores the scheduled order and
// its items atomically. The activation timer is armed after commit.
func (s *ScheduledOrderService) Create(ctx context.Context, input CreateScheduledOrderInput) (*models.ScheduledOrder, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	due, err := utils.ParseScheduledDatetime(input.ScheduledDatetime)
	if err != nil {
		return nil, invalid("INVALID_SCHEDULED_DATETIME", "%v", err)
	}
	if due.Before(s.now()) {
		return nil, invalid("SCHEDULED_IN_PAST", "scheduled time %s is in the past", utils.InReferenceZone(due))
	}
	if err := checkOrderParties(ctx, s.db, input.ClientID, input.DriverID, input.Location); err != nil {
		return nil, err
	}

	snapshot, err := NewPricingService(s.db).Snapshot(ctx, input.DriverID, input.Items)
	if err != nil {
		return nil, err
	}

	scheduled := models.ScheduledOrder{
		ClientID:          input.ClientID,
		DriverID:          input.DriverID,
		Location:          input.Location,
		TotalAmount:       snapshot.TotalAmount,
		DriverAmount:      snapshot.DriverAmount,
		Status:            models.ScheduledStatusScheduled,
		ScheduledDatetime: due,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(&scheduled).Error; err != nil {
			return remote("create scheduled order", err)
		}
		items := make([]models.ScheduledOrderItem, 0, len(snapshot.Lines))
		for _, line := range snapshot.Lines {
			items = append(items, models.ScheduledOrderItem{
				ScheduledOrderID: scheduled.ID,
				ProductID:        line.ProductID,
				Quantity:         line.Quantity,
				AdminPrice:       line.AdminPrice,
				DriverPrice:      line.DriverPrice,
			})
		}
		if err := tx.Create(&items).Error; err != nil {
			return remote("create scheduled order items", err)
		}
		scheduled.Items = items
		return nil
	})
	if err != nil {
		return nil, remote("create scheduled order", err)
	}

	if s.scheduler != nil {
		// the sweep still picks the row up if this fails
		if err := s.scheduler.ScheduleActivation(ctx, scheduled.ID, due); err != nil {
			slog.Warn("failed to schedule activation",
				slog.String("scheduled_order_id", scheduled.ID.String()),
				slog.Any("error", err))
		}
	}
	s.publish(ctx, events.NewEvent(events.ScheduledOrderCreated, scheduled.ID.String(), scheduled))
	return &scheduled, nil
}

// Get loads a scheduled order with its parties and priced items
func (s *ScheduledOrderService) Get(ctx context.Context, id uuid.UUID) (*models.ScheduledOrder, error) {
	var scheduled models.ScheduledOrder
	err := s.db.WithContext(ctx).
		Preload("Client").
		Preload("Driver").
		Preload("Items.Product").
		First(&scheduled, "id = ?", id).Error
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, notFound("SCHEDULED_ORDER_NOT_FOUND", "scheduled order %s not found", id)
		}
		return nil, remote("load scheduled order", err)
	}
	return &scheduled, nil
}

// List returns scheduled orders by due time, soonest first
func (s *ScheduledOrderService) List(ctx context.Context, filter ScheduledOrderFilter) ([]models.ScheduledOrder, error) {
	query := s.db.WithContext(ctx).Model(&models.ScheduledOrder{}).
		Preload("Client").
		Preload("Driver").
		Order("scheduled_orders.scheduled_datetime asc")

	if filter.Status != "" {
		if !models.IsValidScheduledStatus(filter.Status) {
			return nil, invalid("INVALID_STATUS", "unknown scheduled order status %q", filter.Status)
		}
		query = query.Where("scheduled_orders.status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.
			Joins("LEFT JOIN clients ON clients.id = scheduled_orders.client_id").
			Joins("LEFT JOIN drivers ON drivers.id = scheduled_orders.driver_id").
			Where("LOWER(clients.full_name) LIKE ? OR LOWER(clients.phone_number) LIKE ? OR LOWER(drivers.full_name) LIKE ? OR LOWER(scheduled_orders.location) LIKE ?",
				like, like, like, like)
	}

	var scheduled []models.ScheduledOrder
	if err := query.Find(&scheduled).Error; err != nil {
		return nil, remote("list scheduled orders", err)
	}
	return scheduled, nil
}

// Cancel moves a scheduled order that has not been activated to cancelled
func (s *ScheduledOrderService) Cancel(ctx context.Context, id uuid.UUID) (*models.ScheduledOrder, error) {
	res := s.db.WithContext(ctx).Model(&models.ScheduledOrder{}).
		Where("id = ? AND status = ? AND actual_order_ref IS NULL", id, models.ScheduledStatusScheduled).
		Update("status", models.OrderCancelled)
	if res.Error != nil {
		return nil, remote("cancel scheduled order", res.Error)
	}
	if res.RowsAffected == 0 {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, conflict("NOT_CANCELLABLE", "scheduled order is %s and can no longer be cancelled", current.Status)
	}
	return s.Get(ctx, id)
}

// Delete removes the scheduled order's items and then the scheduled order
func (s *ScheduledOrderService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var scheduled models.ScheduledOrder
		if err := tx.First(&scheduled, "id = ?", id).Error; err != nil {
			if IsRecordNotFound(err) {
				return notFound("SCHEDULED_ORDER_NOT_FOUND", "scheduled order %s not found", id)
			}
			return remote("load scheduled order", err)
		}
		if err := tx.Where("scheduled_order_id = ?", id).Delete(&models.ScheduledOrderItem{}).Error; err != nil {
			return remote("delete scheduled order items", err)
		}
		if err := tx.Delete(&scheduled).Error; err != nil {
			return remote("delete scheduled order", err)
		}
		return nil
	})
	return remote("delete scheduled order", err)
}

func (s *ScheduledOrderService) publish(ctx context.Context, evs ...events.Event) {
	if err := s.publisher.Publish(ctx, evs...); err != nil {
		slog.Warn("failed to publish scheduled order event", slog.Any("error", err))
	}
}
