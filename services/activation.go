package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/delivery-admin-api/events"
	"github.com/kendall-kelly/delivery-admin-api/models"
	"gorm.io/gorm"
)

// ActivationResult summarizes one activation pass
type ActivationResult struct {
	Due       int `json:"due"`
	Activated int `json:"activated"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Activator turns due scheduled orders into live orders.
//
// Each activation is one transaction: a conditional claim of the scheduled
// row (scheduled -> active), the order and its copied items, and the back
// reference. A worker that loses the claim gets a ConflictError and writes
// nothing. A failure after the claim rolls everything back so the next pass
// retries. An order already carrying the scheduled order's id is reused
// instead of created again.
type Activator struct {
	db        *gorm.DB
	publisher events.Publisher
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewActivator creates an activator
func NewActivator(db *gorm.DB, publisher events.Publisher, metrics *Metrics, logger *slog.Logger) *Activator {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Activator{
		db:        db,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Activate materializes one scheduled order. It returns a ConflictError when
// the order is not due, already active, or was claimed concurrently.
func (a *Activator) Activate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := a.activate(ctx, id)
	a.metrics.observeActivation(err)
	if err != nil {
		return nil, err
	}

	a.logger.Info("scheduled order activated",
		slog.String("scheduled_order_id", id.String()),
		slog.String("order_id", order.ID.String()))
	if err := a.publisher.Publish(ctx, events.NewEvent(events.ScheduledOrderActivated, id.String(), map[string]interface{}{
		"scheduled_order_id": id,
		"order_id":           order.ID,
	})); err != nil {
		a.logger.Warn("failed to publish activation event", slog.Any("error", err))
	}
	return order, nil
}

func (a *Activator) activate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	now := a.now()
	var order models.Order

	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&models.ScheduledOrder{}).
			Where("id = ? AND status = ? AND actual_order_ref IS NULL AND scheduled_datetime <= ?",
				id, models.ScheduledStatusScheduled, now).
			Updates(map[string]interface{}{
				"status":     models.ScheduledStatusActive,
				"updated_at": now,
			})
		if claim.Error != nil {
			return remote("claim scheduled order", claim.Error)
		}
		if claim.RowsAffected == 0 {
			return a.explainMissedClaim(tx, id, now)
		}

		var scheduled models.ScheduledOrder
		if err := tx.Preload("Items").First(&scheduled, "id = ?", id).Error; err != nil {
			return remote("load scheduled order", err)
		}

		err := tx.Preload("Items").Where("scheduled_order_id = ?", id).First(&order).Error
		switch {
		case err == nil:
			a.logger.Info("reusing order already materialized from scheduled order",
				slog.String("scheduled_order_id", id.String()),
				slog.String("order_id", order.ID.String()))
		case IsRecordNotFound(err):
			order, err = materialize(tx, &scheduled)
			if err != nil {
				return err
			}
		default:
			return remote("find materialized order", err)
		}

		if err := tx.Model(&models.ScheduledOrder{}).
			Where("id = ?", id).
			Update("actual_order_ref", order.ID).Error; err != nil {
			return remote("link scheduled order", err)
		}
		return nil
	})
	if err != nil {
		return nil, remote("activate scheduled order", err)
	}
	return &order, nil
}

// materialize creates the live order and copies every item field-for-field
func materialize(tx *gorm.DB, scheduled *models.ScheduledOrder) (models.Order, error) {
	scheduledID := scheduled.ID
	order := models.Order{
		ClientID:         scheduled.ClientID,
		DriverID:         scheduled.DriverID,
		Location:         scheduled.Location,
		Status:           models.OrderNew,
		TotalAmount:      scheduled.TotalAmount,
		DriverAmount:     scheduled.DriverAmount,
		ScheduledOrderID: &scheduledID,
	}
	if err := tx.Omit("Items").Create(&order).Error; err != nil {
		return order, remote("create order", err)
	}

	if len(scheduled.Items) > 0 {
		items := make([]models.OrderItem, 0, len(scheduled.Items))
		for _, item := range scheduled.Items {
			items = append(items, models.OrderItem{
				OrderID:     order.ID,
				ProductID:   item.ProductID,
				Quantity:    item.Quantity,
				AdminPrice:  item.AdminPrice,
				DriverPrice: item.DriverPrice,
			})
		}
		if err := tx.Create(&items).Error; err != nil {
			return order, remote("copy order items", err)
		}
		order.Items = items
	}
	return order, nil
}

func (a *Activator) explainMissedClaim(tx *gorm.DB, id uuid.UUID, now time.Time) error {
	var scheduled models.ScheduledOrder
	if err := tx.First(&scheduled, "id = ?", id).Error; err != nil {
		if IsRecordNotFound(err) {
			return notFound("SCHEDULED_ORDER_NOT_FOUND", "scheduled order %s not found", id)
		}
		return remote("load scheduled order", err)
	}
	if scheduled.Status == models.ScheduledStatusScheduled && scheduled.ScheduledDatetime.After(now) {
		return conflict("NOT_DUE", "scheduled order %s is not due until %s", id, scheduled.ScheduledDatetime.Format(time.RFC3339))
	}
	return conflict("ALREADY_ACTIVATED", "scheduled order %s was already activated or is %s", id, scheduled.Status)
}

// ActivateDue activates every due scheduled order. Lost claims are counted as
// skipped and failures are logged; neither stops the pass.
func (a *Activator) ActivateDue(ctx context.Context) (ActivationResult, error) {
	start := time.Now()
	defer a.metrics.observePass(start)

	var ids []uuid.UUID
	if err := a.db.WithContext(ctx).Model(&models.ScheduledOrder{}).
		Where("status = ? AND actual_order_ref IS NULL AND scheduled_datetime <= ?",
			models.ScheduledStatusScheduled, a.now()).
		Order("scheduled_datetime asc").
		Pluck("id", &ids).Error; err != nil {
		return ActivationResult{}, remote("list due scheduled orders", err)
	}

	result := ActivationResult{Due: len(ids)}
	for _, id := range ids {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		_, err := a.Activate(ctx, id)
		switch {
		case err == nil:
			result.Activated++
		case isConflict(err):
			result.Skipped++
		default:
			result.Failed++
			a.logger.Error("scheduled order activation failed",
				slog.String("scheduled_order_id", id.String()),
				slog.Any("error", err))
		}
	}

	if result.Due > 0 {
		a.logger.Info("activation pass finished",
			slog.Int("due", result.Due),
			slog.Int("activated", result.Activated),
			slog.Int("skipped", result.Skipped),
			slog.Int("failed", result.Failed))
	}
	return result, nil
}
