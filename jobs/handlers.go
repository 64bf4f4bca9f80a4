package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/kendall-kelly/delivery-admin-api/models"
	"github.com/kendall-kelly/delivery-admin-api/services"
)

// Activator is the part of services.Activator the worker needs.
type Activator interface {
	Activate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ActivateDue(ctx context.Context) (services.ActivationResult, error)
}

// ActivationJob handles activation tasks.
type ActivationJob struct {
	activator Activator
	logger    *slog.Logger
}

// NewActivationJob wires the job to an activator.
func NewActivationJob(activator Activator, logger *slog.Logger) *ActivationJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivationJob{activator: activator, logger: logger}
}

// HandleActivate processes TaskActivateScheduledOrder. Conflicts mean the order
// is already active or no longer due for activation and are not retried.
func (j *ActivationJob) HandleActivate(ctx context.Context, t *asynq.Task) error {
	payload, err := decodeActivatePayload(t)
	if err != nil {
		return err
	}
	id := payload.ScheduledOrderID

	order, err := j.activator.Activate(ctx, id)
	var (
		conflictErr *services.ConflictError
		notFoundErr *services.NotFoundError
	)
	switch {
	case err == nil:
		j.logger.Info("activation task done",
			slog.String("scheduled_order_id", id.String()),
			slog.String("order_id", order.ID.String()))
		return nil
	case errors.As(err, &conflictErr):
		j.logger.Info("activation task skipped",
			slog.String("scheduled_order_id", id.String()),
			slog.String("reason", conflictErr.Code))
		return nil
	case errors.As(err, &notFoundErr):
		return fmt.Errorf("activate %s: %v: %w", id, err, asynq.SkipRetry)
	default:
		return fmt.Errorf("activate %s: %w", id, err)
	}
}

// HandleSweep processes TaskActivationSweep.
func (j *ActivationJob) HandleSweep(ctx context.Context, _ *asynq.Task) error {
	result, err := j.activator.ActivateDue(ctx)
	if err != nil {
		return fmt.Errorf("activation sweep: %w", err)
	}
	if result.Failed > 0 {
		j.logger.Warn("activation sweep finished with failures", slog.Int("failed", result.Failed))
	}
	return nil
}

// Handlers lists the task handlers for NewWorker.
func (j *ActivationJob) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskActivateScheduledOrder, Handler: j.HandleActivate},
		{Type: TaskActivationSweep, Handler: j.HandleSweep},
	}
}
