package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueActivation holds scheduled-order activation work.
	QueueActivation = "activation"
	// TaskActivateScheduledOrder activates a single scheduled order at its due time.
	TaskActivateScheduledOrder = "scheduled_order:activate"
	// TaskActivationSweep activates every due scheduled order.
	TaskActivationSweep = "scheduled_order:sweep"
)

// ActivatePayload identifies the scheduled order to activate.
type ActivatePayload struct {
	ScheduledOrderID uuid.UUID `json:"scheduled_order_id"`
}

// ActivationTaskID is the asynq task id for a scheduled order. Enqueuing the
// same scheduled order twice collides on this id.
func ActivationTaskID(id uuid.UUID) string {
	return "activate:" + id.String()
}

// NewActivateTask constructs the per-order activation task.
func NewActivateTask(id uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(ActivatePayload{ScheduledOrderID: id})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskActivateScheduledOrder, data), nil
}

// NewSweepTask constructs the periodic sweep task.
func NewSweepTask() *asynq.Task {
	return asynq.NewTask(TaskActivationSweep, nil)
}

func decodeActivatePayload(t *asynq.Task) (ActivatePayload, error) {
	var payload ActivatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if payload.ScheduledOrderID == uuid.Nil {
		return payload, fmt.Errorf("%s payload has no scheduled_order_id: %w", t.Type(), asynq.SkipRetry)
	}
	return payload, nil
}
