package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client submits activation tasks to the queue.
type Client struct {
	client   enqueuer
	maxRetry int
}

// NewClient constructs an asynq-backed client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts), maxRetry: 5}
}

// ScheduleActivation enqueues the activation of a scheduled order to run at
// the given time. Scheduling an order that already has a pending task is a
// no-op.
func (c *Client) ScheduleActivation(ctx context.Context, id uuid.UUID, at time.Time) error {
	task, err := NewActivateTask(id)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueActivation),
		asynq.TaskID(ActivationTaskID(id)),
		asynq.ProcessAt(at),
		asynq.MaxRetry(c.maxRetry),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// EnqueueSweep asks the worker for an immediate activation pass.
func (c *Client) EnqueueSweep(ctx context.Context) error {
	_, err := c.client.EnqueueContext(ctx, NewSweepTask(), asynq.Queue(QueueActivation), asynq.MaxRetry(0))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
