package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/kendall-kelly/delivery-admin-api/models"
	"github.com/kendall-kelly/delivery-admin-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeActivator struct {
	activateErr error
	sweepErr    error
	activated   []uuid.UUID
	sweeps      int
}

func (f *fakeActivator) Activate(_ context.Context, id uuid.UUID) (*models.Order, error) {
	f.activated = append(f.activated, id)
	if f.activateErr != nil {
		return nil, f.activateErr
	}
	return &models.Order{ID: uuid.New()}, nil
}

func (f *fakeActivator) ActivateDue(context.Context) (services.ActivationResult, error) {
	f.sweeps++
	return services.ActivationResult{Due: 1, Activated: 1}, f.sweepErr
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	ids   map[string]bool
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, opt := range opts {
		if opt.Type() == asynq.TaskIDOpt {
			id := opt.Value().(string)
			if f.ids[id] {
				return nil, asynq.ErrTaskIDConflict
			}
			if f.ids == nil {
				f.ids = map[string]bool{}
			}
			f.ids[id] = true
		}
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

func TestHandleActivate(t *testing.T) {
	id := uuid.New()
	task, err := NewActivateTask(id)
	require.NoError(t, err)

	activator := &fakeActivator{}
	job := NewActivationJob(activator, nil)
	require.NoError(t, job.HandleActivate(context.Background(), task))
	assert.Equal(t, []uuid.UUID{id}, activator.activated)
}

func TestHandleActivateConflictIsNotRetried(t *testing.T) {
	task, err := NewActivateTask(uuid.New())
	require.NoError(t, err)

	activator := &fakeActivator{activateErr: &services.ConflictError{Code: "ALREADY_ACTIVATED", Message: "already active"}}
	assert.NoError(t, NewActivationJob(activator, nil).HandleActivate(context.Background(), task))
}

func TestHandleActivateNotFoundSkipsRetry(t *testing.T) {
	task, err := NewActivateTask(uuid.New())
	require.NoError(t, err)

	activator := &fakeActivator{activateErr: &services.NotFoundError{Code: "SCHEDULED_ORDER_NOT_FOUND", Message: "gone"}}
	err = NewActivationJob(activator, nil).HandleActivate(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleActivateRemoteErrorIsRetried(t *testing.T) {
	task, err := NewActivateTask(uuid.New())
	require.NoError(t, err)

	activator := &fakeActivator{activateErr: &services.RemoteOperationError{Op: "claim", Err: errors.New("connection reset")}}
	err = NewActivationJob(activator, nil).HandleActivate(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleActivateBadPayload(t *testing.T) {
	activator := &fakeActivator{}
	job := NewActivationJob(activator, nil)

	err := job.HandleActivate(context.Background(), asynq.NewTask(TaskActivateScheduledOrder, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	err = job.HandleActivate(context.Background(), asynq.NewTask(TaskActivateScheduledOrder, []byte(`{}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, activator.activated)
}

func TestHandleSweep(t *testing.T) {
	activator := &fakeActivator{}
	job := NewActivationJob(activator, nil)
	require.NoError(t, job.HandleSweep(context.Background(), NewSweepTask()))
	assert.Equal(t, 1, activator.sweeps)

	activator.sweepErr = errors.New("database unavailable")
	assert.Error(t, job.HandleSweep(context.Background(), NewSweepTask()))
}

func TestScheduleActivationIsIdempotent(t *testing.T) {
	enq := &fakeEnqueuer{}
	client := &Client{client: enq, maxRetry: 5}
	id := uuid.New()
	at := time.Now().Add(time.Hour)

	require.NoError(t, client.ScheduleActivation(context.Background(), id, at))
	require.NoError(t, client.ScheduleActivation(context.Background(), id, at))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskActivateScheduledOrder, enq.tasks[0].Type())
	assert.True(t, enq.ids[ActivationTaskID(id)])

	payload, err := decodeActivatePayload(enq.tasks[0])
	require.NoError(t, err)
	assert.Equal(t, id, payload.ScheduledOrderID)
}

func TestEnqueueSweep(t *testing.T) {
	enq := &fakeEnqueuer{}
	client := &Client{client: enq, maxRetry: 5}

	require.NoError(t, client.EnqueueSweep(context.Background()))
	require.NoError(t, client.EnqueueSweep(context.Background()))
	require.Len(t, enq.tasks, 2, "sweeps carry no task id and are never deduplicated")
	assert.Equal(t, TaskActivationSweep, enq.tasks[0].Type())

	enq.err = errors.New("redis down")
	assert.ErrorContains(t, client.EnqueueSweep(context.Background()), "redis down")
}

func TestScheduleActivationPropagatesErrors(t *testing.T) {
	client := &Client{client: &fakeEnqueuer{err: errors.New("redis down")}}
	assert.Error(t, client.ScheduleActivation(context.Background(), uuid.New(), time.Now()))
}

func TestNewWorkerRejectsBadCron(t *testing.T) {
	_, err := NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"},
		Cron:      []CronRegistration{{Spec: "not a cron", Task: NewSweepTask()}},
	})
	assert.Error(t, err)
}

func TestSweepEvery(t *testing.T) {
	reg := SweepEvery(30 * time.Second)
	assert.Equal(t, "@every 30s", reg.Spec)
	assert.Equal(t, TaskActivationSweep, reg.Task.Type())
}

func TestHandlersCoverBothTasks(t *testing.T) {
	handlers := NewActivationJob(&fakeActivator{}, nil).Handlers()
	types := []string{}
	for _, h := range handlers {
		types = append(types, h.Type)
	}
	assert.ElementsMatch(t, []string{TaskActivateScheduledOrder, TaskActivationSweep}, types)
}
