package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingActivator struct {
	passes atomic.Int32
	err    error
}

func (c *countingActivator) ActivateDue(context.Context) (ActivationResult, error) {
	c.passes.Add(1)
	return ActivationResult{}, c.err
}

func TestPollerRunsUntilCancelled(t *testing.T) {
	activator := &countingActivator{err: errors.New("database unavailable")}
	poller := NewPoller(activator, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return activator.passes.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}

	stopped := activator.passes.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, activator.passes.Load())
}
