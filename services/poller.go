package services

import (
	"context"
	"log/slog"
	"time"
)

// DueActivator runs one activation pass
type DueActivator interface {
	ActivateDue(ctx context.Context) (ActivationResult, error)
}

// Poller runs activation passes on a fixed interval. It is the fallback
// trigger when no job queue is configured.
type Poller struct {
	activator DueActivator
	interval  time.Duration
	logger    *slog.Logger
}

// NewPoller creates a poller that runs every interval
func NewPoller(activator DueActivator, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{activator: activator, interval: interval, logger: logger}
}

// Run performs a pass immediately and then on every tick until ctx is done
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("activation poller started", slog.Duration("interval", p.interval))
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.pass(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("activation poller stopped")
			return
		case <-ticker.C:
			p.pass(ctx)
		}
	}
}

func (p *Poller) pass(ctx context.Context) {
	if _, err := p.activator.ActivateDue(ctx); err != nil && ctx.Err() == nil {
		p.logger.Error("activation pass failed", slog.Any("error", err))
	}
}
