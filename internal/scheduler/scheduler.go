// Package scheduler regenerates the crawler artifacts on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/suntyn/sitegen/internal/apperr"
	"github.com/suntyn/sitegen/internal/publisher"
)

// DefaultInterval is the period between scheduled passes.
const DefaultInterval = 24 * time.Hour

// Publisher is the part of *publisher.Publisher the refresher needs.
type Publisher interface {
	PublishAll(ctx context.Context, trigger publisher.Trigger) (*publisher.Result, error)
}

// Refresher runs a publish pass every interval.
type Refresher struct {
	pub      Publisher
	interval time.Duration
	logger   *slog.Logger
}

// NewRefresher creates a refresher. A non-positive interval falls back to
// DefaultInterval.
func NewRefresher(pub Publisher, interval time.Duration, logger *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{pub: pub, interval: interval, logger: logger}
}

// Start blocks until ctx is cancelled. The first pass happens one interval
// after Start; the startup pass is the caller's job.
func (r *Refresher) Start(ctx context.Context) {
	r.logger.Info("scheduler: started", slog.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("scheduler: stopped")
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	_, err := r.pub.PublishAll(ctx, publisher.TriggerSchedule)
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrBusy):
		r.logger.Debug("scheduler: pass skipped, another is running")
	case errors.Is(err, context.Canceled):
	default:
		r.logger.Warn("scheduler: scheduled pass failed", slog.String("error", err.Error()))
	}
}
