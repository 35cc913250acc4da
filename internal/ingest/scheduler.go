package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kalambet/ytbrief/internal/channels"
)

// Scheduler triggers RunAndIndex on a fixed interval until its context is
// cancelled.
type Scheduler struct {
	pipeline  *Pipeline
	channels  []channels.Channel
	sinceDays int
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

// NewScheduler creates a Scheduler. If interval is <= 0 it defaults to one
// hour; a timeout <= 0 leaves runs unbounded.
func NewScheduler(p *Pipeline, list []channels.Channel, sinceDays int, interval, timeout time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		pipeline:  p,
		channels:  list,
		sinceDays: sinceDays,
		interval:  interval,
		timeout:   timeout,
		logger:    slog.Default(),
	}
}

// Run executes one run immediately and then one per interval.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("scheduled ingestion failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.interval):
		}
	}
}

// RunOnce performs a single bounded run. A run already in progress is not
// treated as a failure.
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report, _, err := s.pipeline.RunAndIndex(ctx, s.channels, s.sinceDays)
	if errors.Is(err, ErrRunInProgress) {
		s.logger.Info("skipping scheduled ingestion, another run is active")
		return report, nil
	}
	return report, err
}
