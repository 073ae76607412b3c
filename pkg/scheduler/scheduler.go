// Package scheduler drives timer-based inventory refreshes.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"k8s.io/utils/clock"

	"github.com/netops-tools/invsync/pkg/errors"
	"github.com/netops-tools/invsync/pkg/snapshot"
)

// Runner performs one refresh.
type Runner interface {
	Refresh(ctx context.Context, trigger snapshot.Trigger) (*snapshot.Snapshot, error)
}

// Scheduler refreshes on a fixed interval.
type Scheduler struct {
	interval time.Duration
	runner   Runner
	clock    clock.WithTicker
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the real clock, mainly for tests.
func WithClock(c clock.WithTicker) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// New returns a scheduler refreshing every interval.
func New(interval time.Duration, runner Runner, opts ...Option) *Scheduler {
	s := &Scheduler{
		interval: interval,
		runner:   runner,
		clock:    clock.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until ctx is done. Ticks that fire while a refresh is still
// running are dropped rather than queued. A zero interval disables the
// scheduler and Run returns immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		slog.Info("timer refresh disabled")
		return nil
	}

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	slog.Info("timer refresh enabled", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			snap, err := s.runner.Refresh(ctx, snapshot.TriggerTimer)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Warn("scheduled refresh failed",
					"error", err,
					"code", errors.CodeOf(err),
					"next", s.clock.Now().Add(s.interval))
				continue
			}
			slog.Debug("scheduled refresh complete", "version", snap.Version)
		}
	}
}
