// Package scheduler runs periodic housekeeping for the dispatch log.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Pruner deletes dispatch log entries older than a cutoff.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config holds the scheduler configuration.
type Config struct {
	Store Pruner
	// Retention is how long entries are kept. Zero disables pruning.
	Retention time.Duration
	// Interval between prune runs. Defaults to one hour.
	Interval time.Duration
	Logger   *slog.Logger
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Scheduler prunes the dispatch log on a fixed interval using gocron.
type Scheduler struct {
	cron    gocron.Scheduler
	cfg     Config
	logger  *slog.Logger
	started bool
}

// New creates a new Scheduler.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("scheduler: store is required")
	}
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{cron: cron, cfg: cfg, logger: logger}, nil
}

// Start registers the prune job and starts the gocron scheduler.
// With a zero retention nothing is scheduled.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Retention <= 0 {
		s.logger.Info("dispatch log retention disabled")
		return nil
	}

	_, err := s.cron.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(func() {
			if _, err := s.PruneNow(ctx); err != nil {
				s.logger.Error("dispatch log prune failed", "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("scheduling prune job: %w", err)
	}

	s.cron.Start()
	s.started = true
	s.logger.Info("retention scheduler started",
		"retention", s.cfg.Retention.String(), "interval", s.cfg.Interval.String())
	return nil
}

// Stop shuts down the gocron scheduler.
func (s *Scheduler) Stop() error {
	if !s.started {
		return nil
	}
	return s.cron.Shutdown()
}

// PruneNow deletes entries older than the retention window and returns how
// many were removed.
func (s *Scheduler) PruneNow(ctx context.Context) (int64, error) {
	if s.cfg.Retention <= 0 {
		return 0, nil
	}
	cutoff := s.cfg.Now().Add(-s.cfg.Retention)
	n, err := s.cfg.Store.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if n > 0 {
		s.logger.Info("pruned dispatch log", "removed", n, "cutoff", cutoff)
	}
	return n, nil
}
