package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/ganymede/pkg/audit"
)

// pruneTimeout bounds one scheduled pruning pass.
const pruneTimeout = 10 * time.Minute

// Scheduler runs the pruner on a cron schedule.
type Scheduler struct {
	pruner   *Pruner
	schedule string
	logger   *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	started bool
}

// NewScheduler creates a scheduler for the given pruner. The schedule
// is a standard five-field cron expression.
func NewScheduler(pruner *Pruner, schedule string) (*Scheduler, error) {
	if pruner == nil {
		return nil, audit.NewRetentionError("schedule", fmt.Errorf("pruner is nil"))
	}
	if schedule == "" {
		schedule = DefaultConfig().Schedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, audit.NewRetentionError("schedule", fmt.Errorf("invalid schedule %q: %w", schedule, err))
	}
	return &Scheduler{
		pruner:   pruner,
		schedule: schedule,
		logger:   slog.Default().With("component", "audit-retention"),
	}, nil
}

// Start begins scheduled pruning. Starting an already started
// scheduler is an error.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return audit.NewRetentionError("schedule", fmt.Errorf("scheduler already started"))
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, s.run); err != nil {
		return audit.NewRetentionError("schedule", err)
	}
	s.cron.Start()
	s.started = true

	s.logger.Info("retention scheduler started", "schedule", s.schedule)
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	result, err := s.pruner.Prune(ctx)
	if err != nil {
		s.logger.Error("scheduled retention pass failed", "error", err)
		return
	}
	if result.Removed > 0 {
		s.logger.Info("scheduled retention pass removed records",
			"removed", result.Removed,
			"anchor_seq", result.AnchorSeq)
	}
}

// Stop stops the scheduler and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	<-s.cron.Stop().Done()
	s.started = false
	s.logger.Info("retention scheduler stopped")
}
