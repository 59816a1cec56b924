package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Purger drops state older than its retention window and returns how many
// entries it removed.
type Purger interface {
	Purge() int
}

// Purgers runs several purgers as one and sums what they removed.
type Purgers []Purger

// Purge runs every purger in order.
func (ps Purgers) Purge() int {
	total := 0
	for _, p := range ps {
		total += p.Purge()
	}
	return total
}

// Scheduler runs a Purger on a cron schedule.
type Scheduler struct {
	purger   Purger
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewScheduler creates a scheduler that purges on schedule. The schedule
// accepts standard five-field cron expressions and descriptors such as
// "@every 1m". An empty schedule disables scheduling.
func NewScheduler(purger Purger, schedule string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		purger:   purger,
		schedule: schedule,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:   logger.With("component", "retention.scheduler"),
	}
}

// Start begins scheduled purging. The scheduler stops on its own when ctx
// is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if s.schedule == "" {
		s.logger.Info("purge schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, s.RunOnce); err != nil {
		return fmt.Errorf("failed to schedule purge: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("purge scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// RunOnce executes a single purge cycle.
func (s *Scheduler) RunOnce() {
	start := time.Now()
	purged := s.purger.Purge()

	if purged > 0 {
		s.logger.Info("scheduled purge completed",
			"purged", purged,
			"duration", time.Since(start),
		)
	} else {
		s.logger.Debug("scheduled purge completed, nothing to drop")
	}
}

// Stop stops the scheduler and waits for a running purge to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("purge scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled purge time, or nil when nothing is
// scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	return &next
}
