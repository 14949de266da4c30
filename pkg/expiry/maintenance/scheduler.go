package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// runTimeout bounds a single scheduled maintenance run.
const runTimeout = 10 * time.Minute

// Scheduler manages periodic execution of maintenance runs.
type Scheduler struct {
	coordinator *Coordinator
	schedule    string
	cron        *cron.Cron
	logger      *slog.Logger
	mu          sync.Mutex
	running     bool
}

// NewScheduler creates a scheduler that runs the coordinator on the
// given cron schedule (standard five-field syntax).
func NewScheduler(coordinator *Coordinator, schedule string) *Scheduler {
	return &Scheduler{
		coordinator: coordinator,
		schedule:    schedule,
		logger:      slog.Default().With("component", "expiry.maintenance.scheduler"),
	}
}

// Start begins scheduled maintenance. An empty schedule disables
// automatic runs without error. The scheduler stops itself when ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if s.schedule == "" {
		s.logger.Info("no maintenance schedule configured, automatic runs disabled")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	s.cron = cron.New()

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.logger.Info("starting scheduled maintenance run")

		runCtx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		report, err := s.coordinator.RunOnce(runCtx)
		if err != nil {
			s.logger.Error("scheduled maintenance failed", "error", err)
			return
		}
		if len(report.Errors) > 0 {
			s.logger.Warn("scheduled maintenance finished with failures",
				"run_id", report.RunID,
				"errors", len(report.Errors))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule maintenance: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("maintenance scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts scheduled maintenance and waits for an in-flight run to
// finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	if s.cron != nil {
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
	}

	s.running = false
	s.logger.Info("maintenance scheduler stopped")
}

// IsRunning returns whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the time of the next scheduled run, or nil when the
// scheduler is not running.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.cron == nil {
		return nil
	}

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	return &next
}
