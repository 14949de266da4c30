package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/saturn/pkg/expiry"
	"mercator-hq/saturn/pkg/expiry/engine"
	"mercator-hq/saturn/pkg/expiry/registry"
)

// Run outcomes as recorded in metrics and logs.
const (
	outcomeCompleted = "completed"
	outcomeErrors    = "errors"
	outcomeSkipped   = "skipped"
)

// Locker provides advisory mutual exclusion for maintenance runs.
type Locker interface {
	// Acquire takes the lock on behalf of holder. When another holder
	// has it, Acquire returns a MaintenanceRunningError; any other error
	// means the lock itself is unavailable.
	Acquire(ctx context.Context, holder string) error

	// Release returns the lock. Releasing a lock the holder does not
	// hold is a no-op.
	Release(ctx context.Context, holder string) error
}

// processLocker scopes maintenance exclusion to one process. Every
// maintenance step is idempotent and guarded by compare-and-set
// transitions, so the lock exists to avoid duplicate work, not to
// protect correctness.
type processLocker struct {
	mu     sync.Mutex
	holder string
}

// NewProcessLocker creates the default in-process Locker.
func NewProcessLocker() Locker {
	return &processLocker{}
}

func (l *processLocker) Acquire(_ context.Context, holder string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.holder != "" {
		return expiry.NewMaintenanceRunningError(l.holder)
	}
	l.holder = holder
	return nil
}

func (l *processLocker) Release(_ context.Context, holder string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.holder == holder {
		l.holder = ""
	}
	return nil
}

// Report summarizes one maintenance run.
type Report struct {
	RunID     string               `json:"run_id"`
	StartedAt time.Time            `json:"started_at"`
	Duration  time.Duration        `json:"duration"`
	Skipped   bool                 `json:"skipped"`
	Created   []expiry.PartitionID `json:"created,omitempty"`
	Retired   []expiry.PartitionID `json:"retired,omitempty"`
	Errors    []string             `json:"errors,omitempty"`
}

// CoordinatorConfig holds coordinator configuration.
type CoordinatorConfig struct {
	// Policy governs partition width, premake depth, grace, and
	// retirement mode.
	Policy *expiry.Policy

	// ArchivePath is the directory archived partitions are written to.
	// Empty disables archiving; retirement mode archiveThenDrop then
	// fails per partition rather than dropping unarchived data.
	ArchivePath string

	// Locker serializes runs. Nil selects the in-process locker.
	Locker Locker

	// Metrics receives run observations. Nil disables metrics.
	Metrics *Metrics

	// Now supplies the current time for scheduled runs. Nil selects
	// time.Now.
	Now func() time.Time
}

// DefaultCoordinatorConfig returns a coordinator configuration with
// sensible defaults.
func DefaultCoordinatorConfig() *CoordinatorConfig {
	return &CoordinatorConfig{
		Policy:      expiry.DefaultPolicy(),
		ArchivePath: "archive",
		Locker:      NewProcessLocker(),
		Now:         time.Now,
	}
}

// Coordinator runs the maintenance cycle: provision future partitions,
// then retire expired ones. Runs are serialized by an advisory lock; a
// call that finds the lock held returns a skipped report instead of an
// error, so overlapping schedulers stay quiet.
type Coordinator struct {
	registry    registry.Registry
	provisioner *Provisioner
	reaper      *Reaper
	policy      *expiry.Policy
	locker      Locker
	metrics     *Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// NewCoordinator creates a coordinator over the given catalog and
// partition storage. A nil config selects defaults.
func NewCoordinator(reg registry.Registry, eng engine.Engine, cfg *CoordinatorConfig) *Coordinator {
	if cfg == nil {
		cfg = DefaultCoordinatorConfig()
	}

	policy := cfg.Policy
	if policy == nil {
		policy = expiry.DefaultPolicy()
	}
	locker := cfg.Locker
	if locker == nil {
		locker = NewProcessLocker()
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}

	var archiver *Archiver
	if cfg.ArchivePath != "" {
		archiver = NewArchiver(eng, cfg.ArchivePath)
	}

	return &Coordinator{
		registry:    reg,
		provisioner: NewProvisioner(reg, eng),
		reaper:      NewReaper(reg, eng, archiver),
		policy:      policy,
		locker:      locker,
		metrics:     cfg.Metrics,
		logger:      slog.Default().With("component", "expiry.maintenance.coordinator"),
		now:         nowFn,
	}
}

// RunOnce executes a maintenance run at the coordinator's current time.
func (c *Coordinator) RunOnce(ctx context.Context) (*Report, error) {
	return c.RunMaintenance(ctx, c.now().UTC())
}

// RunMaintenance executes one provision-then-reap cycle at the given
// instant and returns a report of what changed.
//
// If another run holds the advisory lock the report comes back with
// Skipped set and empty partition lists; that is a normal outcome, not
// an error. Partition-level failures are collected in Report.Errors
// rather than failing the run.
func (c *Coordinator) RunMaintenance(ctx context.Context, now time.Time) (*Report, error) {
	report := &Report{
		RunID:     uuid.New().String(),
		StartedAt: c.now().UTC(),
	}

	if err := c.locker.Acquire(ctx, report.RunID); err != nil {
		var running *expiry.MaintenanceRunningError
		if errors.As(err, &running) {
			c.logger.Info("maintenance already running, skipping",
				"run_id", report.RunID,
				"holder", running.Holder)
			report.Skipped = true
			report.Duration = c.now().UTC().Sub(report.StartedAt)
			if c.metrics != nil {
				c.metrics.RecordRun(outcomeSkipped)
			}
			return report, nil
		}
		return nil, fmt.Errorf("failed to acquire maintenance lock: %w", err)
	}
	defer func() {
		if err := c.locker.Release(ctx, report.RunID); err != nil {
			c.logger.Warn("failed to release maintenance lock",
				"run_id", report.RunID,
				"error", err)
		}
	}()

	c.logger.Info("maintenance run started",
		"run_id", report.RunID,
		"now", now.Format(time.RFC3339))

	// Provision before reaping so the partition containing now exists
	// by the time retirement scans the catalog.
	created, provErr := c.provisioner.EnsureFuturePartitions(ctx, now, c.policy)
	report.Created = created
	if provErr != nil {
		report.Errors = append(report.Errors, provErr.Error())
		c.recordError("provision")
	}

	retired, reapErrs := c.reaper.ReapExpired(ctx, now, c.policy)
	report.Retired = retired
	for _, err := range reapErrs {
		report.Errors = append(report.Errors, err.Error())
		c.recordError("reap")
	}

	report.Duration = c.now().UTC().Sub(report.StartedAt)

	outcome := outcomeCompleted
	if len(report.Errors) > 0 {
		outcome = outcomeErrors
	}
	c.observe(ctx, report, outcome)

	c.logger.Info("maintenance run finished",
		"run_id", report.RunID,
		"created", len(report.Created),
		"retired", len(report.Retired),
		"errors", len(report.Errors),
		"duration", report.Duration)

	return report, nil
}

// recordError increments the per-stage failure counter, if metrics are
// configured.
func (c *Coordinator) recordError(stage string) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordError(stage)
}

// observe publishes the finished run's metrics, if metrics are
// configured.
func (c *Coordinator) observe(ctx context.Context, report *Report, outcome string) {
	if c.metrics == nil {
		return
	}

	c.metrics.RecordRun(outcome)
	c.metrics.RecordCreated(len(report.Created))
	c.metrics.RecordRetired(len(report.Retired))
	c.metrics.RecordRunDuration(report.Duration)

	live, err := c.registry.ListByState(ctx, expiry.StatePlanned, expiry.StateActive)
	if err == nil {
		c.metrics.SetLivePartitions(len(live))
	}
}
