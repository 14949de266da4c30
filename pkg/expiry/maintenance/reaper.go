package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/saturn/pkg/expiry"
	"mercator-hq/saturn/pkg/expiry/engine"
	"mercator-hq/saturn/pkg/expiry/registry"
)

// Reaper retires partitions whose entire range has passed the grace
// horizon. Retirement is a short pipeline per partition: mark the entry
// retiring so it leaves routing and the read view, optionally archive
// the rows, drop the physical storage, then record the terminal state.
//
// Each step is safe to rerun. A partition stuck in retiring after a
// crash is picked up by the next cycle and driven to completion.
type Reaper struct {
	registry registry.Registry
	engine   engine.Engine
	archiver *Archiver
	logger   *slog.Logger
}

// NewReaper creates a reaper over the given catalog and partition
// storage. The archiver may be nil when retirement never archives.
func NewReaper(reg registry.Registry, eng engine.Engine, archiver *Archiver) *Reaper {
	return &Reaper{
		registry: reg,
		engine:   eng,
		archiver: archiver,
		logger:   slog.Default().With("component", "expiry.maintenance.reaper"),
	}
}

// ReapExpired retires every partition whose range ended at or before
// the grace horizon for now. It returns the partitions retired by this
// call and the per-partition failures.
//
// A failure leaves its partition in the retiring state and moves on to
// the next candidate, so one wedged partition cannot block the rest.
// The partition containing now is never retired.
func (r *Reaper) ReapExpired(ctx context.Context, now time.Time, policy *expiry.Policy) ([]expiry.PartitionID, []error) {
	horizon := policy.ReapHorizon(now)

	candidates, err := r.registry.ListByState(ctx, expiry.StateActive, expiry.StateRetiring)
	if err != nil {
		return nil, []error{fmt.Errorf("failed to list partitions: %w", err)}
	}

	var retired []expiry.PartitionID
	var errs []error

	for _, part := range candidates {
		if err := ctx.Err(); err != nil {
			// Stop between partitions on cancellation. Whatever was not
			// reached stays eligible for the next cycle.
			errs = append(errs, fmt.Errorf("reap interrupted: %w", err))
			break
		}

		if part.Range.Contains(now) {
			// The current instant's partition holds rows that are still
			// live. With a non-negative grace period it can never be
			// eligible; this guard keeps that true against clock
			// surprises and hand-edited catalogs.
			r.logger.Warn("refusing to retire partition containing current time",
				"partition_id", part.ID,
				"range", part.Range.String())
			continue
		}

		// Partitions already retiring resumed from an earlier cycle are
		// finished regardless of the horizon; they left the read view
		// when retirement began.
		if part.State == expiry.StateActive && part.Range.End.After(horizon) {
			continue
		}

		if err := r.retire(ctx, part, policy); err != nil {
			r.logger.Error("failed to retire partition",
				"partition_id", part.ID,
				"error", err)
			errs = append(errs, fmt.Errorf("partition %s: %w", part.ID, err))
			continue
		}

		retired = append(retired, part.ID)
		r.logger.Info("retired partition",
			"partition_id", part.ID,
			"range", part.Range.String(),
			"mode", string(policy.RetirementMode))
	}

	return retired, errs
}

// retire drives one partition through the retirement pipeline.
func (r *Reaper) retire(ctx context.Context, part expiry.Partition, policy *expiry.Policy) error {
	if part.State == expiry.StateActive {
		if err := r.beginRetirement(ctx, part.ID); err != nil {
			return err
		}
	}

	if policy.RetirementMode == expiry.RetireArchiveThenDrop {
		if r.archiver == nil {
			return fmt.Errorf("retirement mode %s requires an archive path", expiry.RetireArchiveThenDrop)
		}
		if _, err := r.archiver.ArchivePartition(ctx, part); err != nil {
			// The partition stays retiring; the next cycle rewrites the
			// archive from the still-present rows and tries again.
			return err
		}
	}

	if err := r.engine.DropPartition(ctx, part); err != nil {
		return err
	}

	if !policy.KeepRetiredEntries {
		if err := r.registry.Delete(ctx, part.ID); err != nil {
			return fmt.Errorf("failed to delete retired partition entry: %w", err)
		}
		return nil
	}

	return r.finishRetirement(ctx, part.ID)
}

// beginRetirement moves the partition out of the writable and visible
// set. Losing the race to another run is success.
func (r *Reaper) beginRetirement(ctx context.Context, id expiry.PartitionID) error {
	_, err := r.registry.Transition(ctx, id, expiry.StateActive, expiry.StateRetiring)
	if err == nil {
		return nil
	}

	var conflict *expiry.ConflictError
	if errors.As(err, &conflict) {
		if conflict.Observed == expiry.StateRetiring || conflict.Observed == expiry.StateRetired {
			return nil
		}
	}
	return fmt.Errorf("failed to mark partition retiring: %w", err)
}

// finishRetirement records the terminal state after the physical drop.
func (r *Reaper) finishRetirement(ctx context.Context, id expiry.PartitionID) error {
	_, err := r.registry.Transition(ctx, id, expiry.StateRetiring, expiry.StateRetired)
	if err == nil {
		return nil
	}

	var conflict *expiry.ConflictError
	if errors.As(err, &conflict) && conflict.Observed == expiry.StateRetired {
		return nil
	}
	return fmt.Errorf("failed to mark partition retired: %w", err)
}
