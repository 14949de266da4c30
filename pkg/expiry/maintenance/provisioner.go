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

// Provisioner materializes the partitions the write path will need.
//
// A run covers the partition containing now plus the next PremakeCount
// partitions on the grid. For each target sequence it registers the
// catalog row, creates the physical storage, and activates the
// partition. Every step is idempotent, so overlapping runs and reruns
// after a crash converge on the same catalog.
type Provisioner struct {
	registry registry.Registry
	engine   engine.Engine
	logger   *slog.Logger
}

// NewProvisioner creates a provisioner over the given catalog and
// partition storage.
func NewProvisioner(reg registry.Registry, eng engine.Engine) *Provisioner {
	return &Provisioner{
		registry: reg,
		engine:   eng,
		logger:   slog.Default().With("component", "expiry.maintenance.provisioner"),
	}
}

// EnsureFuturePartitions brings the catalog up to the premake horizon
// for the given instant and returns the partitions this call actually
// registered. Partitions that already existed are activated if needed
// but not reported as created.
//
// A failure on one sequence does not stop the remaining sequences. The
// returned error joins the per-sequence failures, if any.
func (p *Provisioner) EnsureFuturePartitions(ctx context.Context, now time.Time, policy *expiry.Policy) ([]expiry.PartitionID, error) {
	grid := policy.Grid()
	base := grid.SequenceFor(now)

	var created []expiry.PartitionID
	var errs []error

	for seq := base; seq <= base+int64(policy.PremakeCount); seq++ {
		id, wasNew, err := p.ensurePartition(ctx, grid, seq)
		if err != nil {
			p.logger.Error("failed to provision partition",
				"sequence", seq,
				"error", err)
			errs = append(errs, fmt.Errorf("sequence %d: %w", seq, err))
			continue
		}
		if wasNew {
			created = append(created, id)
		}
	}

	if len(created) > 0 {
		p.logger.Info("provisioned partitions",
			"created", len(created),
			"horizon", base+int64(policy.PremakeCount))
	}

	return created, errors.Join(errs...)
}

// ensurePartition drives a single sequence through register, create,
// and activate. It reports whether this call inserted the catalog row.
func (p *Provisioner) ensurePartition(ctx context.Context, grid expiry.Grid, seq int64) (expiry.PartitionID, bool, error) {
	r := grid.RangeForSequence(seq)

	part, err := p.registry.Register(ctx, r)
	wasNew := true
	if err != nil {
		var exists *expiry.AlreadyExistsError
		if !errors.As(err, &exists) {
			return "", false, fmt.Errorf("failed to register partition: %w", err)
		}
		part = exists.Existing
		wasNew = false
	}

	// Create before activate so a partition is never writable without
	// its physical storage. CreatePartition tolerates existing storage,
	// which also covers reruns after a crash between the two steps.
	if err := p.engine.CreatePartition(ctx, part); err != nil {
		return "", false, fmt.Errorf("failed to create partition storage: %w", err)
	}

	if part.State == expiry.StatePlanned {
		if err := p.activate(ctx, part); err != nil {
			return "", false, err
		}
	}

	return part.ID, wasNew, nil
}

// activate moves a planned partition to active. A concurrent run may
// have activated it already; that counts as success.
func (p *Provisioner) activate(ctx context.Context, part expiry.Partition) error {
	_, err := p.registry.Transition(ctx, part.ID, expiry.StatePlanned, expiry.StateActive)
	if err == nil {
		return nil
	}

	var conflict *expiry.ConflictError
	if errors.As(err, &conflict) && conflict.Observed == expiry.StateActive {
		return nil
	}
	return fmt.Errorf("failed to activate partition %s: %w", part.ID, err)
}
