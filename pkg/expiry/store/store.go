package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/saturn/pkg/expiry"
	"mercator-hq/saturn/pkg/expiry/engine"
	"mercator-hq/saturn/pkg/expiry/registry"
)

// RecordStoreConfig configures the write path.
type RecordStoreConfig struct {
	// Policy supplies the default retention for writes without an expiry.
	Policy *expiry.Policy

	// Now overrides the clock. Default: time.Now. Intended for tests.
	Now func() time.Time
}

// RecordStore is the write path for records: it persists core rows and
// routes expiring payloads into partitions.
//
// RecordStore never creates partitions. When no live partition covers a
// payload's expiry the write fails with NoPartitionError and the caller
// sees the gap; filling it is the provisioner's job.
type RecordStore struct {
	cores    CoreStore
	registry registry.Registry
	engine   engine.Engine
	policy   *expiry.Policy
	logger   *slog.Logger
	now      func() time.Time
}

// NewRecordStore creates a new record write path over the given backends.
func NewRecordStore(cores CoreStore, reg registry.Registry, eng engine.Engine, config *RecordStoreConfig) *RecordStore {
	if config == nil {
		config = &RecordStoreConfig{}
	}
	policy := config.Policy
	if policy == nil {
		policy = expiry.DefaultPolicy()
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &RecordStore{
		cores:    cores,
		registry: reg,
		engine:   eng,
		policy:   policy,
		logger:   slog.Default().With("component", "expiry.store"),
		now:      now,
	}
}

// Put persists a record. The core row is always written; when payload is
// non-nil its expiring attributes are routed into the partition covering
// their expiry.
//
// A payload without an expiry gets the policy default, write time plus the
// standard retention. Expiry timestamps are never stored null.
func (s *RecordStore) Put(ctx context.Context, record expiry.CoreRecord, payload *expiry.Payload) error {
	if record.CoreID == "" {
		return fmt.Errorf("core ID cannot be empty")
	}

	now := s.now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	if err := s.cores.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save core record: %w", err)
	}
	if payload == nil {
		return nil
	}

	p := *payload
	p.CoreID = record.CoreID
	if p.ExpiresAt.IsZero() {
		p.ExpiresAt = s.policy.DefaultExpiry(now)
	}

	target, others, err := s.route(ctx, p.ExpiresAt)
	if err != nil {
		return err
	}

	if err := s.engine.Insert(ctx, target, p); err != nil {
		return fmt.Errorf("failed to insert payload: %w", err)
	}

	// An expiry update may have moved the owner across a partition
	// boundary; clear any previous row so one owner never has two live
	// payloads. The new row is written first, so a failure here leaves a
	// stale row the read path already knows to ignore.
	for _, part := range others {
		if err := s.engine.DeleteOwner(ctx, part, record.CoreID); err != nil {
			s.logger.Warn("failed to clear stale payload row",
				"core_id", record.CoreID,
				"partition_id", string(part.ID),
				"error", err,
			)
		}
	}

	s.logger.Debug("payload routed",
		"core_id", record.CoreID,
		"partition_id", string(target.ID),
		"expires_at", p.ExpiresAt,
	)
	return nil
}

// Touch re-times a record's expiring attributes to a new expiry,
// preserving the attribute values. A record without live attributes gets
// an empty attribute set with the new expiry. The core record must exist.
func (s *RecordStore) Touch(ctx context.Context, coreID string, expiresAt time.Time) error {
	core, err := s.cores.Get(ctx, coreID)
	if err != nil {
		return fmt.Errorf("failed to load core record: %w", err)
	}
	if core == nil {
		return expiry.NewRecordNotFoundError(coreID)
	}

	now := s.now().UTC()
	if expiresAt.IsZero() {
		expiresAt = s.policy.DefaultExpiry(now)
	}

	payload := expiry.Payload{CoreID: coreID, ExpiresAt: expiresAt}
	if existing, err := s.livePayload(ctx, coreID, now); err != nil {
		return err
	} else if existing != nil {
		payload.Attributes = existing.Attributes
	}

	target, others, err := s.route(ctx, expiresAt)
	if err != nil {
		return err
	}
	if err := s.engine.Insert(ctx, target, payload); err != nil {
		return fmt.Errorf("failed to insert payload: %w", err)
	}
	for _, part := range others {
		if err := s.engine.DeleteOwner(ctx, part, coreID); err != nil {
			s.logger.Warn("failed to clear stale payload row",
				"core_id", coreID,
				"partition_id", string(part.ID),
				"error", err,
			)
		}
	}
	return nil
}

// Delete removes a record entirely: the core row and any payload rows in
// writable partitions. Deleting an absent record is not an error.
func (s *RecordStore) Delete(ctx context.Context, coreID string) error {
	snapshot, err := s.registry.ListByState(ctx, expiry.StatePlanned, expiry.StateActive)
	if err != nil {
		return fmt.Errorf("failed to snapshot registry: %w", err)
	}
	for _, part := range snapshot {
		if err := s.engine.DeleteOwner(ctx, part, coreID); err != nil {
			return fmt.Errorf("failed to delete payload row: %w", err)
		}
	}
	if err := s.cores.Delete(ctx, coreID); err != nil {
		return fmt.Errorf("failed to delete core record: %w", err)
	}
	return nil
}

// route snapshots the registry and splits it into the partition covering
// expiresAt and the remaining writable partitions.
func (s *RecordStore) route(ctx context.Context, expiresAt time.Time) (expiry.Partition, []expiry.Partition, error) {
	snapshot, err := s.registry.ListByState(ctx, expiry.StatePlanned, expiry.StateActive)
	if err != nil {
		return expiry.Partition{}, nil, fmt.Errorf("failed to snapshot registry: %w", err)
	}

	target, err := expiry.ResolvePartition(expiresAt, snapshot)
	if err != nil {
		return expiry.Partition{}, nil, err
	}

	others := make([]expiry.Partition, 0, len(snapshot)-1)
	for _, part := range snapshot {
		if part.ID != target.ID {
			others = append(others, part)
		}
	}
	return target, others, nil
}

// livePayload finds the owner's payload row that is authoritative at now:
// the row must sit in the partition its own expiry routes to, and must not
// be expired. Rows left behind by an expiry move fail the first check and
// are ignored.
func (s *RecordStore) livePayload(ctx context.Context, coreID string, now time.Time) (*expiry.Payload, error) {
	snapshot, err := s.registry.ListByState(ctx, expiry.StatePlanned, expiry.StateActive)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot registry: %w", err)
	}
	for _, part := range snapshot {
		if !part.Range.End.After(now) {
			continue
		}
		payload, err := s.engine.GetOwner(ctx, part, coreID)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload row: %w", err)
		}
		if payload == nil {
			continue
		}
		if !part.Range.Contains(payload.ExpiresAt) {
			continue
		}
		if payload.ExpiresAt.After(now) {
			return payload, nil
		}
	}
	return nil, nil
}
