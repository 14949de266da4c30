package store

import (
	"context"
	"fmt"
	"time"

	"mercator-hq/saturn/pkg/expiry"
	"mercator-hq/saturn/pkg/expiry/engine"
	"mercator-hq/saturn/pkg/expiry/registry"
)

// CompositeView is the read path: it joins core records with their live
// expiring attributes.
//
// The join applies the logical horizon only. A payload is attached while
// its expiry is strictly after the caller's now; at or past it, the core
// record reads exactly as if no payload was ever written. Readers cannot
// tell an expired payload from a dropped one, and no partition identity
// appears in any result.
type CompositeView struct {
	cores    CoreStore
	registry registry.Registry
	engine   engine.Engine
}

// NewCompositeView creates a read view over the given backends.
func NewCompositeView(cores CoreStore, reg registry.Registry, eng engine.Engine) *CompositeView {
	return &CompositeView{
		cores:    cores,
		registry: reg,
		engine:   eng,
	}
}

// Get returns the record for the ID at the given horizon. The expiring
// attributes are attached only while still live; their absence is never an
// error. A missing core record is RecordNotFoundError.
func (v *CompositeView) Get(ctx context.Context, coreID string, now time.Time) (expiry.CompositeRecord, error) {
	core, err := v.cores.Get(ctx, coreID)
	if err != nil {
		return expiry.CompositeRecord{}, fmt.Errorf("failed to load core record: %w", err)
	}
	if core == nil {
		return expiry.CompositeRecord{}, expiry.NewRecordNotFoundError(coreID)
	}

	parts, err := v.liveParts(ctx, now)
	if err != nil {
		return expiry.CompositeRecord{}, err
	}

	record := expiry.CompositeRecord{Core: *core}
	payload, err := v.joinOwner(ctx, parts, coreID, now)
	if err != nil {
		return expiry.CompositeRecord{}, err
	}
	record.Expiring = payload
	return record, nil
}

// List returns a channel of composite records matching the filter, ordered
// by core ID, joined at the given horizon.
//
// The stream is lazy and finite; both channels close when it completes.
// Calling List again starts a fresh stream over the current contents.
//
// Returns:
//   - recordsCh: Channel of composite records (buffered)
//   - errCh: Channel for errors (buffered, max 1 error)
//   - error: Immediate error (e.g., registry unavailable)
func (v *CompositeView) List(ctx context.Context, filter CoreFilter, now time.Time) (<-chan expiry.CompositeRecord, <-chan error, error) {
	// One registry snapshot serves the whole stream, so every record in
	// a single listing is joined against the same set of partitions.
	parts, err := v.liveParts(ctx, now)
	if err != nil {
		return nil, nil, err
	}

	coresCh, coreErrCh, err := v.cores.ListStream(ctx, filter)
	if err != nil {
		return nil, nil, err
	}

	recordsCh := make(chan expiry.CompositeRecord, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		for core := range coresCh {
			payload, err := v.joinOwner(ctx, parts, core.CoreID, now)
			if err != nil {
				errCh <- err
				return
			}
			record := expiry.CompositeRecord{Core: core, Expiring: payload}
			select {
			case recordsCh <- record:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if err := <-coreErrCh; err != nil {
			errCh <- err
		}
	}()

	return recordsCh, errCh, nil
}

// liveParts snapshots the partitions worth consulting at the horizon:
// visible states only, and only ranges that have not entirely ended.
// A partition whose range is fully past cannot hold a live payload, so it
// is pruned without being read.
func (v *CompositeView) liveParts(ctx context.Context, now time.Time) ([]expiry.Partition, error) {
	snapshot, err := v.registry.ListByState(ctx, expiry.StatePlanned, expiry.StateActive)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot registry: %w", err)
	}

	parts := snapshot[:0]
	for _, part := range snapshot {
		if part.Range.End.After(now) {
			parts = append(parts, part)
		}
	}
	return parts, nil
}

// joinOwner finds the owner's live payload among the given partitions.
// A row is authoritative only in the partition its own expiry routes to;
// rows left behind by an expiry move are ignored. Nil means no live
// attributes, which is a normal state.
func (v *CompositeView) joinOwner(ctx context.Context, parts []expiry.Partition, coreID string, now time.Time) (*expiry.Payload, error) {
	for _, part := range parts {
		payload, err := v.engine.GetOwner(ctx, part, coreID)
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
