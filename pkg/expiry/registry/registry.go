package registry

import (
	"context"
	"fmt"

	"mercator-hq/saturn/pkg/expiry"
)

// Registry is the authoritative partition catalog. Implementations must be
// thread-safe and support concurrent access.
//
// The registry stores one row per partition:
// (partition_id, range_start, range_end, state, sequence, updated_at).
type Registry interface {
	// Register creates a catalog entry for the given grid-aligned range,
	// in state planned. Registering a range that already has an entry
	// returns AlreadyExistsError carrying the existing partition; callers
	// treat that as success. Ranges that do not sit on the registry's
	// grid are rejected.
	Register(ctx context.Context, r expiry.Range) (expiry.Partition, error)

	// Get returns the partition with the given ID, or PartitionNotFoundError.
	Get(ctx context.Context, id expiry.PartitionID) (expiry.Partition, error)

	// List returns all partitions ordered by sequence.
	List(ctx context.Context) ([]expiry.Partition, error)

	// ListByState returns partitions in any of the given states, ordered
	// by sequence. No states means an empty result.
	ListByState(ctx context.Context, states ...expiry.State) ([]expiry.Partition, error)

	// Transition moves a partition from one state to another with
	// compare-and-set semantics: it succeeds only when the stored state
	// equals from and the transition is legal. A lost race returns
	// ConflictError carrying the observed state.
	Transition(ctx context.Context, id expiry.PartitionID, from, to expiry.State) (expiry.Partition, error)

	// Delete removes a partition's catalog entry. Deleting an absent
	// entry is not an error.
	Delete(ctx context.Context, id expiry.PartitionID) error

	// Close releases any resources held by the registry.
	Close() error
}

// alignRange validates that r is exactly one cell of the grid and returns
// that cell's sequence. Grid alignment is what makes overlap impossible:
// distinct cells never intersect, so the only collision Register can see
// is an exact duplicate.
func alignRange(grid expiry.Grid, r expiry.Range) (int64, error) {
	if !r.Valid() {
		return 0, fmt.Errorf("invalid range %s: end must be after start", r)
	}
	seq := grid.SequenceFor(r.Start)
	if cell := grid.RangeForSequence(seq); !r.Equal(cell) {
		return 0, fmt.Errorf("range %s is not aligned to the partition grid (expected %s)", r, cell)
	}
	return seq, nil
}

// checkTransition rejects transitions the lifecycle does not declare.
func checkTransition(from, to expiry.State) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("unknown partition state in transition from %q to %q", from, to)
	}
	if !from.CanTransition(to) {
		return fmt.Errorf("illegal transition from %s to %s", from, to)
	}
	return nil
}
