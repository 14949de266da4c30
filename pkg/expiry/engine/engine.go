package engine

import (
	"context"

	"mercator-hq/saturn/pkg/expiry"
)

// Engine is the physical payload store. Implementations must be thread-safe
// and support concurrent access.
//
// Partition storage is all-or-nothing: a partition's rows are created into
// and dropped with its table. There is no cross-partition operation and no
// per-row expiry path.
type Engine interface {
	// CreatePartition materializes storage for a partition. Creating a
	// partition that already has storage is success.
	CreatePartition(ctx context.Context, part expiry.Partition) error

	// DropPartition removes a partition's storage and every row in it.
	// Dropping a partition whose storage is already gone is success; the
	// desired end state is "gone". A real failure returns DropError.
	DropPartition(ctx context.Context, part expiry.Partition) error

	// Insert upserts one owner's payload row into the partition.
	Insert(ctx context.Context, part expiry.Partition, payload expiry.Payload) error

	// DeleteOwner removes an owner's row from the partition. Absent rows
	// and absent partitions are not errors.
	DeleteOwner(ctx context.Context, part expiry.Partition, coreID string) error

	// GetOwner returns the owner's payload row, or nil when the partition
	// has no row for it.
	GetOwner(ctx context.Context, part expiry.Partition, coreID string) (*expiry.Payload, error)

	// Scan returns all payload rows in the partition ordered by owner.
	// Used by archiving and diagnostics; an absent partition scans empty.
	Scan(ctx context.Context, part expiry.Partition) ([]expiry.Payload, error)

	// Count returns the number of payload rows in the partition. An
	// absent partition counts zero.
	Count(ctx context.Context, part expiry.Partition) (int64, error)

	// Close releases any resources held by the engine.
	Close() error
}
