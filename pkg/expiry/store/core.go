package store

import (
	"context"

	"mercator-hq/saturn/pkg/expiry"
)

// CoreFilter defines filter parameters for listing core records.
type CoreFilter struct {
	// Kind filters by record kind. Empty matches all kinds.
	Kind string `json:"kind,omitempty"`

	// CoreIDPrefix filters by core ID prefix. Empty matches all IDs.
	CoreIDPrefix string `json:"core_id_prefix,omitempty"`

	// Limit caps the number of records returned. Zero means no cap.
	Limit int `json:"limit,omitempty"`

	// Offset skips the first N matching records.
	Offset int `json:"offset,omitempty"`
}

// CoreStore persists the durable half of records. Implementations must be
// thread-safe and support concurrent access.
type CoreStore interface {
	// Save persists a core record, replacing any previous row for the ID.
	Save(ctx context.Context, record expiry.CoreRecord) error

	// Get returns the core record for the ID, or nil when absent.
	Get(ctx context.Context, coreID string) (*expiry.CoreRecord, error)

	// ListStream returns a channel of core records matching the filter,
	// ordered by core ID, for memory-efficient streaming.
	//
	// Returns:
	//   - recordsCh: Channel of core records (buffered)
	//   - errCh: Channel for errors (buffered, max 1 error)
	//   - error: Immediate error (e.g., backend closed)
	//
	// Both channels are closed when the listing completes or fails.
	// Callers should read from both channels until they are closed.
	ListStream(ctx context.Context, filter CoreFilter) (<-chan expiry.CoreRecord, <-chan error, error)

	// Delete removes a core record. Deleting an absent record is not an error.
	Delete(ctx context.Context, coreID string) error

	// Close releases any resources held by the store.
	Close() error
}
