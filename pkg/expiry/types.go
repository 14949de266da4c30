package expiry

import (
	"fmt"
	"time"
)

// PartitionID identifies one time-range partition. IDs are derived
// deterministically from the partition's grid sequence, so the same range
// always yields the same ID and IDs sort in range order.
type PartitionID string

// State represents a partition's position in its lifecycle.
//
// Partitions move strictly forward:
//
//	planned → active → retiring → retired
//
// Planned partitions are registered but may not have physical storage yet.
// Active partitions accept writes and serve reads. Retiring partitions are
// excluded from routing and the read view while their physical storage is
// being dropped. Retired partitions are tombstones.
type State string

const (
	// StatePlanned means the partition is registered but not yet activated.
	StatePlanned State = "planned"

	// StateActive means the partition accepts writes and serves reads.
	StateActive State = "active"

	// StateRetiring means retirement has begun; the partition no longer
	// routes writes or serves reads, but physical storage may still exist.
	StateRetiring State = "retiring"

	// StateRetired means physical storage is gone; the entry is a tombstone.
	StateRetired State = "retired"
)

// Valid reports whether s is a known lifecycle state.
func (s State) Valid() bool {
	switch s {
	case StatePlanned, StateActive, StateRetiring, StateRetired:
		return true
	}
	return false
}

// Writable reports whether partitions in this state accept new payload rows.
func (s State) Writable() bool {
	return s == StatePlanned || s == StateActive
}

// Visible reports whether partitions in this state are consulted by the
// composite read view. Retirement removes a partition from the view before
// its physical storage is dropped.
func (s State) Visible() bool {
	return s == StatePlanned || s == StateActive
}

// CanTransition reports whether s → to is a declared lifecycle transition.
// Self-transitions are not allowed; the registry rejects them as conflicts.
func (s State) CanTransition(to State) bool {
	switch s {
	case StatePlanned:
		return to == StateActive
	case StateActive:
		return to == StateRetiring
	case StateRetiring:
		return to == StateRetired
	}
	return false
}

// Range is a half-open interval [Start, End) of expiry timestamps.
// A timestamp exactly on a boundary belongs to the range that starts there.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether the range is non-empty (End strictly after Start).
func (r Range) Valid() bool {
	return r.End.After(r.Start)
}

// Contains reports whether t falls inside the half-open interval.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Overlaps reports whether r and other share any instant. Adjacent ranges
// (one ending exactly where the other starts) do not overlap.
func (r Range) Overlaps(other Range) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Equal reports whether both endpoints match to the instant.
func (r Range) Equal(other Range) bool {
	return r.Start.Equal(other.Start) && r.End.Equal(other.End)
}

// Width returns the duration covered by the range.
func (r Range) Width() time.Duration {
	return r.End.Sub(r.Start)
}

// String formats the range as [start, end) in RFC 3339.
func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}

// Partition is one registry entry: a range of expiry timestamps, the
// lifecycle state, and the grid sequence the identity derives from.
type Partition struct {
	ID        PartitionID `json:"id"`
	Range     Range       `json:"range"`
	State     State       `json:"state"`
	Sequence  int64       `json:"sequence"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Payload is the expiring attribute set of one record. It lives in exactly
// one partition, selected by ExpiresAt.
type Payload struct {
	CoreID     string            `json:"core_id"`
	ExpiresAt  time.Time         `json:"expires_at"`
	Attributes map[string]string `json:"attributes"`
}

// CoreRecord is the durable portion of a record. Core rows never expire.
type CoreRecord struct {
	CoreID    string            `json:"core_id"`
	Kind      string            `json:"kind"`
	CreatedAt time.Time         `json:"created_at"`
	Body      map[string]string `json:"body"`
}

// CompositeRecord is what readers see: the core record, joined with its
// expiring attributes when they are still live. Expiring is nil when the
// payload is absent or past its expiry; that is a normal state, not an
// error. Partition identity never appears here.
type CompositeRecord struct {
	Core     CoreRecord `json:"core"`
	Expiring *Payload   `json:"expiring,omitempty"`
}

// HasExpiring reports whether live expiring attributes are attached.
func (c *CompositeRecord) HasExpiring() bool {
	return c.Expiring != nil
}
