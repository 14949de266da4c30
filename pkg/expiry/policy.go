package expiry

import (
	"fmt"
	"time"
)

// RetirementMode selects what happens to a partition's payload rows when it
// is retired.
type RetirementMode string

const (
	// RetireHardDrop drops the partition's physical storage immediately.
	RetireHardDrop RetirementMode = "hardDrop"

	// RetireArchiveThenDrop exports the partition's rows to an archive file
	// before dropping physical storage. A failed archive aborts the drop.
	RetireArchiveThenDrop RetirementMode = "archiveThenDrop"
)

// Valid reports whether m is a known retirement mode.
func (m RetirementMode) Valid() bool {
	return m == RetireHardDrop || m == RetireArchiveThenDrop
}

// Grid is the partition geometry: a fixed epoch anchor and a fixed width.
// Every partition range is one cell of this grid, so a range's sequence
// number (and therefore its identity) is a pure function of its start.
type Grid struct {
	// Epoch anchors the grid. All partition boundaries are at
	// Epoch + n*Width for integer n.
	Epoch time.Time

	// Width is the duration covered by one partition.
	Width time.Duration
}

// SequenceFor returns the grid cell index of the partition containing t.
// Timestamps exactly on a boundary belong to the cell starting there.
func (g Grid) SequenceFor(t time.Time) int64 {
	d := t.Sub(g.Epoch)
	seq := int64(d / g.Width)
	if d < 0 && d%g.Width != 0 {
		seq--
	}
	return seq
}

// RangeForSequence returns the half-open range of grid cell seq.
func (g Grid) RangeForSequence(seq int64) Range {
	start := g.Epoch.Add(time.Duration(seq) * g.Width)
	return Range{Start: start, End: start.Add(g.Width)}
}

// RangeFor returns the grid-aligned range containing t.
func (g Grid) RangeFor(t time.Time) Range {
	return g.RangeForSequence(g.SequenceFor(t))
}

// PartitionIDForSequence derives the stable partition identity for a grid
// cell. Zero padding keeps lexical order equal to range order.
func PartitionIDForSequence(seq int64) PartitionID {
	return PartitionID(fmt.Sprintf("part_%08d", seq))
}

// Policy governs partition geometry, provisioning depth, and retirement
// behavior. Policies are plain values; components receive them explicitly
// rather than reading shared state.
type Policy struct {
	// Epoch anchors the partition grid. Defaults to the Unix epoch.
	Epoch time.Time `json:"epoch"`

	// PartitionWidth is the expiry span covered by one partition.
	PartitionWidth time.Duration `json:"partition_width"`

	// PremakeCount is how many partitions beyond the one containing now
	// the provisioner keeps materialized. Minimum 1.
	PremakeCount int `json:"premake_count"`

	// GracePeriod delays the physical drop after a partition's range ends.
	// Logical visibility is never extended by grace; only the drop waits.
	GracePeriod time.Duration `json:"grace_period"`

	// RetirementMode selects hard drop or archive-then-drop.
	RetirementMode RetirementMode `json:"retirement_mode"`

	// KeepRetiredEntries keeps retired partitions in the registry as
	// tombstones. When false the registry row is deleted after the drop.
	KeepRetiredEntries bool `json:"keep_retired_entries"`

	// DefaultRetention is assigned when a write carries no expiry:
	// the payload expires at write time plus this duration. Never zero;
	// expiry timestamps are never null.
	DefaultRetention time.Duration `json:"default_retention"`
}

// DefaultPolicy returns a policy with sensible production defaults:
// 30-day partitions, three premade ahead, a one-day grace period, and
// 90-day default retention.
func DefaultPolicy() *Policy {
	return &Policy{
		Epoch:              time.Unix(0, 0).UTC(),
		PartitionWidth:     30 * 24 * time.Hour,
		PremakeCount:       3,
		GracePeriod:        24 * time.Hour,
		RetirementMode:     RetireHardDrop,
		KeepRetiredEntries: true,
		DefaultRetention:   90 * 24 * time.Hour,
	}
}

// Validate checks the policy for internal consistency.
func (p *Policy) Validate() error {
	if p.Epoch.IsZero() {
		return NewPolicyError("epoch", "must be set")
	}
	if p.PartitionWidth <= 0 {
		return NewPolicyError("partition_width", "must be positive")
	}
	if p.PremakeCount < 1 {
		return NewPolicyError("premake_count", "must be at least 1")
	}
	if p.GracePeriod < 0 {
		return NewPolicyError("grace_period", "must not be negative")
	}
	if !p.RetirementMode.Valid() {
		return NewPolicyError("retirement_mode", fmt.Sprintf("unknown mode %q", p.RetirementMode))
	}
	if p.DefaultRetention <= 0 {
		return NewPolicyError("default_retention", "must be positive")
	}
	return nil
}

// Grid returns the partition geometry portion of the policy.
func (p *Policy) Grid() Grid {
	return Grid{Epoch: p.Epoch, Width: p.PartitionWidth}
}

// ViewHorizon is the logical visibility cut: payloads with
// ExpiresAt > ViewHorizon(now) are visible, all others are not.
// It is exactly now; visibility never depends on maintenance timing.
func (p *Policy) ViewHorizon(now time.Time) time.Time {
	return now
}

// ReapHorizon is the physical retirement cut: a partition is reapable once
// its range end is at or before this instant. Grace keeps just-expired
// payloads recoverable for a while after they disappear from the view.
func (p *Policy) ReapHorizon(now time.Time) time.Time {
	return now.Add(-p.GracePeriod)
}

// DefaultExpiry returns the expiry assigned to writes that do not carry one.
func (p *Policy) DefaultExpiry(now time.Time) time.Time {
	return now.Add(p.DefaultRetention)
}
