// Package store provides core record storage, the routed write path, and
// the composite read view.
//
// # Overview
//
// A logical record is split across two stores. The durable core row lives
// in a plain table and never expires. The expiring attribute payload lives
// in a time-range partition selected by its expiry timestamp. This package
// owns the seam between the two:
//
//   - RecordStore is the write path. It persists core rows, assigns the
//     policy's default retention when a write carries no expiry, resolves
//     the payload's partition against a registry snapshot, and keeps each
//     owner down to one live payload row when expiry moves across a
//     partition boundary.
//   - CompositeView is the read path. It joins core rows with payloads
//     that are still live at the caller's horizon and hides everything
//     about partitions from its callers.
//
// # Visibility
//
// The view applies the logical horizon only: a payload is attached while
// expires_at > now and silently absent afterwards. Whether maintenance has
// already dropped the payload's partition is invisible to readers; an
// expired payload and a dropped payload read identically.
//
// # Writes with no expiry
//
// Writes never store a null expiry. A payload without an explicit
// expires_at gets now plus the policy's default retention at write time.
package store
