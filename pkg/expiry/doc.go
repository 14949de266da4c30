// Package expiry implements column-level TTL for a record store by
// partitioning expiring attributes into time ranges and retiring whole
// partitions instead of deleting individual rows.
//
// # Model
//
// A logical record has two parts: a durable core row that never expires,
// and an optional expiring attribute payload with a mandatory expiry
// timestamp. Payloads are placed into time-range partitions by their
// expiry: a partition covers a half-open range [start, end) on a fixed
// grid, and a payload expiring inside that range lives in that partition
// and nowhere else.
//
// Expiry is enforced twice, at two different horizons:
//
//   - Logically, at read time: the composite view joins a payload to its
//     core row only while expires_at > now. This needs no maintenance;
//     a payload disappears from reads the instant it expires.
//   - Physically, by maintenance: once a partition's entire range is past
//     (plus a grace period), the partition is retired and its storage
//     dropped as a unit. No per-row delete path exists.
//
// # Lifecycle
//
// Partitions move strictly forward through planned, active, retiring and
// retired. Transitions go through the registry's compare-and-set, so
// concurrent maintenance runs cannot double-retire or resurrect a
// partition. The partition containing the current time is never retired.
//
// # Packages
//
//   - registry: authoritative partition catalog (memory and SQLite)
//   - engine: physical payload storage, one table per partition
//   - store: core record storage, the routed write path, and the
//     composite read view
//   - maintenance: provisioner, reaper, coordinator, and cron scheduling
//
// This package holds the shared vocabulary: partition identity and ranges,
// lifecycle states, the expiration policy and its grid math, pure routing,
// and the error taxonomy.
package expiry
