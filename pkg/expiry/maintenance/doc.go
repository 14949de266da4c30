// Package maintenance provisions future partitions and retires expired
// ones. It is the only component that changes the partition catalog;
// the write and read paths consume the catalog but never modify it.
//
// # Cycle
//
// A maintenance run has two phases, always in this order:
//
//  1. Provision: ensure the partition containing now and the next
//     PremakeCount partitions exist, have physical storage, and are
//     active.
//  2. Reap: retire every partition whose range ended at or before
//     now minus the grace period.
//
// Provisioning first guarantees the catalog always covers the current
// instant before anything is removed from it.
//
// # Retirement
//
// Retiring a partition is a pipeline: mark the catalog entry retiring
// (which removes it from routing and the read view), optionally archive
// its rows to a JSON file, drop the physical storage in one operation,
// then mark it retired or delete the entry. Expiry enforcement is the
// state change; the drop only reclaims space. A crash mid-pipeline
// leaves the partition retiring, and the next cycle finishes the job.
//
// Failures are isolated per partition. One partition that cannot be
// archived or dropped is reported and left retiring; the remaining
// candidates still retire.
//
// # Concurrency
//
// The coordinator serializes runs with an advisory lock. A run that
// finds the lock held returns a report marked skipped rather than an
// error. The underlying steps are idempotent and use compare-and-set
// state transitions, so even racing runs converge on the same catalog.
package maintenance
