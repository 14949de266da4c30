// Package registry provides the authoritative partition catalog.
//
// # Overview
//
// The registry records every partition's range, lifecycle state and grid
// sequence, and is the single source of truth for routing snapshots and
// maintenance decisions. Two backends implement the Registry interface:
//
//   - Memory: map-based, for tests and ephemeral runs
//   - SQLite: file-based persistence (modernc.org/sqlite, WAL mode)
//
// # Concurrency
//
// State changes go through Transition, a compare-and-set keyed on the
// expected current state. Two maintenance runs racing to retire the same
// partition cannot both win: the loser observes a conflict and skips.
// Register is idempotent; registering a range that already has a partition
// reports the existing entry rather than creating a duplicate.
//
// # Usage
//
//	reg, err := registry.NewSQLiteRegistry("data/partitions.db", policy.Grid())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reg.Close()
//
//	part, err := reg.Register(ctx, grid.RangeForSequence(seq))
//	var exists *expiry.AlreadyExistsError
//	if errors.As(err, &exists) {
//	    part = exists.Existing // already registered, treat as success
//	}
package registry
