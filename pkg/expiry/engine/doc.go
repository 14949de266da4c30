// Package engine provides physical storage for expiring payloads: one
// table per partition, created and dropped as a unit.
//
// The engine never decides which partition a payload belongs to; routing
// happens above it. Its contract is deliberately narrow: DDL that is
// idempotent in both directions (creating an existing partition and
// dropping an absent one both succeed), and row-level DML scoped to a
// single partition.
//
// Two backends implement the Engine interface: SQLite (mattn/go-sqlite3)
// for durable deployments and a map-based memory engine for tests.
package engine
