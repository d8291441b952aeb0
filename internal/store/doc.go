// Package store provides SQLite-backed run history for genc.
//
// Two tables make up an append-only log:
//   - graphs: uploaded computation graphs, keyed by their content hash
//   - runs: one row per invocation, referencing the graph it ran
//
// Graph bodies and run arguments are stored as RFC 8785 canonical JSON, so
// the same graph always produces the same hash and the same bytes.
//
// # Ordering
//
// Every row carries a seq assigned by the store at insert time. Listing
// queries order by seq ASC, id ASC COLLATE BINARY, never by wall time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
