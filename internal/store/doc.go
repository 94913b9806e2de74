// Package store is a SQLite journal of gridcalc sessions.
//
// The journal is append-only and holds:
//   - Workbooks: snapshots of entered content keyed by session and revision
//   - Batches: the ops of each applied batch with its outcome
//   - Batch events: the events each batch emitted, in order
//
// It records what happened in a session. It is not a workbook file format;
// workbooks are loaded from YAML or CUE.
//
// # Ordering
//
// Batches are ordered by seq, an autoincrement assigned on append. Events
// are ordered by (batch seq, ordinal). All reads use these keys so that
// listings and replays are deterministic.
//
// # Replay
//
// Replay rebuilds a session from its first snapshot and re-applies each
// recorded batch, reporting any batch whose outcome differs from the
// recorded one and comparing the final state hash against the latest
// snapshot.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
