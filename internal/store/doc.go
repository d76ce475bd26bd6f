// Package store provides the SQLite-backed pass journal.
//
// The journal is append-only and records, for every pass the scheduler
// ran:
//   - Passes: identity, logical seq, outcome and mutation count
//   - Mutations: every editor mutation the pass applied, in order, with
//     a content fingerprint of its markup and its originator tags
//
// # Ordering
//
// All ordering uses the logical seq INTEGER, never timestamps. Queries
// that return lists order by seq ASC, id ASC COLLATE BINARY (passes) or
// ord ASC (mutations) so two runs over the same input read back
// identically.
//
// # Idempotency
//
// Writes use ON CONFLICT DO NOTHING on the primary key; journaling the
// same pass twice is harmless.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Fingerprints and serialized origins come from internal/canon.
package store
