// Package store provides SQLite-backed persistence for kitchensync entities.
//
// The store is the persistence layer consumed by the mutation engine. It
// performs plain CRUD and publishes nothing; the engine publishes change
// envelopes after a write succeeds.
//
// # Conventions
//
//   - Missing rows are reported as model.ErrNotFound (wrapped)
//   - List queries are ordered by insertion (rowid) so read-all results
//     match the order clients would have built from Add envelopes
//   - Slices stored on a row (station categories, input statuses) are JSON
//     text columns
//   - Referential integrity is enforced with foreign keys
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
