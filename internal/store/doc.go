// Package store provides the SQLite-backed generation cache of stated.
//
// Every stated invocation that writes files opens a run; each template it
// expands is recorded as a generation with fingerprints of its input, the
// configuration, the generated output and the expansion plan. A later run
// skips a template whose last generation has the same input and
// configuration fingerprints and whose output file is unchanged on disk.
//
// # Ordering
//
// Runs and generations are stamped with seq, a logical clock resumed from
// the database on Open. Queries order by seq, never by wall-clock time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
