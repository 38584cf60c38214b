// Package store provides persistent storage for lattice-mcp using SQLite.
//
// # Architecture
//
// The Store interface covers notes and activity log entries; SQLiteStore
// implements it on modernc.org/sqlite with WAL mode enabled. The schema is
// created automatically on first open.
//
// # Data Models
//
//   - Note: caller-scoped key-value entry, keyed by (owner, key)
//   - LogEntry: append-only activity line with level and timestamp
//
// Absent rows are reported as ErrNotFound so callers can distinguish a
// missing note from a storage failure with errors.Is.
package store
