// Package store provides durable per-participant record storage.
//
// A Record is the persisted half of a participant's resource ledger entry.
// The store owns no participant state: every backend is a codec plus an I/O
// boundary keyed by participant id.
//
// # Backends
//
//   - FileStore: one flat YAML document per participant at <dir>/<id>.yml.
//     Saves write a temp file in the same directory, fsync it and rename it
//     over the target, so a crash never leaves a half-written record.
//   - SQLiteStore: a single participants table, opened with WAL mode and a
//     single connection so writes for the same id are serialized.
//
// # Field names
//
// The document keys are stable across versions:
//
//	resource:          int   (half-units)
//	lastEliminatedAt:  int64 (unix millis, 0 = never)
//	wins:              int
//	losses:            int
//	lastUpdated:       int64 (unix millis)
//
// Missing fields decode to defaults: resource falls back to the configured
// default level, everything else to zero. Unknown fields are ignored.
//
// # Errors
//
// A missing record is reported as an error matching ErrRecordNotFound. All
// other I/O and codec failures are wrapped in *PersistenceError carrying the
// operation and participant id.
package store
