// Package store persists helpdesk-bridge state across restarts.
//
// # Snapshots
//
// Open bindings live in memory (see package binding). This package saves
// and restores whole snapshots of them through the Snapshotter interface:
//
//   - FileSnapshot: a JSON array of records in one file, replaced atomically
//     via temp file + rename
//   - SQLiteStore: a bindings table rewritten inside one transaction
//
// Each record has the shape:
//
//	{"conversation_id": "!dm:example.org", "thread_message_id": "$root", "created_at": "..."}
//
// A missing file or empty table is an empty snapshot, not an error. Save
// always replaces the previous snapshot (last write wins).
//
// # Audit Log
//
// SQLiteStore also implements AuditLog, an append-only record of ticket
// lifecycle steps (opened, closed_by_user, closed_by_staff, abandoned).
// The file driver has no audit log.
//
// # Error Handling
//
// Every read or write failure wraps ErrPersistence. Callers treat a failed
// Load as an empty snapshot and a failed Save as a logged warning; memory
// state stays authoritative.
//
// # Testing
//
// Use t.TempDir() for both drivers:
//
//	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), nil)
package store
