// Package storage provides SQLite-based persistence for notes and their
// context graph.
//
// The storage layer manages:
//   - Note CRUD with serialized array fields (tags, suggested contexts)
//   - The many-to-many note/context graph and its rename/merge transaction
//   - Structured filtering with paginated, counted queries
//   - In-process vector similarity search over stored embeddings
//
// # Database Schema
//
// Tables:
//   - notes: note rows; tags and suggested_contexts are JSON arrays,
//     embedding is a little-endian float32 blob
//   - contexts: unique context names with opaque string ids
//   - note_contexts: (note_id, context_id) links; link created_at drives
//     "recently used" context ranking
//
// # Serialization Boundary
//
// Serialized fields are encoded and decoded only at the persistence edge.
// In-memory entities always hold native slices. Decode failures map to an
// absent value so corruption in one row never aborts a multi-row scan.
//
// # Transactions and Consistency
//
// RenameContext is the only multi-statement transaction and runs under an
// explicit begin/commit/rollback, so partial application on crash is
// impossible. Note creation and updating are NOT wrapped in one
// transaction with the context relink: if the relink fails after the note
// write, the note exists with stale or absent links. Callers must treat
// that window as possible; closing it would change observable
// partial-failure behavior downstream callers may depend on.
//
// # Build Tags
//
// Two driver configurations are supported:
//
//   - CGO (sqlite_cgo tag): github.com/mattn/go-sqlite3
//   - Pure Go (default):    modernc.org/sqlite
package storage
