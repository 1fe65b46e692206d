// Package types provides shared type definitions for the NoteGraph MCP server.
//
// This package defines the data records exchanged between the storage core
// and its callers: notes, filter results, context statistics, and scored
// semantic search results. All types are plain data (no live handles), so
// callers never see connection lifetimes.
//
// # Core Types
//
// Note is the hydrated note entity. Nullable fields use pointers; array
// fields (Tags, SuggestedContexts) are native string slices even though
// the store serializes them at the persistence edge:
//
//	note := types.Note{
//	    Content:    "Ship the quarterly report",
//	    KeyContext: ptr("work"),
//	    Tags:       []string{"reports", "q3"},
//	}
//
// ScoredNote pairs a note with its cosine similarity from semantic search.
// Scores are in [0, 1] after threshold filtering, higher is better.
//
// # Validation
//
// NoteType and NoteStatus carry Valid methods so route handlers can reject
// bad variants before they reach the store:
//
//	if nt := types.NoteType(arg); !nt.Valid() {
//	    return types.ErrInvalidNoteType
//	}
package types
