package storage

import (
	"context"
	"time"

	"github.com/notegraph/notegraph-mcp/pkg/types"
)

// MatchMethod controls how a multi-context fetch combines per-context
// existence checks.
type MatchMethod string

const (
	// MatchAll requires every listed context to be linked to the note.
	MatchAll MatchMethod = "and"
	// MatchAny requires at least one listed context to be linked.
	MatchAny MatchMethod = "or"
)

// Store defines the interface for persisting and querying notes, their
// context graph, and stored embeddings.
type Store interface {
	// Note operations
	CreateNote(ctx context.Context, params CreateNoteParams) (*types.Note, error)
	GetNote(ctx context.Context, id string) (*types.Note, error)
	UpdateNote(ctx context.Context, id string, params UpdateNoteParams) (*types.Note, error)
	DeleteNote(ctx context.Context, id string) (string, error)
	FetchNotes(ctx context.Context, params FetchNotesParams) ([]types.Note, error)
	FetchNotesByIDs(ctx context.Context, ids []string) ([]types.Note, error)
	UpsertNoteEmbedding(ctx context.Context, id string, vector []float32, model string) error

	// Context graph operations
	UpsertContexts(ctx context.Context, names []string) ([]string, error)
	LinkNoteToContexts(ctx context.Context, noteID string, contextIDs []string) error
	RenameContext(ctx context.Context, oldName, newName string) error
	ContextExists(ctx context.Context, name string) bool
	ContextStatsPaginated(ctx context.Context, limit, offset int) ([]types.ContextStat, int, error)
	SearchContexts(ctx context.Context, query string, limit int) ([]types.ContextStat, error)

	// Filter operations
	FilterNotes(ctx context.Context, filters NoteFilters) (*types.FilterResult, error)
	GetFilterOptions(ctx context.Context) (*types.FilterOptions, error)

	// Semantic search
	SemanticSearch(ctx context.Context, queryEmbedding []float32, threshold float64, limit int) ([]types.ScoredNote, error)

	// Database operations
	Close() error
}

// CreateNoteParams carries the caller-supplied fields for a new note.
// Contexts are free-form names; absent ones are created on the fly.
type CreateNoteParams struct {
	Content           string
	KeyContext        *string
	Tags              []string
	NoteType          *types.NoteType
	Deadline          *time.Time
	Status            *types.NoteStatus
	SuggestedContexts []string
	Contexts          []string
}

// UpdateNoteParams is a partial patch. Nil fields are left untouched.
// Contexts distinguishes nil (leave links unchanged) from a pointer to an
// empty slice (clear all links). The embedding vector itself is never
// written through a patch (use UpsertNoteEmbedding), but an accompanying
// EmbeddingModel is stored when present.
type UpdateNoteParams struct {
	Content            *string
	KeyContext         *string
	Tags               *[]string
	NoteType           *types.NoteType
	Deadline           *time.Time
	Status             *types.NoteStatus
	SuggestedContexts  *[]string
	EmbeddingModel     *string
	EmbeddingCreatedAt *time.Time
	Contexts           *[]string
}

// FetchNotesParams narrows a note listing. Method defaults to MatchAll.
type FetchNotesParams struct {
	KeyContext *string
	Contexts   []string
	Method     MatchMethod
}

// NoteFilters is the structured filter object consumed by FilterNotes.
// All present predicates are conjoined; Hashtags alone is disjunctive
// within itself (any one tag match suffices).
type NoteFilters struct {
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
	Contexts       []string
	Hashtags       []string
	NoteType       *types.NoteType
	DeadlineAfter  *time.Time
	DeadlineBefore *time.Time
	DeadlineOn     *time.Time
	Status         *types.NoteStatus
	Limit          int
	Offset         int
}
