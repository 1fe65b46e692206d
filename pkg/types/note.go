package types

import "time"

// NoteType classifies who authored a note and what shape it has.
type NoteType string

const (
	NoteTypePlain  NoteType = "note"
	NoteTypeTodo   NoteType = "todo"
	NoteTypeAITodo NoteType = "ai-todo"
	NoteTypeAINote NoteType = "ai-note"
)

// Valid reports whether the note type is one of the known variants.
func (t NoteType) Valid() bool {
	switch t {
	case NoteTypePlain, NoteTypeTodo, NoteTypeAITodo, NoteTypeAINote:
		return true
	}
	return false
}

// AllNoteTypes lists the valid note type values in a stable order.
func AllNoteTypes() []string {
	return []string{
		string(NoteTypePlain),
		string(NoteTypeTodo),
		string(NoteTypeAITodo),
		string(NoteTypeAINote),
	}
}

// NoteStatus tracks todo progress.
type NoteStatus string

const (
	StatusOpen       NoteStatus = "open"
	StatusInProgress NoteStatus = "in-progress"
	StatusDone       NoteStatus = "done"
	StatusArchived   NoteStatus = "archived"
)

// Valid reports whether the status is one of the known values.
func (s NoteStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone, StatusArchived:
		return true
	}
	return false
}

// AllStatuses lists the valid status values in a stable order.
func AllStatuses() []string {
	return []string{
		string(StatusOpen),
		string(StatusInProgress),
		string(StatusDone),
		string(StatusArchived),
	}
}

// Note is the hydrated note entity returned by every store operation.
// Contexts holds the resolved context names linked to the note; the
// embedding vector itself is never returned, only whether one is stored.
type Note struct {
	ID                 string      `json:"id"`
	Content            string      `json:"content"`
	KeyContext         *string     `json:"key_context,omitempty"`
	Tags               []string    `json:"tags,omitempty"`
	NoteType           *NoteType   `json:"note_type,omitempty"`
	Deadline           *time.Time  `json:"deadline,omitempty"`
	Status             *NoteStatus `json:"status,omitempty"`
	SuggestedContexts  []string    `json:"suggested_contexts,omitempty"`
	Contexts           []string    `json:"contexts,omitempty"`
	HasEmbedding       bool        `json:"has_embedding"`
	EmbeddingModel     *string     `json:"embedding_model,omitempty"`
	EmbeddingCreatedAt *time.Time  `json:"embedding_created_at,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// ScoredNote pairs a hydrated note with its similarity score from a
// semantic search.
type ScoredNote struct {
	Note       Note    `json:"note"`
	Similarity float64 `json:"similarity"`
}

// ContextStat describes how heavily a context is used.
type ContextStat struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	NoteCount  int        `json:"note_count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// FilterOptions enumerates the distinct values available for building
// note filters.
type FilterOptions struct {
	Contexts  []string `json:"contexts"`
	Tags      []string `json:"tags"`
	NoteTypes []string `json:"note_types"`
	Statuses  []string `json:"statuses"`
}

// AppliedFilters echoes back which filters were actually applied to a
// filter query. Absent filters are omitted.
type AppliedFilters struct {
	CreatedAfter   *time.Time `json:"created_after,omitempty"`
	CreatedBefore  *time.Time `json:"created_before,omitempty"`
	Contexts       []string   `json:"contexts,omitempty"`
	Hashtags       []string   `json:"hashtags,omitempty"`
	NoteType       *string    `json:"note_type,omitempty"`
	DeadlineAfter  *time.Time `json:"deadline_after,omitempty"`
	DeadlineBefore *time.Time `json:"deadline_before,omitempty"`
	DeadlineOn     *time.Time `json:"deadline_on,omitempty"`
	Status         *string    `json:"status,omitempty"`
}

// FilterResult is the outcome of a paginated filter query. TotalCount
// counts every match regardless of the page limit.
type FilterResult struct {
	Notes      []Note         `json:"notes"`
	TotalCount int            `json:"total_count"`
	Applied    AppliedFilters `json:"applied"`
	Limit      int            `json:"limit"`
}
