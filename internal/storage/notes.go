package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/notegraph/notegraph-mcp/pkg/types"
)

// noteColumns is the canonical select list for hydrating a note. The
// embedding blob itself is never selected, only its presence.
const noteColumns = `id, content, key_context, tags, note_type, deadline, status,
       suggested_contexts, embedding IS NOT NULL, embedding_model, embedding_created_at,
       created_at, updated_at`

// contextMatchPredicate is the existence subquery requiring a note to be
// linked to a context with the given name.
const contextMatchPredicate = `EXISTS (
	SELECT 1 FROM note_contexts nc
	JOIN contexts c ON nc.context_id = c.id
	WHERE nc.note_id = notes.id AND c.name = ?)`

// rowScanner abstracts *sql.Row and *sql.Rows for note hydration
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanNote reads one note row into a DTO, decoding serialized array
// fields at the persistence edge.
func scanNote(row rowScanner) (*types.Note, error) {
	var n types.Note
	var keyContext, tagsRaw, noteType, status, suggestedRaw, embeddingModel sql.NullString
	var deadline, embeddingCreatedAt sql.NullTime

	err := row.Scan(
		&n.ID, &n.Content, &keyContext, &tagsRaw, &noteType, &deadline, &status,
		&suggestedRaw, &n.HasEmbedding, &embeddingModel, &embeddingCreatedAt,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if keyContext.Valid {
		n.KeyContext = &keyContext.String
	}
	n.Tags = decodeStringSlice(tagsRaw.String)
	if noteType.Valid {
		nt := types.NoteType(noteType.String)
		n.NoteType = &nt
	}
	if deadline.Valid {
		t := deadline.Time
		n.Deadline = &t
	}
	if status.Valid {
		st := types.NoteStatus(status.String)
		n.Status = &st
	}
	n.SuggestedContexts = decodeStringSlice(suggestedRaw.String)
	if embeddingModel.Valid {
		n.EmbeddingModel = &embeddingModel.String
	}
	if embeddingCreatedAt.Valid {
		t := embeddingCreatedAt.Time
		n.EmbeddingCreatedAt = &t
	}
	return &n, nil
}

// hydrateContexts resolves linked context names for a batch of notes
// with a single grouped query.
func (s *SQLiteStore) hydrateContexts(ctx context.Context, q querier, notes []types.Note) error {
	if len(notes) == 0 {
		return nil
	}

	placeholders := make([]string, len(notes))
	args := make([]interface{}, len(notes))
	for i := range notes {
		placeholders[i] = "?"
		args[i] = notes[i].ID
	}

	query := `
		SELECT nc.note_id, c.name
		FROM note_contexts nc
		JOIN contexts c ON c.id = nc.context_id
		WHERE nc.note_id IN (` + strings.Join(placeholders, ",") + `)
		ORDER BY nc.created_at, c.name
	`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to resolve contexts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byNote := make(map[string][]string, len(notes))
	for rows.Next() {
		var noteID, name string
		if err := rows.Scan(&noteID, &name); err != nil {
			return err
		}
		byNote[noteID] = append(byNote[noteID], name)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range notes {
		notes[i].Contexts = byNote[notes[i].ID]
	}
	return nil
}

// utcOrNil normalizes an optional timestamp to UTC for storage
func utcOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// CreateNote inserts a note row and links it to its contexts, creating
// absent contexts on the fly. The note insert and the context linking are
// deliberately not wrapped in one transaction; a failed link leaves the
// note row in place (see the consistency notes in the package doc).
func (s *SQLiteStore) CreateNote(ctx context.Context, params CreateNoteParams) (*types.Note, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	query := `
		INSERT INTO notes (id, content, key_context, tags, note_type, deadline, status,
		                   suggested_contexts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	var returned string
	err := s.db.QueryRowContext(ctx, query,
		id, params.Content, params.KeyContext, encodeStringSlice(params.Tags),
		params.NoteType, utcOrNil(params.Deadline), params.Status,
		encodeStringSlice(params.SuggestedContexts), now, now,
	).Scan(&returned)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: insert returned no row", ErrCreateFailed)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	if len(params.Contexts) > 0 {
		contextIDs, err := s.UpsertContexts(ctx, params.Contexts)
		if err != nil {
			return nil, fmt.Errorf("%w: upserting contexts: %v", ErrCreateFailed, err)
		}
		if err := s.LinkNoteToContexts(ctx, id, contextIDs); err != nil {
			return nil, fmt.Errorf("%w: linking contexts: %v", ErrCreateFailed, err)
		}
	}

	return s.GetNote(ctx, id)
}

// GetNote fetches a single note by id with its contexts resolved
func (s *SQLiteStore) GetNote(ctx context.Context, id string) (*types.Note, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	note, err := scanNote(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note %s: %w", id, err)
	}

	notes := []types.Note{*note}
	if err := s.hydrateContexts(ctx, s.db, notes); err != nil {
		return nil, err
	}
	return &notes[0], nil
}

// UpdateNote applies a partial patch. Nil patch fields are untouched;
// a non-nil Contexts slice triggers a full-replacement relink (an empty
// slice clears all links). The embedding vector is never written here.
func (s *SQLiteStore) UpdateNote(ctx context.Context, id string, params UpdateNoteParams) (*types.Note, error) {
	sets := make([]string, 0, 8)
	args := make([]interface{}, 0, 10)

	if params.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *params.Content)
	}
	if params.KeyContext != nil {
		sets = append(sets, "key_context = ?")
		args = append(args, *params.KeyContext)
	}
	if params.Tags != nil {
		sets = append(sets, "tags = ?")
		args = append(args, encodeStringSlice(*params.Tags))
	}
	if params.NoteType != nil {
		sets = append(sets, "note_type = ?")
		args = append(args, string(*params.NoteType))
	}
	if params.Deadline != nil {
		sets = append(sets, "deadline = ?")
		args = append(args, params.Deadline.UTC())
	}
	if params.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*params.Status))
	}
	if params.SuggestedContexts != nil {
		sets = append(sets, "suggested_contexts = ?")
		args = append(args, encodeStringSlice(*params.SuggestedContexts))
	}
	if params.EmbeddingModel != nil {
		sets = append(sets, "embedding_model = ?")
		args = append(args, *params.EmbeddingModel)
	}
	if params.EmbeddingCreatedAt != nil {
		sets = append(sets, "embedding_created_at = ?")
		args = append(args, params.EmbeddingCreatedAt.UTC())
	}

	if len(sets) == 0 && params.Contexts == nil {
		return nil, ErrNoUpdateFields
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	result, err := s.db.ExecContext(ctx,
		"UPDATE notes SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update note %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	if params.Contexts != nil {
		contextIDs, err := s.UpsertContexts(ctx, *params.Contexts)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert contexts for note %s: %w", id, err)
		}
		if err := s.LinkNoteToContexts(ctx, id, contextIDs); err != nil {
			return nil, fmt.Errorf("failed to relink note %s: %w", id, err)
		}
	}

	return s.GetNote(ctx, id)
}

// DeleteNote removes a note: links first, then a best-effort embedding
// clear, then the row itself, so no dangling link can outlive the note.
func (s *SQLiteStore) DeleteNote(ctx context.Context, id string) (string, error) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM note_contexts WHERE note_id = ?`, id); err != nil {
		return "", fmt.Errorf("failed to detach contexts for note %s: %w", id, err)
	}

	// Best effort: the note may simply have no embedding to clear.
	if _, err := s.db.ExecContext(ctx,
		`UPDATE notes SET embedding = NULL, embedding_model = NULL, embedding_created_at = NULL WHERE id = ?`,
		id); err != nil {
		log.Printf("warning: failed to clear embedding for note %s: %v", id, err)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return "", fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return "", err
	}
	if affected == 0 {
		return "", ErrNotFound
	}
	return id, nil
}

// FetchNotes lists notes newest first, optionally filtered by key context
// and by linked context names combined with AND or OR semantics.
func (s *SQLiteStore) FetchNotes(ctx context.Context, params FetchNotesParams) ([]types.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes`
	var conds []string
	var args []interface{}

	if params.KeyContext != nil {
		conds = append(conds, "key_context = ?")
		args = append(args, *params.KeyContext)
	}
	if len(params.Contexts) > 0 {
		sub := make([]string, len(params.Contexts))
		for i, name := range params.Contexts {
			sub[i] = contextMatchPredicate
			args = append(args, name)
		}
		joiner := " AND "
		if params.Method == MatchAny {
			joiner = " OR "
		}
		conds = append(conds, "("+strings.Join(sub, joiner)+")")
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	notes := make([]types.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.hydrateContexts(ctx, s.db, notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// FetchNotesByIDs is a batched lookup. Empty input short-circuits without
// touching the store.
func (s *SQLiteStore) FetchNotesByIDs(ctx context.Context, ids []string) ([]types.Note, error) {
	if len(ids) == 0 {
		return []types.Note{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `SELECT ` + noteColumns + ` FROM notes WHERE id IN (` +
		strings.Join(placeholders, ",") + `) ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notes by ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	notes := make([]types.Note, 0, len(ids))
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.hydrateContexts(ctx, s.db, notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// UpsertNoteEmbedding is the dedicated embedding write. A stored embedding
// is always paired with its model tag and creation time.
func (s *SQLiteStore) UpsertNoteEmbedding(ctx context.Context, id string, vector []float32, model string) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE notes
		SET embedding = ?, embedding_model = ?, embedding_created_at = ?, updated_at = ?
		WHERE id = ?
	`, serializeVector(vector), model, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding for note %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetFilterOptions returns the distinct context names, tag values, note
// types, and status values present across all notes.
func (s *SQLiteStore) GetFilterOptions(ctx context.Context) (*types.FilterOptions, error) {
	opts := &types.FilterOptions{
		Contexts:  make([]string, 0),
		Tags:      make([]string, 0),
		NoteTypes: make([]string, 0),
		Statuses:  make([]string, 0),
	}

	var err error
	if opts.Contexts, err = s.distinctColumn(ctx, `SELECT name FROM contexts ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list contexts: %w", err)
	}
	if opts.NoteTypes, err = s.distinctColumn(ctx,
		`SELECT DISTINCT note_type FROM notes WHERE note_type IS NOT NULL ORDER BY note_type`); err != nil {
		return nil, fmt.Errorf("failed to list note types: %w", err)
	}
	if opts.Statuses, err = s.distinctColumn(ctx,
		`SELECT DISTINCT status FROM notes WHERE status IS NOT NULL ORDER BY status`); err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}

	// Tags live inside a serialized column, so distinct values are
	// collected in Go rather than SQL.
	rows, err := s.db.QueryContext(ctx, `SELECT tags FROM notes WHERE tags IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	seen := make(map[string]struct{})
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		for _, tag := range decodeStringSlice(raw) {
			seen[tag] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for tag := range seen {
		opts.Tags = append(opts.Tags, tag)
	}
	sort.Strings(opts.Tags)

	return opts, nil
}

// distinctColumn collects a single string column into a slice
func (s *SQLiteStore) distinctColumn(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
