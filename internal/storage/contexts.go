package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/notegraph/notegraph-mcp/pkg/types"
)

// UpsertContexts resolves each name to a context id, creating absent
// contexts with a fresh id. Ids are returned in input order and the
// operation is idempotent per name.
func (s *SQLiteStore) UpsertContexts(ctx context.Context, names []string) ([]string, error) {
	return s.upsertContextsWithQuerier(ctx, s.db, names)
}

func (s *SQLiteStore) upsertContextsWithQuerier(ctx context.Context, q querier, names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		var id string
		err := q.QueryRowContext(ctx, `SELECT id FROM contexts WHERE name = ?`, name).Scan(&id)
		if err == sql.ErrNoRows {
			id = uuid.NewString()
			if _, err := q.ExecContext(ctx,
				`INSERT INTO contexts (id, name, created_at) VALUES (?, ?, ?)`,
				id, name, time.Now().UTC()); err != nil {
				return nil, fmt.Errorf("failed to create context %q: %w", name, err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("failed to look up context %q: %w", name, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// LinkNoteToContexts replaces a note's full link set: existing links are
// always cleared, then the new set inserted. An empty id list therefore
// clears all links; callers that want links left untouched must not call
// this at all.
func (s *SQLiteStore) LinkNoteToContexts(ctx context.Context, noteID string, contextIDs []string) error {
	return s.linkNoteWithQuerier(ctx, s.db, noteID, contextIDs)
}

func (s *SQLiteStore) linkNoteWithQuerier(ctx context.Context, q querier, noteID string, contextIDs []string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM note_contexts WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("failed to clear links for note %s: %w", noteID, err)
	}
	if len(contextIDs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	values := make([]string, 0, len(contextIDs))
	args := make([]interface{}, 0, len(contextIDs)*3)
	for _, contextID := range contextIDs {
		values = append(values, "(?, ?, ?)")
		args = append(args, noteID, contextID, now)
	}

	// OR IGNORE guards the (note_id, context_id) uniqueness invariant
	// against duplicate names in the input.
	query := `INSERT OR IGNORE INTO note_contexts (note_id, context_id, created_at) VALUES ` +
		strings.Join(values, ", ")
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to link note %s: %w", noteID, err)
	}
	return nil
}

// ContextExists reports whether a context with the exact name exists.
// Infrastructure errors are treated as absence, not failure.
func (s *SQLiteStore) ContextExists(ctx context.Context, name string) bool {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM contexts WHERE name = ?`, name).Scan(&one)
	return err == nil
}

// partitionRelink splits the notes linked to a rename source into the two
// disjoint sets a merge needs: notes already linked to the target (their
// source link is deleted, since inserting a duplicate link would violate
// the uniqueness invariant) and notes linked only to the source (their
// link is repointed in bulk, preserving the link's created_at).
func partitionRelink(sourceNoteIDs, targetNoteIDs []string) (dropIDs, repointIDs []string) {
	linkedToTarget := make(map[string]struct{}, len(targetNoteIDs))
	for _, id := range targetNoteIDs {
		linkedToTarget[id] = struct{}{}
	}
	for _, id := range sourceNoteIDs {
		if _, ok := linkedToTarget[id]; ok {
			dropIDs = append(dropIDs, id)
		} else {
			repointIDs = append(repointIDs, id)
		}
	}
	return dropIDs, repointIDs
}

// sentenceCase converts a slug-like context name to the display form used
// in wiki-style cross references: "work-notes" becomes "Work notes".
func sentenceCase(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '-' || r == '_'
	})
	joined := strings.ToLower(strings.Join(words, " "))
	if joined == "" {
		return ""
	}
	return strings.ToUpper(joined[:1]) + joined[1:]
}

// rewriteWikiLinks replaces [[Old Name]] references (case-insensitive)
// with the new name's sentence-case form.
func rewriteWikiLinks(content, oldName, newName string) string {
	pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta("[["+sentenceCase(oldName)+"]]"))
	return pattern.ReplaceAllLiteralString(content, "[["+sentenceCase(newName)+"]]")
}

// RenameContext renames a context, merging into an existing context when
// the new name is already taken. The whole operation runs inside one
// explicit transaction: partial application on crash is impossible.
func (s *SQLiteStore) RenameContext(ctx context.Context, oldName, newName string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rename transaction: %w", err)
	}

	if err := s.renameContextInTx(ctx, tx, oldName, newName); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rename of %q: %w", oldName, err)
	}
	return nil
}

func (s *SQLiteStore) renameContextInTx(ctx context.Context, tx *sql.Tx, oldName, newName string) error {
	var oldID string
	err := tx.QueryRowContext(ctx, `SELECT id FROM contexts WHERE name = ?`, oldName).Scan(&oldID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %q", ErrContextNotFound, oldName)
	}
	if err != nil {
		return fmt.Errorf("failed to resolve context %q: %w", oldName, err)
	}

	// Renaming a context to itself is a no-op. Without this check the
	// merge path would treat the row as its own merge target and delete it.
	if oldName == newName {
		return nil
	}

	var newID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM contexts WHERE name = ?`, newName).Scan(&newID)
	targetExists := err == nil
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to resolve context %q: %w", newName, err)
	}

	var affectedNoteIDs []string
	if !targetExists {
		// Pure rename: update the context row in place.
		if _, err := tx.ExecContext(ctx, `UPDATE contexts SET name = ? WHERE id = ?`, newName, oldID); err != nil {
			return fmt.Errorf("failed to rename context %q: %w", oldName, err)
		}
		if affectedNoteIDs, err = linkedNoteIDs(ctx, tx, oldID); err != nil {
			return err
		}
	} else {
		// Merge: partition the source's notes, then two bulk statements.
		sourceNotes, err := linkedNoteIDs(ctx, tx, oldID)
		if err != nil {
			return err
		}
		targetNotes, err := linkedNoteIDs(ctx, tx, newID)
		if err != nil {
			return err
		}
		dropIDs, repointIDs := partitionRelink(sourceNotes, targetNotes)

		if len(dropIDs) > 0 {
			query := `DELETE FROM note_contexts WHERE context_id = ? AND note_id IN (` +
				placeholders(len(dropIDs)) + `)`
			args := make([]interface{}, 0, len(dropIDs)+1)
			args = append(args, oldID)
			for _, id := range dropIDs {
				args = append(args, id)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to drop duplicate links for %q: %w", oldName, err)
			}
		}
		if len(repointIDs) > 0 {
			// UPDATE rather than delete+insert keeps the link created_at.
			query := `UPDATE note_contexts SET context_id = ? WHERE context_id = ? AND note_id IN (` +
				placeholders(len(repointIDs)) + `)`
			args := make([]interface{}, 0, len(repointIDs)+2)
			args = append(args, newID, oldID)
			for _, id := range repointIDs {
				args = append(args, id)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to repoint links from %q to %q: %w", oldName, newName, err)
			}
		}

		affectedNoteIDs = sourceNotes
	}

	if err := rewriteAffectedNotes(ctx, tx, affectedNoteIDs, oldName, newName); err != nil {
		return err
	}

	if targetExists {
		// The source context is now unreferenced.
		if _, err := tx.ExecContext(ctx, `DELETE FROM contexts WHERE id = ?`, oldID); err != nil {
			return fmt.Errorf("failed to delete merged context %q: %w", oldName, err)
		}
	}
	return nil
}

// rewriteAffectedNotes rewrites [[wiki link]] references and denormalized
// key_context fields on every note touched by a rename. A note is only
// written back when something actually changed.
func rewriteAffectedNotes(ctx context.Context, tx *sql.Tx, noteIDs []string, oldName, newName string) error {
	for _, noteID := range noteIDs {
		var content string
		var keyContext sql.NullString
		err := tx.QueryRowContext(ctx,
			`SELECT content, key_context FROM notes WHERE id = ?`, noteID).
			Scan(&content, &keyContext)
		if err != nil {
			return fmt.Errorf("failed to load note %s for rewrite: %w", noteID, err)
		}

		newContent := rewriteWikiLinks(content, oldName, newName)
		newKeyContext := keyContext
		if keyContext.Valid && keyContext.String == oldName {
			newKeyContext = sql.NullString{String: newName, Valid: true}
		}

		if newContent == content && newKeyContext == keyContext {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE notes SET content = ?, key_context = ?, updated_at = ? WHERE id = ?`,
			newContent, newKeyContext, time.Now().UTC(), noteID); err != nil {
			return fmt.Errorf("failed to rewrite note %s: %w", noteID, err)
		}
	}
	return nil
}

// linkedNoteIDs lists the note ids linked to a context
func linkedNoteIDs(ctx context.Context, q querier, contextID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT note_id FROM note_contexts WHERE context_id = ? ORDER BY created_at`, contextID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links for context %s: %w", contextID, err)
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ContextStatsPaginated ranks contexts by usage count with a stable name
// tiebreak, returning one page plus the total number of contexts.
func (s *SQLiteStore) ContextStatsPaginated(ctx context.Context, limit, offset int) ([]types.ContextStat, int, error) {
	if limit < 1 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, COUNT(nc.note_id), MAX(nc.created_at)
		FROM contexts c
		LEFT JOIN note_contexts nc ON nc.context_id = c.id
		GROUP BY c.id, c.name
		ORDER BY COUNT(nc.note_id) DESC, c.name ASC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query context stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats, err := scanContextStats(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contexts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count contexts: %w", err)
	}
	return stats, total, nil
}

// SearchContexts matches context names by case-insensitive substring and
// ranks the matches by most recent use.
func (s *SQLiteStore) SearchContexts(ctx context.Context, query string, limit int) ([]types.ContextStat, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, COUNT(nc.note_id), MAX(nc.created_at)
		FROM contexts c
		LEFT JOIN note_contexts nc ON nc.context_id = c.id
		WHERE lower(c.name) LIKE '%' || lower(?) || '%' ESCAPE '\'
		GROUP BY c.id, c.name
		ORDER BY (MAX(nc.created_at) IS NULL), MAX(nc.created_at) DESC, c.name ASC
		LIMIT ?
	`, escapeLike(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search contexts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanContextStats(rows)
}

func scanContextStats(rows *sql.Rows) ([]types.ContextStat, error) {
	stats := make([]types.ContextStat, 0)
	for rows.Next() {
		var stat types.ContextStat
		// MAX(created_at) strips the column's TIMESTAMP decltype, so the
		// driver hands back a string rather than a time.Time. Scan into
		// any and convert either representation.
		var lastUsed any
		if err := rows.Scan(&stat.ID, &stat.Name, &stat.NoteCount, &lastUsed); err != nil {
			return nil, err
		}
		t, err := timeFromSQL(lastUsed)
		if err != nil {
			return nil, err
		}
		stat.LastUsedAt = t
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// timeFromSQL converts a timestamp value scanned from an expression column,
// which the sqlite drivers return as time.Time, string, or []byte depending
// on whether the decltype survived.
func timeFromSQL(v any) (*time.Time, error) {
	var s string
	switch val := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &val, nil
	case string:
		s = val
	case []byte:
		s = string(val)
	default:
		return nil, fmt.Errorf("unsupported timestamp type %T", v)
	}
	layouts := []string{
		"2006-01-02 15:04:05.999999999 -0700 MST", // modernc.org/sqlite default
		"2006-01-02 15:04:05.999999999-07:00",     // mattn/go-sqlite3 default
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unsupported timestamp format %q", s)
}

// placeholders builds a "?,?,?" list of the given length
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
