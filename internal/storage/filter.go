package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/notegraph/notegraph-mcp/pkg/types"
)

const (
	// DefaultFilterLimit is the page size when none is requested
	DefaultFilterLimit = 20
	// MaxFilterLimit caps the page size
	MaxFilterLimit = 50
)

// predicate is one typed filter condition: a SQL expression with its
// bound arguments. All predicates in a set are conjoined.
type predicate struct {
	expr string
	args []interface{}
}

// escapeLike neutralizes LIKE metacharacters in caller input so a tag or
// query containing % or _ matches literally. Paired with ESCAPE '\'.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

// buildPredicates translates the structured filter object into an
// explicit predicate list; no stringly-typed concatenation of caller
// input ever reaches the query text.
func buildPredicates(filters NoteFilters) []predicate {
	preds := make([]predicate, 0, 8)

	if filters.CreatedAfter != nil {
		preds = append(preds, predicate{"created_at >= ?", []interface{}{filters.CreatedAfter.UTC()}})
	}
	if filters.CreatedBefore != nil {
		preds = append(preds, predicate{"created_at <= ?", []interface{}{filters.CreatedBefore.UTC()}})
	}

	// Every listed context must be linked (conjunctive existence).
	for _, name := range filters.Contexts {
		preds = append(preds, predicate{contextMatchPredicate, []interface{}{name}})
	}

	// Any one hashtag match suffices (disjunctive membership against the
	// serialized tags field).
	if len(filters.Hashtags) > 0 {
		exprs := make([]string, len(filters.Hashtags))
		args := make([]interface{}, len(filters.Hashtags))
		for i, tag := range filters.Hashtags {
			exprs[i] = `tags LIKE ? ESCAPE '\'`
			args[i] = `%"` + escapeLike(tag) + `"%`
		}
		preds = append(preds, predicate{"(" + strings.Join(exprs, " OR ") + ")", args})
	}

	if filters.NoteType != nil {
		preds = append(preds, predicate{"note_type = ?", []interface{}{string(*filters.NoteType)}})
	}
	if filters.DeadlineAfter != nil {
		preds = append(preds, predicate{"deadline >= ?", []interface{}{filters.DeadlineAfter.UTC()}})
	}
	if filters.DeadlineBefore != nil {
		preds = append(preds, predicate{"deadline <= ?", []interface{}{filters.DeadlineBefore.UTC()}})
	}
	if filters.DeadlineOn != nil {
		// Expand to the full UTC day, inclusive.
		day := filters.DeadlineOn.UTC()
		start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		end := start.Add(24 * time.Hour)
		preds = append(preds, predicate{"deadline >= ? AND deadline < ?", []interface{}{start, end}})
	}
	if filters.Status != nil {
		preds = append(preds, predicate{"status = ?", []interface{}{string(*filters.Status)}})
	}

	return preds
}

// whereClause joins a predicate set into SQL. Returns an empty clause
// when no predicates are present.
func whereClause(preds []predicate) (string, []interface{}) {
	if len(preds) == 0 {
		return "", nil
	}
	exprs := make([]string, len(preds))
	var args []interface{}
	for i, p := range preds {
		exprs[i] = p.expr
		args = append(args, p.args...)
	}
	return " WHERE " + strings.Join(exprs, " AND "), args
}

// clampLimit bounds a requested page size to [1, MaxFilterLimit],
// defaulting when unset.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultFilterLimit
	}
	if limit > MaxFilterLimit {
		return MaxFilterLimit
	}
	return limit
}

// FilterNotes executes a paginated, counted query under one predicate
// set. The page fetch and total count run as two independent concurrent
// reads; a concurrent write between them may make them disagree.
func (s *SQLiteStore) FilterNotes(ctx context.Context, filters NoteFilters) (*types.FilterResult, error) {
	preds := buildPredicates(filters)
	where, args := whereClause(preds)
	limit := clampLimit(filters.Limit)
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	var notes []types.Note
	var total int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		query := `SELECT ` + noteColumns + ` FROM notes` + where +
			` ORDER BY created_at DESC LIMIT ? OFFSET ?`
		pageArgs := append(append([]interface{}{}, args...), limit, offset)
		rows, err := s.db.QueryContext(gctx, query, pageArgs...)
		if err != nil {
			return fmt.Errorf("failed to fetch filter page: %w", err)
		}
		defer func() { _ = rows.Close() }()

		notes = make([]types.Note, 0, limit)
		for rows.Next() {
			note, err := scanNote(rows)
			if err != nil {
				return err
			}
			notes = append(notes, *note)
		}
		return rows.Err()
	})
	g.Go(func() error {
		query := `SELECT COUNT(*) FROM notes` + where
		if err := s.db.QueryRowContext(gctx, query, args...).Scan(&total); err != nil {
			return fmt.Errorf("failed to count filter matches: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.hydrateContexts(ctx, s.db, notes); err != nil {
		return nil, err
	}

	return &types.FilterResult{
		Notes:      notes,
		TotalCount: total,
		Applied:    appliedFilters(filters),
		Limit:      limit,
	}, nil
}

// appliedFilters echoes back the filters that were actually present
func appliedFilters(filters NoteFilters) types.AppliedFilters {
	applied := types.AppliedFilters{
		CreatedAfter:   filters.CreatedAfter,
		CreatedBefore:  filters.CreatedBefore,
		Contexts:       filters.Contexts,
		Hashtags:       filters.Hashtags,
		DeadlineAfter:  filters.DeadlineAfter,
		DeadlineBefore: filters.DeadlineBefore,
		DeadlineOn:     filters.DeadlineOn,
	}
	if filters.NoteType != nil {
		nt := string(*filters.NoteType)
		applied.NoteType = &nt
	}
	if filters.Status != nil {
		st := string(*filters.Status)
		applied.Status = &st
	}
	return applied
}
