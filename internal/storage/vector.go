package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/notegraph/notegraph-mcp/pkg/types"
)

// ErrDimensionMismatch is returned when two vectors have different lengths
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// CosineSimilarity computes the cosine similarity between two vectors.
// Vectors of unequal length are an error; a zero-magnitude vector scores
// 0 rather than dividing by zero.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// scoredID pairs a note id with its similarity score
type scoredID struct {
	noteID string
	score  float64
}

// SemanticSearch scores every stored embedding against the query vector
// and returns the hydrated notes clearing the threshold, best first.
// The full scan is acceptable at a personal note store's scale; malformed
// or mismatched stored vectors score 0 instead of aborting the scan.
func (s *SQLiteStore) SemanticSearch(ctx context.Context, queryEmbedding []float32, threshold float64, limit int) ([]types.ScoredNote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, embedding FROM notes WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]scoredID, 0)
	for rows.Next() {
		var noteID string
		var blob []byte
		if err := rows.Scan(&noteID, &blob); err != nil {
			return nil, err
		}

		score := 0.0
		vector := deserializeVector(blob)
		if len(vector) == len(queryEmbedding) {
			score, _ = CosineSimilarity(queryEmbedding, vector)
		}
		if score < threshold {
			continue
		}
		candidates = append(candidates, scoredID{noteID: noteID, score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	if len(candidates) == 0 {
		return []types.ScoredNote{}, nil
	}

	ids := make([]string, len(candidates))
	scores := make(map[string]float64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.noteID
		scores[c.noteID] = c.score
	}

	// The batched row fetch does not preserve score order, so the
	// hydrated set is re-sorted by similarity.
	notes, err := s.FetchNotesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate search results: %w", err)
	}

	results := make([]types.ScoredNote, 0, len(notes))
	for _, note := range notes {
		results = append(results, types.ScoredNote{Note: note, Similarity: scores[note.ID]})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	return results, nil
}
