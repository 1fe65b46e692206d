package searcher

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/notegraph/notegraph-mcp/pkg/types"
)

var (
	// ErrEmbeddingRequired is returned when semantic search is invoked
	// without a precomputed query embedding. Embedding generation is the
	// caller's responsibility, never the store's.
	ErrEmbeddingRequired = errors.New("a precomputed query embedding is required")
	// ErrInvalidThreshold is returned when the similarity threshold is
	// outside [0, 1]
	ErrInvalidThreshold = errors.New("similarity threshold must be between 0 and 1")
	// ErrInvalidLimit is returned when the result limit is out of bounds
	ErrInvalidLimit = errors.New("limit must be between 1 and 50")
)

const (
	// DefaultLimit is the result cap when none is requested
	DefaultLimit = 10
	// MaxLimit bounds the result cap
	MaxLimit = 50
	// DefaultCacheTTL is how long cached responses stay valid
	DefaultCacheTTL = 5 * time.Minute

	cacheSize = 256
)

// VectorStore is the slice of the storage layer semantic search needs
type VectorStore interface {
	SemanticSearch(ctx context.Context, queryEmbedding []float32, threshold float64, limit int) ([]types.ScoredNote, error)
}

// SearchRequest contains parameters for a semantic search
type SearchRequest struct {
	Embedding []float32
	Threshold float64
	Limit     int
	UseCache  bool
	CacheTTL  time.Duration
}

// SearchResponse contains the ranked results and search metadata
type SearchResponse struct {
	Results  []types.ScoredNote
	Duration time.Duration
	CacheHit bool
}

// cacheEntry is a cached response with its expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher runs semantic searches against stored note embeddings
type Searcher struct {
	store   VectorStore
	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.Mutex
}

// New creates a Searcher over the given store
func New(store VectorStore) *Searcher {
	cache, err := lru.New[[32]byte, *cacheEntry](cacheSize)
	if err != nil {
		// Only reachable with an invalid size constant.
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	return &Searcher{store: store, cache: cache}
}

// Search validates the request bounds and runs the similarity scan.
// Repeated identical requests can be served from a TTL-bounded cache.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	start := time.Now()

	if len(req.Embedding) == 0 {
		return nil, ErrEmbeddingRequired
	}
	if err := validateBounds(req.Threshold, req.Limit); err != nil {
		return nil, err
	}
	if req.Limit == 0 {
		req.Limit = DefaultLimit
	}

	key := requestKey(req)
	if req.UseCache {
		if cached := s.checkCache(key); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(start)
			return cached, nil
		}
	}

	results, err := s.store.SemanticSearch(ctx, req.Embedding, req.Threshold, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("semantic search failed: %w", err)
	}

	response := &SearchResponse{
		Results:  results,
		Duration: time.Since(start),
	}

	if req.UseCache {
		ttl := req.CacheTTL
		if ttl <= 0 {
			ttl = DefaultCacheTTL
		}
		s.storeCache(key, response, ttl)
	}
	return response, nil
}

// SearchByQuery is the text-query entry point. It validates the bounds,
// then signals that the caller must supply a precomputed embedding: this
// store compares embeddings, it never generates them.
func (s *Searcher) SearchByQuery(ctx context.Context, query string, threshold float64, limit int) (*SearchResponse, error) {
	if query == "" {
		return nil, errors.New("query cannot be empty")
	}
	if err := validateBounds(threshold, limit); err != nil {
		return nil, err
	}
	return nil, ErrEmbeddingRequired
}

func validateBounds(threshold float64, limit int) error {
	if threshold < 0 || threshold > 1 || math.IsNaN(threshold) {
		return ErrInvalidThreshold
	}
	if limit < 0 || limit > MaxLimit {
		return ErrInvalidLimit
	}
	return nil
}

// requestKey hashes the embedding, threshold, and limit into a cache key
func requestKey(req SearchRequest) [32]byte {
	h := sha256.New()
	var buf [8]byte
	for _, v := range req.Embedding {
		binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(v))
		h.Write(buf[:4])
	}
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(req.Threshold))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(req.Limit))
	h.Write(buf[:])

	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}

func (s *Searcher) checkCache(key [32]byte) *SearchResponse {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	entry, ok := s.cache.Get(key)
	if !ok {
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		s.cache.Remove(key)
		return nil
	}
	copied := *entry.response
	return &copied
}

func (s *Searcher) storeCache(key [32]byte, response *SearchResponse, ttl time.Duration) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	copied := *response
	s.cache.Add(key, &cacheEntry{
		response:  &copied,
		expiresAt: time.Now().Add(ttl),
	})
}
