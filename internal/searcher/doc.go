// Package searcher implements semantic note search over caller-supplied
// query embeddings.
//
// The searcher never computes an embedding. Callers obtain a query vector
// from their own embedding provider and pass it in; the searcher validates
// bounds, runs the cosine-similarity scan in the storage layer, and ranks
// the hydrated results.
//
// # Basic Usage
//
//	s := searcher.New(store)
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Embedding: queryVector,
//	    Threshold: 0.5,
//	    Limit:     10,
//	})
//
// SearchByQuery exists only to validate query/threshold/limit bounds and
// then fail with ErrEmbeddingRequired. It documents, at the API surface,
// that embedding generation is the caller's responsibility.
//
// # Caching
//
// Responses can be cached per (embedding, threshold, limit) key with a
// TTL. The cache is opt-in per request and never changes result semantics.
package searcher
