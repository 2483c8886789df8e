package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// chunkReturnFields are the hash fields fetched with every search hit.
var chunkReturnFields = []string{"content", "document_id", "source_uri"}

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo implements usecase/query retrieval over the chunk index.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// SearchKNN performs vector similarity search over the chunk index. Raw
// scores are cosine similarities in [0,1]. A failing index is reported as
// ErrIndexUnavailable so callers can degrade.
func (r *Repo) SearchKNN(ctx context.Context, vector []float32, topK int) ([]result.Candidate, error) {
	q := &db.KNNQuery{
		IndexName:    domain.ChunkIndexName,
		Vector:       vector,
		K:            topK,
		ReturnFields: chunkReturnFields,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w: %w", domain.ErrIndexUnavailable, err)
	}

	return toCandidates(sr), nil
}

// SearchText performs BM25 keyword search over the chunk index. Raw scores
// are BM25 relevance values.
func (r *Repo) SearchText(ctx context.Context, query string, topK int) ([]result.Candidate, error) {
	q := &db.TextQuery{
		IndexName:    domain.ChunkIndexName,
		Query:        query,
		TopK:         topK,
		ReturnFields: chunkReturnFields,
	}

	sr, err := r.store.SearchBM25(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("bm25 search: %w: %w", domain.ErrIndexUnavailable, err)
	}

	return toCandidates(sr), nil
}

// toCandidates converts raw entries into ranked candidates. Rank is the
// 1-based position in the returned list, which both searches emit in
// descending score order.
func toCandidates(sr *db.SearchResult) []result.Candidate {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	candidates := make([]result.Candidate, 0, len(sr.Entries))
	for i, entry := range sr.Entries {
		chunkID := strings.TrimPrefix(entry.Key, domain.ChunkKeyPrefix)
		candidates = append(candidates, result.NewCandidate(
			chunkID,
			entry.Fields["document_id"],
			entry.Fields["content"],
			entry.Fields["source_uri"],
			entry.Score,
			i+1,
		))
	}
	return candidates
}
