package query

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// Retriever defines the index contract for retrieval operations.
type Retriever interface {
	SearchKNN(ctx context.Context, vector []float32, topK int) ([]result.Candidate, error)
	SearchText(ctx context.Context, query string, topK int) ([]result.Candidate, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Reranker reorders fused results by judged relevance. Implementations must
// return the same set of results, only reordered and rescored.
type Reranker interface {
	Rerank(ctx context.Context, query string, results []result.FusedResult) ([]result.FusedResult, error)
}
