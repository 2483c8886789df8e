package query

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// mockRetriever implements Retriever for tests.
type mockRetriever struct {
	knnFn  func(ctx context.Context, vector []float32, topK int) ([]result.Candidate, error)
	textFn func(ctx context.Context, query string, topK int) ([]result.Candidate, error)
}

func (m *mockRetriever) SearchKNN(ctx context.Context, vector []float32, topK int) ([]result.Candidate, error) {
	if m.knnFn != nil {
		return m.knnFn(ctx, vector, topK)
	}
	return nil, nil
}

func (m *mockRetriever) SearchText(ctx context.Context, query string, topK int) ([]result.Candidate, error) {
	if m.textFn != nil {
		return m.textFn(ctx, query, topK)
	}
	return nil, nil
}

// mockEmbedder implements Embedder for tests.
type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return m.result, nil
}

// mockReranker implements Reranker for tests.
type mockReranker struct {
	fn    func(ctx context.Context, query string, results []result.FusedResult) ([]result.FusedResult, error)
	calls int
}

func (m *mockReranker) Rerank(ctx context.Context, query string, results []result.FusedResult) ([]result.FusedResult, error) {
	m.calls++
	if m.fn != nil {
		return m.fn(ctx, query, results)
	}
	return results, nil
}

func newTestService(t *testing.T) (*Service, *mockRetriever, *mockEmbedder) {
	t.Helper()
	mr := &mockRetriever{}
	me := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}}
	svc := New(mr, me, nil, DefaultWeights(), nil, zap.NewNop())
	return svc, mr, me
}

func mustRequest(t *testing.T, query string, m mode.Mode, limit, diversityCap int, rerank bool) *request.Request {
	t.Helper()
	req, err := request.New(query, m, limit, 0, diversityCap, rerank)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return &req
}

// cand builds a candidate with rank already assigned, as the search
// repository does.
func cand(chunkID, docID string, rank int) result.Candidate {
	return result.NewCandidate(chunkID, docID, "content of "+chunkID,
		"https://docs.example.com/"+docID, 1.0/float64(rank), rank)
}
