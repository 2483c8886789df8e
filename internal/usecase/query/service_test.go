package query

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

func TestSearch_Hybrid_FusesBothBranches(t *testing.T) {
	svc, mr, _ := newTestService(t)
	mr.knnFn = func(_ context.Context, _ []float32, topK int) ([]result.Candidate, error) {
		if topK != 10 {
			t.Errorf("topK = %d, want 10 (limit*overfetch)", topK)
		}
		return []result.Candidate{cand("doc-a:0", "doc-a", 1), cand("doc-b:0", "doc-b", 2)}, nil
	}
	mr.textFn = func(_ context.Context, q string, _ int) ([]result.Candidate, error) {
		if q != "return policy" {
			t.Errorf("query = %q", q)
		}
		return []result.Candidate{cand("doc-b:0", "doc-b", 1), cand("doc-c:0", "doc-c", 2)}, nil
	}

	resp, err := svc.Search(context.Background(),
		mustRequest(t, "return policy", mode.Hybrid, 5, 0, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Degraded {
		t.Error("expected non-degraded response")
	}
	if resp.Mode != mode.Hybrid {
		t.Errorf("mode = %q, want hybrid", resp.Mode)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("results count = %d, want 3", len(resp.Results))
	}
	// doc-b:0 appears in both lists and must rank first.
	if resp.Results[0].ChunkID() != "doc-b:0" {
		t.Errorf("first result = %q, want doc-b:0", resp.Results[0].ChunkID())
	}
	if resp.Results[0].Provenance() != result.FromBoth {
		t.Errorf("provenance = %q, want both", resp.Results[0].Provenance())
	}
}

func TestSearch_Hybrid_EmbedFailureDegradesToKeyword(t *testing.T) {
	svc, mr, me := newTestService(t)
	me.err = fmt.Errorf("%w: 429", domain.ErrRateLimited)
	mr.textFn = func(_ context.Context, _ string, _ int) ([]result.Candidate, error) {
		return []result.Candidate{cand("doc-a:0", "doc-a", 1)}, nil
	}

	resp, err := svc.Search(context.Background(),
		mustRequest(t, "q", mode.Hybrid, 5, 0, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Degraded {
		t.Error("expected degraded response")
	}
	if resp.Mode != mode.Keyword {
		t.Errorf("mode = %q, want keyword", resp.Mode)
	}
	if resp.Warning == "" {
		t.Error("expected a warning on the degraded response")
	}
	if len(resp.Results) != 1 || resp.Results[0].ChunkID() != "doc-a:0" {
		t.Errorf("unexpected results: %+v", resp.Results)
	}
}

func TestSearch_Hybrid_VectorIndexDownDegrades(t *testing.T) {
	svc, mr, _ := newTestService(t)
	mr.knnFn = func(_ context.Context, _ []float32, _ int) ([]result.Candidate, error) {
		return nil, fmt.Errorf("knn search: %w: connection refused", domain.ErrIndexUnavailable)
	}
	mr.textFn = func(_ context.Context, _ string, _ int) ([]result.Candidate, error) {
		return []result.Candidate{cand("doc-a:0", "doc-a", 1)}, nil
	}

	resp, err := svc.Search(context.Background(),
		mustRequest(t, "q", mode.Hybrid, 5, 0, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Degraded || resp.Mode != mode.Keyword {
		t.Errorf("expected degraded keyword response, got mode=%q degraded=%v", resp.Mode, resp.Degraded)
	}
	if len(resp.Results) != 1 {
		t.Errorf("results count = %d, want 1", len(resp.Results))
	}
}

func TestSearch_Hybrid_LexicalIndexDownDegrades(t *testing.T) {
	svc, mr, _ := newTestService(t)
	mr.knnFn = func(_ context.Context, _ []float32, _ int) ([]result.Candidate, error) {
		return []result.Candidate{cand("doc-a:0", "doc-a", 1)}, nil
	}
	mr.textFn = func(_ context.Context, _ string, _ int) ([]result.Candidate, error) {
		return nil, fmt.Errorf("bm25 search: %w: connection refused", domain.ErrIndexUnavailable)
	}

	resp, err := svc.Search(context.Background(),
		mustRequest(t, "q", mode.Hybrid, 5, 0, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Degraded || resp.Mode != mode.Vector {
		t.Errorf("expected degraded vector response, got mode=%q degraded=%v", resp.Mode, resp.Degraded)
	}
	if resp.Results[0].Provenance() != result.FromVector {
		t.Errorf("provenance = %q, want vector", resp.Results[0].Provenance())
	}
}

func TestSearch_Hybrid_BothBranchesDown(t *testing.T) {
	svc, mr, _ := newTestService(t)
	down := fmt.Errorf("%w: connection refused", domain.ErrIndexUnavailable)
	mr.knnFn = func(_ context.Context, _ []float32, _ int) ([]result.Candidate, error) {
		return nil, down
	}
	mr.textFn = func(_ context.Context, _ string, _ int) ([]result.Candidate, error) {
		return nil, down
	}

	_, err := svc.Search(context.Background(),
		mustRequest(t, "q", mode.Hybrid, 5, 0, false))
	if !errors.Is(err, domain.ErrRetrievalFailed) {
		t.Errorf("expected ErrRetrievalFailed, got %v", err)
	}
}

func TestSearch_Vector_EmbedError(t *testing.T) {
	svc, _, me := newTestService(t)
	me.err = errors.New("provider down")

	_, err := svc.Search(context.Background(),
		mustRequest(t, "q", mode.Vector, 5, 0, false))
	if err == nil {
		t.Fatal("expected error in vector mode when embedding fails")
	}
}

func TestSearch_Keyword(t *testing.T) {
	svc, mr, _ := newTestService(t)
	mr.textFn = func(_ context.Context, _ string, _ int) ([]result.Candidate, error) {
		return []result.Candidate{
			cand("doc-a:0", "doc-a", 1),
			cand("doc-b:0", "doc-b", 2),
		}, nil
	}

	resp, err := svc.Search(context.Background(),
		mustRequest(t, "q", mode.Keyword, 5, 0, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Mode != mode.Keyword || resp.Degraded {
		t.Errorf("unexpected response meta: mode=%q degraded=%v", resp.Mode, resp.Degraded)
	}
	if len(resp.Results) != 2 || resp.Results[0].ChunkID() != "doc-a:0" {
		t.Errorf("unexpected results: %+v", resp.Results)
	}
}

func TestSearch_DiversityCapAndLimit(t *testing.T) {
	svc, mr, _ := newTestService(t)
	mr.textFn = func(_ context.Context, _ string, topK int) ([]result.Candidate, error) {
		// Overfetched candidate list dominated by one document.
		return []result.Candidate{
			cand("doc-a:0", "doc-a", 1),
			cand("doc-a:1", "doc-a", 2),
			cand("doc-a:2", "doc-a", 3),
			cand("doc-b:0", "doc-b", 4),
			cand("doc-c:0", "doc-c", 5),
		}, nil
	}

	resp, err := svc.Search(context.Background(),
		mustRequest(t, "q", mode.Keyword, 3, 1, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("results count = %d, want 3", len(resp.Results))
	}
	wantOrder := []string{"doc-a:0", "doc-b:0", "doc-c:0"}
	for i, want := range wantOrder {
		if resp.Results[i].ChunkID() != want {
			t.Errorf("position %d: got %q, want %q", i, resp.Results[i].ChunkID(), want)
		}
	}
}

func TestSearch_RerankApplied(t *testing.T) {
	mr := &mockRetriever{
		textFn: func(_ context.Context, _ string, _ int) ([]result.Candidate, error) {
			return []result.Candidate{
				cand("doc-a:0", "doc-a", 1),
				cand("doc-b:0", "doc-b", 2),
			}, nil
		},
	}
	rr := &mockReranker{
		fn: func(_ context.Context, _ string, results []result.FusedResult) ([]result.FusedResult, error) {
			// Reverse the fusion order.
			out := make([]result.FusedResult, 0, len(results))
			for i := len(results) - 1; i >= 0; i-- {
				out = append(out, results[i])
			}
			return out, nil
		},
	}
	svc := New(mr, &mockEmbedder{}, rr, DefaultWeights(), nil, zap.NewNop())

	resp, err := svc.Search(context.Background(),
		mustRequest(t, "q", mode.Keyword, 5, 0, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rr.calls != 1 {
		t.Fatalf("reranker calls = %d, want 1", rr.calls)
	}
	if resp.Results[0].ChunkID() != "doc-b:0" {
		t.Errorf("expected reranked order, got %q first", resp.Results[0].ChunkID())
	}
}

func TestSearch_RerankFailureKeepsFusionOrder(t *testing.T) {
	mr := &mockRetriever{
		textFn: func(_ context.Context, _ string, _ int) ([]result.Candidate, error) {
			return []result.Candidate{
				cand("doc-a:0", "doc-a", 1),
				cand("doc-b:0", "doc-b", 2),
			}, nil
		},
	}
	rr := &mockReranker{
		fn: func(_ context.Context, _ string, _ []result.FusedResult) ([]result.FusedResult, error) {
			return nil, errors.New("judge unavailable")
		},
	}
	svc := New(mr, &mockEmbedder{}, rr, DefaultWeights(), nil, zap.NewNop())

	resp, err := svc.Search(context.Background(),
		mustRequest(t, "q", mode.Keyword, 5, 0, true))
	if err != nil {
		t.Fatalf("rerank failure must not fail the query: %v", err)
	}
	if len(resp.Results) != 2 || resp.Results[0].ChunkID() != "doc-a:0" {
		t.Errorf("expected fusion order preserved, got %+v", resp.Results)
	}
}

func TestSearch_RerankSkippedWhenNotRequested(t *testing.T) {
	mr := &mockRetriever{
		textFn: func(_ context.Context, _ string, _ int) ([]result.Candidate, error) {
			return []result.Candidate{cand("doc-a:0", "doc-a", 1)}, nil
		},
	}
	rr := &mockReranker{}
	svc := New(mr, &mockEmbedder{}, rr, DefaultWeights(), nil, zap.NewNop())

	if _, err := svc.Search(context.Background(),
		mustRequest(t, "q", mode.Keyword, 5, 0, false)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rr.calls != 0 {
		t.Errorf("reranker calls = %d, want 0", rr.calls)
	}
}

// Hybrid must probe each index at the same breadth as the single-mode
// queries do, so every chunk it tags with an index's provenance is also
// reachable through that index's dedicated mode.
func TestSearch_HybridProvenanceSubsetOfSingleModes(t *testing.T) {
	knnPool := []result.Candidate{
		cand("doc-a:0", "doc-a", 1),
		cand("doc-b:0", "doc-b", 2),
		cand("doc-c:0", "doc-c", 3),
		cand("doc-d:0", "doc-d", 4),
	}
	textPool := []result.Candidate{
		cand("doc-c:0", "doc-c", 1),
		cand("doc-e:0", "doc-e", 2),
		cand("doc-a:0", "doc-a", 3),
	}

	var knnTopKs, textTopKs []int
	svc, mr, _ := newTestService(t)
	mr.knnFn = func(_ context.Context, _ []float32, topK int) ([]result.Candidate, error) {
		knnTopKs = append(knnTopKs, topK)
		if topK < len(knnPool) {
			return knnPool[:topK], nil
		}
		return knnPool, nil
	}
	mr.textFn = func(_ context.Context, _ string, topK int) ([]result.Candidate, error) {
		textTopKs = append(textTopKs, topK)
		if topK < len(textPool) {
			return textPool[:topK], nil
		}
		return textPool, nil
	}

	run := func(m mode.Mode) map[string]result.Provenance {
		t.Helper()
		resp, err := svc.Search(context.Background(), mustRequest(t, "q", m, 10, 0, false))
		if err != nil {
			t.Fatalf("%s search: %v", m, err)
		}
		ids := make(map[string]result.Provenance, len(resp.Results))
		for i := range resp.Results {
			ids[resp.Results[i].ChunkID()] = resp.Results[i].Provenance()
		}
		return ids
	}

	vectorIDs := run(mode.Vector)
	keywordIDs := run(mode.Keyword)
	hybridIDs := run(mode.Hybrid)

	for id, prov := range hybridIDs {
		if prov == result.FromVector || prov == result.FromBoth {
			if _, ok := vectorIDs[id]; !ok {
				t.Errorf("hybrid tagged %s as %s but vector mode never returned it", id, prov)
			}
		}
		if prov == result.FromLexical || prov == result.FromBoth {
			if _, ok := keywordIDs[id]; !ok {
				t.Errorf("hybrid tagged %s as %s but keyword mode never returned it", id, prov)
			}
		}
	}

	if len(knnTopKs) != 2 || knnTopKs[0] != knnTopKs[1] {
		t.Errorf("KNN breadth differs across modes: %v", knnTopKs)
	}
	if len(textTopKs) != 2 || textTopKs[0] != textTopKs[1] {
		t.Errorf("BM25 breadth differs across modes: %v", textTopKs)
	}
}
