package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/ragdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragdex/internal/usecase/ingest"
	queryuc "github.com/kailas-cloud/ragdex/internal/usecase/query"
)

type fakeIngest struct {
	batchFn  func(ctx context.Context, uris []string, opts ingestuc.Options) ingestuc.Summary
	chunksFn func(ctx context.Context, id string) (domdoc.Document, []chunk.Chunk, error)
	listFn   func(ctx context.Context, cursor string, limit int) ([]domdoc.Document, string, error)
	deleteFn func(ctx context.Context, id string) error
}

func (f *fakeIngest) IngestBatch(ctx context.Context, uris []string, opts ingestuc.Options) ingestuc.Summary {
	return f.batchFn(ctx, uris, opts)
}

func (f *fakeIngest) Chunks(ctx context.Context, id string) (domdoc.Document, []chunk.Chunk, error) {
	return f.chunksFn(ctx, id)
}

func (f *fakeIngest) List(ctx context.Context, cursor string, limit int) ([]domdoc.Document, string, error) {
	return f.listFn(ctx, cursor, limit)
}

func (f *fakeIngest) Delete(ctx context.Context, id string) error {
	return f.deleteFn(ctx, id)
}

type fakeQuery struct {
	searchFn func(ctx context.Context, req *request.Request) (*queryuc.Response, error)
}

func (f *fakeQuery) Search(ctx context.Context, req *request.Request) (*queryuc.Response, error) {
	return f.searchFn(ctx, req)
}

type fakeHealth struct {
	report healthuc.Report
}

func (f *fakeHealth) Check(_ context.Context) healthuc.Report { return f.report }

func newTestRouter(ingest IngestService, query QueryService, health HealthService) http.Handler {
	s := NewServer(ingest, query, health, zap.NewNop())
	return s.Router(nil)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestIngestEndpoint(t *testing.T) {
	ingest := &fakeIngest{
		batchFn: func(_ context.Context, uris []string, opts ingestuc.Options) ingestuc.Summary {
			if len(uris) != 2 {
				t.Errorf("expected 2 uris, got %d", len(uris))
			}
			if opts.Strategy != "" {
				t.Errorf("expected default strategy, got %q", opts.Strategy)
			}
			return ingestuc.Summary{Succeeded: 2, Chunks: 7}
		},
	}
	router := newTestRouter(ingest, &fakeQuery{}, &fakeHealth{})

	rec := doJSON(t, router, http.MethodPost, "/ingest", map[string]any{
		"source_uris": []string{"https://docs.example.com/a", "https://docs.example.com/b"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var sum ingestuc.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatal(err)
	}
	if sum.Succeeded != 2 || sum.Chunks != 7 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestIngestEndpoint_EmptySources(t *testing.T) {
	router := newTestRouter(&fakeIngest{}, &fakeQuery{}, &fakeHealth{})

	rec := doJSON(t, router, http.MethodPost, "/ingest", map[string]any{"source_uris": []string{}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "validation_failed") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestIngestEndpoint_UnknownStrategy(t *testing.T) {
	router := newTestRouter(&fakeIngest{}, &fakeQuery{}, &fakeHealth{})

	rec := doJSON(t, router, http.MethodPost, "/ingest", map[string]any{
		"source_uris": []string{"https://docs.example.com/a"},
		"strategy":    "sentence",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestIngestEndpoint_InvalidBody(t *testing.T) {
	router := newTestRouter(&fakeIngest{}, &fakeQuery{}, &fakeHealth{})

	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestQueryEndpoint(t *testing.T) {
	query := &fakeQuery{
		searchFn: func(_ context.Context, req *request.Request) (*queryuc.Response, error) {
			if req.Query() != "return policy" {
				t.Errorf("query = %q", req.Query())
			}
			if req.Mode() != mode.Hybrid {
				t.Errorf("mode = %q, want hybrid default", req.Mode())
			}
			return &queryuc.Response{
				Results: []result.FusedResult{
					result.NewFused("doc-1:0", "doc-1", "thirty days", "https://docs.example.com/returns", 0.032, result.FromBoth),
				},
				Mode: mode.Hybrid,
			}, nil
		},
	}
	router := newTestRouter(&fakeIngest{}, query, &fakeHealth{})

	rec := doJSON(t, router, http.MethodPost, "/query", map[string]any{"query": "return policy"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Results []struct {
			ChunkID    string  `json:"chunk_id"`
			DocumentID string  `json:"document_id"`
			Score      float64 `json:"score"`
			Provenance string  `json:"provenance"`
		} `json:"results"`
		Mode     string `json:"mode"`
		Degraded bool   `json:"degraded"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %+v", resp.Results)
	}
	if resp.Results[0].ChunkID != "doc-1:0" || resp.Results[0].Provenance != "both" {
		t.Errorf("result = %+v", resp.Results[0])
	}
	if resp.Mode != "hybrid" || resp.Degraded {
		t.Errorf("mode = %q degraded = %v", resp.Mode, resp.Degraded)
	}
}

func TestQueryEndpoint_DegradedResponse(t *testing.T) {
	query := &fakeQuery{
		searchFn: func(_ context.Context, _ *request.Request) (*queryuc.Response, error) {
			return &queryuc.Response{
				Results:  nil,
				Mode:     mode.Keyword,
				Degraded: true,
				Warning:  "embedding unavailable; returned keyword-only results",
			}, nil
		},
	}
	router := newTestRouter(&fakeIngest{}, query, &fakeHealth{})

	rec := doJSON(t, router, http.MethodPost, "/query", map[string]any{"query": "shipping"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"degraded":true`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "keyword-only") {
		t.Errorf("warning missing: %s", rec.Body.String())
	}
}

func TestQueryEndpoint_EmptyQuery(t *testing.T) {
	router := newTestRouter(&fakeIngest{}, &fakeQuery{}, &fakeHealth{})

	rec := doJSON(t, router, http.MethodPost, "/query", map[string]any{"query": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestQueryEndpoint_RetrievalFailed(t *testing.T) {
	query := &fakeQuery{
		searchFn: func(_ context.Context, _ *request.Request) (*queryuc.Response, error) {
			return nil, fmt.Errorf("%w: both branches down", domain.ErrRetrievalFailed)
		},
	}
	router := newTestRouter(&fakeIngest{}, query, &fakeHealth{})

	rec := doJSON(t, router, http.MethodPost, "/query", map[string]any{"query": "anything"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "retrieval_failed") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "branches down") {
		t.Errorf("internal detail leaked: %s", rec.Body.String())
	}
}

func TestQueryEndpoint_RateLimited(t *testing.T) {
	query := &fakeQuery{
		searchFn: func(_ context.Context, _ *request.Request) (*queryuc.Response, error) {
			return nil, fmt.Errorf("vectorize query: %w", domain.ErrRateLimited)
		},
	}
	router := newTestRouter(&fakeIngest{}, query, &fakeHealth{})

	rec := doJSON(t, router, http.MethodPost, "/query", map[string]any{"query": "anything", "mode": "vector"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
}

func TestListDocumentsEndpoint(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ingest := &fakeIngest{
		listFn: func(_ context.Context, cursor string, limit int) ([]domdoc.Document, string, error) {
			if cursor != "" || limit != 20 {
				t.Errorf("cursor = %q limit = %d", cursor, limit)
			}
			return []domdoc.Document{
				domdoc.Reconstruct("doc-1", "https://docs.example.com/returns", "Returns", 3, created),
			}, "doc-1", nil
		},
	}
	router := newTestRouter(ingest, &fakeQuery{}, &fakeHealth{})

	rec := doJSON(t, router, http.MethodGet, "/documents", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp documentListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != "doc-1" || resp.Items[0].ChunkCount != 3 {
		t.Errorf("items = %+v", resp.Items)
	}
	if !resp.HasMore || resp.NextCursor != "doc-1" {
		t.Errorf("pagination = %+v", resp)
	}
}

func TestListDocumentsEndpoint_BadLimit(t *testing.T) {
	router := newTestRouter(&fakeIngest{}, &fakeQuery{}, &fakeHealth{})

	rec := doJSON(t, router, http.MethodGet, "/documents?limit=9999", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetDocumentEndpoint(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ingest := &fakeIngest{
		chunksFn: func(_ context.Context, id string) (domdoc.Document, []chunk.Chunk, error) {
			if id != "doc-1" {
				t.Errorf("id = %q", id)
			}
			doc := domdoc.Reconstruct("doc-1", "https://docs.example.com/returns", "Returns", 2, created)
			return doc, []chunk.Chunk{
				chunk.Reconstruct("doc-1", "first paragraph", 0, 12, []float32{0.1}),
				chunk.Reconstruct("doc-1", "second paragraph", 1, 15, []float32{0.2}),
			}, nil
		},
	}
	router := newTestRouter(ingest, &fakeQuery{}, &fakeHealth{})

	rec := doJSON(t, router, http.MethodGet, "/documents/doc-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		ID     string `json:"id"`
		Chunks []struct {
			Ordinal    int    `json:"ordinal"`
			Content    string `json:"content"`
			TokenCount int    `json:"token_count"`
		} `json:"chunks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != "doc-1" || len(resp.Chunks) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Chunks[1].Ordinal != 1 || resp.Chunks[1].TokenCount != 15 {
		t.Errorf("chunks = %+v", resp.Chunks)
	}
}

func TestGetDocumentEndpoint_NotFound(t *testing.T) {
	ingest := &fakeIngest{
		chunksFn: func(_ context.Context, id string) (domdoc.Document, []chunk.Chunk, error) {
			return domdoc.Document{}, nil, fmt.Errorf("document %s: %w", id, domain.ErrDocumentNotFound)
		},
	}
	router := newTestRouter(ingest, &fakeQuery{}, &fakeHealth{})

	rec := doJSON(t, router, http.MethodGet, "/documents/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "document_not_found") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestDeleteDocumentEndpoint(t *testing.T) {
	var deleted string
	ingest := &fakeIngest{
		deleteFn: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	router := newTestRouter(ingest, &fakeQuery{}, &fakeHealth{})

	rec := doJSON(t, router, http.MethodDelete, "/documents/doc-1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if deleted != "doc-1" {
		t.Errorf("deleted = %q", deleted)
	}
}

func TestDeleteDocumentEndpoint_IngestInProgress(t *testing.T) {
	ingest := &fakeIngest{
		deleteFn: func(_ context.Context, id string) error {
			return fmt.Errorf("%w: %s", domain.ErrIngestInProgress, id)
		},
	}
	router := newTestRouter(ingest, &fakeQuery{}, &fakeHealth{})

	rec := doJSON(t, router, http.MethodDelete, "/documents/doc-1", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestHealthEndpoint_Healthy(t *testing.T) {
	health := &fakeHealth{report: healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
	}}
	router := newTestRouter(&fakeIngest{}, &fakeQuery{}, health)

	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHealthEndpoint_Degraded(t *testing.T) {
	health := &fakeHealth{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{
			"database":  healthuc.CheckOK,
			"embedding": healthuc.CheckError,
		},
	}}
	router := newTestRouter(&fakeIngest{}, &fakeQuery{}, health)

	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestErrorsDoNotLeakInternals(t *testing.T) {
	query := &fakeQuery{
		searchFn: func(_ context.Context, _ *request.Request) (*queryuc.Response, error) {
			return nil, errors.New("redis: dial tcp 10.0.0.5:6379: connect refused")
		},
	}
	router := newTestRouter(&fakeIngest{}, query, &fakeHealth{})

	rec := doJSON(t, router, http.MethodPost, "/query", map[string]any{"query": "anything"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.5") {
		t.Errorf("internal detail leaked: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "internal error") {
		t.Errorf("body = %s", rec.Body.String())
	}
}
