package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/chunker"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	healthuc "github.com/kailas-cloud/ragdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragdex/internal/usecase/ingest"
	queryuc "github.com/kailas-cloud/ragdex/internal/usecase/query"
)

const maxBatchSize = 100

// IngestService is the ingestion surface the HTTP layer consumes.
type IngestService interface {
	IngestBatch(ctx context.Context, sourceURIs []string, opts ingestuc.Options) ingestuc.Summary
	Chunks(ctx context.Context, id string) (domdoc.Document, []chunk.Chunk, error)
	List(ctx context.Context, cursor string, limit int) ([]domdoc.Document, string, error)
	Delete(ctx context.Context, id string) error
}

// QueryService is the retrieval surface the HTTP layer consumes.
type QueryService interface {
	Search(ctx context.Context, req *request.Request) (*queryuc.Response, error)
}

// HealthService reports component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Server exposes the ingestion and retrieval pipelines over HTTP.
type Server struct {
	ingest IngestService
	query  QueryService
	health HealthService
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest IngestService,
	query QueryService,
	health HealthService,
	logger *zap.Logger,
) *Server {
	return &Server{
		ingest: ingest,
		query:  query,
		health: health,
		logger: logger,
	}
}

// Router builds the chi router with metrics and auth middleware. Extra
// middlewares run outermost, in the given order. Empty apiKeys disables
// authentication.
func (s *Server) Router(apiKeys []string, middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewares...)
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Post("/ingest", s.handleIngest)
	r.Post("/query", s.handleQuery)
	r.Get("/documents", s.handleListDocuments)
	r.Get("/documents/{id}", s.handleGetDocument)
	r.Delete("/documents/{id}", s.handleDeleteDocument)
	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

type ingestRequest struct {
	SourceURIs []string `json:"source_uris"`
	Strategy   string   `json:"strategy,omitempty"`
}

// handleIngest handles POST /ingest.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	if len(req.SourceURIs) == 0 || len(req.SourceURIs) > maxBatchSize {
		writeError(w, http.StatusBadRequest, "validation_failed",
			"source_uris count must be between 1 and "+strconv.Itoa(maxBatchSize))
		return
	}

	strategy := chunker.Strategy(req.Strategy)
	if req.Strategy != "" && !strategy.IsValid() {
		writeError(w, http.StatusBadRequest, "validation_failed",
			"unsupported chunking strategy: "+req.Strategy)
		return
	}

	summary := s.ingest.IngestBatch(r.Context(), req.SourceURIs, ingestuc.Options{Strategy: strategy})
	writeJSON(w, http.StatusOK, summary)
}

type queryRequest struct {
	Query        string `json:"query"`
	Limit        int    `json:"limit,omitempty"`
	Mode         string `json:"mode,omitempty"`
	Overfetch    int    `json:"overfetch,omitempty"`
	DiversityCap int    `json:"diversity_cap,omitempty"`
	Rerank       bool   `json:"rerank,omitempty"`
}

type queryResultItem struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Content    string  `json:"content"`
	Source     string  `json:"source"`
	Score      float64 `json:"score"`
	Provenance string  `json:"provenance"`
}

type queryResponse struct {
	Results  []queryResultItem `json:"results"`
	Mode     string            `json:"mode"`
	Degraded bool              `json:"degraded"`
	Warning  string            `json:"warning,omitempty"`
}

// handleQuery handles POST /query.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	searchReq, err := request.New(
		req.Query, mode.Mode(req.Mode), req.Limit, req.Overfetch, req.DiversityCap, req.Rerank)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	resp, err := s.query.Search(r.Context(), &searchReq)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	metrics.QueriesTotal.WithLabelValues(string(resp.Mode)).Inc()

	items := make([]queryResultItem, len(resp.Results))
	for i := range resp.Results {
		res := &resp.Results[i]
		items[i] = queryResultItem{
			ChunkID:    res.ChunkID(),
			DocumentID: res.DocumentID(),
			Content:    res.Content(),
			Source:     res.Source(),
			Score:      res.Score(),
			Provenance: string(res.Provenance()),
		}
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Results:  items,
		Mode:     string(resp.Mode),
		Degraded: resp.Degraded,
		Warning:  resp.Warning,
	})
}

type documentItem struct {
	ID         string    `json:"id"`
	SourceURI  string    `json:"source_uri"`
	Title      string    `json:"title"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

type documentListResponse struct {
	Items      []documentItem `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
	HasMore    bool           `json:"has_more"`
}

// handleListDocuments handles GET /documents.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			writeError(w, http.StatusBadRequest, "validation_failed", "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	docs, nextCursor, err := s.ingest.List(r.Context(), cursor, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]documentItem, len(docs))
	for i := range docs {
		items[i] = documentToItem(&docs[i])
	}

	writeJSON(w, http.StatusOK, documentListResponse{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    nextCursor != "",
	})
}

type chunkItem struct {
	Ordinal    int    `json:"ordinal"`
	Content    string `json:"content"`
	TokenCount int    `json:"token_count"`
}

type documentDetailResponse struct {
	documentItem
	Chunks []chunkItem `json:"chunks"`
}

// handleGetDocument handles GET /documents/{id}.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, chunks, err := s.ingest.Chunks(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, documentDetailResponse{
		documentItem: documentToItem(&doc),
		Chunks:       chunksToItems(chunks),
	})
}

// handleDeleteDocument handles DELETE /documents/{id}.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.ingest.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func documentToItem(doc *domdoc.Document) documentItem {
	return documentItem{
		ID:         doc.ID(),
		SourceURI:  doc.SourceURI(),
		Title:      doc.Title(),
		ChunkCount: doc.ChunkCount(),
		CreatedAt:  doc.CreatedAt(),
	}
}

func chunksToItems(chunks []chunk.Chunk) []chunkItem {
	items := make([]chunkItem, len(chunks))
	for i := range chunks {
		items[i] = chunkItem{
			Ordinal:    chunks[i].Ordinal(),
			Content:    chunks[i].Content(),
			TokenCount: chunks[i].TokenCount(),
		}
	}
	return items
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// sentinelStatus maps domain sentinels to HTTP responses.
var sentinelStatus = []struct {
	sentinel error
	status   int
	code     string
}{
	{domain.ErrDocumentNotFound, http.StatusNotFound, "document_not_found"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrIngestInProgress, http.StatusConflict, "ingest_in_progress"},
	{domain.ErrParseFailed, http.StatusUnprocessableEntity, "parse_failed"},
	{domain.ErrVectorDimMismatch, http.StatusBadRequest, "vector_dim_mismatch"},
	{domain.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
	{domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"},
	{domain.ErrIndexUnavailable, http.StatusServiceUnavailable, "index_unavailable"},
	{domain.ErrRetrievalFailed, http.StatusServiceUnavailable, "retrieval_failed"},
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	for _, m := range sentinelStatus {
		if errors.Is(err, m.sentinel) {
			return m.sentinel.Error()
		}
	}
	return "internal error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	msg := safeDomainMessage(err)
	for _, m := range sentinelStatus {
		if errors.Is(err, m.sentinel) {
			s.logger.Warn("domain error", zap.Error(err))
			writeError(w, m.status, m.code, msg)
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
