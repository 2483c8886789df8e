package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// Response is the outcome of a retrieval query. Mode is the mode that
// actually ran, which differs from the requested one after degradation.
type Response struct {
	Results  []result.FusedResult
	Mode     mode.Mode
	Degraded bool
	Warning  string
}

// Service runs the query pipeline: vectorize, fan out to the vector and
// lexical indexes, fuse, optionally rerank, cap, truncate.
type Service struct {
	retriever Retriever
	embed     Embedder
	reranker  Reranker // nil disables reranking regardless of the request
	weights   Weights

	// degradedTotal counts degraded queries by reason, passed explicitly.
	degradedTotal *prometheus.CounterVec
	logger        *zap.Logger
}

// New creates a query service.
func New(
	retriever Retriever,
	embed Embedder,
	reranker Reranker,
	weights Weights,
	degradedTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Service {
	if weights.Vector <= 0 && weights.Lexical <= 0 {
		weights = DefaultWeights()
	}
	return &Service{
		retriever:     retriever,
		embed:         embed,
		reranker:      reranker,
		weights:       weights,
		degradedTotal: degradedTotal,
		logger:        logger,
	}
}

// Search executes a retrieval query in vector, keyword, or hybrid mode.
func (s *Service) Search(ctx context.Context, req *request.Request) (*Response, error) {
	switch req.Mode() {
	case mode.Vector:
		return s.searchVector(ctx, req)
	case mode.Keyword:
		return s.searchKeyword(ctx, req)
	case mode.Hybrid:
		return s.searchHybrid(ctx, req)
	default:
		return nil, fmt.Errorf("unsupported search mode: %s", req.Mode())
	}
}

// searchVector embeds the query and runs KNN only. No fallback: an embed or
// index failure fails the query, the caller asked for this branch explicitly.
func (s *Service) searchVector(ctx context.Context, req *request.Request) (*Response, error) {
	embResult, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	knn, err := s.retriever.SearchKNN(ctx, embResult.Embedding, req.TopK())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrievalFailed, err)
	}

	return s.finish(ctx, req, mode.Vector, fuseRRF(knn, nil, s.weights), false, "")
}

// searchKeyword runs BM25 only.
func (s *Service) searchKeyword(ctx context.Context, req *request.Request) (*Response, error) {
	lexical, err := s.retriever.SearchText(ctx, req.Query(), req.TopK())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrievalFailed, err)
	}

	return s.finish(ctx, req, mode.Keyword, fuseRRF(nil, lexical, s.weights), false, "")
}

// searchHybrid embeds once, fans out KNN and BM25 concurrently, and fuses.
// Either leg may fall away: an embed failure or an unavailable index degrades
// the query to the surviving branch instead of failing it.
func (s *Service) searchHybrid(ctx context.Context, req *request.Request) (*Response, error) {
	embResult, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		s.logger.Warn("Embedding failed, degrading hybrid query to keyword",
			zap.Error(err))
		s.incDegraded("embed_failed")

		resp, kwErr := s.searchKeyword(ctx, req)
		if kwErr != nil {
			return nil, kwErr
		}
		resp.Degraded = true
		resp.Warning = "embedding unavailable; returned keyword-only results"
		return resp, nil
	}

	// Branch errors are captured, not returned: an errgroup error would
	// cancel the surviving branch mid-flight.
	var (
		knn, lexical    []result.Candidate
		knnErr, textErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		knn, knnErr = s.retriever.SearchKNN(gctx, embResult.Embedding, req.TopK())
		return nil
	})
	g.Go(func() error {
		lexical, textErr = s.retriever.SearchText(gctx, req.Query(), req.TopK())
		return nil
	})
	_ = g.Wait()

	switch {
	case knnErr != nil && textErr != nil:
		return nil, fmt.Errorf("%w: vector: %v; lexical: %v",
			domain.ErrRetrievalFailed, knnErr, textErr)

	case knnErr != nil:
		if !errors.Is(knnErr, domain.ErrIndexUnavailable) {
			return nil, fmt.Errorf("%w: %w", domain.ErrRetrievalFailed, knnErr)
		}
		s.logger.Warn("Vector index unavailable, degrading hybrid query to keyword",
			zap.Error(knnErr))
		s.incDegraded("vector_index_down")
		return s.finish(ctx, req, mode.Keyword, fuseRRF(nil, lexical, s.weights),
			true, "vector index unavailable; returned keyword-only results")

	case textErr != nil:
		if !errors.Is(textErr, domain.ErrIndexUnavailable) {
			return nil, fmt.Errorf("%w: %w", domain.ErrRetrievalFailed, textErr)
		}
		s.logger.Warn("Lexical index unavailable, degrading hybrid query to vector",
			zap.Error(textErr))
		s.incDegraded("lexical_index_down")
		return s.finish(ctx, req, mode.Vector, fuseRRF(knn, nil, s.weights),
			true, "lexical index unavailable; returned vector-only results")
	}

	return s.finish(ctx, req, mode.Hybrid, fuseRRF(knn, lexical, s.weights), false, "")
}

// finish applies the post-fusion stages shared by every mode: optional
// rerank over the overfetched set, diversity cap, truncation to the limit.
func (s *Service) finish(
	ctx context.Context, req *request.Request, m mode.Mode,
	fused []result.FusedResult, degraded bool, warning string,
) (*Response, error) {
	if req.Rerank() && s.reranker != nil && len(fused) > 0 {
		reranked, err := s.reranker.Rerank(ctx, req.Query(), fused)
		if err != nil {
			// Reranking is best-effort: keep the fusion order.
			s.logger.Warn("Rerank failed, keeping fusion order", zap.Error(err))
			s.incDegraded("rerank_failed")
		} else {
			fused = reranked
		}
	}

	fused = applyDiversityCap(fused, req.DiversityCap())

	if len(fused) > req.Limit() {
		fused = fused[:req.Limit()]
	}

	return &Response{
		Results:  fused,
		Mode:     m,
		Degraded: degraded,
		Warning:  warning,
	}, nil
}

func (s *Service) incDegraded(reason string) {
	if s.degradedTotal != nil {
		s.degradedTotal.WithLabelValues(reason).Inc()
	}
}
