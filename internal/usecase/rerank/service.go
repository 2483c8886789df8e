package rerank

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// Strategy selects how candidates are judged.
type Strategy string

// Strategy constants.
const (
	// StrategyPointwise judges each candidate in its own call, bounded by
	// a concurrency limit.
	StrategyPointwise Strategy = "pointwise"
	// StrategyBatch judges the whole candidate list in one call.
	StrategyBatch Strategy = "batch"
)

// DefaultConcurrency bounds concurrent judge calls in pointwise mode.
const DefaultConcurrency = 4

// IsValid checks if the strategy is one of the supported values.
func (s Strategy) IsValid() bool {
	return s == StrategyPointwise || s == StrategyBatch
}

// Service reorders fused results by judged relevance. It implements the
// query pipeline's Reranker contract.
type Service struct {
	judge       RelevanceJudge
	strategy    Strategy
	concurrency int64

	// fallbackTotal counts reranks that fell back, by reason; passed explicitly.
	fallbackTotal *prometheus.CounterVec
	logger        *zap.Logger
}

// New creates a reranking service.
func New(
	judge RelevanceJudge,
	strategy Strategy,
	concurrency int,
	fallbackTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Service {
	if !strategy.IsValid() {
		strategy = StrategyPointwise
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Service{
		judge:         judge,
		strategy:      strategy,
		concurrency:   int64(concurrency),
		fallbackTotal: fallbackTotal,
		logger:        logger,
	}
}

// Rerank rescores results and returns them ordered by judged relevance.
// The batch strategy silently keeps the incoming order when the judge
// output cannot be used.
func (s *Service) Rerank(
	ctx context.Context, query string, results []result.FusedResult,
) ([]result.FusedResult, error) {
	if len(results) == 0 {
		return results, nil
	}

	switch s.strategy {
	case StrategyBatch:
		return s.rerankBatch(ctx, query, results)
	default:
		return s.rerankPointwise(ctx, query, results)
	}
}

// rerankPointwise judges candidates concurrently under a semaphore. A rate
// limit during the concurrent pass retries the whole list sequentially.
func (s *Service) rerankPointwise(
	ctx context.Context, query string, results []result.FusedResult,
) ([]result.FusedResult, error) {
	scores := make([]float64, len(results))
	sem := semaphore.NewWeighted(s.concurrency)

	g, gctx := errgroup.WithContext(ctx)
	for i := range results {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			score, err := s.judge.Score(gctx, query, results[i].Content())
			if err != nil {
				return fmt.Errorf("score %s: %w", results[i].ChunkID(), err)
			}
			scores[i] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if !errors.Is(err, domain.ErrRateLimited) {
			return nil, err
		}
		s.logger.Warn("Judge rate limited, retrying rerank sequentially",
			zap.Error(err))
		s.incFallback("rate_limited")
		return s.rerankSequential(ctx, query, results)
	}

	return reorder(results, scores), nil
}

func (s *Service) rerankSequential(
	ctx context.Context, query string, results []result.FusedResult,
) ([]result.FusedResult, error) {
	scores := make([]float64, len(results))
	for i := range results {
		score, err := s.judge.Score(ctx, query, results[i].Content())
		if err != nil {
			return nil, fmt.Errorf("score %s: %w", results[i].ChunkID(), err)
		}
		scores[i] = score
	}
	return reorder(results, scores), nil
}

// rerankBatch judges all candidates in one call. A wrong-length or
// unparsable judgement keeps the incoming order instead of failing.
func (s *Service) rerankBatch(
	ctx context.Context, query string, results []result.FusedResult,
) ([]result.FusedResult, error) {
	passages := make([]string, len(results))
	for i := range results {
		passages[i] = results[i].Content()
	}

	scores, err := s.judge.ScoreBatch(ctx, query, passages)
	if err != nil {
		if !errors.Is(err, domain.ErrRerankParse) {
			return nil, fmt.Errorf("score batch: %w", err)
		}
		s.logger.Warn("Unparsable batch judgement, keeping incoming order",
			zap.Error(err))
		s.incFallback("unparsable")
		return results, nil
	}
	if len(scores) != len(results) {
		s.logger.Warn("Batch judgement length mismatch, keeping incoming order",
			zap.Int("want", len(results)), zap.Int("got", len(scores)))
		s.incFallback("length_mismatch")
		return results, nil
	}

	return reorder(results, scores), nil
}

// reorder rebuilds the list with judged scores, sorted descending. Equal
// scores order by ascending chunk id.
func reorder(results []result.FusedResult, scores []float64) []result.FusedResult {
	out := make([]result.FusedResult, len(results))
	for i := range results {
		out[i] = results[i].WithScore(scores[i])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score() != out[j].Score() {
			return out[i].Score() > out[j].Score()
		}
		return out[i].ChunkID() < out[j].ChunkID()
	})
	return out
}

func (s *Service) incFallback(reason string) {
	if s.fallbackTotal != nil {
		s.fallbackTotal.WithLabelValues(reason).Inc()
	}
}
