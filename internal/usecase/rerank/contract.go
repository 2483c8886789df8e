package rerank

import "context"

// RelevanceJudge scores passages against a query. Scores are on [0, 1],
// higher means more relevant.
type RelevanceJudge interface {
	Score(ctx context.Context, query, passage string) (float64, error)
	ScoreBatch(ctx context.Context, query string, passages []string) ([]float64, error)
}
