package ragdex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
)

// Query runs a retrieval query and returns fused, ranked results.
func (c *Client) Query(ctx context.Context, q QueryRequest) (QueryResponse, error) {
	start := time.Now()
	var err error
	defer func() { c.obs.observe("query", start, err) }()

	req, err := request.New(
		q.Query, mode.Mode(q.Mode), q.Limit, q.Overfetch, q.DiversityCap, q.Rerank)
	if err != nil {
		err = fmt.Errorf("ragdex: %w", err)
		return QueryResponse{}, err
	}

	resp, err := c.querySvc.Search(ctx, &req)
	if err != nil {
		err = fmt.Errorf("ragdex: query: %w", err)
		return QueryResponse{}, err
	}

	results := make([]QueryResult, len(resp.Results))
	for i := range resp.Results {
		r := &resp.Results[i]
		results[i] = QueryResult{
			ChunkID:    r.ChunkID(),
			DocumentID: r.DocumentID(),
			Content:    r.Content(),
			Source:     r.Source(),
			Score:      r.Score(),
			Provenance: string(r.Provenance()),
		}
	}

	return QueryResponse{
		Results:  results,
		Mode:     string(resp.Mode),
		Degraded: resp.Degraded,
		Warning:  resp.Warning,
	}, nil
}
