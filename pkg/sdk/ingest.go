package ragdex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/ragdex/internal/chunker"
	ingestuc "github.com/kailas-cloud/ragdex/internal/usecase/ingest"
)

// Ingest parses, chunks, embeds and indexes the given sources. Per-source
// failures are collected in the summary, they never abort the batch.
// Re-ingesting a known source replaces its whole chunk set.
func (c *Client) Ingest(ctx context.Context, sourceURIs []string, opts IngestOptions) (Summary, error) {
	start := time.Now()
	var err error
	defer func() { c.obs.observe("ingest", start, err) }()

	strategy := chunker.Strategy(opts.Strategy)
	if opts.Strategy != "" && !strategy.IsValid() {
		err = fmt.Errorf("ragdex: unsupported chunking strategy %q", opts.Strategy)
		return Summary{}, err
	}

	sum := c.ingestSvc.IngestBatch(ctx, sourceURIs, ingestuc.Options{Strategy: strategy})
	out := Summary{
		Succeeded: sum.Succeeded,
		Failed:    sum.Failed,
		Chunks:    sum.Chunks,
		Errors:    sum.Errors,
	}
	if sum.Failed > 0 && sum.Succeeded == 0 {
		err = fmt.Errorf("ragdex: all %d sources failed", sum.Failed)
		return out, err
	}
	return out, nil
}
