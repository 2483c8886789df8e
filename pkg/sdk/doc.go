// Package ragdex provides an embedded Go client for the ragdex hybrid
// retrieval engine backed by Redis with search modules.
//
// The client wires the full ingestion and query pipelines in-process, so a
// Go program can index document sources and run hybrid retrieval without the
// HTTP API:
//
//	client, _ := ragdex.New(ctx,
//	    ragdex.WithRedis("localhost:6379", ""),
//	    ragdex.WithEmbedder(myEmbedder),
//	)
//	defer client.Close()
//
//	summary, _ := client.Ingest(ctx, []string{"https://docs.example.com/returns.md"}, ragdex.IngestOptions{})
//	resp, _ := client.Query(ctx, ragdex.QueryRequest{Query: "return policy"})
//	for _, r := range resp.Results {
//	    fmt.Println(r.Score, r.Content)
//	}
package ragdex
