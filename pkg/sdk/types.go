package ragdex

import "time"

// Document is an ingested document's metadata.
type Document struct {
	ID         string
	SourceURI  string
	Title      string
	ChunkCount int
	CreatedAt  time.Time
}

// Chunk is one indexed slice of a document.
type Chunk struct {
	Ordinal    int
	Content    string
	TokenCount int
}

// IngestOptions tune an ingestion call.
type IngestOptions struct {
	// Strategy selects the chunking algorithm: "paragraph" (default) or
	// "window".
	Strategy string
}

// Summary aggregates a batch ingestion outcome.
type Summary struct {
	Succeeded int
	Failed    int
	Chunks    int
	Errors    []string
}

// QueryRequest holds retrieval parameters. Zero values select the defaults:
// hybrid mode, limit 5, overfetch 2, no diversity cap, no rerank.
type QueryRequest struct {
	Query        string
	Mode         string // "hybrid", "vector", "keyword"
	Limit        int
	Overfetch    int
	DiversityCap int
	Rerank       bool
}

// QueryResult is a single retrieval hit.
type QueryResult struct {
	ChunkID    string
	DocumentID string
	Content    string
	Source     string
	Score      float64
	Provenance string // "vector", "lexical", "both"
}

// QueryResponse is the outcome of a retrieval query. Mode is the mode that
// actually ran, which differs from the requested one after degradation.
type QueryResponse struct {
	Results  []QueryResult
	Mode     string
	Degraded bool
	Warning  string
}

// ListResult is a paginated list of documents.
type ListResult struct {
	Documents  []Document
	NextCursor string
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "unhealthy"
	Checks map[string]string // component -> "ok"/"error"
}
