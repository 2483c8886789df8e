package request

import (
	"fmt"

	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed query length.
	MaxQueryLength = 4096
	DefaultLimit   = 5
	MaxLimit       = 100
	// DefaultOverfetch is the multiplier applied to limit when fetching
	// per-index candidates, so the fuser has breadth to work with.
	DefaultOverfetch = 2
	MaxOverfetch     = 10
)

// Request is a validated retrieval query.
type Request struct {
	query        string
	searchMode   mode.Mode
	limit        int
	overfetch    int
	diversityCap int
	rerank       bool
}

// New validates and normalizes retrieval parameters.
// Defaults: mode=hybrid, limit=5, overfetch=2. diversityCap=0 means no cap.
func New(query string, m mode.Mode, limit, overfetch, diversityCap int, rerank bool) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if m == "" {
		m = mode.Hybrid
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("invalid search mode: %q", m)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if overfetch <= 0 {
		overfetch = DefaultOverfetch
	}
	if overfetch > MaxOverfetch {
		overfetch = MaxOverfetch
	}
	if diversityCap < 0 {
		return Request{}, fmt.Errorf("diversity cap must be non-negative")
	}

	return Request{
		query:        query,
		searchMode:   m,
		limit:        limit,
		overfetch:    overfetch,
		diversityCap: diversityCap,
		rerank:       rerank,
	}, nil
}

// Query returns the query text.
func (r *Request) Query() string { return r.query }

// Mode returns the retrieval strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// Limit returns the maximum results to return.
func (r *Request) Limit() int { return r.limit }

// Overfetch returns the per-index candidate multiplier.
func (r *Request) Overfetch() int { return r.overfetch }

// TopK returns the per-index candidate count (limit * overfetch).
func (r *Request) TopK() int { return r.limit * r.overfetch }

// DiversityCap returns the per-document result cap, 0 when unset.
func (r *Request) DiversityCap() int { return r.diversityCap }

// Rerank reports whether the second-pass reranker should run.
func (r *Request) Rerank() bool { return r.rerank }
