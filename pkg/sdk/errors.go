package ragdex

import "github.com/kailas-cloud/ragdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrDocumentNotFound       = domain.ErrDocumentNotFound
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrRateLimited            = domain.ErrRateLimited
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrParseFailed            = domain.ErrParseFailed
	ErrIndexUnavailable       = domain.ErrIndexUnavailable
	ErrIngestInProgress       = domain.ErrIngestInProgress
	ErrRetrievalFailed        = domain.ErrRetrievalFailed
)
