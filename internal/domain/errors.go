package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrRateLimited signals a rate limit hit at the embedding/judge provider.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrParseFailed signals a document parse failure.
	ErrParseFailed = errors.New("parse failed")
	// ErrIndexUnavailable signals that a search index cannot be reached.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrIngestInProgress signals a concurrent re-ingestion of the same source.
	ErrIngestInProgress = errors.New("ingestion already in progress for source")
	// ErrRetrievalFailed signals that no search branch produced results.
	ErrRetrievalFailed = errors.New("retrieval failed")
	// ErrRerankParse signals an unparsable relevance judgement. Callers fall
	// back to the pre-rerank order.
	ErrRerankParse = errors.New("rerank output unparsable")
)

// ParseError is a source-scoped parse failure. Batch ingestion skips the
// source and continues.
type ParseError struct {
	SourceURI string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.SourceURI, e.Err.Error())
}

func (e *ParseError) Unwrap() error { return ErrParseFailed }

// NewParseError creates a parse error for the given source.
func NewParseError(sourceURI string, err error) error {
	return &ParseError{SourceURI: sourceURI, Err: err}
}

// EmbeddingError is a batch-scoped embedding failure. It carries the failed
// batch so the caller can decide to retry or skip; no partial results exist.
type EmbeddingError struct {
	Batch []string
	Err   error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embed batch of %d: %s", len(e.Batch), e.Err.Error())
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// NewEmbeddingError creates an embedding error carrying the failed batch.
func NewEmbeddingError(batch []string, err error) error {
	return &EmbeddingError{Batch: batch, Err: err}
}
