package document

import (
	"fmt"
	"strings"
	"time"
)

// MaxSourceURILength bounds the source URI accepted at ingestion.
const MaxSourceURILength = 2048

// Document is the document aggregate (immutable value object). A document is
// created on first ingestion of a source URI; re-ingestion reuses the same id
// and replaces the owned chunk set wholesale.
type Document struct {
	id         string
	sourceURI  string
	title      string
	chunkCount int
	createdAt  time.Time
}

// New validates and creates a Document.
// SourceURI: non-empty, no whitespace, max 2048 chars. Title defaults to the
// last path segment of the source URI when empty.
func New(id, sourceURI, title string, createdAt time.Time) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if sourceURI == "" {
		return Document{}, fmt.Errorf("source URI is required")
	}
	if len(sourceURI) > MaxSourceURILength {
		return Document{}, fmt.Errorf("source URI too long (max %d)", MaxSourceURILength)
	}
	if strings.ContainsAny(sourceURI, " \t\n") {
		return Document{}, fmt.Errorf("source URI must not contain whitespace")
	}
	if title == "" {
		title = titleFromURI(sourceURI)
	}

	return Document{
		id:        id,
		sourceURI: sourceURI,
		title:     title,
		createdAt: createdAt.UTC(),
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id, sourceURI, title string, chunkCount int, createdAt time.Time) Document {
	return Document{
		id: id, sourceURI: sourceURI, title: title,
		chunkCount: chunkCount, createdAt: createdAt,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// SourceURI returns the unique source the document was ingested from.
func (d *Document) SourceURI() string { return d.sourceURI }

// Title returns the document title.
func (d *Document) Title() string { return d.title }

// ChunkCount returns how many chunks the document currently owns.
func (d *Document) ChunkCount() int { return d.chunkCount }

// CreatedAt returns the first-ingestion timestamp.
func (d *Document) CreatedAt() time.Time { return d.createdAt }

// WithChunkCount returns a copy with the chunk count set. Ordinals are
// contiguous, so the count also bounds the owned chunk key range.
func (d *Document) WithChunkCount(n int) Document {
	c := *d
	c.chunkCount = n
	return c
}

func titleFromURI(uri string) string {
	trimmed := strings.TrimRight(uri, "/")
	if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	if trimmed == "" {
		return uri
	}
	return trimmed
}
