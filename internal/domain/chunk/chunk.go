package chunk

import (
	"fmt"
)

// Draft is a chunker output: content plus its token count, before a document
// identity or embedding is attached.
type Draft struct {
	Content    string
	TokenCount int
}

// Chunk is the unit of indexing and retrieval (immutable value object).
// A chunk belongs to exactly one document; ordinals are unique and contiguous
// within a document, assigned in parse order. Chunks are never edited in
// place, only deleted wholesale with their document's chunk set.
type Chunk struct {
	documentID string
	content    string
	ordinal    int
	tokenCount int
	embedding  []float32
}

// New validates and creates a Chunk.
func New(documentID, content string, ordinal, tokenCount int, embedding []float32) (Chunk, error) {
	if documentID == "" {
		return Chunk{}, fmt.Errorf("document ID is required")
	}
	if content == "" {
		return Chunk{}, fmt.Errorf("content is required")
	}
	if ordinal < 0 {
		return Chunk{}, fmt.Errorf("ordinal must be non-negative, got %d", ordinal)
	}
	if tokenCount <= 0 {
		return Chunk{}, fmt.Errorf("token count must be positive, got %d", tokenCount)
	}

	return Chunk{
		documentID: documentID,
		content:    content,
		ordinal:    ordinal,
		tokenCount: tokenCount,
		embedding:  embedding,
	}, nil
}

// Reconstruct creates a Chunk without validation (storage hydration).
func Reconstruct(documentID, content string, ordinal, tokenCount int, embedding []float32) Chunk {
	return Chunk{
		documentID: documentID, content: content,
		ordinal: ordinal, tokenCount: tokenCount, embedding: embedding,
	}
}

// ID returns the chunk identifier, derived from the owning document and the
// ordinal. Ordinals are contiguous, so the id is stable across re-ingestion
// of identical content.
func (c *Chunk) ID() string { return ID(c.documentID, c.ordinal) }

// DocumentID returns the owning document identifier.
func (c *Chunk) DocumentID() string { return c.documentID }

// Content returns the chunk text.
func (c *Chunk) Content() string { return c.content }

// Ordinal returns the chunk position within its document.
func (c *Chunk) Ordinal() int { return c.ordinal }

// TokenCount returns the chunk size in tokens.
func (c *Chunk) TokenCount() int { return c.tokenCount }

// Embedding returns the embedding vector, nil when not yet embedded.
func (c *Chunk) Embedding() []float32 { return c.embedding }

// ID builds a chunk identifier from document id and ordinal.
func ID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s:%d", documentID, ordinal)
}
