package ragdex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
)

// DocumentService manages ingested documents.
type DocumentService struct {
	svc ingestUseCase
	obs *observer
}

// Documents returns the document management service.
func (c *Client) Documents() *DocumentService {
	return &DocumentService{svc: c.ingestSvc, obs: c.obs}
}

// Get retrieves a document's metadata by ID.
func (s *DocumentService) Get(ctx context.Context, id string) (Document, error) {
	start := time.Now()
	var err error
	defer func() { s.obs.observe("document_get", start, err) }()

	d, err := s.svc.Get(ctx, id)
	if err != nil {
		err = fmt.Errorf("get document: %w", err)
		return Document{}, err
	}
	return fromInternalDocument(d), nil
}

// GetWithChunks retrieves a document and its chunk set in ordinal order.
func (s *DocumentService) GetWithChunks(ctx context.Context, id string) (Document, []Chunk, error) {
	start := time.Now()
	var err error
	defer func() { s.obs.observe("document_chunks", start, err) }()

	d, chunks, err := s.svc.Chunks(ctx, id)
	if err != nil {
		err = fmt.Errorf("get document chunks: %w", err)
		return Document{}, nil, err
	}
	return fromInternalDocument(d), fromInternalChunks(chunks), nil
}

// List returns a paginated list of documents.
func (s *DocumentService) List(ctx context.Context, cursor string, limit int) (ListResult, error) {
	start := time.Now()
	var err error
	defer func() { s.obs.observe("document_list", start, err) }()

	docs, next, err := s.svc.List(ctx, cursor, limit)
	if err != nil {
		err = fmt.Errorf("list documents: %w", err)
		return ListResult{}, err
	}
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = fromInternalDocument(d)
	}
	return ListResult{Documents: out, NextCursor: next}, nil
}

// Count returns the number of ingested documents.
func (s *DocumentService) Count(ctx context.Context) (int, error) {
	start := time.Now()
	var err error
	defer func() { s.obs.observe("document_count", start, err) }()

	n, err := s.svc.Count(ctx)
	if err != nil {
		err = fmt.Errorf("count documents: %w", err)
		return 0, err
	}
	return n, nil
}

// Delete removes a document and its chunk set.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	start := time.Now()
	var err error
	defer func() { s.obs.observe("document_delete", start, err) }()

	if err = s.svc.Delete(ctx, id); err != nil {
		err = fmt.Errorf("delete document: %w", err)
		return err
	}
	return nil
}

func fromInternalDocument(d domdoc.Document) Document {
	return Document{
		ID:         d.ID(),
		SourceURI:  d.SourceURI(),
		Title:      d.Title(),
		ChunkCount: d.ChunkCount(),
		CreatedAt:  d.CreatedAt(),
	}
}

func fromInternalChunks(chunks []chunk.Chunk) []Chunk {
	out := make([]Chunk, len(chunks))
	for i := range chunks {
		out[i] = Chunk{
			Ordinal:    chunks[i].Ordinal(),
			Content:    chunks[i].Content(),
			TokenCount: chunks[i].TokenCount(),
		}
	}
	return out
}
