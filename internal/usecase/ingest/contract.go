package ingest

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
)

// Repository defines the storage contract for ingestion and document
// management.
type Repository interface {
	Get(ctx context.Context, id string) (domdoc.Document, error)
	FindBySource(ctx context.Context, sourceURI string) (domdoc.Document, error)
	List(ctx context.Context, cursor string, limit int) ([]domdoc.Document, string, error)
	Count(ctx context.Context) (int, error)
	Chunks(ctx context.Context, doc *domdoc.Document) ([]chunk.Chunk, error)
	Replace(ctx context.Context, doc *domdoc.Document, oldChunkCount int, chunks []chunk.Chunk) error
	Delete(ctx context.Context, id string) error
}

// Parser resolves a source URI to normalized text. Title may be empty, the
// document derives one from the URI then.
type Parser interface {
	Parse(ctx context.Context, sourceURI string) (text, title string, err error)
}

// Embedder vectorizes chunk contents in batches.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
