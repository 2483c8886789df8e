package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain"
)

// ChunkIndexDefinition builds the FT index over chunk hashes: BM25 over
// content, KNN over the embedding vector, plus document scoping fields.
func ChunkIndexDefinition(vectorDim int) (*db.IndexDefinition, error) {
	return db.NewIndex(domain.ChunkIndexName).
		Prefix(domain.ChunkKeyPrefix).
		Text("content").
		Tag("document_id").
		Numeric("ordinal").
		VectorHNSW("vector", vectorDim, db.DistanceCosine, 16, 200).
		Build()
}

// DocIndexDefinition builds the FT index over document JSON records, used
// for listing and counting.
func DocIndexDefinition() (*db.IndexDefinition, error) {
	return db.NewIndex(domain.DocIndexName).
		OnJSON().
		Prefix(domain.DocKeyPrefix).
		TagAs("$.source_uri", "source_uri").
		NumericAs("$.created_at", "created_at").
		Build()
}

// EnsureIndexes creates both FT indexes, tolerating ones that already exist.
func EnsureIndexes(ctx context.Context, mgr db.IndexManager, vectorDim int) error {
	chunkIdx, err := ChunkIndexDefinition(vectorDim)
	if err != nil {
		return fmt.Errorf("chunk index definition: %w", err)
	}
	docIdx, err := DocIndexDefinition()
	if err != nil {
		return fmt.Errorf("doc index definition: %w", err)
	}

	for _, def := range []*db.IndexDefinition{chunkIdx, docIdx} {
		if err := mgr.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
			return fmt.Errorf("create index %s: %w", def.Name, err)
		}
	}
	return nil
}

// RebuildIndex drops and recreates the chunk FT index. Needed when the
// embedding dimension changes: RediSearch fixes the vector dimension at
// index creation. Existing chunk hashes are reindexed in the background
// by the server; vectors of the wrong dimension are skipped until their
// documents are re-ingested.
func RebuildIndex(ctx context.Context, mgr db.IndexManager, vectorDim int) error {
	if err := mgr.DropIndex(ctx, domain.ChunkIndexName); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", domain.ChunkIndexName, err)
	}

	def, err := ChunkIndexDefinition(vectorDim)
	if err != nil {
		return fmt.Errorf("chunk index definition: %w", err)
	}
	if err := mgr.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return nil
}
