package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
)

// store is the consumer interface for documents (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	TxApply(ctx context.Context, op db.TxOp) error
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo implements usecase ingest/query document storage.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Get returns a document by ID.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	raw, err := r.store.JSONGet(ctx, domain.DocKey(id), "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdoc.Document{}, domain.ErrDocumentNotFound
		}
		return domdoc.Document{}, fmt.Errorf("json.get %s: %w", domain.DocKey(id), err)
	}
	return parseJSONGetResult(id, raw)
}

// FindBySource resolves a source URI to its document via the source mapping.
// Returns ErrDocumentNotFound when the source was never ingested.
func (r *Repo) FindBySource(ctx context.Context, sourceURI string) (domdoc.Document, error) {
	id, err := r.store.Get(ctx, domain.SourceKey(sourceURI))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdoc.Document{}, domain.ErrDocumentNotFound
		}
		return domdoc.Document{}, fmt.Errorf("get source mapping: %w", err)
	}
	return r.Get(ctx, string(id))
}

// List returns documents with cursor-based pagination via FT.SEARCH.
func (r *Repo) List(ctx context.Context, cursor string, limit int) ([]domdoc.Document, string, error) {
	if limit <= 0 {
		limit = 20
	}

	offset := 0
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil || parsed < 0 {
			return nil, "", fmt.Errorf("invalid cursor %q", cursor)
		}
		offset = parsed
	}

	fetchCount := limit + 1
	result, err := r.store.SearchList(ctx, domain.DocIndexName, "*", offset, fetchCount, []string{"$"})
	if err != nil {
		return nil, "", fmt.Errorf("search list documents: %w", err)
	}

	if result == nil || result.Total == 0 {
		return nil, "", nil
	}

	docs := make([]domdoc.Document, 0, limit)
	for i, entry := range result.Entries {
		if i >= limit {
			break
		}
		id := strings.TrimPrefix(entry.Key, domain.DocKeyPrefix)
		var rec docRecord
		if err := json.Unmarshal([]byte(entry.Fields["$"]), &rec); err != nil {
			docs = append(docs, domdoc.Reconstruct(id, "", "", 0, time.Time{}))
			continue
		}
		docs = append(docs, rec.toDomain(id))
	}

	var nextCursor string
	if len(result.Entries) > limit {
		nextCursor = strconv.Itoa(offset + limit)
	}

	return docs, nextCursor, nil
}

// Count returns the number of ingested documents.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, domain.DocIndexName, "*")
	if err != nil {
		return 0, fmt.Errorf("search count documents: %w", err)
	}
	return n, nil
}

// Chunks returns a document's chunk set, in ordinal order. Ordinals are
// contiguous so the key range follows from the stored chunk count.
func (r *Repo) Chunks(ctx context.Context, doc *domdoc.Document) ([]chunk.Chunk, error) {
	if doc.ChunkCount() == 0 {
		return nil, nil
	}
	keys := chunkKeys(doc.ID(), doc.ChunkCount())
	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch chunks for %s: %w", doc.ID(), err)
	}
	chunks := make([]chunk.Chunk, 0, len(maps))
	for _, m := range maps {
		if len(m) == 0 {
			continue
		}
		chunks = append(chunks, parseChunkFields(m))
	}
	return chunks, nil
}

// Replace atomically swaps a document's chunk set: the old chunks (keyed by
// the previous chunk count) are deleted, the new chunks, the document record
// and the source mapping are written, all in one transaction. Readers never
// observe a partially replaced document.
func (r *Repo) Replace(ctx context.Context, doc *domdoc.Document, oldChunkCount int, chunks []chunk.Chunk) error {
	op := db.TxOp{
		Del: chunkKeys(doc.ID(), oldChunkCount),
	}

	for i := range chunks {
		c := &chunks[i]
		op.HSet = append(op.HSet, db.HashSetItem{
			Key:    domain.ChunkKey(doc.ID(), c.Ordinal()),
			Fields: buildChunkFields(c, doc.SourceURI()),
		})
	}

	rec := buildDocRecord(doc, len(chunks))
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal document record: %w", err)
	}
	op.JSONSet = append(op.JSONSet, db.JSONSetItem{Key: domain.DocKey(doc.ID()), Path: "$", Data: data})
	op.Set = append(op.Set, db.KVSetItem{Key: domain.SourceKey(doc.SourceURI()), Value: []byte(doc.ID())})

	if err := r.store.TxApply(ctx, op); err != nil {
		return fmt.Errorf("replace document %s: %w", doc.ID(), err)
	}
	return nil
}

// Delete removes a document, its chunk set and its source mapping in one
// transaction. Returns ErrDocumentNotFound when absent.
func (r *Repo) Delete(ctx context.Context, id string) error {
	doc, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	op := db.TxOp{
		Del: append(chunkKeys(id, doc.ChunkCount()),
			domain.DocKey(id),
			domain.SourceKey(doc.SourceURI()),
		),
	}
	if err := r.store.TxApply(ctx, op); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

func chunkKeys(docID string, count int) []string {
	keys := make([]string, 0, count)
	for i := 0; i < count; i++ {
		keys = append(keys, domain.ChunkKey(docID, i))
	}
	return keys
}

// parseJSONGetResult unwraps the JSONPath array shape returned by JSON.GET $.
func parseJSONGetResult(id string, raw []byte) (domdoc.Document, error) {
	var recs []docRecord
	if err := json.Unmarshal(raw, &recs); err != nil {
		// Plain (non-array) shape from older JSON.GET responses.
		var rec docRecord
		if err2 := json.Unmarshal(raw, &rec); err2 != nil {
			return domdoc.Document{}, fmt.Errorf("unmarshal document %s: %w", id, err)
		}
		return rec.toDomain(id), nil
	}
	if len(recs) == 0 {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return recs[0].toDomain(id), nil
}
