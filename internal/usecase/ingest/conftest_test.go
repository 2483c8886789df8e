package ingest

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/chunker"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
)

// mockRepo implements Repository for tests.
type mockRepo struct {
	getFn          func(ctx context.Context, id string) (domdoc.Document, error)
	findBySourceFn func(ctx context.Context, sourceURI string) (domdoc.Document, error)
	listFn         func(ctx context.Context, cursor string, limit int) ([]domdoc.Document, string, error)
	countFn        func(ctx context.Context) (int, error)
	chunksFn       func(ctx context.Context, doc *domdoc.Document) ([]chunk.Chunk, error)
	replaceFn      func(ctx context.Context, doc *domdoc.Document, oldChunkCount int, chunks []chunk.Chunk) error
	deleteFn       func(ctx context.Context, id string) error

	replaceCalls int
}

func (m *mockRepo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domdoc.Document{}, domain.ErrDocumentNotFound
}

func (m *mockRepo) FindBySource(ctx context.Context, sourceURI string) (domdoc.Document, error) {
	if m.findBySourceFn != nil {
		return m.findBySourceFn(ctx, sourceURI)
	}
	return domdoc.Document{}, domain.ErrDocumentNotFound
}

func (m *mockRepo) List(ctx context.Context, cursor string, limit int) ([]domdoc.Document, string, error) {
	if m.listFn != nil {
		return m.listFn(ctx, cursor, limit)
	}
	return nil, "", nil
}

func (m *mockRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

func (m *mockRepo) Chunks(ctx context.Context, doc *domdoc.Document) ([]chunk.Chunk, error) {
	if m.chunksFn != nil {
		return m.chunksFn(ctx, doc)
	}
	return nil, nil
}

func (m *mockRepo) Replace(ctx context.Context, doc *domdoc.Document, oldChunkCount int, chunks []chunk.Chunk) error {
	m.replaceCalls++
	if m.replaceFn != nil {
		return m.replaceFn(ctx, doc, oldChunkCount, chunks)
	}
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockParser implements Parser for tests.
type mockParser struct {
	parseFn func(ctx context.Context, sourceURI string) (string, string, error)
}

func (m *mockParser) Parse(ctx context.Context, sourceURI string) (string, string, error) {
	if m.parseFn != nil {
		return m.parseFn(ctx, sourceURI)
	}
	return "some parsed text", "", nil
}

// mockEmbedder implements Embedder for tests.
type mockEmbedder struct {
	batchFn    func(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
	batchCalls int
	batchSizes []int
}

func (m *mockEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.batchFn != nil {
		return m.batchFn(ctx, texts)
	}
	embeddings := make([][]float32, len(texts))
	for i := range embeddings {
		embeddings[i] = []float32{0.1, 0.2}
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings, TotalTokens: len(texts)}, nil
}

// stubChunker returns preset drafts regardless of input.
type stubChunker struct {
	chunkFn func(text string) []chunk.Draft
}

func (s *stubChunker) Chunk(text string) []chunk.Draft {
	if s.chunkFn != nil {
		return s.chunkFn(text)
	}
	return nil
}

func drafts(n int) []chunk.Draft {
	out := make([]chunk.Draft, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, chunk.Draft{Content: "draft content", TokenCount: 100})
	}
	return out
}

func newTestService(t *testing.T) (*Service, *mockRepo, *mockParser, *mockEmbedder, *stubChunker) {
	t.Helper()
	repo := &mockRepo{}
	parser := &mockParser{}
	embedder := &mockEmbedder{}
	ch := &stubChunker{}
	chunkers := map[chunker.Strategy]chunker.Chunker{
		chunker.StrategyParagraph: ch,
		chunker.StrategyWindow:    ch,
	}
	svc := New(repo, parser, embedder, chunkers, 0, nil, nil, zap.NewNop())
	return svc, repo, parser, embedder, ch
}
