package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/chunker"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
)

// DefaultEmbedBatchSize bounds texts per embedding call, respecting upstream
// batch limits.
const DefaultEmbedBatchSize = 100

// Options tune a single ingestion call.
type Options struct {
	// Strategy selects the chunking algorithm; empty means paragraph.
	Strategy chunker.Strategy
}

// Summary aggregates a batch ingestion outcome. Per-source failures are
// collected here, they never abort the batch.
type Summary struct {
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Chunks    int      `json:"chunks"`
	Errors    []string `json:"errors,omitempty"`
}

// Service runs the ingestion pipeline: parse, chunk, embed, replace the
// document's chunk set atomically.
type Service struct {
	repo      Repository
	parser    Parser
	embed     Embedder
	chunkers  map[chunker.Strategy]chunker.Chunker
	batchSize int

	// inflight holds source URIs with an ingestion underway. Concurrent
	// re-ingestion of the same source is rejected, not queued.
	inflight sync.Map

	// sourcesTotal counts ingested sources by result, chunksTotal counts
	// written chunks; both passed explicitly.
	sourcesTotal *prometheus.CounterVec
	chunksTotal  prometheus.Counter
	logger       *zap.Logger
}

// New creates an ingestion service. chunkers must cover every strategy the
// callers may request; batchSize <= 0 selects the default.
func New(
	repo Repository,
	parser Parser,
	embed Embedder,
	chunkers map[chunker.Strategy]chunker.Chunker,
	batchSize int,
	sourcesTotal *prometheus.CounterVec,
	chunksTotal prometheus.Counter,
	logger *zap.Logger,
) *Service {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	return &Service{
		repo:         repo,
		parser:       parser,
		embed:        embed,
		chunkers:     chunkers,
		batchSize:    batchSize,
		sourcesTotal: sourcesTotal,
		chunksTotal:  chunksTotal,
		logger:       logger,
	}
}

// Ingest processes one source end to end and returns the number of chunks
// written. Re-ingestion of a known source replaces its whole chunk set in one
// transaction, so retrying after a failure never leaves duplicates.
func (s *Service) Ingest(ctx context.Context, sourceURI string, opts Options) (int, error) {
	release, err := s.lockSource(sourceURI)
	if err != nil {
		return 0, err
	}
	defer release()

	n, err := s.ingestLocked(ctx, sourceURI, opts)
	if err != nil {
		s.incSource("failed")
		return 0, err
	}
	s.incSource("succeeded")
	if s.chunksTotal != nil {
		s.chunksTotal.Add(float64(n))
	}
	return n, nil
}

// IngestBatch processes sources sequentially and aggregates per-source
// outcomes. A failed source is reported in the summary and skipped.
func (s *Service) IngestBatch(ctx context.Context, sourceURIs []string, opts Options) Summary {
	var sum Summary
	for _, uri := range sourceURIs {
		n, err := s.Ingest(ctx, uri, opts)
		if err != nil {
			s.logger.Warn("Source ingestion failed",
				zap.String("source_uri", uri), zap.Error(err))
			sum.Failed++
			sum.Errors = append(sum.Errors, fmt.Sprintf("%s: %v", uri, err))
			continue
		}
		sum.Succeeded++
		sum.Chunks += n
	}
	return sum
}

func (s *Service) ingestLocked(ctx context.Context, sourceURI string, opts Options) (int, error) {
	ch, err := s.selectChunker(opts.Strategy)
	if err != nil {
		return 0, err
	}

	text, title, err := s.parser.Parse(ctx, sourceURI)
	if err != nil {
		return 0, domain.NewParseError(sourceURI, err)
	}

	doc, oldChunkCount, isNew, err := s.resolveDocument(ctx, sourceURI, title)
	if err != nil {
		return 0, err
	}

	drafts := ch.Chunk(text)
	if len(drafts) == 0 {
		if isNew {
			// Nothing to index and nothing to replace.
			return 0, nil
		}
		// Known source now empty: purge its chunk set.
		if err := s.repo.Replace(ctx, &doc, oldChunkCount, nil); err != nil {
			return 0, err
		}
		return 0, nil
	}

	chunks, err := s.embedDrafts(ctx, doc.ID(), drafts)
	if err != nil {
		return 0, err
	}

	if err := s.repo.Replace(ctx, &doc, oldChunkCount, chunks); err != nil {
		return 0, err
	}

	s.logger.Info("Source ingested",
		zap.String("source_uri", sourceURI),
		zap.String("document_id", doc.ID()),
		zap.Int("chunks", len(chunks)),
		zap.Bool("new", isNew))

	return len(chunks), nil
}

// resolveDocument reuses the document identity for a known source and mints
// a fresh one otherwise.
func (s *Service) resolveDocument(
	ctx context.Context, sourceURI, title string,
) (domdoc.Document, int, bool, error) {
	existing, err := s.repo.FindBySource(ctx, sourceURI)
	if err == nil {
		if title == "" {
			title = existing.Title()
		}
		doc := domdoc.Reconstruct(existing.ID(), sourceURI, title, 0, existing.CreatedAt())
		return doc, existing.ChunkCount(), false, nil
	}
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		return domdoc.Document{}, 0, false, fmt.Errorf("resolve source %s: %w", sourceURI, err)
	}

	doc, err := domdoc.New(uuid.NewString(), sourceURI, title, time.Now())
	if err != nil {
		return domdoc.Document{}, 0, false, err
	}
	return doc, 0, true, nil
}

// embedDrafts vectorizes drafts in bounded batches and attaches ordinals.
// Any batch failure aborts the source with the failed batch attached; no
// partial chunk set is ever committed.
func (s *Service) embedDrafts(
	ctx context.Context, docID string, drafts []chunk.Draft,
) ([]chunk.Chunk, error) {
	chunks := make([]chunk.Chunk, 0, len(drafts))

	for start := 0; start < len(drafts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(drafts) {
			end = len(drafts)
		}

		texts := make([]string, 0, end-start)
		for _, d := range drafts[start:end] {
			texts = append(texts, d.Content)
		}

		res, err := s.embed.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, domain.NewEmbeddingError(texts, err)
		}
		if len(res.Embeddings) != len(texts) {
			return nil, domain.NewEmbeddingError(texts, fmt.Errorf(
				"got %d embeddings for %d texts", len(res.Embeddings), len(texts)))
		}

		for i, d := range drafts[start:end] {
			c, err := chunk.New(docID, d.Content, start+i, d.TokenCount, res.Embeddings[i])
			if err != nil {
				return nil, fmt.Errorf("build chunk %d: %w", start+i, err)
			}
			chunks = append(chunks, c)
		}
	}

	return chunks, nil
}

func (s *Service) selectChunker(strategy chunker.Strategy) (chunker.Chunker, error) {
	if strategy == "" {
		strategy = chunker.StrategyParagraph
	}
	if !strategy.IsValid() {
		return nil, fmt.Errorf("unsupported chunking strategy: %q", strategy)
	}
	ch, ok := s.chunkers[strategy]
	if !ok {
		return nil, fmt.Errorf("chunking strategy %q not configured", strategy)
	}
	return ch, nil
}

func (s *Service) lockSource(sourceURI string) (func(), error) {
	if _, busy := s.inflight.LoadOrStore(sourceURI, struct{}{}); busy {
		return nil, fmt.Errorf("%w: %s", domain.ErrIngestInProgress, sourceURI)
	}
	return func() { s.inflight.Delete(sourceURI) }, nil
}

func (s *Service) incSource(result string) {
	if s.sourcesTotal != nil {
		s.sourcesTotal.WithLabelValues(result).Inc()
	}
}

// Get returns an ingested document by id.
func (s *Service) Get(ctx context.Context, id string) (domdoc.Document, error) {
	return s.repo.Get(ctx, id)
}

// Chunks returns a document's chunk set in ordinal order.
func (s *Service) Chunks(ctx context.Context, id string) (domdoc.Document, []chunk.Chunk, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return domdoc.Document{}, nil, err
	}
	chunks, err := s.repo.Chunks(ctx, &doc)
	if err != nil {
		return domdoc.Document{}, nil, err
	}
	return doc, chunks, nil
}

// List returns ingested documents with cursor pagination.
func (s *Service) List(ctx context.Context, cursor string, limit int) ([]domdoc.Document, string, error) {
	return s.repo.List(ctx, cursor, limit)
}

// Count returns the number of ingested documents.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Delete purges a document and its chunk set.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Document deleted", zap.String("document_id", id))
	return nil
}
