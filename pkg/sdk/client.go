package ragdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/chunker"
	"github.com/kailas-cloud/ragdex/internal/db"
	dbRedis "github.com/kailas-cloud/ragdex/internal/db/redis"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	documentrepo "github.com/kailas-cloud/ragdex/internal/repository/document"
	searchrepo "github.com/kailas-cloud/ragdex/internal/repository/search"
	parserTransport "github.com/kailas-cloud/ragdex/internal/transport/parser"
	healthuc "github.com/kailas-cloud/ragdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragdex/internal/usecase/ingest"
	queryuc "github.com/kailas-cloud/ragdex/internal/usecase/query"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swappable in tests.
type ingestUseCase interface {
	IngestBatch(ctx context.Context, sourceURIs []string, opts ingestuc.Options) ingestuc.Summary
	Get(ctx context.Context, id string) (domdoc.Document, error)
	Chunks(ctx context.Context, id string) (domdoc.Document, []chunk.Chunk, error)
	List(ctx context.Context, cursor string, limit int) ([]domdoc.Document, string, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error
}

type queryUseCase interface {
	Search(ctx context.Context, req *request.Request) (*queryuc.Response, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the ragdex SDK entry point.
type Client struct {
	store     db.Store
	ingestSvc ingestUseCase
	querySvc  queryUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a ragdex Client, connects to the database and ensures the
// search indexes exist. The provided context is used for the initial
// readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		vectorDimensions:   1536,
		chunkMinTokens:     100,
		chunkMaxTokens:     400,
		chunkWindowTokens:  300,
		chunkWindowOverlap: 50,
		vectorWeight:       1.0,
		lexicalWeight:      1.0,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("ragdex: database address required (use WithRedis)")
	}
	if cfg.embedder == nil {
		return nil, errors.New("ragdex: embedder required (use WithEmbedder)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("ragdex: create redis store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("ragdex: database not ready: %w", err)
	}

	if err := documentrepo.EnsureIndexes(ctx, store, cfg.vectorDimensions); err != nil {
		store.Close()
		return nil, fmt.Errorf("ragdex: ensure indexes: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return wireClient(store, cfg, obs)
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	// Internal services log through zap; the SDK's own observer handles
	// caller-facing logging.
	nop := zap.NewNop()

	counter := chunker.NewTokenCounter("", nop)
	paragraph, err := chunker.NewParagraph(cfg.chunkMinTokens, cfg.chunkMaxTokens, counter)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("ragdex: paragraph chunker: %w", err)
	}
	window, err := chunker.NewWindow(cfg.chunkWindowTokens, cfg.chunkWindowOverlap, counter)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("ragdex: window chunker: %w", err)
	}
	chunkers := map[chunker.Strategy]chunker.Chunker{
		chunker.StrategyParagraph: paragraph,
		chunker.StrategyWindow:    window,
	}

	embedder := &embedderAdapter{inner: cfg.embedder}
	docRepo := documentrepo.New(store)
	searchRepo := searchrepo.New(store)
	sourceParser := parserTransport.New(nil, 0, nop)

	ingestSvc := ingestuc.New(
		docRepo, sourceParser, embedder, chunkers, cfg.embedBatchSize, nil, nil, nop,
	)
	querySvc := queryuc.New(
		searchRepo, embedder, nil,
		queryuc.Weights{Vector: cfg.vectorWeight, Lexical: cfg.lexicalWeight},
		nil, nop,
	)
	healthSvc := healthuc.New(store, store, nil)

	return &Client{
		store:     store,
		ingestSvc: ingestSvc,
		querySvc:  querySvc,
		healthSvc: healthSvc,
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// embedderAdapter wraps the public Embedder to satisfy the internal
// embedding contracts. Batch calls use the inner BatchEmbedder when
// available and fall back to per-text calls otherwise.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := a.inner.(BatchEmbedder); ok {
		r, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}
		return domain.BatchEmbeddingResult{
			Embeddings:   r.Embeddings,
			PromptTokens: r.PromptTokens,
			TotalTokens:  r.TotalTokens,
		}, nil
	}
	res, err := domain.BatchFallback(ctx, a, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	return res, nil
}
