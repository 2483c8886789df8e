package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/chunker"
	"github.com/kailas-cloud/ragdex/internal/config"
	dbRedis "github.com/kailas-cloud/ragdex/internal/db/redis"
	"github.com/kailas-cloud/ragdex/internal/domain"
	logpkg "github.com/kailas-cloud/ragdex/internal/logger"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	documentrepo "github.com/kailas-cloud/ragdex/internal/repository/document"
	"github.com/kailas-cloud/ragdex/internal/repository/embcache"
	searchrepo "github.com/kailas-cloud/ragdex/internal/repository/search"
	chiTransport "github.com/kailas-cloud/ragdex/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/ragdex/internal/transport/openai"
	parserTransport "github.com/kailas-cloud/ragdex/internal/transport/parser"
	healthuc "github.com/kailas-cloud/ragdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragdex/internal/usecase/ingest"
	queryuc "github.com/kailas-cloud/ragdex/internal/usecase/query"
	rerankuc "github.com/kailas-cloud/ragdex/internal/usecase/rerank"
	"github.com/kailas-cloud/ragdex/internal/version"
)

func main() {
	rebuildIndex := flag.Bool("rebuild-index", false,
		"drop and recreate the chunk index before serving (required after an embedding dimension change)")
	flag.Parse()

	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ragdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	if *rebuildIndex {
		logger.Warn("Rebuilding chunk index", zap.Int("dimensions", cfg.Embedding.Dimensions))
		if err := documentrepo.RebuildIndex(ctx, store, cfg.Embedding.Dimensions); err != nil {
			logger.Fatal("Failed to rebuild chunk index", zap.Error(err))
		}
	}
	if err := documentrepo.EnsureIndexes(ctx, store, cfg.Embedding.Dimensions); err != nil {
		logger.Fatal("Failed to ensure search indexes", zap.Error(err))
	}

	// Register domain metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()

	// Build embedder chains. Documents and queries may carry different
	// instruction prefixes for asymmetric-instruction models.
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	docEmbedder := buildEmbedder(baseEmbedder, cfg.Embedding.DocumentInstruction, cfg.Embedding.CacheEnabled, store, logger)
	queryEmbedder := buildEmbedder(baseEmbedder, cfg.Embedding.QueryInstruction, cfg.Embedding.CacheEnabled, store, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.CacheEnabled),
	)

	// Chunkers share one token counter.
	counter := chunker.NewTokenCounter(cfg.Chunking.Encoding, logger)
	paragraph, err := chunker.NewParagraph(cfg.Chunking.MinTokens, cfg.Chunking.MaxTokens, counter)
	if err != nil {
		logger.Fatal("Failed to create paragraph chunker", zap.Error(err))
	}
	window, err := chunker.NewWindow(cfg.Chunking.WindowTokens, cfg.Chunking.WindowOverlap, counter)
	if err != nil {
		logger.Fatal("Failed to create window chunker", zap.Error(err))
	}
	chunkers := map[chunker.Strategy]chunker.Chunker{
		chunker.StrategyParagraph: paragraph,
		chunker.StrategyWindow:    window,
	}

	// Create repositories (domain-native, no adapters)
	docRepo := documentrepo.New(store)
	searchRepo := searchrepo.New(store)

	sourceParser := parserTransport.New(
		&http.Client{Timeout: time.Duration(cfg.Ingest.FetchTimeoutSec) * time.Second},
		cfg.Ingest.MaxSourceBytes,
		logger,
	)

	// Create use case services
	ingestSvc := ingestuc.New(
		docRepo, sourceParser, docEmbedder, chunkers, cfg.Embedding.BatchSize,
		metrics.IngestSourcesTotal, metrics.IngestChunksTotal, logger,
	)

	var reranker queryuc.Reranker
	if cfg.Rerank.Enabled {
		judge := openaiTransport.NewJudge(&openaiTransport.JudgeConfig{
			APIKey:  cfg.Rerank.APIKey,
			BaseURL: cfg.Rerank.BaseURL,
			Model:   cfg.Rerank.Model,
			Logger:  logger,
		})
		reranker = rerankuc.New(
			judge, rerankuc.Strategy(cfg.Rerank.Strategy), cfg.Rerank.Concurrency,
			metrics.RerankFallbackTotal, logger,
		)
		logger.Info("Reranker enabled",
			zap.String("strategy", cfg.Rerank.Strategy),
			zap.String("model", cfg.Rerank.Model),
		)
	}

	querySvc := queryuc.New(
		searchRepo, queryEmbedder, reranker,
		queryuc.Weights{Vector: cfg.Query.VectorWeight, Lexical: cfg.Query.LexicalWeight},
		metrics.QueryDegradedTotal, logger,
	)

	healthSvc := healthuc.New(store, store, newEmbeddingHealthChecker(baseEmbedder))

	// Create chi server
	server := chiTransport.NewServer(ingestSvc, querySvc, healthSvc, logger)
	handler := server.Router(cfg.Auth.APIKeys,
		jsonRecoverer(logger),
		chiMiddleware.RequestID,
		wideEventMiddleware(logger),
	)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// fullEmbedder vectorizes single texts and batches; every link in the
// decorator chain supports both.
type fullEmbedder interface {
	domain.Embedder
	domain.BatchEmbedder
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction.
// The instruction decorator is outermost so the cache key includes the prefix.
func buildEmbedder(
	base fullEmbedder,
	instruction string,
	cacheEnabled bool,
	store embcacheStore,
	logger *zap.Logger,
) fullEmbedder {
	var embedder fullEmbedder = base
	if cacheEnabled && store != nil {
		embedder = embcache.New(embedder, store, metrics.EmbeddingCacheTotal, logger)
	}
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}

// embcacheStore is the key-value surface the embedding cache needs.
type embcacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
