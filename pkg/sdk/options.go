package ragdex

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	username string
	password string

	embedder Embedder

	vectorDimensions int
	embedBatchSize   int

	chunkMinTokens     int
	chunkMaxTokens     int
	chunkWindowTokens  int
	chunkWindowOverlap int

	vectorWeight  float64
	lexicalWeight float64

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedisUsername sets the Redis ACL username.
func WithRedisUsername(username string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
	})
}

// WithEmbedder sets the text embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithVectorDimensions sets the embedding vector dimension used for the
// chunk index. Defaults to 1536 (text-embedding-3-small).
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithEmbedBatchSize bounds texts per embedding call during ingestion.
// Default: 100.
func WithEmbedBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedBatchSize = size
	})
}

// WithChunking sets the paragraph chunker token bounds.
// Defaults: min 100, max 400.
func WithChunking(minTokens, maxTokens int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkMinTokens = minTokens
		c.chunkMaxTokens = maxTokens
	})
}

// WithWindowChunking sets the windowed chunker size and overlap.
// Defaults: window 300, overlap 50.
func WithWindowChunking(windowTokens, overlapTokens int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkWindowTokens = windowTokens
		c.chunkWindowOverlap = overlapTokens
	})
}

// WithFusionWeights sets the per-branch RRF weights for hybrid queries.
// Defaults: 1.0 each.
func WithFusionWeights(vector, lexical float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorWeight = vector
		c.lexicalWeight = lexical
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
