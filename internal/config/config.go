package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the ragdex API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Rerank    RerankConfig    `yaml:"rerank"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Query     QueryConfig     `yaml:"query"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"` // label for logs/metrics
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	BatchSize           int    `yaml:"batch_size"`
	CacheEnabled        bool   `yaml:"cache_enabled"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// RerankConfig holds second-pass reranker settings. Credentials default to
// the embedding provider's when empty.
type RerankConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Strategy    string `yaml:"strategy"` // pointwise (default), batch
	Model       string `yaml:"model"`
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Concurrency int    `yaml:"concurrency"`
}

// ChunkingConfig holds chunking settings shared by both strategies.
type ChunkingConfig struct {
	MinTokens     int    `yaml:"min_tokens"`
	MaxTokens     int    `yaml:"max_tokens"`
	WindowTokens  int    `yaml:"window_tokens"`
	WindowOverlap int    `yaml:"window_overlap"`
	Encoding      string `yaml:"encoding"`
}

// QueryConfig holds retrieval fusion settings.
type QueryConfig struct {
	VectorWeight  float64 `yaml:"vector_weight"`
	LexicalWeight float64 `yaml:"lexical_weight"`
}

// IngestConfig holds source fetching settings.
type IngestConfig struct {
	MaxSourceBytes  int64 `yaml:"max_source_bytes"`
	FetchTimeoutSec int   `yaml:"fetch_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Hybrid queries with reranking can take a while.
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 100
	}
	if c.Rerank.Strategy == "" {
		c.Rerank.Strategy = "pointwise"
	}
	if c.Rerank.Model == "" {
		c.Rerank.Model = "gpt-4o-mini"
	}
	if c.Rerank.APIKey == "" {
		c.Rerank.APIKey = c.Embedding.APIKey
	}
	if c.Rerank.BaseURL == "" {
		c.Rerank.BaseURL = c.Embedding.BaseURL
	}
	if c.Rerank.Concurrency <= 0 {
		c.Rerank.Concurrency = 4
	}
	if c.Chunking.MinTokens <= 0 {
		c.Chunking.MinTokens = 100
	}
	if c.Chunking.MaxTokens <= 0 {
		c.Chunking.MaxTokens = 400
	}
	if c.Chunking.WindowTokens <= 0 {
		c.Chunking.WindowTokens = 300
	}
	if c.Chunking.WindowOverlap <= 0 {
		c.Chunking.WindowOverlap = 50
	}
	if c.Query.VectorWeight <= 0 {
		c.Query.VectorWeight = 1.0
	}
	if c.Query.LexicalWeight <= 0 {
		c.Query.LexicalWeight = 1.0
	}
	if c.Ingest.MaxSourceBytes <= 0 {
		c.Ingest.MaxSourceBytes = 10 << 20
	}
	if c.Ingest.FetchTimeoutSec <= 0 {
		c.Ingest.FetchTimeoutSec = 30
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required")
	}
	switch c.Rerank.Strategy {
	case "pointwise", "batch":
	default:
		return fmt.Errorf("rerank.strategy must be \"pointwise\" or \"batch\", got %q", c.Rerank.Strategy)
	}
	if c.Chunking.MaxTokens <= c.Chunking.MinTokens {
		return fmt.Errorf("chunking.max_tokens (%d) must exceed chunking.min_tokens (%d)",
			c.Chunking.MaxTokens, c.Chunking.MinTokens)
	}
	if c.Chunking.WindowOverlap >= c.Chunking.WindowTokens {
		return fmt.Errorf("chunking.window_overlap (%d) must be below chunking.window_tokens (%d)",
			c.Chunking.WindowOverlap, c.Chunking.WindowTokens)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
