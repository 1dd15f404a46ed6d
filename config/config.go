package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/epigenicai/genagent/capability"
	"github.com/epigenicai/genagent/internal/server"
	"github.com/epigenicai/genagent/rag"
	"github.com/epigenicai/genagent/tracker"
	"github.com/epigenicai/genagent/workflow"
)

// Config is the complete service configuration.
type Config struct {
	// Server is the public HTTP listener.
	Server server.Config `yaml:"server" env:"SERVER"`

	// Pipeline tunes the task-graph runner.
	Pipeline workflow.Config `yaml:"pipeline" env:"PIPELINE"`

	// Generation is the text-generation capability endpoint.
	Generation GenerationConfig `yaml:"generation" env:"GENERATION"`

	// Literature is the paper-search capability endpoint.
	Literature capability.ClientConfig `yaml:"literature" env:"LITERATURE"`

	// Web is the open-web search capability endpoint.
	Web capability.ClientConfig `yaml:"web" env:"WEB"`

	// Commercial is the market-intelligence capability endpoint.
	Commercial capability.ClientConfig `yaml:"commercial" env:"COMMERCIAL"`

	// Embedding configures the retrieval embedder.
	Embedding EmbeddingConfig `yaml:"embedding" env:"EMBEDDING"`

	// Retrieval tunes context selection during report drafting.
	Retrieval RetrievalConfig `yaml:"retrieval" env:"RETRIEVAL"`

	// Cache is the per-gene report cache.
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// Export controls where finished reports land.
	Export ExportConfig `yaml:"export" env:"EXPORT"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// GenerationConfig extends the shared client knobs with the model name.
type GenerationConfig struct {
	capability.ClientConfig `yaml:",inline"`

	// Model is the generation model identifier.
	Model string `yaml:"model" env:"MODEL"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	rag.EmbedderConfig `yaml:",inline"`

	// Provider is "http" or "hash". The hash embedder is deterministic and
	// needs no network, for development and tests.
	Provider string `yaml:"provider" env:"PROVIDER"`
	// Dims is the vector width of the hash embedder.
	Dims int `yaml:"dims" env:"DIMS"`
}

// RetrievalConfig tunes report-time context selection.
type RetrievalConfig struct {
	// TopK is how many retrieval matches feed each section prompt.
	TopK int `yaml:"top_k" env:"TOP_K"`
	// MinScore drops matches below this cosine similarity.
	MinScore float64 `yaml:"min_score" env:"MIN_SCORE"`
}

// CacheConfig configures the report cache.
type CacheConfig struct {
	tracker.RedisCacheConfig `yaml:",inline"`

	// Enabled turns the Redis report cache on.
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

// ExportConfig configures report export.
type ExportConfig struct {
	// Dir is the directory finished reports are written to.
	Dir string `yaml:"dir" env:"DIR"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is json or console.
	Format string `yaml:"format" env:"FORMAT"`
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Addr    string `yaml:"addr" env:"ADDR"`
}

// Default returns the configuration used when nothing is supplied.
func Default() *Config {
	return &Config{
		Server:   server.DefaultConfig(),
		Pipeline: workflow.DefaultConfig(),
		Generation: GenerationConfig{
			ClientConfig: capability.ClientConfig{
				Name:    "generation",
				Timeout: 120 * time.Second,
			},
			Model: "gpt-4o-mini",
		},
		Literature: capability.ClientConfig{
			Name:          "pubmed",
			BaseURL:       "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
			Timeout:       30 * time.Second,
			RatePerSecond: 3,
		},
		Web: capability.ClientConfig{
			Name:    "websearch",
			Timeout: 30 * time.Second,
		},
		Commercial: capability.ClientConfig{
			Name:    "commercial",
			Timeout: 30 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Provider: "hash",
			Dims:     256,
		},
		Retrieval: RetrievalConfig{
			TopK:     5,
			MinScore: 0.1,
		},
		Cache: CacheConfig{
			RedisCacheConfig: tracker.RedisCacheConfig{
				Addr: "localhost:6379",
				TTL:  tracker.DefaultReportTTL,
			},
		},
		Export: ExportConfig{
			Dir: "reports",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
	}
}

// Validate checks the loaded configuration for values no component can run
// with.
func (c *Config) Validate() error {
	var errs []string

	if c.Pipeline.MaxAttempts < 0 {
		errs = append(errs, "pipeline.max_attempts must not be negative")
	}
	if c.Pipeline.MaxRevisionRounds < 0 {
		errs = append(errs, "pipeline.max_revision_rounds must not be negative")
	}
	switch c.Embedding.Provider {
	case "hash":
		if c.Embedding.Dims <= 0 {
			errs = append(errs, "embedding.dims must be positive for the hash provider")
		}
	case "http":
		if c.Embedding.BaseURL == "" {
			errs = append(errs, "embedding.base_url is required for the http provider")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown embedding provider %q", c.Embedding.Provider))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, "retrieval.top_k must be positive")
	}
	if c.Retrieval.MinScore < -1 || c.Retrieval.MinScore > 1 {
		errs = append(errs, "retrieval.min_score must be a cosine similarity in [-1, 1]")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("unknown log format %q", c.Log.Format))
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		errs = append(errs, "cache.addr is required when the cache is enabled")
	}
	if c.Export.Dir == "" {
		errs = append(errs, "export.dir must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
