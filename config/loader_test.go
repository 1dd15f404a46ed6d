package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, 2, cfg.Pipeline.MaxRevisionRounds)
	assert.Equal(t, 30*time.Minute, cfg.Pipeline.GlobalTimeout)
	assert.Equal(t, "hash", cfg.Embedding.Provider)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "reports", cfg.Export.Dir)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Pipeline, cfg.Pipeline)
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfigFile(t, `
pipeline:
  max_attempts: 5
  global_timeout: 45m
generation:
  base_url: https://llm.internal
  model: research-large
literature:
  rate_per_second: 1.5
embedding:
  provider: http
  base_url: https://embed.internal
cache:
  enabled: true
  addr: redis.internal:6379
log:
  level: debug
  format: console
`)
	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, 45*time.Minute, cfg.Pipeline.GlobalTimeout)
	// Unset file fields keep their defaults.
	assert.Equal(t, 2, cfg.Pipeline.MaxRevisionRounds)
	assert.Equal(t, "https://llm.internal", cfg.Generation.BaseURL)
	assert.Equal(t, "research-large", cfg.Generation.Model)
	assert.Equal(t, 1.5, cfg.Literature.RatePerSecond)
	assert.Equal(t, "http", cfg.Embedding.Provider)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "redis.internal:6379", cfg.Cache.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "pipeline: [not a mapping")
	_, err := NewLoader().WithConfigPath(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
pipeline:
  max_attempts: 5
`)
	t.Setenv("GENAGENT_PIPELINE_MAX_ATTEMPTS", "7")
	t.Setenv("GENAGENT_PIPELINE_STAGE_TIMEOUT", "90s")
	t.Setenv("GENAGENT_GENERATION_MODEL", "env-model")
	t.Setenv("GENAGENT_GENERATION_BASE_URL", "https://env.llm")
	t.Setenv("GENAGENT_CACHE_ENABLED", "true")
	t.Setenv("GENAGENT_CACHE_ADDR", "envredis:6379")
	t.Setenv("GENAGENT_RETRIEVAL_MIN_SCORE", "0.25")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, 90*time.Second, cfg.Pipeline.StageTimeout)
	assert.Equal(t, "env-model", cfg.Generation.Model)
	assert.Equal(t, "https://env.llm", cfg.Generation.BaseURL)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "envredis:6379", cfg.Cache.Addr)
	assert.Equal(t, 0.25, cfg.Retrieval.MinScore)
}

func TestEnvPrefixOverride(t *testing.T) {
	t.Setenv("CUSTOM_LOG_LEVEL", "warn")
	cfg, err := NewLoader().WithEnvPrefix("CUSTOM").Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"bad embedding provider": func(c *Config) { c.Embedding.Provider = "quantum" },
		"bad log level":          func(c *Config) { c.Log.Level = "loud" },
		"bad log format":         func(c *Config) { c.Log.Format = "xml" },
		"zero top_k":             func(c *Config) { c.Retrieval.TopK = 0 },
		"min_score out of range": func(c *Config) { c.Retrieval.MinScore = 2 },
		"cache without addr": func(c *Config) {
			c.Cache.Enabled = true
			c.Cache.Addr = ""
		},
		"empty export dir": func(c *Config) { c.Export.Dir = "" },
		"http embedder without url": func(c *Config) {
			c.Embedding.Provider = "http"
			c.Embedding.BaseURL = ""
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestCustomValidator(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(c *Config) error {
			if c.Generation.BaseURL == "" {
				return assert.AnError
			}
			return nil
		}).
		Load()
	assert.Error(t, err)
}
