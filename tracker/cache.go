package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/epigenicai/genagent/types"
)

// DefaultReportTTL is how long a finished report satisfies resubmissions
// for the same gene.
const DefaultReportTTL = 30 * 24 * time.Hour

// ReportCache stores finished reports keyed by gene symbol.
type ReportCache interface {
	Get(ctx context.Context, gene string) (*types.Report, bool, error)
	Put(ctx context.Context, gene string, report *types.Report) error
}

// RedisCacheConfig configures the Redis-backed report cache.
type RedisCacheConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// RedisCache is a Redis-backed ReportCache for deployments where multiple
// instances share one report store.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(cfg RedisCacheConfig, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "genagent:"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultReportTTL
	}
	return &RedisCache{
		client:    client,
		keyPrefix: keyPrefix + "report:",
		ttl:       ttl,
		logger:    logger.With(zap.String("component", "report_cache")),
	}, nil
}

// Close closes the underlying Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping checks cache health.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) key(gene string) string {
	return c.keyPrefix + gene
}

// Get returns the cached report for a gene, if still fresh.
func (c *RedisCache) Get(ctx context.Context, gene string) (*types.Report, bool, error) {
	data, err := c.client.Get(ctx, c.key(gene)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached report: %w", err)
	}
	var report types.Report
	if err := json.Unmarshal(data, &report); err != nil {
		// A corrupt entry is treated as a miss and overwritten on the
		// next Put.
		c.logger.Warn("dropping corrupt cached report", zap.String("gene", gene), zap.Error(err))
		return nil, false, nil
	}
	return &report, true, nil
}

// Put stores a finished report under the configured TTL.
func (c *RedisCache) Put(ctx context.Context, gene string, report *types.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := c.client.Set(ctx, c.key(gene), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache report: %w", err)
	}
	c.logger.Debug("report cached", zap.String("gene", gene))
	return nil
}

// NoopCache disables report caching.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (*types.Report, bool, error) {
	return nil, false, nil
}

func (NoopCache) Put(context.Context, string, *types.Report) error {
	return nil
}
