// Package cache provides the redis-backed side channel: rate-limit counters
// and the append-only token-usage sink. Both are best-effort; a cache failure
// never affects a job's outcome.
package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tarotlab/tarot-reader/pkg/models"
)

// Cache is the side-channel interface. Implementations must be safe for
// concurrent use.
type Cache interface {
	Ping(ctx context.Context) error
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
	RecordTokenUsage(ctx context.Context, jobID uuid.UUID, usage models.TokenUsage) error
	Close() error
}

// RedisCache implements the Cache interface using go-redis/v9.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new RedisCache from a Redis URL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// IncrWithExpiry increments key and refreshes its expiry in one transaction.
// Used by the rate limiter.
func (c *RedisCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// RecordTokenUsage appends the per-job usage counts and bumps the running
// totals for later reporting.
func (c *RedisCache) RecordTokenUsage(ctx context.Context, jobID uuid.UUID, usage models.TokenUsage) error {
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, TokenUsageKey(jobID), map[string]any{
		"prompt_tokens":     usage.PromptTokens,
		"completion_tokens": usage.CompletionTokens,
		"total_tokens":      usage.TotalTokens,
	})
	pipe.IncrBy(ctx, TotalTokensKey(), int64(usage.TotalTokens))
	_, err := pipe.Exec(ctx)
	return err
}

// Noop is the Cache used when no REDIS_URL is configured: rate limiting is
// disabled and usage counts are dropped.
type Noop struct{}

func (Noop) Ping(_ context.Context) error { return nil }
func (Noop) Close() error                 { return nil }

func (Noop) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 0, nil
}

func (Noop) RecordTokenUsage(_ context.Context, _ uuid.UUID, _ models.TokenUsage) error {
	return nil
}

var (
	_ Cache = (*RedisCache)(nil)
	_ Cache = Noop{}
)
