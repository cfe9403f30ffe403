package cache_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarotlab/tarot-reader/internal/cache"
	"github.com/tarotlab/tarot-reader/pkg/models"
)

// setupRedis starts an in-process miniredis and returns a connected RedisCache.
func setupRedis(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, rc.Close()) })

	return rc, mr
}

func TestRedisCache_Ping(t *testing.T) {
	rc, _ := setupRedis(t)
	assert.NoError(t, rc.Ping(context.Background()))
}

func TestRedisCache_IncrWithExpiry(t *testing.T) {
	rc, mr := setupRedis(t)
	ctx := context.Background()
	key := cache.RateLimitKey("203.0.113.7")

	n, err := rc.IncrWithExpiry(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = rc.IncrWithExpiry(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.Greater(t, mr.TTL(key), time.Duration(0))
}

func TestRedisCache_IncrWithExpiry_WindowReset(t *testing.T) {
	rc, mr := setupRedis(t)
	ctx := context.Background()
	key := cache.RateLimitKey("203.0.113.7")

	_, err := rc.IncrWithExpiry(ctx, key, time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	n, err := rc.IncrWithExpiry(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "counter should reset after the window expires")
}

func TestRedisCache_RecordTokenUsage(t *testing.T) {
	rc, mr := setupRedis(t)
	ctx := context.Background()
	jobID := uuid.New()

	usage := models.TokenUsage{PromptTokens: 42, CompletionTokens: 128, TotalTokens: 170}
	require.NoError(t, rc.RecordTokenUsage(ctx, jobID, usage))

	key := cache.TokenUsageKey(jobID)
	assert.Equal(t, "42", mr.HGet(key, "prompt_tokens"))
	assert.Equal(t, "128", mr.HGet(key, "completion_tokens"))
	assert.Equal(t, "170", mr.HGet(key, "total_tokens"))

	total, err := mr.Get(cache.TotalTokensKey())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(170), total)
}

func TestRedisCache_RecordTokenUsage_Accumulates(t *testing.T) {
	rc, mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.RecordTokenUsage(ctx, uuid.New(), models.TokenUsage{TotalTokens: 100}))
	require.NoError(t, rc.RecordTokenUsage(ctx, uuid.New(), models.TokenUsage{TotalTokens: 50}))

	total, err := mr.Get(cache.TotalTokensKey())
	require.NoError(t, err)
	assert.Equal(t, "150", total)
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := cache.NewRedisCache("not a url")
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	var c cache.Cache = cache.Noop{}
	ctx := context.Background()

	assert.NoError(t, c.Ping(ctx))

	n, err := c.IncrWithExpiry(ctx, "any", time.Minute)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)

	assert.NoError(t, c.RecordTokenUsage(ctx, uuid.New(), models.TokenUsage{TotalTokens: 1}))
	assert.NoError(t, c.Close())
}
