package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a test Redis instance using miniredis
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis, func()) {
	s, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})

	cleanup := func() {
		client.Close()
		s.Close()
	}

	return client, s, cleanup
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type cachedReport struct {
	PassID string         `json:"passId"`
	Counts map[string]int `json:"counts"`
}

func TestNewRedisReportCache(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewRedisReportCache(client, 5*time.Minute, testLogger())

	assert.Equal(t, client, cache.redis)
	assert.Equal(t, 5*time.Minute, cache.ttl)
	assert.Equal(t, "report_cache:", cache.prefix)
}

func TestRedisReportCache_SetGet(t *testing.T) {
	client, s, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	cache := NewRedisReportCache(client, time.Minute, testLogger())

	report := cachedReport{PassID: "p-1", Counts: map[string]int{"OOS_NOW": 2}}
	require.NoError(t, cache.Set(ctx, "classification:2026-01-06", report))
	assert.True(t, s.Exists("report_cache:classification:2026-01-06"))
	assert.Equal(t, time.Minute, s.TTL("report_cache:classification:2026-01-06"))

	var got cachedReport
	found, err := cache.Get(ctx, "classification:2026-01-06", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, report, got)

	stats := cache.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, 100.0, stats.HitRate())
}

func TestRedisReportCache_Miss(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewRedisReportCache(client, time.Minute, testLogger())

	var got cachedReport
	found, err := cache.Get(context.Background(), "hourly:2026-01-04:2026-01-06", &got)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, int64(1), cache.GetStats().Misses)
}

func TestRedisReportCache_Expired(t *testing.T) {
	client, s, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	cache := NewRedisReportCache(client, time.Minute, testLogger())
	require.NoError(t, cache.Set(ctx, "k", cachedReport{PassID: "p"}))

	s.FastForward(2 * time.Minute)

	var got cachedReport
	found, err := cache.Get(ctx, "k", &got)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestRedisReportCache_CorruptEntry(t *testing.T) {
	client, s, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, s.Set("report_cache:broken", "{not json"))
	cache := NewRedisReportCache(client, time.Minute, testLogger())

	var got cachedReport
	found, err := cache.Get(context.Background(), "broken", &got)
	assert.Error(t, err)
	assert.False(t, found)
	assert.Equal(t, int64(1), cache.GetStats().Errors)
}

func TestRedisReportCache_RedisDown(t *testing.T) {
	client, s, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewRedisReportCache(client, time.Minute, testLogger())
	s.Close()

	var got cachedReport
	found, err := cache.Get(context.Background(), "k", &got)
	assert.Error(t, err)
	assert.False(t, found)
	assert.Error(t, cache.Set(context.Background(), "k", got))
}

func TestRedisReportCache_Clear(t *testing.T) {
	client, s, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	cache := NewRedisReportCache(client, time.Minute, testLogger())
	require.NoError(t, cache.Set(ctx, "a", cachedReport{PassID: "a"}))
	require.NoError(t, cache.Set(ctx, "b", cachedReport{PassID: "b"}))
	require.NoError(t, s.Set("unrelated", "keep"))

	cleared, err := cache.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)
	assert.True(t, s.Exists("unrelated"))
	assert.False(t, s.Exists("report_cache:a"))

	assert.NotPanics(t, cache.LogStats)
}
