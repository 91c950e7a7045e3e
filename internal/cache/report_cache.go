package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ReportCacheEntry wraps a cached pass result with metadata.
type ReportCacheEntry struct {
	Payload   json.RawMessage `json:"payload"`
	CachedAt  time.Time       `json:"cached_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// ReportCacheStats tracks cache performance metrics
type ReportCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Errors int64 `json:"errors"`
}

// HitRate returns hits as a percentage of lookups.
func (s ReportCacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// RedisReportCache stores classification and comparison results in Redis.
type RedisReportCache struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	logger *logrus.Logger

	mu    sync.Mutex
	stats ReportCacheStats
}

// NewRedisReportCache creates a Redis-based report cache.
func NewRedisReportCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisReportCache {
	return &RedisReportCache{
		redis:  redisClient,
		ttl:    ttl,
		prefix: "report_cache:",
		logger: logger,
	}
}

func (c *RedisReportCache) record(update func(*ReportCacheStats)) {
	c.mu.Lock()
	update(&c.stats)
	c.mu.Unlock()
}

// Get decodes the entry stored under key into dest. A miss returns
// found=false and no error.
func (c *RedisReportCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.redis.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.record(func(s *ReportCacheStats) { s.Misses++ })
		return false, nil
	}
	if err != nil {
		c.record(func(s *ReportCacheStats) { s.Misses++; s.Errors++ })
		return false, fmt.Errorf("redis error getting %s: %w", key, err)
	}

	var entry ReportCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.record(func(s *ReportCacheStats) { s.Misses++; s.Errors++ })
		return false, fmt.Errorf("error deserializing cached %s: %w", key, err)
	}
	if err := json.Unmarshal(entry.Payload, dest); err != nil {
		c.record(func(s *ReportCacheStats) { s.Misses++; s.Errors++ })
		return false, fmt.Errorf("error decoding cached %s: %w", key, err)
	}

	c.record(func(s *ReportCacheStats) { s.Hits++ })
	return true, nil
}

// Set stores value under key for the cache TTL.
func (c *RedisReportCache) Set(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error serializing %s: %w", key, err)
	}

	now := time.Now()
	data, err := json.Marshal(ReportCacheEntry{
		Payload:   payload,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	})
	if err != nil {
		return fmt.Errorf("error serializing %s: %w", key, err)
	}

	if err := c.redis.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		c.record(func(s *ReportCacheStats) { s.Errors++ })
		return fmt.Errorf("redis error setting %s: %w", key, err)
	}

	c.record(func(s *ReportCacheStats) { s.Sets++ })
	c.logger.WithFields(logrus.Fields{
		"key": key,
		"ttl": c.ttl.String(),
	}).Debug("Cached report")
	return nil
}

// GetStats returns current cache statistics
func (c *RedisReportCache) GetStats() ReportCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// LogStats logs current cache performance statistics
func (c *RedisReportCache) LogStats() {
	stats := c.GetStats()
	c.logger.WithFields(logrus.Fields{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"sets":     stats.Sets,
		"errors":   stats.Errors,
		"hit_rate": fmt.Sprintf("%.2f%%", stats.HitRate()),
	}).Info("Report cache stats")
}

// Clear removes every cached report.
func (c *RedisReportCache) Clear(ctx context.Context) (int, error) {
	var keys []string
	iter := c.redis.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("error scanning cache keys: %w", err)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("error clearing cache: %w", err)
	}

	c.logger.WithField("count", len(keys)).Info("Cleared report cache")
	return len(keys), nil
}
