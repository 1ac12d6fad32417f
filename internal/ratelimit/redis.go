package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:case:"

// RedisWindow is a shared sliding window over a Redis sorted set, for
// multi-instance deployments where the in-memory window cannot coordinate.
type RedisWindow struct {
	client *redis.Client
	limit  int
	span   time.Duration
	ttl    time.Duration
}

// NewRedisWindow creates a window allowing limit events per span per key.
// Keys expire after ttl so no housekeeping pass is needed.
func NewRedisWindow(client *redis.Client, limit int, span, ttl time.Duration) *RedisWindow {
	if limit <= 0 {
		limit = 5
	}
	if span <= 0 {
		span = time.Minute
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisWindow{client: client, limit: limit, span: span, ttl: ttl}
}

// Allow records an event for the key unless the trailing window is full.
func (w *RedisWindow) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := redisKeyPrefix + key
	now := time.Now()
	cutoff := now.Add(-w.span).UnixNano()

	if err := w.client.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(cutoff, 10)).Err(); err != nil {
		return false, err
	}
	count, err := w.client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count >= int64(w.limit) {
		return false, nil
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	if err := w.client.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member}).Err(); err != nil {
		return false, err
	}
	if err := w.client.Expire(ctx, redisKey, w.ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

// Purge is a no-op; Redis key TTLs bound memory instead.
func (w *RedisWindow) Purge(ctx context.Context, olderThan time.Duration) error {
	return nil
}
