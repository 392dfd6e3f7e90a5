package passwordreset

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter caps OTP issuance per key inside a fixed window. Allow
// increments the counter and reports whether the request is still within
// the cap.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

const (
	rateLimitWindow = time.Hour
	rateLimitCap    = 5
)

// RedisRateLimiter is the production limiter: one counter per key with the
// window applied on first increment.
type RedisRateLimiter struct {
	client *redis.Client
}

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("smsrl:%s", key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, rateLimitWindow).Err(); err != nil {
			return false, err
		}
	}
	return count <= rateLimitCap, nil
}

// MemoryRateLimiter backs development and tests.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	count       int
	windowStart time.Time
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (l *MemoryRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[key]
	if !ok || now.Sub(entry.windowStart) >= rateLimitWindow {
		l.entries[key] = &memoryEntry{count: 1, windowStart: now}
		return true, nil
	}

	entry.count++
	return entry.count <= rateLimitCap, nil
}
