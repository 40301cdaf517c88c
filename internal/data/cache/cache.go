// Package cache provides the byte-oriented result cache used by the batch
// analyzer and the HTTP layer: an in-memory TTL cache by default, a
// Redis-backed one when an address is configured.
package cache

import (
	"context"
	"os"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Cache stores opaque payloads under string keys with per-entry TTLs.
// Implementations are safe for concurrent use.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, val []byte, ttl time.Duration)
}

// redisTimeout bounds each Redis round trip so a slow server degrades to a
// cache miss instead of stalling a scan.
const redisTimeout = 500 * time.Millisecond

// NewAuto returns a Redis-backed cache when REDIS_ADDR is set and an
// in-memory cache otherwise.
func NewAuto() Cache {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return NewRedis(addr)
	}
	return NewMemory(DefaultMaxEntries)
}

// NewRedis creates a cache backed by the Redis instance at addr.
func NewRedis(addr string) Cache {
	return &redisCache{client: redis.NewClient(&redis.Options{Addr: addr})}
}

type redisCache struct {
	client *redis.Client
}

func (r *redisCache) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (r *redisCache) Set(key string, val []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	_ = r.client.Set(ctx, key, val, ttl).Err()
}
