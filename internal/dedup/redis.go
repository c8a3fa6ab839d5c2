package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache shares the seen-set across replicas. SET NX makes
// check-and-insert a single atomic command; the TTL bounds its size.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed cache. Keys are stored as prefix+id.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "dedup:message:"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

// Seen implements Cache.
func (c *RedisCache) Seen(ctx context.Context, id string) (bool, error) {
	inserted, err := c.client.SetNX(ctx, c.prefix+id, time.Now().UTC().Format(time.RFC3339), c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	return !inserted, nil
}
