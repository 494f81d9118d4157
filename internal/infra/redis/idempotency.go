package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResponseCache stores serialized answer responses under their
// idempotency key so retries replay the original result.
type ResponseCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResponseCache(client *redis.Client, ttl time.Duration) *ResponseCache {
	return &ResponseCache{client: client, ttl: ttl}
}

func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := c.client.Get(ctx, c.cacheKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (c *ResponseCache) Set(ctx context.Context, key string, response []byte) error {
	return c.client.Set(ctx, c.cacheKey(key), response, c.ttl).Err()
}

func (c *ResponseCache) cacheKey(key string) string {
	return "quiz:idem:" + key
}
