// Package cache provides the processed-marker cache consulted by inbox consumers before
// they touch the inbox table. The database stays authoritative: a missing marker only
// means the consumer falls back to the inbox row.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const keyPrefix = "inbox:processed"

// RedisProcessedCache remembers processed (message, handler) pairs as expiring redis keys.
type RedisProcessedCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisProcessedCache creates a RedisProcessedCache whose markers live for ttl.
func NewRedisProcessedCache(client *redis.Client, ttl time.Duration) *RedisProcessedCache {
	return &RedisProcessedCache{client: client, ttl: ttl}
}

// Connect parses a redis:// URL and checks the server is reachable.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// IsProcessed reports whether a marker exists for the pair.
func (c *RedisProcessedCache) IsProcessed(ctx context.Context, messageID uuid.UUID, handler string) (bool, error) {
	n, err := c.client.Exists(ctx, markerKey(messageID, handler)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check processed marker: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed writes the marker of the pair.
func (c *RedisProcessedCache) MarkProcessed(ctx context.Context, messageID uuid.UUID, handler string) error {
	if err := c.client.Set(ctx, markerKey(messageID, handler), 1, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set processed marker: %w", err)
	}
	return nil
}

// NoOpProcessedCache never remembers anything. It is used when redis is not configured.
type NoOpProcessedCache struct{}

// NewNoOpProcessedCache creates a NoOpProcessedCache.
func NewNoOpProcessedCache() *NoOpProcessedCache {
	return &NoOpProcessedCache{}
}

// IsProcessed always reports false.
func (NoOpProcessedCache) IsProcessed(context.Context, uuid.UUID, string) (bool, error) {
	return false, nil
}

// MarkProcessed does nothing.
func (NoOpProcessedCache) MarkProcessed(context.Context, uuid.UUID, string) error {
	return nil
}

func markerKey(messageID uuid.UUID, handler string) string {
	return keyPrefix + ":" + handler + ":" + messageID.String()
}
