// Package cache holds the Redis-backed lookup caches.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const categoryNamesKey = "servicemart:categories:names"

// Config holds all configuration for the Redis client
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// CategoryCache stores the category id to name map as a Redis hash.
// Every Redis failure is treated as a miss so the catalog falls back to the store.
type CategoryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCategoryCache creates and pings a Redis client.
func NewCategoryCache(cfg Config) (*CategoryCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newCategoryCache(rdb, cfg.TTL), nil
}

func newCategoryCache(client *redis.Client, ttl time.Duration) *CategoryCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CategoryCache{client: client, ttl: ttl}
}

// Names returns the cached map; ok is false on a miss or any Redis error.
func (c *CategoryCache) Names(ctx context.Context) (map[string]string, bool) {
	names, err := c.client.HGetAll(ctx, categoryNamesKey).Result()
	if err != nil {
		logrus.WithError(err).Warn("category cache read failed")
		return nil, false
	}
	if len(names) == 0 {
		return nil, false
	}
	return names, true
}

// Store replaces the cached map.
func (c *CategoryCache) Store(ctx context.Context, names map[string]string) {
	if len(names) == 0 {
		return
	}
	values := make(map[string]interface{}, len(names))
	for id, name := range names {
		values[id] = name
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, categoryNamesKey)
		pipe.HSet(ctx, categoryNamesKey, values)
		pipe.Expire(ctx, categoryNamesKey, c.ttl)
		return nil
	})
	if err != nil {
		logrus.WithError(err).Warn("category cache write failed")
	}
}

// Invalidate drops the cached map after a category write.
func (c *CategoryCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, categoryNamesKey).Err(); err != nil {
		logrus.WithError(err).Warn("category cache invalidation failed")
	}
}

// Close gracefully closes the Redis connection.
func (c *CategoryCache) Close() error {
	return c.client.Close()
}
