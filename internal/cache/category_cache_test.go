package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachable points at a port nothing listens on.
func unreachable() *CategoryCache {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	return newCategoryCache(client, time.Minute)
}

func TestCategoryCache_FailuresAreMisses(t *testing.T) {
	c := unreachable()
	defer c.Close()
	ctx := context.Background()

	names, ok := c.Names(ctx)
	assert.False(t, ok)
	assert.Nil(t, names)

	// writes must not panic or block when Redis is down
	c.Store(ctx, map[string]string{"a": "Design"})
	c.Invalidate(ctx)
}

func TestNewCategoryCache_PingFailure(t *testing.T) {
	_, err := NewCategoryCache(Config{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}

func TestNewCategoryCache_DefaultTTL(t *testing.T) {
	c := newCategoryCache(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), 0)
	defer c.Close()
	assert.Equal(t, 5*time.Minute, c.ttl)
}
