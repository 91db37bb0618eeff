package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindtrack-backend/internal/config"
)

func TestNewWithoutAddressIsNoop(t *testing.T) {
	c, client := New(config.CacheConfig{})
	assert.Nil(t, client)
	assert.IsType(t, Noop{}, c)

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "u1", []byte("{}")))
	got, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, c.Invalidate(ctx, "u1"))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "mindtrack:dashboard:u-1", Key("u-1"))
}

func TestRedisCacheSurfacesConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := NewDashboardCache(client, time.Minute)
	ctx := context.Background()

	_, err := c.Get(ctx, "u1")
	assert.Error(t, err)
	assert.Error(t, c.Set(ctx, "u1", []byte("{}")))
	assert.Error(t, c.Invalidate(ctx, "u1"))
}
