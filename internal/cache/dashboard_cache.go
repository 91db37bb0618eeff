package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mindtrack-backend/internal/config"
)

// DashboardCache stores the rendered dashboard payload per user.
type DashboardCache interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, userID string) ([]byte, error)
	Set(ctx context.Context, userID string, payload []byte) error
	Invalidate(ctx context.Context, userID string) error
}

type dashboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDashboardCache creates a Redis backed cache.
func NewDashboardCache(client *redis.Client, ttl time.Duration) DashboardCache {
	return &dashboardCache{client: client, ttl: ttl}
}

// New returns a Redis cache when an address is configured and a no-op cache
// otherwise. The returned client is nil for the no-op cache.
func New(cfg config.CacheConfig) (DashboardCache, *redis.Client) {
	if cfg.Addr == "" {
		return Noop{}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewDashboardCache(client, cfg.TTL()), client
}

func Key(userID string) string {
	return fmt.Sprintf("mindtrack:dashboard:%s", userID)
}

func (c *dashboardCache) Get(ctx context.Context, userID string) ([]byte, error) {
	data, err := c.client.Get(ctx, Key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *dashboardCache) Set(ctx context.Context, userID string, payload []byte) error {
	return c.client.Set(ctx, Key(userID), payload, c.ttl).Err()
}

func (c *dashboardCache) Invalidate(ctx context.Context, userID string) error {
	return c.client.Del(ctx, Key(userID)).Err()
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, error) { return nil, nil }
func (Noop) Set(context.Context, string, []byte) error   { return nil }
func (Noop) Invalidate(context.Context, string) error    { return nil }
