package universe

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"investohlcv/internal/config"
)

// Fixed cache keys of the three symbol sets.
const (
	KeyStocks  = "INVEST-STOCKS"
	KeyETFs    = "INVEST-ETFS"
	KeyIndices = "INVEST-INDICES"
)

// Cache is a read-only view of named symbol sets.
type Cache interface {
	Members(ctx context.Context, key string) ([]string, error)
}

// Compile-time interface check.
var _ Cache = (*RedisCache)(nil)

// RedisCache reads symbol sets with SMEMBERS.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to the configured Redis. Credentials are only sent
// when the host is not the loopback default.
func NewRedisCache(cfg config.Redis) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Addr(),
		DB:   cfg.DB,
	}
	if !cfg.Local() {
		opts.Username = cfg.Username
		opts.Password = cfg.Password
	}
	return &RedisCache{client: redis.NewClient(opts)}
}

// Members returns the members of the set at key. A missing key yields an
// empty slice.
func (c *RedisCache) Members(ctx context.Context, key string) ([]string, error) {
	members, err := c.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("SMEMBERS %s: %w", key, err)
	}
	return members, nil
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
