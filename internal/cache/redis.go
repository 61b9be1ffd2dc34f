package cache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Cache using go-redis/v9. TTL handling is delegated to
// the server; prefix invalidation walks matching keys with SCAN.
type Redis struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// NewRedis creates a Redis cache from a Redis URL.
func NewRedis(redisURL string, defaultTTL time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Redis{client: redis.NewClient(opts), defaultTTL: defaultTTL}, nil
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *Redis) Invalidate(ctx context.Context, pattern string) error {
	prefix, ok := strings.CutSuffix(pattern, "*")
	if !ok {
		return c.client.Del(ctx, pattern).Err()
	}

	iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Redis) Close() error {
	return c.client.Close()
}
