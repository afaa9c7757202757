// Package redis backs the cache with a shared Redis server. Devices sharing
// one server keep their keys apart through a namespace.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Kirky-X/xlink/internal/cache"
)

var _ cache.Cache = (*Client)(nil)

type Client struct {
	rdb *redis.Client
	ns  string
}

// New connects lazily to addr. Every key is stored as "<namespace>:<key>";
// an empty namespace stores keys as given.
func New(addr, password string, dbNumber int, namespace string) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           dbNumber,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	c := &Client{rdb: rdb}
	if namespace != "" {
		c.ns = namespace + ":"
	}
	return c
}

func (c *Client) key(k string) string { return c.ns + k }

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.key(key), value, ttl).Err()
}

// SetNX backs inbound deduplication, so it must be atomic server side.
func (c *Client) SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, c.key(key), value, ttl).Result()
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	v, err := c.rdb.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", cache.ErrMiss
	}
	return v, err
}

func (c *Client) Del(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.key(key)).Err()
}

func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	return c.rdb.Incr(ctx, c.key(key)).Result()
}

func (c *Client) Decr(ctx context.Context, key string) (int64, error) {
	return c.rdb.Decr(ctx, c.key(key)).Result()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
