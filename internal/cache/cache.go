// Package cache is the key/value port used for delivery receipts, inbound
// deduplication and traffic counters.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get for an absent or expired key.
var ErrMiss = errors.New("cache: key not found")

// Cache is implemented by the in-process store and by Redis. A zero ttl
// means the entry never expires.
type Cache interface {
	Ping(ctx context.Context) error
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX reports whether the key was absent and is now set.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	// Del succeeds for absent keys.
	Del(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
	Decr(ctx context.Context, key string) (int64, error)
	Close() error
}

// Sweeper is implemented by caches that drop expired keys on request.
// Redis expires keys itself.
type Sweeper interface {
	Sweep() int
}
