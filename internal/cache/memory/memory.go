// Package memory is an in-process cache with per-key expiry.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Kirky-X/xlink/internal/cache"
)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// sweepEvery is how many expiring writes trigger a sweep.
const sweepEvery = 1024

// Cache keeps values in a map. Expired keys are ignored on read. They are
// removed by Sweep, by the next write to the same key, and by a sweep run
// after every sweepEvery writes that carry a ttl.
type Cache struct {
	mu     sync.Mutex
	data   map[string]entry
	now    func() time.Time
	writes int
}

func New() *Cache {
	return &Cache{data: make(map[string]entry), now: time.Now}
}

var (
	_ cache.Cache   = (*Cache)(nil)
	_ cache.Sweeper = (*Cache)(nil)
)

func (c *Cache) Ping(context.Context) error { return nil }

func (c *Cache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = c.entry(value, ttl)
	return nil
}

func (c *Cache) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.data[key]; ok && !e.expired(c.now()) {
		return false, nil
	}
	c.data[key] = c.entry(value, ttl)
	return true, nil
}

func (c *Cache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[key]
	if !ok || e.expired(c.now()) {
		return "", cache.ErrMiss
	}
	return e.value, nil
}

func (c *Cache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *Cache) Incr(_ context.Context, key string) (int64, error) {
	return c.add(key, 1)
}

func (c *Cache) Decr(_ context.Context, key string) (int64, error) {
	return c.add(key, -1)
}

func (c *Cache) add(key string, delta int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int64
	e, ok := c.data[key]
	if ok && !e.expired(c.now()) {
		v, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cache: value at %s is not an integer", key)
		}
		n = v
	} else {
		e = entry{}
	}
	n += delta
	e.value = strconv.FormatInt(n, 10)
	c.data[key] = e
	return n, nil
}

// Sweep removes expired keys and reports how many were dropped.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweep()
}

func (c *Cache) sweep() int {
	now := c.now()
	n := 0
	for k, e := range c.data {
		if e.expired(now) {
			delete(c.data, k)
			n++
		}
	}
	c.writes = 0
	return n
}

// Len reports how many keys are held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func (c *Cache) Close() error { return nil }

// entry builds the stored value. Callers hold mu.
func (c *Cache) entry(value string, ttl time.Duration) entry {
	e := entry{value: value}
	if ttl > 0 {
		c.writes++
		if c.writes >= sweepEvery {
			c.sweep()
		}
		e.expiresAt = c.now().Add(ttl)
	}
	return e
}
