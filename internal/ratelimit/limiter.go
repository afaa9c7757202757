// Package ratelimit caps how many events a key may produce per second.
package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRate is the per-device message budget per second.
const DefaultRate = 100

type quota struct {
	window int64  // unix second the tokens belong to
	tokens uint64 // left in window
}

// Limiter keeps a one-second quota per key. A zero rate disables limiting.
type Limiter[K comparable] struct {
	rate uint64
	now  func() time.Time

	mu     sync.RWMutex
	quotas map[K]*quota
}

func New[K comparable](rate int) *Limiter[K] {
	if rate < 0 {
		rate = 0
	}
	return &Limiter[K]{
		rate:   uint64(rate),
		now:    time.Now,
		quotas: make(map[K]*quota),
	}
}

// Allow consumes one token for key and reports whether it was available.
func (l *Limiter[K]) Allow(key K) bool {
	if l.rate == 0 {
		return true
	}

	q := l.quota(key)
	now := l.now().Unix()
	if w := atomic.LoadInt64(&q.window); w != now {
		if atomic.CompareAndSwapInt64(&q.window, w, now) {
			atomic.StoreUint64(&q.tokens, l.rate)
		}
	}

	for {
		tokens := atomic.LoadUint64(&q.tokens)
		if tokens == 0 {
			return false
		}
		if atomic.CompareAndSwapUint64(&q.tokens, tokens, tokens-1) {
			return true
		}
	}
}

func (l *Limiter[K]) quota(key K) *quota {
	l.mu.RLock()
	q, ok := l.quotas[key]
	l.mu.RUnlock()
	if ok {
		return q
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if q, ok = l.quotas[key]; ok {
		return q
	}
	q = &quota{}
	l.quotas[key] = q
	return q
}

// Forget drops the quota of key.
func (l *Limiter[K]) Forget(key K) {
	l.mu.Lock()
	delete(l.quotas, key)
	l.mu.Unlock()
}

func (l *Limiter[K]) Clear() {
	l.mu.Lock()
	l.quotas = make(map[K]*quota)
	l.mu.Unlock()
}

// Len reports how many keys are tracked.
func (l *Limiter[K]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.quotas)
}
