// Package ratelimit gates calls to paid external providers with a counting
// window over a shared key-value store.
//
// Each provider owns one counter key (e.g. "serpapi:monthly"). The first
// increment of a window arms the key's expiry; subsequent increments just
// bump the count. A call is allowed while the count stays at or below the
// provider's budget.
//
// Enforcement is best-effort: the increment and the expiry are two store
// operations, so extreme races around a window boundary can over- or
// under-count by a call or two. That is acceptable for quota protection
// and is the same trade-off the backing INCR/EXPIRE pattern makes.
package ratelimit

import (
	"context"
	"time"
)

// CounterStore is the key-value counter contract the limiter runs on.
// repo.CounterStore provides a GORM-backed implementation; a Redis-backed
// one can be substituted without touching callers.
type CounterStore interface {
	// Increment adds one to the counter for key and returns the new count.
	Increment(ctx context.Context, key string) (int64, error)

	// ExpireAfter arms (or re-arms) the expiry of key's current window.
	ExpireAfter(ctx context.Context, key string, window time.Duration) error

	// Get returns the current count for key; a missing key reads as zero.
	Get(ctx context.Context, key string) (int64, error)
}

// Limiter enforces per-key call budgets over a CounterStore.
type Limiter struct {
	store CounterStore
}

// NewLimiter constructs a Limiter over the given store.
func NewLimiter(store CounterStore) *Limiter {
	return &Limiter{store: store}
}

// Allow atomically increments the counter for key and reports whether the
// call fits inside maxCalls for the window. The expiry is armed only on the
// first increment of a window, so the window is anchored at first use.
func (l *Limiter) Allow(ctx context.Context, key string, maxCalls int, window time.Duration) (bool, error) {
	count, err := l.store.Increment(ctx, key)
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.store.ExpireAfter(ctx, key, window); err != nil {
			return false, err
		}
	}
	return count <= int64(maxCalls), nil
}

// Remaining returns how many calls are left for key, never below zero.
// A missing key counts as an untouched budget.
func (l *Limiter) Remaining(ctx context.Context, key string, maxCalls int) (int, error) {
	count, err := l.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	remaining := maxCalls - int(count)
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}
