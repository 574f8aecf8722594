package providers

import (
	"context"
	"sync"
	"time"
)

// tokenRefreshMargin renews a token slightly before its reported expiry so
// an in-flight request never rides a token that lapses mid-call.
const tokenRefreshMargin = 30 * time.Second

// TokenCache holds one OAuth access token and its expiry behind its own
// mutex. It is injected into the provider that needs it rather than shared
// through package state, so each provider instance owns its token lifecycle.
type TokenCache struct {
	mu     sync.Mutex
	token  string
	expiry time.Time

	// now is a test seam; defaults to time.Now.
	now func() time.Time
}

// NewTokenCache returns an empty cache; the first Token call fetches.
func NewTokenCache() *TokenCache {
	return &TokenCache{now: time.Now}
}

// Token returns the cached token when still valid, otherwise calls fetch
// to obtain a fresh one and caches it with the reported lifetime. Only one
// goroutine fetches at a time; the others wait and reuse the result.
func (c *TokenCache) Token(ctx context.Context, fetch func(ctx context.Context) (string, time.Duration, error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Add(tokenRefreshMargin).Before(c.expiry) {
		return c.token, nil
	}

	token, ttl, err := fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expiry = c.now().Add(ttl)
	return token, nil
}
