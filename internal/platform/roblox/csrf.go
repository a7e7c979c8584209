package roblox

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultTokenMaxAge is how long a csrf token is reused before it is
// derived again.
const DefaultTokenMaxAge = 120 * time.Second

// TokenSource caches the anti-forgery token and regenerates it once it is
// older than maxAge.
type TokenSource struct {
	fetch  func(context.Context) (string, error)
	maxAge time.Duration
	now    func() time.Time

	mu        sync.Mutex
	token     string
	fetchedAt time.Time
}

// NewTokenSource returns a TokenSource backed by fetch.
func NewTokenSource(fetch func(context.Context) (string, error), maxAge time.Duration) *TokenSource {
	return &TokenSource{fetch: fetch, maxAge: maxAge, now: time.Now}
}

// Token returns the cached token, fetching a new one when stale.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	token, fetchedAt := t.token, t.fetchedAt
	t.mu.Unlock()

	if token != "" && t.now().Sub(fetchedAt) < t.maxAge {
		return token, nil
	}
	return t.Refresh(ctx)
}

// Refresh unconditionally derives a new token.
func (t *TokenSource) Refresh(ctx context.Context) (string, error) {
	token, err := t.fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("roblox: csrf token: %w", err)
	}
	t.Set(token)
	return token, nil
}

// Set stores a token handed out by the server.
func (t *TokenSource) Set(token string) {
	t.mu.Lock()
	t.token = token
	t.fetchedAt = t.now()
	t.mu.Unlock()
}
