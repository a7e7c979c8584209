// Package memory holds in-process stand-ins for the Redis caches, used when
// the bot runs without Redis.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// RateLimiter is a fixed-window counter keyed by caller and window start.
// Expired windows are evicted by go-cache's janitor.
type RateLimiter struct {
	mu      sync.Mutex
	windows *cache.Cache
	now     func() time.Time
}

// NewRateLimiter creates an empty limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{windows: cache.New(time.Minute, 5*time.Minute), now: time.Now}
}

// Allow counts one request against key and reports whether it stays within
// limit for the current window.
func (l *RateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if window <= 0 {
		window = time.Second
	}
	now := l.now()
	start := now.Truncate(window)
	bucket := key + ":" + strconv.FormatInt(start.UnixNano(), 10)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.windows.Add(bucket, 1, start.Add(window).Sub(now)+time.Second); err == nil {
		return limit >= 1, nil
	}
	n, err := l.windows.IncrementInt(bucket, 1)
	if err != nil {
		return false, err
	}
	return n <= limit, nil
}

// Wait blocks until key has budget for one request per second.
func (l *RateLimiter) Wait(ctx context.Context, key string) error {
	for {
		ok, err := l.Allow(ctx, key, 1, time.Second)
		if err != nil || ok {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
