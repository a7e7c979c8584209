package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

//go:embed scripts/sliding_window.lua
var slidingWindowLua string

const waitPollInterval = 50 * time.Millisecond

// RateLimiter implements domain.RateLimiter with a sorted-set sliding window
// evaluated atomically in Lua. The status API uses it per client address.
type RateLimiter struct {
	rdb    *redis.Client
	script *redis.Script
	// Wait admits waitLimit requests per waitWindow.
	waitLimit  int
	waitWindow time.Duration
}

// NewRateLimiter creates a RateLimiter. Wait defaults to one request per
// second.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{
		rdb:        c.Underlying(),
		script:     redis.NewScript(slidingWindowLua),
		waitLimit:  1,
		waitWindow: time.Second,
	}
}

// Allow counts a request against key and reports whether it fits in the
// window.
func (rl *RateLimiter) Allow(ctx context.Context, k string, limit int, window time.Duration) (bool, error) {
	res, err := rl.script.Run(ctx, rl.rdb,
		[]string{key("ratelimit", k)},
		time.Now().UnixMicro(),
		window.Microseconds(),
		limit,
	).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit %s: %w", k, err)
	}
	if len(res) != 2 {
		return false, fmt.Errorf("redis: rate limit %s: %w: %d results", k, domain.ErrMalformedResponse, len(res))
	}
	return res[0] == 1, nil
}

// Wait polls Allow until key is admitted or ctx ends.
func (rl *RateLimiter) Wait(ctx context.Context, k string) error {
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()
	for {
		ok, err := rl.Allow(ctx, k, rl.waitLimit, rl.waitWindow)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("redis: rate limit wait %s: %w", k, ctx.Err())
		case <-ticker.C:
		}
	}
}

var _ domain.RateLimiter = (*RateLimiter)(nil)
