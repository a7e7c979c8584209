package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// Both scripts act only while the caller's token still owns the key.
const (
	unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`
	extendLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`
)

// LockManager implements domain.LockManager with SET NX and token-checked
// release. Locks held through Acquire are renewed at a third of their TTL
// until released, so a live process never loses its lock to expiry.
type LockManager struct {
	rdb    *redis.Client
	unlock *redis.Script
	extend *redis.Script
	logger *slog.Logger
}

// NewLockManager creates a LockManager backed by c.
func NewLockManager(c *Client, logger *slog.Logger) *LockManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &LockManager{
		rdb:    c.Underlying(),
		unlock: redis.NewScript(unlockLua),
		extend: redis.NewScript(extendLua),
		logger: logger.With(slog.String("component", "redis_lock")),
	}
}

// Acquire takes the lock named name or returns domain.ErrLockHeld. The
// returned function releases it and may be called more than once.
func (lm *LockManager) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	k := key("lock", name)

	ok, err := lm.rdb.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	renewCtx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		lm.renew(renewCtx, k, token, ttl)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			<-done
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := lm.unlock.Run(releaseCtx, lm.rdb, []string{k}, token).Err(); err != nil {
				lm.logger.Warn("lock release failed", slog.String("lock", name), slog.String("error", err.Error()))
			}
		})
	}, nil
}

func (lm *LockManager) renew(ctx context.Context, k, token string, ttl time.Duration) {
	ticker := time.NewTicker(max(ttl/3, 10*time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := lm.extend.Run(ctx, lm.rdb, []string{k}, token, ttl.Milliseconds()).Int64()
			if err != nil {
				lm.logger.Warn("lock renewal failed", slog.String("key", k), slog.String("error", err.Error()))
				continue
			}
			if n == 0 {
				lm.logger.Error("lock lost", slog.String("key", k))
				return
			}
		}
	}
}

var _ domain.LockManager = (*LockManager)(nil)
