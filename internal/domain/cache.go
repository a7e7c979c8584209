package domain

import (
	"context"
	"time"
)

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// AdCount is an observed count of a user's public trade ads.
type AdCount struct {
	Count      int
	ObservedAt time.Time
}

// AdCountStore keeps the last observation per user. Staleness is decided by
// the caller.
type AdCountStore interface {
	Get(ctx context.Context, userID int64) (AdCount, bool, error)
	Set(ctx context.Context, userID int64, c AdCount) error
}

// QuotaState is the persisted form of the trade quota window.
type QuotaState struct {
	Actions       []time.Time
	CooldownUntil time.Time
}

// QuotaStore persists the trade quota window across restarts.
type QuotaStore interface {
	Load(ctx context.Context, since time.Time) (QuotaState, error)
	RecordAction(ctx context.Context, at time.Time) error
	SetCooldown(ctx context.Context, until time.Time) error
}
