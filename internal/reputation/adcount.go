// Package reputation screens trade partners by how many public trade ads
// they keep open.
package reputation

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// DefaultTTL is how long an observed ad count stays fresh.
const DefaultTTL = 600 * time.Second

// Source looks up a user's live ad count.
type Source interface {
	TradeAdCount(ctx context.Context, userID int64) (int, error)
}

// AdCountCache serves ad counts from store while they are fresh and
// refetches from source once they are older than the TTL.
type AdCountCache struct {
	store  domain.AdCountStore
	source Source
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewAdCountCache wires a cache in front of source. A nil logger uses
// slog.Default.
func NewAdCountCache(store domain.AdCountStore, source Source, ttl time.Duration, logger *slog.Logger) *AdCountCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdCountCache{
		store:  store,
		source: source,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.With(slog.String("component", "reputation")),
	}
}

// WithClock replaces time.Now.
func (c *AdCountCache) WithClock(now func() time.Time) *AdCountCache {
	c.now = now
	return c
}

// Count returns userID's ad count. A store failure falls through to the
// live source.
func (c *AdCountCache) Count(ctx context.Context, userID int64) (int, error) {
	now := c.now()
	entry, ok, err := c.store.Get(ctx, userID)
	if err != nil {
		c.logger.WarnContext(ctx, "ad count cache read failed", slog.Int64("user_id", userID), slog.String("error", err.Error()))
	}
	if err == nil && ok && now.Sub(entry.ObservedAt) <= c.ttl {
		return entry.Count, nil
	}

	count, err := c.source.TradeAdCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("reputation: fetch ad count %d: %w", userID, err)
	}
	if err := c.store.Set(ctx, userID, domain.AdCount{Count: count, ObservedAt: now}); err != nil {
		c.logger.WarnContext(ctx, "ad count cache write failed", slog.Int64("user_id", userID), slog.String("error", err.Error()))
	}
	return count, nil
}

// MemoryStore keeps observations in process. Entries never expire on their
// own; the cache decides freshness.
type MemoryStore struct {
	c *cache.Cache
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, 0)}
}

func (m *MemoryStore) Get(_ context.Context, userID int64) (domain.AdCount, bool, error) {
	v, ok := m.c.Get(strconv.FormatInt(userID, 10))
	if !ok {
		return domain.AdCount{}, false, nil
	}
	return v.(domain.AdCount), true, nil
}

func (m *MemoryStore) Set(_ context.Context, userID int64, c domain.AdCount) error {
	m.c.Set(strconv.FormatInt(userID, 10), c, cache.NoExpiration)
	return nil
}

var _ domain.AdCountStore = (*MemoryStore)(nil)
