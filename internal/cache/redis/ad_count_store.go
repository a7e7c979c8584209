package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

const (
	fieldCount    = "count"
	fieldObserved = "observed_at"
)

// AdCountStore implements domain.AdCountStore with one hash per user. Keys
// expire after keep so abandoned entries do not accumulate.
type AdCountStore struct {
	rdb  *redis.Client
	keep time.Duration
}

// NewAdCountStore creates an AdCountStore. keep should exceed the cache TTL.
func NewAdCountStore(c *Client, keep time.Duration) *AdCountStore {
	return &AdCountStore{rdb: c.Underlying(), keep: keep}
}

func adCountKey(userID int64) string {
	return key("adcount", strconv.FormatInt(userID, 10))
}

// Get returns the stored observation for userID, if any.
func (s *AdCountStore) Get(ctx context.Context, userID int64) (domain.AdCount, bool, error) {
	vals, err := s.rdb.HGetAll(ctx, adCountKey(userID)).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(vals) == 0) {
		return domain.AdCount{}, false, nil
	}
	if err != nil {
		return domain.AdCount{}, false, fmt.Errorf("redis: get ad count %d: %w", userID, err)
	}
	c, err := decodeAdCount(vals)
	if err != nil {
		return domain.AdCount{}, false, fmt.Errorf("redis: ad count %d: %w", userID, err)
	}
	return c, true, nil
}

// Set stores c for userID.
func (s *AdCountStore) Set(ctx context.Context, userID int64, c domain.AdCount) error {
	k := adCountKey(userID)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, k, encodeAdCount(c))
		p.Expire(ctx, k, s.keep)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: set ad count %d: %w", userID, err)
	}
	return nil
}

func encodeAdCount(c domain.AdCount) map[string]any {
	return map[string]any{
		fieldCount:    c.Count,
		fieldObserved: c.ObservedAt.UnixMilli(),
	}
}

func decodeAdCount(vals map[string]string) (domain.AdCount, error) {
	n, err := strconv.Atoi(vals[fieldCount])
	if err != nil {
		return domain.AdCount{}, fmt.Errorf("%w: count %q", domain.ErrMalformedResponse, vals[fieldCount])
	}
	ms, err := strconv.ParseInt(vals[fieldObserved], 10, 64)
	if err != nil {
		return domain.AdCount{}, fmt.Errorf("%w: observed_at %q", domain.ErrMalformedResponse, vals[fieldObserved])
	}
	return domain.AdCount{Count: n, ObservedAt: time.UnixMilli(ms)}, nil
}

var _ domain.AdCountStore = (*AdCountStore)(nil)
