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

// QuotaStore implements domain.QuotaStore. Actions live in a sorted set
// scored by unix milliseconds; the cooldown is a plain key.
type QuotaStore struct {
	rdb     *redis.Client
	actions string
	cool    string
	// retention bounds how long recorded actions are kept.
	retention time.Duration
}

// NewQuotaStore creates a QuotaStore for the given account. Actions older
// than retention are trimmed on every write.
func NewQuotaStore(c *Client, account string, retention time.Duration) *QuotaStore {
	return &QuotaStore{
		rdb:       c.Underlying(),
		actions:   key("quota", account, "actions"),
		cool:      key("quota", account, "cooldown"),
		retention: retention,
	}
}

// Load returns the actions recorded at or after since, oldest first, plus
// any pending cooldown.
func (s *QuotaStore) Load(ctx context.Context, since time.Time) (domain.QuotaState, error) {
	var st domain.QuotaState

	scores, err := s.rdb.ZRangeByScoreWithScores(ctx, s.actions, &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return st, fmt.Errorf("redis: load quota actions: %w", err)
	}
	for _, z := range scores {
		st.Actions = append(st.Actions, time.UnixMilli(int64(z.Score)))
	}

	raw, err := s.rdb.Get(ctx, s.cool).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return st, fmt.Errorf("redis: load quota cooldown: %w", err)
	default:
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return st, fmt.Errorf("redis: quota cooldown %q: %w", raw, domain.ErrMalformedResponse)
		}
		st.CooldownUntil = time.UnixMilli(ms)
	}
	return st, nil
}

// RecordAction appends one committed action.
func (s *QuotaStore) RecordAction(ctx context.Context, at time.Time) error {
	ms := at.UnixMilli()
	member := strconv.FormatInt(at.UnixNano(), 10)
	cutoff := strconv.FormatInt(at.Add(-s.retention).UnixMilli(), 10)

	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, s.actions, redis.Z{Score: float64(ms), Member: member})
		p.ZRemRangeByScore(ctx, s.actions, "-inf", "("+cutoff)
		p.Expire(ctx, s.actions, s.retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: record quota action: %w", err)
	}
	return nil
}

// SetCooldown stores until; it expires on its own once passed.
func (s *QuotaStore) SetCooldown(ctx context.Context, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return s.rdb.Del(ctx, s.cool).Err()
	}
	if err := s.rdb.Set(ctx, s.cool, until.UnixMilli(), ttl).Err(); err != nil {
		return fmt.Errorf("redis: set quota cooldown: %w", err)
	}
	return nil
}

var _ domain.QuotaStore = (*QuotaStore)(nil)
