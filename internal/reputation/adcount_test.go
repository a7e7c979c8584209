package reputation_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/reputation"
)

type countingSource struct {
	calls  int
	counts []int
	err    error
}

func (s *countingSource) TradeAdCount(context.Context, int64) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n := s.counts[min(s.calls, len(s.counts)-1)]
	s.calls++
	return n, nil
}

func TestAdCountCacheTTL(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	now := start

	src := &countingSource{counts: []int{3, 8}}
	c := reputation.NewAdCountCache(reputation.NewMemoryStore(), src, 600*time.Second, nil).
		WithClock(func() time.Time { return now })

	n, err := c.Count(ctx, 42)
	rq.NoError(err)
	rq.Equal(3, n)
	rq.Equal(1, src.calls)

	now = start.Add(599 * time.Second)
	n, err = c.Count(ctx, 42)
	rq.NoError(err)
	rq.Equal(3, n)
	rq.Equal(1, src.calls)

	now = start.Add(601 * time.Second)
	n, err = c.Count(ctx, 42)
	rq.NoError(err)
	rq.Equal(8, n)
	rq.Equal(2, src.calls)
}

func TestAdCountCacheSourceFailure(t *testing.T) {
	rq := require.New(t)
	src := &countingSource{err: errors.New("boom")}
	c := reputation.NewAdCountCache(reputation.NewMemoryStore(), src, time.Minute, nil)

	_, err := c.Count(context.Background(), 1)
	rq.Error(err)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, int64) (domain.AdCount, bool, error) {
	return domain.AdCount{}, false, errors.New("redis down")
}

func (brokenStore) Set(context.Context, int64, domain.AdCount) error {
	return errors.New("redis down")
}

func TestAdCountCacheStoreFailureLogs(t *testing.T) {
	rq := require.New(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	src := &countingSource{counts: []int{5}}
	c := reputation.NewAdCountCache(brokenStore{}, src, time.Minute, logger)

	n, err := c.Count(context.Background(), 7)
	rq.NoError(err)
	rq.Equal(5, n)
	rq.Contains(buf.String(), "ad count cache read failed")
	rq.Contains(buf.String(), "ad count cache write failed")
	rq.Contains(buf.String(), `"component":"reputation"`)
}

func TestFilter(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	testCases := []struct {
		name    string
		ceiling int
		count   int
		want    bool
	}{
		{name: "disabled", ceiling: 0, count: 50, want: true},
		{name: "under ceiling", ceiling: 10, count: 4, want: true},
		{name: "at ceiling", ceiling: 10, count: 10, want: true},
		{name: "over ceiling", ceiling: 10, count: 11, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(*testing.T) {
			src := &countingSource{counts: []int{tc.count}}
			f := reputation.NewFilter(reputation.NewAdCountCache(reputation.NewMemoryStore(), src, time.Minute, nil), tc.ceiling)
			ok, _, err := f.Allow(ctx, 7)
			rq.NoError(err)
			rq.Equal(tc.want, ok)
		})
	}

	var nilFilter *reputation.Filter
	ok, _, err := nilFilter.Allow(ctx, 7)
	rq.NoError(err)
	rq.True(ok)
}
