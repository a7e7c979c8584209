package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterWindows(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter()
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "api:1.2.3.4", 3, time.Minute)
		r.NoError(err)
		r.True(ok, "request %d", i)
	}
	ok, err := l.Allow(ctx, "api:1.2.3.4", 3, time.Minute)
	r.NoError(err)
	r.False(ok)

	ok, err = l.Allow(ctx, "api:5.6.7.8", 3, time.Minute)
	r.NoError(err)
	r.True(ok, "other keys have their own budget")

	now = now.Add(time.Minute)
	ok, err = l.Allow(ctx, "api:1.2.3.4", 3, time.Minute)
	r.NoError(err)
	r.True(ok, "a new window resets the count")
}
