package trader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/notify"
)

type countingNotifier struct {
	mu    sync.Mutex
	kinds []domain.EventKind
}

func (n *countingNotifier) Notify(_ context.Context, kind domain.EventKind, _ notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
	return nil
}

func (n *countingNotifier) sent() []domain.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.EventKind(nil), n.kinds...)
}

func loopBot(n Notifier) *Bot {
	return &Bot{
		deps:   Deps{Notifier: n},
		state:  NewState(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
}

func TestFailedChoosesWait(t *testing.T) {
	const (
		retry     = 3 * time.Second
		authPause = time.Hour
	)
	cases := []struct {
		name  string
		err   error
		wait  time.Duration
		alert bool
	}{
		{"auth", fmt.Errorf("list: %w", domain.ErrAuthInvalid), authPause, true},
		{"transient", errors.New("dial tcp: timeout"), retry, false},
		{"rate limited", fmt.Errorf("send: %w", domain.ErrRateLimited), retry, false},
		{"quota", domain.ErrQuotaExhausted, retry, false},
		{"skip", fmt.Errorf("detail: %w", domain.ErrMalformedResponse), retry, false},
		{"empty", domain.ErrNoViableCandidate, retry, false},
		{"shutdown", context.Canceled, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)
			n := &countingNotifier{}
			b := loopBot(n)

			rq.Equal(tc.wait, b.failed(context.Background(), "test", tc.err, retry, authPause))
			if tc.alert {
				rq.Equal([]domain.EventKind{domain.EventAuthLost}, n.sent())
				rq.True(b.state.Status().CookieBroken)
			} else {
				rq.Empty(n.sent())
			}
		})
	}
}

func TestLoopAuthLossPausesAndAlertsOnce(t *testing.T) {
	rq := require.New(t)
	n := &countingNotifier{}
	b := loopBot(n)

	var calls atomic.Int32
	act := actor{
		name:      "inbound",
		every:     time.Millisecond,
		retry:     time.Millisecond,
		authPause: time.Hour,
		session:   true,
		pass: func(context.Context) error {
			calls.Add(1)
			return fmt.Errorf("inbound: %w", domain.ErrAuthInvalid)
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	rq.NoError(b.loop(ctx, act))

	rq.Equal(int32(1), calls.Load())
	rq.Equal([]domain.EventKind{domain.EventAuthLost}, n.sent())
}

func TestLoopRepeatedAuthFailuresAlertOnce(t *testing.T) {
	rq := require.New(t)
	n := &countingNotifier{}
	b := loopBot(n)

	var calls atomic.Int32
	act := actor{
		name:      "outbound",
		every:     time.Hour,
		authPause: time.Millisecond,
		pass: func(context.Context) error {
			calls.Add(1)
			return domain.ErrAuthInvalid
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	rq.NoError(b.loop(ctx, act))

	rq.Greater(calls.Load(), int32(1))
	rq.Equal([]domain.EventKind{domain.EventAuthLost}, n.sent())
}

func TestLoopRetriesTransientFailure(t *testing.T) {
	rq := require.New(t)
	n := &countingNotifier{}
	b := loopBot(n)

	var calls atomic.Int32
	act := actor{
		name:      "catalog",
		every:     time.Hour,
		retry:     time.Millisecond,
		authPause: time.Hour,
		pass: func(context.Context) error {
			if calls.Add(1) == 1 {
				return errors.New("connection reset")
			}
			return nil
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	rq.NoError(b.loop(ctx, act))

	// One failure, one retry, then the long interval.
	rq.Equal(int32(2), calls.Load())
	rq.Empty(n.sent())
}

func TestLoopRecoversPanic(t *testing.T) {
	rq := require.New(t)
	b := loopBot(&countingNotifier{})

	var calls atomic.Int32
	act := actor{
		name:  "prospector",
		every: time.Hour,
		retry: time.Millisecond,
		pass: func(context.Context) error {
			if calls.Add(1) == 1 {
				panic("nil inventory")
			}
			return nil
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	rq.NotPanics(func() { rq.NoError(b.loop(ctx, act)) })
	rq.Equal(int32(2), calls.Load())
}

func TestLoopRecoversSessionAfterSuccess(t *testing.T) {
	rq := require.New(t)
	b := loopBot(&countingNotifier{})
	b.state.SetCookieBroken(true)

	act := actor{
		name:    "inbound",
		every:   time.Hour,
		session: true,
		pass:    func(context.Context) error { return nil },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	rq.NoError(b.loop(ctx, act))
	rq.False(b.state.Status().CookieBroken)
}
