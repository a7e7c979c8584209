package trader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// actor is one periodic loop.
type actor struct {
	name      string
	every     time.Duration
	retry     time.Duration
	authPause time.Duration
	// session marks loops that talk to Roblox with the operator cookie.
	session bool
	pass    func(context.Context) error
}

// loop runs act.pass until ctx is done. Failures never escape: they are
// classified and turned into a wait.
func (b *Bot) loop(ctx context.Context, act actor) error {
	log := b.logger.With(slog.String("actor", act.name))
	log.InfoContext(ctx, "actor started", slog.Duration("every", act.every))

	for {
		wait := act.every
		if err := runPass(ctx, act.pass); err != nil {
			wait = b.failed(ctx, act.name, err, act.retry, act.authPause)
		} else if act.session {
			b.authOK(ctx)
		}
		if !sleepCtx(ctx, wait) {
			log.InfoContext(ctx, "actor stopped")
			return nil
		}
	}
}

func runPass(ctx context.Context, pass func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("trader: panic: %v", r)
		}
	}()
	return pass(ctx)
}

// failed logs err and returns how long the actor should wait.
func (b *Bot) failed(ctx context.Context, name string, err error, retry, authPause time.Duration) time.Duration {
	kind := domain.KindOf(err)
	b.deps.Metrics.ActorFailure(name, kind.String())
	log := b.logger.With(slog.String("actor", name), slog.String("kind", kind.String()))

	switch kind {
	case domain.FailureShutdown:
		return 0
	case domain.FailureAuth:
		b.authLost(ctx)
		log.WarnContext(ctx, "actor paused", slog.Duration("pause", authPause), slog.String("error", err.Error()))
		return authPause
	case domain.FailureRateLimited:
		log.InfoContext(ctx, "rate limited", slog.String("error", err.Error()))
		return retry
	case domain.FailureSkip, domain.FailureEmpty:
		log.DebugContext(ctx, "pass skipped", slog.String("error", err.Error()))
		return retry
	default:
		log.WarnContext(ctx, "pass failed", slog.String("error", err.Error()))
		return retry
	}
}

// sleepCtx waits d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
