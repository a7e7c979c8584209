package trader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// Prospect sends an offer to every advertiser in the recent ad feed that
// has not been contacted lately, pausing TradePause after each attempt. An
// advertiser counts as contacted once it is filtered out or a quota slot is
// granted for it.
func (b *Bot) Prospect(ctx context.Context) error {
	ads, err := b.deps.AdNetwork.RecentAds(ctx)
	if err != nil {
		return fmt.Errorf("trader: recent ads: %w", err)
	}
	self := b.state.UserID()

	for _, ad := range ads {
		if ad.PlayerID == self || b.recent.Has(ad.PlayerID) {
			continue
		}
		if ok, err := b.awaitTradeable(ctx); !ok {
			return err
		}

		allowed, count, err := b.deps.Filter.Allow(ctx, ad.PlayerID)
		if err != nil {
			b.logger.WarnContext(ctx, "ad count lookup failed",
				slog.Int64("partner_id", ad.PlayerID),
				slog.String("error", err.Error()),
			)
		}
		if !allowed {
			b.logger.DebugContext(ctx, "advertiser filtered",
				slog.Int64("partner_id", ad.PlayerID),
				slog.Int("ads", count),
			)
			b.recent.Add(ad.PlayerID)
			if !sleepCtx(ctx, b.cfg.Timings.TradePause) {
				return ctx.Err()
			}
			continue
		}

		if err := b.sendOffer(ctx, ad.PlayerID); err != nil {
			switch domain.KindOf(err) {
			case domain.FailureAuth, domain.FailureShutdown:
				return err
			case domain.FailureRateLimited:
				return nil
			case domain.FailureEmpty, domain.FailureSkip:
				b.logger.DebugContext(ctx, "no offer for advertiser",
					slog.Int64("partner_id", ad.PlayerID),
					slog.String("reason", err.Error()),
				)
			default:
				b.logger.WarnContext(ctx, "prospect failed",
					slog.Int64("partner_id", ad.PlayerID),
					slog.String("error", err.Error()),
				)
			}
		}
		if !sleepCtx(ctx, b.cfg.Timings.TradePause) {
			return ctx.Err()
		}
	}
	return nil
}

// sendOffer proposes and sends one offer through the quota gate.
func (b *Bot) sendOffer(ctx context.Context, partnerID int64) error {
	res, err := b.deps.Gate.Acquire()
	if err != nil {
		b.quotaDenied(ctx, err)
		return err
	}
	b.recent.Add(partnerID)

	p, err := b.neg.Propose(ctx, partnerID, false)
	if err != nil {
		res.Release()
		return err
	}

	tradeID, err := b.deps.Trading.SendOffer(ctx, p.Request)
	switch {
	case err == nil:
		res.Commit()
		b.quotaUsed()
		b.deps.Metrics.TradeSent("offer", "ok")
		b.announce(ctx, domain.EventOfferSent, "Sent", tradeID, p)
		return nil
	case errors.Is(err, domain.ErrRateLimited):
		until := res.RateLimited()
		b.deps.Metrics.TradeSent("offer", "rate_limited")
		b.rateLimited(ctx, until)
		return fmt.Errorf("trader: send to %d: %w", partnerID, err)
	default:
		res.Release()
		b.deps.Metrics.TradeSent("offer", "error")
		return fmt.Errorf("trader: send to %d: %w", partnerID, err)
	}
}
