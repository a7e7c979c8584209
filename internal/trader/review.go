package trader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/notify"
	"github.com/alanyoungcy/limitedbot/internal/valuation"
)

// eachOffer pages through dir and calls fn per offer. Per-offer failures
// are logged and skipped, except auth loss and shutdown which end the pass.
func (b *Bot) eachOffer(ctx context.Context, dir domain.OfferDirection, fn func(context.Context, domain.OfferSummary) error) error {
	cursor := ""
	for {
		page, err := b.deps.Trading.ListOffers(ctx, dir, cursor, pageSize)
		if err != nil {
			return fmt.Errorf("trader: list %s: %w", dir, err)
		}
		for _, o := range page.Offers {
			if err := fn(ctx, o); err != nil {
				switch domain.KindOf(err) {
				case domain.FailureAuth, domain.FailureShutdown:
					return err
				case domain.FailureSkip, domain.FailureEmpty:
					b.logger.DebugContext(ctx, "offer skipped",
						slog.String("direction", string(dir)),
						slog.Int64("trade_id", o.ID),
						slog.String("reason", err.Error()),
					)
				default:
					b.logger.WarnContext(ctx, "offer review failed",
						slog.String("direction", string(dir)),
						slog.Int64("trade_id", o.ID),
						slog.String("error", err.Error()),
					)
				}
			}
			pause := b.cfg.Timings.OfferPause
			if dir == domain.OfferInbound {
				pause = b.cfg.Timings.TradePause
			}
			if !sleepCtx(ctx, pause) {
				return ctx.Err()
			}
		}
		if page.NextCursor == "" {
			return nil
		}
		cursor = page.NextCursor
		if !sleepCtx(ctx, b.cfg.Timings.PagePause) {
			return ctx.Err()
		}
	}
}

// resolve maps both sides of an offer to catalog items.
func (b *Bot) resolve(detail domain.OfferDetail) (giving, receiving []domain.Item, err error) {
	if detail.HasRobux() {
		return nil, nil, fmt.Errorf("trader: trade %d: %w", detail.ID, domain.ErrRobuxOffer)
	}
	catalog := b.state.Catalog()
	lookup := func(side domain.OfferSide) ([]domain.Item, error) {
		items := make([]domain.Item, 0, len(side.Assets))
		for _, a := range side.Assets {
			it, ok := catalog.Lookup(a.AssetID)
			if !ok {
				return nil, fmt.Errorf("trader: trade %d: asset %d: %w", detail.ID, a.AssetID, domain.ErrUnknownItem)
			}
			items = append(items, it)
		}
		return items, nil
	}
	if giving, err = lookup(detail.Giving); err != nil {
		return nil, nil, err
	}
	if receiving, err = lookup(detail.Receiving); err != nil {
		return nil, nil, err
	}
	return giving, receiving, nil
}

// denylisted reports whether the offer gives away a not-for-trade item or
// takes in a not-accepting one.
func (b *Bot) denylisted(giving, receiving []domain.Item) bool {
	for _, it := range giving {
		if b.notForTrade[it.ID] {
			return true
		}
	}
	for _, it := range receiving {
		if b.notAccepting[it.ID] {
			return true
		}
	}
	return false
}

func (b *Bot) decline(ctx context.Context, dir domain.OfferDirection, detail domain.OfferDetail, reason string) error {
	if err := b.deps.Trading.DeclineOffer(ctx, detail.ID); err != nil {
		b.deps.Metrics.OfferReviewed(string(dir), "decline_failed")
		if dir == domain.OfferOutbound {
			b.alert(ctx, domain.EventOfferDeclined, notify.TextMessage(
				fmt.Sprintf("Failed to decline outbound trade %d: %v", detail.ID, err)))
		}
		return fmt.Errorf("trader: decline %d: %w", detail.ID, err)
	}
	b.deps.Metrics.OfferReviewed(string(dir), "declined")
	b.logger.InfoContext(ctx, "offer declined",
		slog.String("direction", string(dir)),
		slog.Int64("trade_id", detail.ID),
		slog.String("reason", reason),
	)
	b.publish(ctx, domain.EventOfferDeclined, detail.ID, detail.PartnerID, map[string]any{
		"direction": string(dir),
		"reason":    reason,
	})
	return nil
}

// ReviewOutbound declines outgoing offers that no longer make sense.
func (b *Bot) ReviewOutbound(ctx context.Context) error {
	return b.eachOffer(ctx, domain.OfferOutbound, b.reviewOutbound)
}

func (b *Bot) reviewOutbound(ctx context.Context, o domain.OfferSummary) error {
	detail, err := b.deps.Trading.GetOffer(ctx, o.ID)
	if err != nil {
		return fmt.Errorf("trader: outbound %d: %w", o.ID, err)
	}
	giving, receiving, err := b.resolve(detail)
	if err != nil {
		return err
	}
	if b.denylisted(giving, receiving) {
		return b.decline(ctx, domain.OfferOutbound, detail, "denylisted")
	}
	v := b.deps.Engine.Evaluate(valuation.Candidate{Giving: giving, Receiving: receiving}, true)
	if v.Decision == valuation.Keep {
		b.deps.Metrics.OfferReviewed(string(domain.OfferOutbound), "kept")
		return nil
	}
	return b.decline(ctx, domain.OfferOutbound, detail, "no longer profitable")
}

// ReviewInbound accepts good offers and counters or declines the rest.
func (b *Bot) ReviewInbound(ctx context.Context) error {
	return b.eachOffer(ctx, domain.OfferInbound, b.reviewInbound)
}

func (b *Bot) reviewInbound(ctx context.Context, o domain.OfferSummary) error {
	detail, err := b.deps.Trading.GetOffer(ctx, o.ID)
	if err != nil {
		return fmt.Errorf("trader: inbound %d: %w", o.ID, err)
	}
	giving, receiving, err := b.resolve(detail)
	if err != nil {
		return err
	}
	if b.denylisted(giving, receiving) {
		return b.decline(ctx, domain.OfferInbound, detail, "denylisted")
	}

	allowed, count, err := b.deps.Filter.Allow(ctx, detail.PartnerID)
	if err != nil {
		b.logger.WarnContext(ctx, "ad count lookup failed",
			slog.Int64("partner_id", detail.PartnerID),
			slog.String("error", err.Error()),
		)
	}
	if !allowed {
		return b.decline(ctx, domain.OfferInbound, detail, fmt.Sprintf("partner has %d open ads", count))
	}

	v := b.deps.Engine.Evaluate(valuation.Candidate{Giving: giving, Receiving: receiving}, false)
	if v.Decision == valuation.Keep {
		if err := b.deps.Trading.AcceptOffer(ctx, detail.ID); err != nil {
			return fmt.Errorf("trader: accept %d: %w", detail.ID, err)
		}
		b.deps.Metrics.OfferReviewed(string(domain.OfferInbound), "accepted")
		b.logger.InfoContext(ctx, "offer accepted",
			slog.Int64("trade_id", detail.ID),
			slog.Float64("giving_score", v.GivingScore),
			slog.Float64("receiving_score", v.ReceivingScore),
		)
		b.publish(ctx, domain.EventOfferAccepted, detail.ID, detail.PartnerID, map[string]any{"profit": v.Profit()})
		return nil
	}

	if b.cfg.CounterOffers {
		sent, err := b.counter(ctx, detail)
		if err != nil {
			return err
		}
		if sent {
			return nil
		}
	}
	return b.decline(ctx, domain.OfferInbound, detail, "rejected")
}

// counter synthesizes and sends a counter offer. It reports whether one
// was sent; only auth loss and shutdown are returned as errors.
func (b *Bot) counter(ctx context.Context, detail domain.OfferDetail) (bool, error) {
	if ok, err := b.awaitTradeable(ctx); !ok {
		return false, err
	}
	res, err := b.deps.Gate.Acquire()
	if err != nil {
		b.quotaDenied(ctx, err)
		return false, nil
	}

	p, err := b.neg.Propose(ctx, detail.PartnerID, true)
	if err != nil {
		res.Release()
		if k := domain.KindOf(err); k == domain.FailureAuth || k == domain.FailureShutdown {
			return false, err
		}
		b.logger.DebugContext(ctx, "no counter found", slog.Int64("trade_id", detail.ID), slog.String("reason", err.Error()))
		return false, nil
	}

	newID, err := b.deps.Trading.CounterOffer(ctx, detail.ID, p.Request)
	switch {
	case err == nil:
		res.Commit()
		b.quotaUsed()
		b.deps.Metrics.TradeSent("counter", "ok")
		b.announce(ctx, domain.EventOfferCountered, "Countered", newID, p)
		return true, nil
	case errors.Is(err, domain.ErrRateLimited):
		until := res.RateLimited()
		b.deps.Metrics.TradeSent("counter", "rate_limited")
		b.rateLimited(ctx, until)
		return false, nil
	default:
		res.Release()
		b.deps.Metrics.TradeSent("counter", "error")
		b.alert(ctx, domain.EventOfferCountered, notify.TextMessage(
			fmt.Sprintf("Failed to counter trade %d: %v", detail.ID, err)))
		if domain.KindOf(err) == domain.FailureAuth {
			return false, err
		}
		return false, nil
	}
}

// announce reports a sent offer or counter.
func (b *Bot) announce(ctx context.Context, kind domain.EventKind, status string, tradeID int64, p Proposal) {
	rec := proposalRecord(tradeID, status, p, b.state.Catalog(), b.now())
	b.logger.InfoContext(ctx, "offer sent",
		slog.String("kind", status),
		slog.Int64("trade_id", tradeID),
		slog.Int64("partner_id", p.Request.PartnerID),
		slog.String("mode", p.Mode),
		slog.Float64("profit", p.Best.Verdict.Profit()),
	)
	b.alert(ctx, kind, notify.TradeMessage(status, rec))
	b.publish(ctx, kind, tradeID, p.Request.PartnerID, map[string]any{
		"mode":   p.Mode,
		"profit": rec.Profit,
	})
}
