package trader

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/notify"
)

var finishedDirs = []domain.OfferDirection{domain.OfferCompleted, domain.OfferInactive}

// CheckFinished reports completed and inactive trades that appeared since
// the last pass and refreshes the catalog after every completed-offers
// listing. The first pass only records what already exists. A trade whose
// report fails stays unseen and is retried on the next pass.
func (b *Bot) CheckFinished(ctx context.Context) error {
	if !b.seen.Seeded() {
		for _, dir := range finishedDirs {
			page, err := b.deps.Trading.ListOffers(ctx, dir, "", pageSize)
			if err != nil {
				return fmt.Errorf("trader: seed %s: %w", dir, err)
			}
			for _, o := range page.Offers {
				b.seen.Mark(o.ID)
			}
		}
		b.seen.SetSeeded()
		b.logger.InfoContext(ctx, "trade watcher seeded")
		return nil
	}

	for _, dir := range finishedDirs {
		page, err := b.deps.Trading.ListOffers(ctx, dir, "", pageSize)
		if err != nil {
			return fmt.Errorf("trader: list %s: %w", dir, err)
		}

		// Pages are newest first; report in chronological order.
		for _, o := range slices.Backward(page.Offers) {
			if !b.seen.Mark(o.ID) {
				continue
			}
			if err := b.reportFinished(ctx, dir, o.ID); err != nil {
				b.seen.Unmark(o.ID)
				if k := domain.KindOf(err); k == domain.FailureAuth || k == domain.FailureShutdown {
					return err
				}
				b.logger.WarnContext(ctx, "finished trade report failed",
					slog.Int64("trade_id", o.ID),
					slog.String("error", err.Error()),
				)
			}
		}

		if dir == domain.OfferCompleted {
			if err := b.RefreshCatalog(ctx); err != nil {
				b.logger.WarnContext(ctx, "post-trade refresh failed", slog.String("error", err.Error()))
			}
		}
	}
	return nil
}

func (b *Bot) reportFinished(ctx context.Context, dir domain.OfferDirection, id int64) error {
	detail, err := b.deps.Trading.GetOffer(ctx, id)
	if err != nil {
		return fmt.Errorf("trader: finished %d: %w", id, err)
	}
	rec := domain.NewTradeRecord(detail, b.state.Catalog())

	kind, status := domain.EventTradeCompleted, "Completed"
	if dir == domain.OfferInactive {
		kind, status = domain.EventTradeInactive, "Inactive"
	}
	if rec.Status == "" {
		rec.Status = status
	}

	if b.deps.Recorder != nil {
		if err := b.deps.Recorder.Record(ctx, rec); err != nil {
			b.logger.WarnContext(ctx, "trade history write failed",
				slog.Int64("trade_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	b.logger.InfoContext(ctx, "trade finished",
		slog.String("status", status),
		slog.Int64("trade_id", id),
		slog.String("kind", string(rec.Kind)),
		slog.Int64("profit", rec.Profit),
	)
	b.alert(ctx, kind, notify.TradeMessage(status, rec))
	b.publish(ctx, kind, id, rec.PartnerID, map[string]any{
		"kind":   string(rec.Kind),
		"profit": rec.Profit,
	})
	return nil
}
