package trader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/metrics"
	"github.com/alanyoungcy/limitedbot/internal/notify"
	"github.com/alanyoungcy/limitedbot/internal/valuation"
)

// Proposal is a synthesized offer ready to send.
type Proposal struct {
	Request domain.TradeRequest
	Best    valuation.Best
	Mode    string
}

// Negotiator builds the best offer between the operator and a partner.
type Negotiator struct {
	engine       *valuation.Engine
	state        *State
	inventory    InventorySource
	notForTrade  map[int64]bool
	notAccepting map[int64]bool
	metrics      *metrics.Recorder
}

// GiverPool lists the operator's copies that may be offered.
func (n *Negotiator) GiverPool(catalog domain.Catalog, inv domain.Inventory) []domain.Item {
	valueOnly := n.engine.Settings().Modes.ValueOnly
	return lo.FilterMap(inv.Tradeable(), func(e domain.InventoryEntry, _ int) (domain.Item, bool) {
		it, ok := catalog.Lookup(e.AssetID)
		if !ok || n.notForTrade[e.AssetID] {
			return domain.Item{}, false
		}
		if valueOnly && it.Value == 1 {
			return domain.Item{}, false
		}
		return it, true
	})
}

// ReceiverPool lists the partner's copies the operator would take.
func (n *Negotiator) ReceiverPool(catalog domain.Catalog, inv domain.Inventory) []domain.Item {
	valueOnly := n.engine.Settings().Modes.ValueOnly
	return lo.FilterMap(inv.Tradeable(), func(e domain.InventoryEntry, _ int) (domain.Item, bool) {
		it, ok := catalog.Lookup(e.AssetID)
		if !ok || it.Projected || n.notAccepting[e.AssetID] {
			return domain.Item{}, false
		}
		if valueOnly && it.Value == 1 {
			return domain.Item{}, false
		}
		return it, true
	})
}

// Propose searches for the best offer to partnerID. Counters drop the
// minimum giving total.
func (n *Negotiator) Propose(ctx context.Context, partnerID int64, counter bool) (Proposal, error) {
	self := n.state.UserID()
	catalog := n.state.Catalog()
	mine := n.state.Inventory()

	theirs, err := n.inventory.FetchInventory(ctx, partnerID)
	if err != nil {
		return Proposal{}, fmt.Errorf("trader: partner %d inventory: %w", partnerID, err)
	}

	givers := n.GiverPool(catalog, mine)
	receivers := n.ReceiverPool(catalog, theirs)
	if len(givers) == 0 || len(receivers) == 0 {
		return Proposal{}, fmt.Errorf("trader: partner %d: empty pool: %w", partnerID, domain.ErrNoViableCandidate)
	}

	s := n.engine.Settings()
	mode := valuation.MethodDowngrade
	if len(s.Modes.TradeMethods) > 0 {
		mode = lo.Sample(s.Modes.TradeMethods)
	}
	giver, receiver := s.Upgrade, s.Downgrade
	if mode != valuation.MethodUpgrade {
		giver, receiver = s.Downgrade, s.Upgrade
	}
	opts := valuation.GenerateOptions{
		GiverMin:       giver.MinItems,
		GiverMax:       giver.MaxItems,
		ReceiverMin:    receiver.MinItems,
		ReceiverMax:    receiver.MaxItems,
		Mode:           mode,
		MaxPairs:       s.Performance.MaxPairs,
		MinGivingTotal: s.Thresholds.MinTradeSendValueTotal,
	}
	if counter {
		opts.MinGivingTotal = 0
	}

	start := time.Now()
	best, err := n.engine.FindBest(ctx, givers, receivers, opts, false)
	n.metrics.Search(time.Since(start), best.Considered)
	if err != nil {
		return Proposal{}, fmt.Errorf("trader: partner %d (%s): %w", partnerID, mode, err)
	}

	giving, err := pickCopies(mine.Tradeable(), best.Candidate.Giving)
	if err != nil {
		return Proposal{}, err
	}
	receiving, err := pickCopies(theirs.Tradeable(), best.Candidate.Receiving)
	if err != nil {
		return Proposal{}, err
	}

	return Proposal{
		Request: domain.TradeRequest{
			SenderID:      self,
			SenderAssets:  giving,
			PartnerID:     partnerID,
			PartnerAssets: receiving,
		},
		Best: best,
		Mode: mode,
	}, nil
}

// pickCopies maps chosen items to distinct user asset ids.
func pickCopies(entries []domain.InventoryEntry, items []domain.Item) ([]int64, error) {
	used := make(map[int64]bool, len(items))
	out := make([]int64, 0, len(items))
	for _, it := range items {
		e, ok := lo.Find(entries, func(e domain.InventoryEntry) bool {
			return e.AssetID == it.ID && !used[e.UserAssetID]
		})
		if !ok {
			return nil, fmt.Errorf("trader: no free copy of %q: %w", it.Name, domain.ErrUnknownItem)
		}
		used[e.UserAssetID] = true
		out = append(out, e.UserAssetID)
	}
	return out, nil
}

// proposalRecord describes a sent proposal for notifications.
func proposalRecord(tradeID int64, status string, p Proposal, catalog domain.Catalog, at time.Time) domain.TradeRecord {
	side := func(items []domain.Item) domain.OfferSide {
		return domain.OfferSide{Assets: lo.Map(items, func(it domain.Item, _ int) domain.OfferAsset {
			return domain.OfferAsset{AssetID: it.ID, Name: it.Name, RAP: it.RAP}
		})}
	}
	return domain.NewTradeRecord(domain.OfferDetail{
		ID:        tradeID,
		Status:    status,
		Created:   at,
		PartnerID: p.Request.PartnerID,
		Giving:    side(p.Best.Candidate.Giving),
		Receiving: side(p.Best.Candidate.Receiving),
	}, catalog)
}

// awaitTradeable reports whether offers may be synthesized. When the whole
// inventory is one item on hold it pauses trading, and the actor that
// claimed the pause waits here until the hold lifts.
func (b *Bot) awaitTradeable(ctx context.Context) (bool, error) {
	if b.state.Paused() {
		return false, nil
	}
	held, ok := b.state.Inventory().OnlyHeld()
	if !ok {
		return true, nil
	}
	if !b.state.TryPause() {
		return false, nil
	}

	name := held.Name
	if it, ok := b.state.Catalog().Lookup(held.AssetID); ok {
		name = it.Name
	}
	b.logger.InfoContext(ctx, "inventory on hold, trade search paused", slog.String("item", name))
	b.alert(ctx, domain.EventHoldPaused, notify.HoldPausedMessage(name))
	b.publish(ctx, domain.EventHoldPaused, 0, 0, map[string]any{"item": name})

	for {
		if !sleepCtx(ctx, b.cfg.Timings.HoldRecheck) {
			return false, ctx.Err()
		}
		if err := b.RefreshInventory(ctx); err != nil {
			b.logger.WarnContext(ctx, "hold recheck failed", slog.String("error", err.Error()))
			continue
		}
		if _, still := b.state.Inventory().OnlyHeld(); !still {
			break
		}
	}

	if b.state.Resume() {
		b.logger.InfoContext(ctx, "trade search resumed")
		b.alert(ctx, domain.EventHoldResumed, notify.HoldResumedMessage())
		b.publish(ctx, domain.EventHoldResumed, 0, 0, nil)
	}
	return true, nil
}
