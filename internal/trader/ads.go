package trader

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/samber/lo"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/platform/rolimons"
)

const maxAdItems = 4

// PostAd publishes one trade ad: a random configured one when any is still
// valid, otherwise one built from the operator's tradeable items.
func (b *Bot) PostAd(ctx context.Context) error {
	inv := b.state.Inventory()
	ad, ok := b.configuredAd(ctx, inv)
	if !ok {
		ad, ok = b.generatedAd(inv)
	}
	if !ok {
		b.logger.DebugContext(ctx, "nothing to advertise")
		return nil
	}
	ad.PlayerID = b.state.UserID()

	if err := b.deps.AdNetwork.PostAd(ctx, ad); err != nil {
		return fmt.Errorf("trader: post ad: %w", err)
	}
	b.logger.InfoContext(ctx, "trade ad posted",
		slog.Any("offer", ad.OfferItemIDs),
		slog.Any("request", ad.RequestItemIDs),
		slog.Any("tags", ad.RequestTags),
	)
	b.publish(ctx, domain.EventAdPosted, 0, 0, map[string]any{"offer": ad.OfferItemIDs})
	return nil
}

// configuredAd picks a random template, retiring those that can no longer
// be honoured.
func (b *Bot) configuredAd(ctx context.Context, inv domain.Inventory) (rolimons.Ad, bool) {
	b.adsMu.Lock()
	defer b.adsMu.Unlock()

	for len(b.ads) > 0 {
		i := rand.IntN(len(b.ads))
		t := b.ads[i]
		if b.adValid(t, inv) {
			return rolimons.Ad{
				OfferItemIDs:   slices.Clone(t.OfferItemIDs),
				RequestItemIDs: slices.Clone(t.RequestItemIDs),
				RequestTags:    slices.Clone(t.RequestTags),
			}, true
		}
		b.logger.InfoContext(ctx, "trade ad retired", slog.Any("offer", t.OfferItemIDs))
		b.ads = slices.Delete(b.ads, i, i+1)
	}
	return rolimons.Ad{}, false
}

func (b *Bot) adValid(t AdTemplate, inv domain.Inventory) bool {
	if len(t.OfferItemIDs) == 0 {
		return false
	}
	for _, id := range t.OfferItemIDs {
		if !inv.Owns(id) || b.notForTrade[id] {
			return false
		}
	}
	for _, id := range t.RequestItemIDs {
		if b.notAccepting[id] {
			return false
		}
	}
	return true
}

func (b *Bot) generatedAd(inv domain.Inventory) (rolimons.Ad, bool) {
	catalog := b.state.Catalog()
	ids := lo.Uniq(lo.FilterMap(inv.Tradeable(), func(e domain.InventoryEntry, _ int) (int64, bool) {
		_, known := catalog.Lookup(e.AssetID)
		return e.AssetID, known && !b.notForTrade[e.AssetID]
	}))
	if len(ids) == 0 {
		return rolimons.Ad{}, false
	}
	return rolimons.Ad{
		OfferItemIDs: lo.Samples(ids, maxAdItems),
		RequestTags:  lo.Samples(b.cfg.AdTags, maxAdItems),
	}, true
}
