package trader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/notify"
)

// RefreshCatalog fetches fresh values, merges manual items and overrides,
// swaps the catalog and refreshes the operator's inventory.
func (b *Bot) RefreshCatalog(ctx context.Context) error {
	fetched, err := b.deps.Pricing.FetchCatalog(ctx)
	if err != nil {
		if b.state.SetPricingBroken(true) {
			b.logger.ErrorContext(ctx, "pricing unavailable", slog.String("error", err.Error()))
			b.alert(ctx, domain.EventPricingLost, notify.ErrorMessage(notify.ErrorRolimonsFailure, b.now()))
			b.publish(ctx, domain.EventPricingLost, 0, 0, nil)
		}
		return fmt.Errorf("trader: refresh catalog: %w", err)
	}
	if b.state.SetPricingBroken(false) {
		b.logger.InfoContext(ctx, "pricing recovered")
	}

	merged := fetched.Merge(b.cfg.ManualItems)
	if b.deps.Overrides != nil {
		overrides, err := b.deps.Overrides.Load()
		if err != nil {
			b.logger.WarnContext(ctx, "value overrides unreadable", slog.String("error", err.Error()))
		}
		for id, value := range overrides {
			if it, ok := merged[id]; ok {
				it.Value = value
				merged[id] = it
			}
		}
	}

	if b.state.SetCatalog(merged, b.now()) {
		b.logger.InfoContext(ctx, "limiteds updated", slog.Int("items", len(merged)))
		b.publish(ctx, domain.EventCatalogUpdated, 0, 0, map[string]any{"items": len(merged)})
	}
	b.deps.Metrics.CatalogSize(len(merged))

	return b.RefreshInventory(ctx)
}

// RefreshInventory reloads the operator's collectibles.
func (b *Bot) RefreshInventory(ctx context.Context) error {
	inv, err := b.deps.Inventory.FetchInventory(ctx, b.state.UserID())
	if err != nil {
		return fmt.Errorf("trader: refresh inventory: %w", err)
	}
	b.state.SetInventory(inv, b.now())
	b.deps.Metrics.InventorySize(inv.Count())
	return nil
}
