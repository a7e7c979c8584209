package config

import (
	"strings"

	"github.com/alanyoungcy/limitedbot/internal/trader"
)

// Trading reports whether the mode runs the offer-handling actors.
func (c *Config) Trading() bool {
	m := strings.ToLower(c.Mode)
	return m == "trade" || m == "full"
}

// Collecting reports whether the mode runs the history collector.
func (c *Config) Collecting() bool {
	m := strings.ToLower(c.Mode)
	return m == "collect" || m == "full" || c.History.Enabled
}

// Trader builds the bot policy for the configured mode.
func (c *Config) Trader() trader.Config {
	tc := trader.DefaultConfig()
	tc.NotForTrade = c.Trade.NotForTrade
	tc.NotAccepting = c.Trade.NotAccepting
	tc.ManualItems = c.Trade.ManualCatalog()
	tc.Ads = c.Rolimons.Ads.Templates
	if len(c.Rolimons.Ads.Tags) > 0 {
		tc.AdTags = c.Rolimons.Ads.Tags
	}
	tc.CounterOffers = c.Trade.CounterOffers

	t := &tc.Timings
	t.CatalogRefresh = c.Rolimons.RefreshInterval.Duration
	t.TokenRefresh = c.Roblox.TokenRefresh.Duration
	t.ReviewInterval = c.Trade.ReviewInterval.Duration
	t.TradePause = c.Trade.SleepTime.Duration
	t.AdInterval = c.Rolimons.Ads.SleepTime.Duration
	t.WatchInterval = c.Trade.WatchInterval.Duration
	t.HoldRecheck = c.Trade.HoldRecheck.Duration

	trading := c.Trading()
	tc.Actors = trader.Actors{
		Catalog:    true,
		Session:    true,
		Watcher:    true,
		Inbound:    trading,
		Outbound:   trading && c.Trade.ReviewOutbound,
		Prospector: trading && c.Trade.Prospect,
		Ads:        trading && c.Rolimons.Ads.Enabled,
	}
	return tc
}
