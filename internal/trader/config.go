package trader

import (
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// DefaultAdTags is the tag pool generated ads draw from.
var DefaultAdTags = []string{"any", "demand", "rares", "rap", "upgrade"}

// AdTemplate is an operator-configured trade ad.
type AdTemplate struct {
	OfferItemIDs   []int64  `toml:"offer_item_ids"`
	RequestItemIDs []int64  `toml:"request_item_ids"`
	RequestTags    []string `toml:"request_tags"`
}

// Actors selects which loops Run starts.
type Actors struct {
	Catalog    bool
	Session    bool
	Outbound   bool
	Inbound    bool
	Ads        bool
	Prospector bool
	Watcher    bool
}

// AllActors enables every loop.
func AllActors() Actors {
	return Actors{Catalog: true, Session: true, Outbound: true, Inbound: true, Ads: true, Prospector: true, Watcher: true}
}

// Timings are the fixed intervals and backoffs of every loop.
type Timings struct {
	CatalogRefresh time.Duration
	TokenRefresh   time.Duration
	ReviewInterval time.Duration
	OfferPause     time.Duration
	PagePause      time.Duration
	TradePause     time.Duration
	AdInterval     time.Duration
	ProspectPoll   time.Duration
	ProspectRetry  time.Duration
	WatchInterval  time.Duration
	HoldRecheck    time.Duration
	Retry          time.Duration
	AuthPause      time.Duration
	WatcherAuth    time.Duration
}

// DefaultTimings returns the production intervals.
func DefaultTimings() Timings {
	return Timings{
		CatalogRefresh: 60 * time.Second,
		TokenRefresh:   60 * time.Second,
		ReviewInterval: 30 * time.Second,
		OfferPause:     5 * time.Second,
		PagePause:      10 * time.Second,
		TradePause:     60 * time.Second,
		AdInterval:     16 * time.Minute,
		ProspectPoll:   30 * time.Second,
		ProspectRetry:  5 * time.Second,
		WatchInterval:  20 * time.Second,
		HoldRecheck:    3 * time.Hour,
		Retry:          10 * time.Second,
		AuthPause:      time.Hour,
		WatcherAuth:    24 * time.Hour,
	}
}

// Config is the operator policy of a Bot.
type Config struct {
	// NotForTrade items are never given away.
	NotForTrade []int64
	// NotAccepting items are never taken in.
	NotAccepting []int64
	// ManualItems are merged over every fetched catalog.
	ManualItems domain.Catalog
	Ads         []AdTemplate
	AdTags      []string
	// CounterOffers enables countering rejected inbound offers.
	CounterOffers bool
	// RecentPartners bounds the prospector's memory of contacted users.
	RecentPartners int
	Actors         Actors
	Timings        Timings
}

// DefaultConfig counters offers and runs every actor.
func DefaultConfig() Config {
	return Config{
		AdTags:         DefaultAdTags,
		CounterOffers:  true,
		RecentPartners: 500,
		Actors:         AllActors(),
		Timings:        DefaultTimings(),
	}
}
