// Package trader runs the trading actors: catalog refresh, session upkeep,
// offer review and countering, ad posting, prospecting and the
// finished-trade watcher. Actors share one State and one quota Gate.
package trader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/metrics"
	"github.com/alanyoungcy/limitedbot/internal/notify"
	"github.com/alanyoungcy/limitedbot/internal/quota"
	"github.com/alanyoungcy/limitedbot/internal/reputation"
	"github.com/alanyoungcy/limitedbot/internal/valuation"
)

const pageSize = 100

// Deps are the collaborators of a Bot. Pricing, Inventory, Trading, Engine
// and Gate are required.
type Deps struct {
	Pricing   PricingSource
	Inventory InventorySource
	Trading   TradingService
	Tokens    SessionTokens
	AdNetwork AdNetwork
	Engine    *valuation.Engine
	Gate      *quota.Gate
	Filter    *reputation.Filter
	Notifier  Notifier
	Events    EventSink
	Overrides OverrideSource
	Recorder  TradeRecorder
	Metrics   *metrics.Recorder
	Logger    *slog.Logger
	Now       func() time.Time
}

// Bot owns the shared state and runs the actors.
type Bot struct {
	cfg   Config
	deps  Deps
	state *State
	neg   *Negotiator

	notForTrade  map[int64]bool
	notAccepting map[int64]bool

	adsMu sync.Mutex
	ads   []AdTemplate

	recent *recentSet
	seen   *watchSet

	logger *slog.Logger
	now    func() time.Time
}

// New validates deps and returns a Bot.
func New(cfg Config, deps Deps) (*Bot, error) {
	switch {
	case deps.Pricing == nil:
		return nil, errors.New("trader: pricing source is required")
	case deps.Inventory == nil:
		return nil, errors.New("trader: inventory source is required")
	case deps.Trading == nil:
		return nil, errors.New("trader: trading service is required")
	case deps.Engine == nil:
		return nil, errors.New("trader: valuation engine is required")
	case deps.Gate == nil:
		return nil, errors.New("trader: quota gate is required")
	}
	if cfg.Actors.Ads || cfg.Actors.Prospector {
		if deps.AdNetwork == nil {
			return nil, errors.New("trader: ad network is required for ads and prospecting")
		}
	}
	if cfg.Actors.Session && deps.Tokens == nil {
		return nil, errors.New("trader: session tokens are required for the session actor")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if len(cfg.AdTags) == 0 {
		cfg.AdTags = DefaultAdTags
	}
	if cfg.RecentPartners <= 0 {
		cfg.RecentPartners = 500
	}

	b := &Bot{
		cfg:          cfg,
		deps:         deps,
		state:        NewState(),
		notForTrade:  toSet(cfg.NotForTrade),
		notAccepting: toSet(cfg.NotAccepting),
		ads:          append([]AdTemplate(nil), cfg.Ads...),
		recent:       newRecentSet(cfg.RecentPartners),
		seen:         newWatchSet(),
		logger:       deps.Logger.With(slog.String("component", "trader")),
		now:          deps.Now,
	}
	b.neg = &Negotiator{
		engine:       deps.Engine,
		state:        b.state,
		inventory:    deps.Inventory,
		notForTrade:  b.notForTrade,
		notAccepting: b.notAccepting,
		metrics:      deps.Metrics,
	}
	return b, nil
}

func toSet(ids []int64) map[int64]bool {
	m := make(map[int64]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

// State exposes the shared state for read-only consumers.
func (b *Bot) State() *State { return b.state }

// Negotiator exposes the offer synthesizer.
func (b *Bot) Negotiator() *Negotiator { return b.neg }

// Bootstrap resolves the operator id and loads the first catalog and
// inventory. Only the id lookup is fatal.
func (b *Bot) Bootstrap(ctx context.Context) error {
	id, err := b.deps.Trading.AuthenticatedUserID(ctx)
	if err != nil {
		return fmt.Errorf("trader: bootstrap: %w", err)
	}
	b.state.SetUserID(id)
	b.logger.InfoContext(ctx, "authenticated", slog.Int64("user_id", id))

	if err := b.RefreshCatalog(ctx); err != nil {
		b.logger.WarnContext(ctx, "initial catalog load failed", slog.String("error", err.Error()))
	}
	return nil
}

// Run bootstraps and then runs the enabled actors until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	for {
		err := b.Bootstrap(ctx)
		if err == nil {
			break
		}
		wait := b.failed(ctx, "bootstrap", err, b.cfg.Timings.Retry, b.cfg.Timings.AuthPause)
		if !sleepCtx(ctx, wait) {
			return nil
		}
	}
	b.authOK(ctx)

	t := b.cfg.Timings
	a := b.cfg.Actors
	specs := []struct {
		on bool
		actor
	}{
		{a.Catalog, actor{name: "catalog", every: t.CatalogRefresh, retry: t.Retry, authPause: t.AuthPause, session: true, pass: b.RefreshCatalog}},
		{a.Session, actor{name: "session", every: t.TokenRefresh, retry: t.TokenRefresh, authPause: t.AuthPause, session: true, pass: b.RefreshToken}},
		{a.Outbound, actor{name: "outbound", every: t.ReviewInterval, retry: t.Retry, authPause: t.AuthPause, session: true, pass: b.ReviewOutbound}},
		{a.Inbound, actor{name: "inbound", every: t.ReviewInterval, retry: t.Retry, authPause: t.AuthPause, session: true, pass: b.ReviewInbound}},
		{a.Ads, actor{name: "ads", every: t.AdInterval, retry: t.Retry, authPause: t.AuthPause, pass: b.PostAd}},
		{a.Prospector, actor{name: "prospector", every: t.ProspectPoll, retry: t.ProspectRetry, authPause: t.AuthPause, session: true, pass: b.Prospect}},
		{a.Watcher, actor{name: "watcher", every: t.WatchInterval, retry: t.Retry, authPause: t.WatcherAuth, session: true, pass: b.CheckFinished}},
	}

	g, ctx := errgroup.WithContext(ctx)
	started := 0
	for _, s := range specs {
		if !s.on {
			continue
		}
		act := s.actor
		started++
		g.Go(func() error { return b.loop(ctx, act) })
	}
	b.logger.InfoContext(ctx, "trader running", slog.Int("actors", started))

	err := g.Wait()
	b.logger.InfoContext(ctx, "trader stopped")
	return err
}

// RefreshToken re-derives the session's anti-forgery token.
func (b *Bot) RefreshToken(ctx context.Context) error {
	if _, err := b.deps.Tokens.Refresh(ctx); err != nil {
		return fmt.Errorf("trader: refresh token: %w", err)
	}
	return nil
}

func (b *Bot) alert(ctx context.Context, kind domain.EventKind, msg notify.Message) {
	if b.deps.Notifier == nil {
		return
	}
	if err := b.deps.Notifier.Notify(ctx, kind, msg); err != nil {
		b.logger.WarnContext(ctx, "notification failed",
			slog.String("event", string(kind)),
			slog.String("error", err.Error()),
		)
	}
}

func (b *Bot) publish(ctx context.Context, kind domain.EventKind, tradeID, partnerID int64, detail map[string]any) {
	if b.deps.Events == nil {
		return
	}
	ev := domain.NewEvent(kind, b.now())
	ev.TradeID = tradeID
	ev.PartnerID = partnerID
	ev.Detail = detail
	b.deps.Events.Publish(ctx, ev)
}

// authLost flags the session as broken and alerts once.
func (b *Bot) authLost(ctx context.Context) {
	if !b.state.SetCookieBroken(true) {
		return
	}
	b.logger.ErrorContext(ctx, "roblox session rejected, trading paused")
	b.alert(ctx, domain.EventAuthLost, notify.ErrorMessage(notify.ErrorRobloxCookie, b.now()))
	b.publish(ctx, domain.EventAuthLost, 0, 0, nil)
}

func (b *Bot) authOK(ctx context.Context) {
	if !b.state.SetCookieBroken(false) {
		return
	}
	b.logger.InfoContext(ctx, "roblox session recovered")
	b.publish(ctx, domain.EventAuthRecovered, 0, 0, nil)
}

// rateLimited announces a cooldown once per distinct end time.
func (b *Bot) rateLimited(ctx context.Context, until time.Time) {
	if !b.state.ClaimRateLimitAlert(until) {
		return
	}
	b.logger.WarnContext(ctx, "trade quota cooldown", slog.Time("until", until))
	b.alert(ctx, domain.EventRateLimited, notify.RateLimitMessage(until))
	b.publish(ctx, domain.EventRateLimited, 0, 0, map[string]any{"until": until})
}

// quotaDenied handles a refused reservation.
func (b *Bot) quotaDenied(ctx context.Context, err error) {
	b.logger.DebugContext(ctx, "quota denied", slog.String("reason", err.Error()))
	if snap := b.deps.Gate.Snapshot(); snap.CoolingDown {
		b.rateLimited(ctx, snap.CooldownUntil)
	}
}

func (b *Bot) quotaUsed() {
	b.deps.Metrics.QuotaUsed(b.deps.Gate.Snapshot().Used)
}
