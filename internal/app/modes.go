package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/limitedbot/internal/config"
	"github.com/alanyoungcy/limitedbot/internal/events"
	"github.com/alanyoungcy/limitedbot/internal/history"
	"github.com/alanyoungcy/limitedbot/internal/metrics"
	"github.com/alanyoungcy/limitedbot/internal/server"
	"github.com/alanyoungcy/limitedbot/internal/server/handler"
	"github.com/alanyoungcy/limitedbot/internal/server/ws"
	"github.com/alanyoungcy/limitedbot/internal/trader"
)

// parts selects the long-running components of a mode.
type parts struct {
	collector bool
}

// TradeMode runs the trading actors plus the status API.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")
	return a.launch(ctx, deps, parts{collector: a.cfg.History.Enabled})
}

// MonitorMode keeps the catalog, session and finished-trade watcher running
// without reviewing or sending offers.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")
	return a.launch(ctx, deps, parts{collector: a.cfg.History.Enabled})
}

// CollectMode records trade history and catalog snapshots.
func (a *App) CollectMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting collect mode")
	return a.launch(ctx, deps, parts{collector: true})
}

// FullMode trades and collects.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")
	return a.launch(ctx, deps, parts{collector: true})
}

func (a *App) launch(ctx context.Context, deps *Dependencies, p parts) error {
	bot, err := a.newBot(deps)
	if err != nil {
		return err
	}

	var collector *history.Collector
	if p.collector {
		if deps.TradeStore == nil || deps.MarketStore == nil {
			return fmt.Errorf("app: %s mode needs postgres for trade history", a.cfg.Mode)
		}
		collector, err = history.NewCollector(historyConfig(a.cfg),
			deps.TradeStore, deps.MarketStore, deps.Archiver,
			deps.Roblox, bot.State(), a.root)
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.Run(ctx) })
	if collector != nil {
		g.Go(func() error { return collector.Run(ctx) })
	}

	if a.cfg.Server.Enabled {
		hub := ws.NewHub(deps.SignalBus, events.Pattern, func() any {
			return map[string]any{"mode": a.cfg.Mode, "bot": bot.State().Status()}
		}, a.root.With(slog.String("component", "ws")))
		srv := server.NewServer(a.serverConfig(), a.handlers(deps, bot), hub, deps.RateLimiter, deps.Metrics, a.root.With(slog.String("component", "server")))
		g.Go(func() error { return hub.Run(ctx) })
		g.Go(func() error { return srv.Run(ctx) })
	}

	if addr := a.cfg.Server.MetricsAddr; addr != "" {
		g.Go(func() error { return metrics.NewServer(addr, deps.Metrics, a.root).Run(ctx) })
	}

	a.logger.InfoContext(ctx, "components started",
		slog.Bool("collector", p.collector),
		slog.Bool("server", a.cfg.Server.Enabled),
	)
	return g.Wait()
}

func (a *App) newBot(deps *Dependencies) (*trader.Bot, error) {
	d := trader.Deps{
		Pricing:   deps.Rolimons,
		Inventory: deps.Roblox,
		Trading:   deps.Roblox,
		Tokens:    deps.Roblox.Tokens(),
		AdNetwork: deps.Rolimons,
		Engine:    deps.Engine,
		Gate:      deps.Gate,
		Filter:    deps.Filter,
		Notifier:  deps.Notifier,
		Events:    deps.Events,
		Overrides: config.OverridesFile{Path: a.cfg.Trade.OverridesPath},
		Metrics:   deps.Metrics,
		Logger:    a.root,
	}
	if deps.TradeStore != nil {
		d.Recorder = history.NewRecorder(deps.TradeStore)
	}
	bot, err := trader.New(a.cfg.Trader(), d)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	return bot, nil
}

func historyConfig(cfg *config.Config) history.Config {
	return history.Config{
		CollectInterval:  cfg.History.CollectInterval.Duration,
		SnapshotInterval: cfg.History.SnapshotInterval.Duration,
		RetentionDays:    cfg.History.RetentionDays,
		ArchiveCron:      cfg.History.ArchiveCron,
	}
}

func (a *App) serverConfig() server.Config {
	return server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
	}
}

func (a *App) handlers(deps *Dependencies, bot *trader.Bot) server.Handlers {
	pingers := map[string]handler.Pinger{}
	if deps.Redis != nil {
		pingers["redis"] = deps.Redis
	}
	if deps.Postgres != nil {
		pingers["postgres"] = deps.Postgres
	}

	h := server.Handlers{
		Health: handler.NewHealthHandler(pingers),
		Status: handler.NewStatusHandler(a.cfg.Mode, a.startedAt, bot.State(), deps.Gate),
		Trades: handler.NewTradeHandler(deps.TradeStore, a.root),
		Events: handler.NewEventHandler(deps.Events),
	}
	if a.cfg.Server.MetricsAddr == "" {
		h.Metrics = deps.Metrics.Handler()
	}
	return h
}
