// Package app wires the limitedbot dependencies (platform clients, quota
// gate, caches, stores, archive, notifications) and starts the goroutines
// of the configured mode.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/config"
	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// App owns the configuration, logger and the cleanup functions run on
// shutdown in reverse order.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	root      *slog.Logger // handed to components, which add their own name
	startedAt time.Time
	closers   []func()
}

// New creates an App.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "app")),
		root:      logger,
		startedAt: time.Now(),
	}
}

// Run wires dependencies, takes the per-account instance lock when Redis is
// available, and blocks in the selected mode until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.root)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	if deps.LockManager != nil && a.cfg.Trading() {
		unlock, err := deps.LockManager.Acquire(ctx, "instance:"+deps.Account, lockTTL(a.cfg))
		if errors.Is(err, domain.ErrLockHeld) {
			return fmt.Errorf("app: another instance is trading this account: %w", err)
		}
		if err != nil {
			return fmt.Errorf("app: instance lock: %w", err)
		}
		a.closers = append(a.closers, unlock)
	}

	switch strings.ToLower(a.cfg.Mode) {
	case "trade":
		return a.TradeMode(ctx, deps)
	case "monitor":
		return a.MonitorMode(ctx, deps)
	case "collect":
		return a.CollectMode(ctx, deps)
	case "full":
		return a.FullMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down all resources. Later calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
