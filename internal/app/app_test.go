package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/limitedbot/internal/config"
	"github.com/alanyoungcy/limitedbot/internal/events"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestAccountKeyIsStableAndOpaque(t *testing.T) {
	r := require.New(t)
	k := accountKey("_|WARNING:-DO-NOT-SHARE-THIS.--cookie")
	r.Len(k, 16)
	r.Equal(k, accountKey("_|WARNING:-DO-NOT-SHARE-THIS.--cookie"))
	r.NotEqual(k, accountKey("another"))
	r.NotContains(k, "cookie")
}

func TestWireWithoutBackends(t *testing.T) {
	r := require.New(t)
	cfg := config.Defaults()
	cfg.Account.Cookie = "cookie"

	deps, cleanup, err := Wire(context.Background(), &cfg, quietLogger())
	r.NoError(err)
	defer cleanup()

	r.IsType(&events.MemoryBus{}, deps.SignalBus)
	r.NotNil(deps.RateLimiter)
	r.Nil(deps.LockManager)
	r.Nil(deps.TradeStore)
	r.Nil(deps.Archiver)
	r.NotNil(deps.Gate)
	r.NotNil(deps.Engine)
	r.True(deps.Filter.Enabled() == (cfg.Reputation.MaxTradeAds > 0))
}

func TestWireRequiresCookie(t *testing.T) {
	cfg := config.Defaults()
	_, _, err := Wire(context.Background(), &cfg, quietLogger())
	require.ErrorContains(t, err, "cookie")
}

func TestRunRejectsUnknownMode(t *testing.T) {
	cfg := config.Defaults()
	cfg.Account.Cookie = "cookie"
	cfg.Mode = "backtest"

	a := New(&cfg, quietLogger())
	defer a.Close()
	require.ErrorContains(t, a.Run(context.Background()), `unsupported mode "backtest"`)
}
