package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/limitedbot/internal/config"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsNeedOnlyACookie(t *testing.T) {
	rq := require.New(t)

	cfg := config.Defaults()
	err := cfg.Validate()
	rq.Error(err)
	rq.Contains(err.Error(), "cookie or sealed_cookie_path")

	cfg.Account.Cookie = "_|WARNING:-DO-NOT-SHARE-THIS"
	rq.NoError(cfg.Validate())
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	rq := require.New(t)

	cfg := config.Defaults()
	cfg.Account.SealedCookiePath = "cookie.sealed"
	cfg.Mode = "yolo"
	cfg.Quota.Limit = 0
	cfg.Quota.Persist = true
	cfg.Reputation.Backend = "disk"
	cfg.History.Enabled = true

	err := cfg.Validate()
	rq.Error(err)
	msg := err.Error()
	rq.Contains(msg, "config validation failed")
	rq.Contains(msg, "cookie_password is required")
	rq.Contains(msg, `unknown mode "yolo"`)
	rq.Contains(msg, "quota: limit must be >= 1")
	rq.Contains(msg, "quota: persist requires redis.enabled")
	rq.Contains(msg, `unknown backend "disk"`)
	rq.Contains(msg, "postgres.enabled is required")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	rq := require.New(t)

	path := writeFile(t, "limitedbot.toml", `
mode = "monitor"

[account]
cookie = "from-file"

[trade]
sleep_time = "90s"
not_for_trade = [1028606, 19027209]

[[trade.manual_items]]
id = 555
name = "Handmade Hat"
value = 2500

[algorithm.modes]
trade_methods = ["downgrade"]

[rolimons.ads]
enabled = true

[[rolimons.ads.templates]]
offer_item_ids = [1028606]
request_tags = ["any"]
`)

	cfg, err := config.Load(path)
	rq.NoError(err)
	rq.NoError(cfg.Validate())

	rq.Equal("monitor", cfg.Mode)
	rq.Equal(90*time.Second, cfg.Trade.SleepTime.Duration)
	rq.Equal([]int64{1028606, 19027209}, cfg.Trade.NotForTrade)
	rq.Equal([]string{"downgrade"}, cfg.Algorithm.Modes.TradeMethods)
	rq.Len(cfg.Rolimons.Ads.Templates, 1)
	// Untouched sections keep their defaults.
	rq.Equal(100, cfg.Quota.Limit)
	rq.Equal(24*time.Hour, cfg.Quota.Window.Duration)

	manual := cfg.Trade.ManualCatalog()
	rq.Equal(int64(2500), manual[555].Value)
	rq.Equal(int64(2500), manual[555].RAP)
}

func TestEnvOverridesFile(t *testing.T) {
	rq := require.New(t)

	path := writeFile(t, "limitedbot.toml", "[account]\ncookie = \"from-file\"\n")
	t.Setenv("LIMITEDBOT_ACCOUNT_COOKIE", "from-env")
	t.Setenv("LIMITEDBOT_QUOTA_LIMIT", "40")
	t.Setenv("LIMITEDBOT_TRADE_NOT_ACCEPTING", "1, 2,3")
	t.Setenv("LIMITEDBOT_TRADE_NOT_FOR_TRADE", "7,oops")
	t.Setenv("LIMITEDBOT_REPUTATION_CACHE_TTL", "2m")
	t.Setenv("LIMITEDBOT_SERVER_ENABLED", "not-a-bool")

	cfg, err := config.Load(path)
	rq.NoError(err)

	rq.Equal("from-env", cfg.Account.Cookie)
	rq.Equal(40, cfg.Quota.Limit)
	rq.Equal([]int64{1, 2, 3}, cfg.Trade.NotAccepting)
	rq.Empty(cfg.Trade.NotForTrade)
	rq.Equal(2*time.Minute, cfg.Reputation.CacheTTL.Duration)
	rq.False(cfg.Server.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestRedactedConfig(t *testing.T) {
	rq := require.New(t)

	cfg := config.Defaults()
	cfg.Account.Cookie = "secret-cookie"
	cfg.Postgres.Password = "pg"
	cfg.Notify.DiscordWebhookURL = "https://discord.example/hook"
	cfg.Notify.Events = []string{"offer.sent"}

	out := config.RedactedConfig(&cfg)
	rq.Equal("***", out.Account.Cookie)
	rq.Equal("***", out.Postgres.Password)
	rq.Equal("***", out.Notify.DiscordWebhookURL)
	rq.Empty(out.Redis.Password)

	out.Notify.Events[0] = "changed"
	rq.Equal("offer.sent", cfg.Notify.Events[0])
	rq.Equal("secret-cookie", cfg.Account.Cookie)
}

func TestTraderActorsFollowMode(t *testing.T) {
	rq := require.New(t)

	cfg := config.Defaults()
	cfg.Trade.Prospect = false

	tc := cfg.Trader()
	rq.True(tc.Actors.Inbound)
	rq.True(tc.Actors.Outbound)
	rq.False(tc.Actors.Prospector)
	rq.False(tc.Actors.Ads)
	rq.Equal(cfg.Trade.SleepTime.Duration, tc.Timings.TradePause)

	cfg.Mode = "monitor"
	tc = cfg.Trader()
	rq.True(tc.Actors.Catalog)
	rq.True(tc.Actors.Watcher)
	rq.False(tc.Actors.Inbound)
	rq.False(tc.Actors.Outbound)
	rq.False(cfg.Collecting())

	cfg.Mode = "full"
	rq.True(cfg.Trading())
	rq.True(cfg.Collecting())
}

func TestOverridesFile(t *testing.T) {
	rq := require.New(t)

	path := writeFile(t, "values.yaml", "1028606: 120000\n19027209: 4500\n")
	got, err := config.OverridesFile{Path: path}.Load()
	rq.NoError(err)
	rq.Equal(map[int64]int64{1028606: 120000, 19027209: 4500}, got)

	got, err = config.OverridesFile{Path: filepath.Join(t.TempDir(), "none.yaml")}.Load()
	rq.NoError(err)
	rq.Empty(got)

	bad := writeFile(t, "bad.yaml", "1028606: -5\n")
	_, err = config.OverridesFile{Path: bad}.Load()
	rq.ErrorContains(err, "must be positive")
}
