package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// envPrefix is prepended to every override variable name.
const envPrefix = "LIMITEDBOT_"

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies LIMITEDBOT_* environment variable overrides, and
// returns the final Config. An empty path skips the file and uses defaults
// plus the environment. The returned Config has NOT been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites Config fields from LIMITEDBOT_* variables that
// are set and parse cleanly. Secrets are normally injected this way.
func applyEnvOverrides(cfg *Config) {
	// ── Account ──
	setStr(&cfg.Account.Cookie, "ACCOUNT_COOKIE")
	setStr(&cfg.Account.SealedCookiePath, "ACCOUNT_SEALED_COOKIE_PATH")
	setStr(&cfg.Account.CookiePassword, "ACCOUNT_COOKIE_PASSWORD")

	// ── Roblox ──
	setStr(&cfg.Roblox.TradesHost, "ROBLOX_TRADES_HOST")
	setStr(&cfg.Roblox.InventoryHost, "ROBLOX_INVENTORY_HOST")
	setStr(&cfg.Roblox.UsersHost, "ROBLOX_USERS_HOST")
	setStr(&cfg.Roblox.AuthHost, "ROBLOX_AUTH_HOST")
	setDuration(&cfg.Roblox.TokenMaxAge, "ROBLOX_TOKEN_MAX_AGE")
	setDuration(&cfg.Roblox.TokenRefresh, "ROBLOX_TOKEN_REFRESH")

	// ── Rolimons ──
	setStr(&cfg.Rolimons.APIHost, "ROLIMONS_API_HOST")
	setStr(&cfg.Rolimons.WebHost, "ROLIMONS_WEB_HOST")
	setStr(&cfg.Rolimons.Verification, "ROLIMONS_VERIFICATION")
	setDuration(&cfg.Rolimons.RefreshInterval, "ROLIMONS_REFRESH_INTERVAL")
	setBool(&cfg.Rolimons.Ads.Enabled, "ROLIMONS_ADS_ENABLED")
	setDuration(&cfg.Rolimons.Ads.SleepTime, "ROLIMONS_ADS_SLEEP_TIME")
	setStringSlice(&cfg.Rolimons.Ads.Tags, "ROLIMONS_ADS_TAGS")

	// ── Trade ──
	setDuration(&cfg.Trade.SleepTime, "TRADE_SLEEP_TIME")
	setDuration(&cfg.Trade.ReviewInterval, "TRADE_REVIEW_INTERVAL")
	setDuration(&cfg.Trade.HoldRecheck, "TRADE_HOLD_RECHECK")
	setDuration(&cfg.Trade.WatchInterval, "TRADE_WATCH_INTERVAL")
	setBool(&cfg.Trade.CounterOffers, "TRADE_COUNTER_OFFERS")
	setBool(&cfg.Trade.ReviewOutbound, "TRADE_REVIEW_OUTBOUND")
	setBool(&cfg.Trade.Prospect, "TRADE_PROSPECT")
	setInt64Slice(&cfg.Trade.NotForTrade, "TRADE_NOT_FOR_TRADE")
	setInt64Slice(&cfg.Trade.NotAccepting, "TRADE_NOT_ACCEPTING")
	setStr(&cfg.Trade.OverridesPath, "TRADE_OVERRIDES_PATH")

	// ── Algorithm ──
	setBool(&cfg.Algorithm.Modes.RapOnlyBase, "ALGORITHM_RAP_ONLY_BASE")
	setBool(&cfg.Algorithm.Modes.ValueOnly, "ALGORITHM_VALUE_ONLY")
	setStringSlice(&cfg.Algorithm.Modes.TradeMethods, "ALGORITHM_TRADE_METHODS")
	setInt64(&cfg.Algorithm.Thresholds.MinTradeSendValueTotal, "ALGORITHM_MIN_TRADE_SEND_VALUE_TOTAL")
	setFloat64(&cfg.Algorithm.Thresholds.MaxEdgeValue, "ALGORITHM_MAX_EDGE_VALUE")
	setInt(&cfg.Algorithm.Performance.MaxPairs, "ALGORITHM_MAX_PAIRS")

	// ── Quota ──
	setInt(&cfg.Quota.Limit, "QUOTA_LIMIT")
	setDuration(&cfg.Quota.Window, "QUOTA_WINDOW")
	setBool(&cfg.Quota.Persist, "QUOTA_PERSIST")

	// ── Reputation ──
	setInt(&cfg.Reputation.MaxTradeAds, "REPUTATION_MAX_TRADE_ADS")
	setDuration(&cfg.Reputation.CacheTTL, "REPUTATION_CACHE_TTL")
	setStr(&cfg.Reputation.Backend, "REPUTATION_BACKEND")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "REDIS_ADDR")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.LockTTL, "REDIS_LOCK_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "S3_ENDPOINT")
	setStr(&cfg.S3.Region, "S3_REGION")
	setStr(&cfg.S3.Bucket, "S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "S3_FORCE_PATH_STYLE")

	// ── History ──
	setBool(&cfg.History.Enabled, "HISTORY_ENABLED")
	setDuration(&cfg.History.CollectInterval, "HISTORY_COLLECT_INTERVAL")
	setDuration(&cfg.History.SnapshotInterval, "HISTORY_SNAPSHOT_INTERVAL")
	setInt(&cfg.History.RetentionDays, "HISTORY_RETENTION_DAYS")
	setStr(&cfg.History.ArchiveCron, "HISTORY_ARCHIVE_CRON")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "SERVER_RATE_LIMIT")
	setStr(&cfg.Server.MetricsAddr, "SERVER_METRICS_ADDR")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MODE")
	setStr(&cfg.LogLevel, "LOG_LEVEL")
	setStr(&cfg.LogFormat, "LOG_FORMAT")
}

// setParsed assigns parse(value) to dst when the prefixed variable is set
// and parses without error.
func setParsed[T any](dst *T, key string, parse func(string) (T, error)) {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return
	}
	if parsed, err := parse(v); err == nil {
		*dst = parsed
	}
}

func setStr(dst *string, key string) {
	setParsed(dst, key, func(v string) (string, error) { return v, nil })
}

func setInt(dst *int, key string) {
	setParsed(dst, key, strconv.Atoi)
}

func setInt64(dst *int64, key string) {
	setParsed(dst, key, func(v string) (int64, error) { return strconv.ParseInt(v, 10, 64) })
}

func setFloat64(dst *float64, key string) {
	setParsed(dst, key, func(v string) (float64, error) { return strconv.ParseFloat(v, 64) })
}

func setBool(dst *bool, key string) {
	setParsed(dst, key, strconv.ParseBool)
}

func setDuration(dst *duration, key string) {
	setParsed(&dst.Duration, key, time.ParseDuration)
}

func setStringSlice(dst *[]string, key string) {
	setParsed(dst, key, func(v string) ([]string, error) {
		cleaned := splitList(v)
		if len(cleaned) == 0 {
			return nil, strconv.ErrSyntax
		}
		return cleaned, nil
	})
}

// setInt64Slice parses a comma-separated id list. One bad id rejects the
// whole variable.
func setInt64Slice(dst *[]int64, key string) {
	setParsed(dst, key, func(v string) ([]int64, error) {
		parts := splitList(v)
		out := make([]int64, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.ParseInt(p, 10, 64)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	})
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return cleaned
}
