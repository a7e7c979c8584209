// Package config defines the top-level configuration for limitedbot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/trader"
	"github.com/alanyoungcy/limitedbot/internal/valuation"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by LIMITEDBOT_* environment variables.
type Config struct {
	Account    AccountConfig      `toml:"account"`
	Roblox     RobloxConfig       `toml:"roblox"`
	Rolimons   RolimonsConfig     `toml:"rolimons"`
	Trade      TradeConfig        `toml:"trade"`
	Algorithm  valuation.Settings `toml:"algorithm"`
	Quota      QuotaConfig        `toml:"quota"`
	Reputation ReputationConfig   `toml:"reputation"`
	Postgres   PostgresConfig     `toml:"postgres"`
	Redis      RedisConfig        `toml:"redis"`
	S3         S3Config           `toml:"s3"`
	History    HistoryConfig      `toml:"history"`
	Server     ServerConfig       `toml:"server"`
	Notify     NotifyConfig       `toml:"notify"`
	Mode       string             `toml:"mode"`
	LogLevel   string             `toml:"log_level"`
	LogFormat  string             `toml:"log_format"`
}

// AccountConfig holds the Roblox session credential. The cookie is given
// either in clear or as a sealed vault file plus its password.
type AccountConfig struct {
	Cookie           string `toml:"cookie"`
	SealedCookiePath string `toml:"sealed_cookie_path"`
	CookiePassword   string `toml:"cookie_password"`
}

// RobloxConfig holds Roblox API hosts and session token timing.
type RobloxConfig struct {
	TradesHost    string   `toml:"trades_host"`
	InventoryHost string   `toml:"inventory_host"`
	UsersHost     string   `toml:"users_host"`
	AuthHost      string   `toml:"auth_host"`
	TokenMaxAge   duration `toml:"token_max_age"`
	TokenRefresh  duration `toml:"token_refresh"`
}

// RolimonsConfig holds item value feed and trade ad settings.
type RolimonsConfig struct {
	APIHost         string    `toml:"api_host"`
	WebHost         string    `toml:"web_host"`
	Verification    string    `toml:"verification"`
	RefreshInterval duration  `toml:"refresh_interval"`
	Ads             AdsConfig `toml:"ads"`
}

// AdsConfig controls trade ad posting.
type AdsConfig struct {
	Enabled   bool                `toml:"enabled"`
	SleepTime duration            `toml:"sleep_time"`
	Tags      []string            `toml:"tags"`
	Templates []trader.AdTemplate `toml:"templates"`
}

// ManualItem is an item value the operator maintains by hand.
type ManualItem struct {
	ID        int64  `toml:"id"`
	Name      string `toml:"name"`
	Value     int64  `toml:"value"`
	RAP       int64  `toml:"rap"`
	Demand    int    `toml:"demand"`
	Projected bool   `toml:"projected"`
	Rare      bool   `toml:"rare"`
}

// TradeConfig holds trading policy and pacing.
type TradeConfig struct {
	SleepTime      duration     `toml:"sleep_time"`
	ReviewInterval duration     `toml:"review_interval"`
	HoldRecheck    duration     `toml:"hold_recheck"`
	WatchInterval  duration     `toml:"watch_interval"`
	CounterOffers  bool         `toml:"counter_offers"`
	ReviewOutbound bool         `toml:"review_outbound"`
	Prospect       bool         `toml:"prospect"`
	NotForTrade    []int64      `toml:"not_for_trade"`
	NotAccepting   []int64      `toml:"not_accepting"`
	ManualItems    []ManualItem `toml:"manual_items"`
	OverridesPath  string       `toml:"overrides_path"`
}

// ManualCatalog converts the manual items into catalog records.
func (t TradeConfig) ManualCatalog() domain.Catalog {
	out := make(domain.Catalog, len(t.ManualItems))
	for _, m := range t.ManualItems {
		rap := m.RAP
		if rap == 0 {
			rap = m.Value
		}
		out[m.ID] = domain.Item{
			ID:            m.ID,
			Name:          m.Name,
			RAP:           rap,
			Value:         m.Value,
			OriginalPrice: domain.UnknownValue,
			Demand:        m.Demand,
			Trend:         -1,
			Projected:     m.Projected,
			Rare:          m.Rare,
		}
	}
	return out
}

// QuotaConfig bounds trade-initiating actions.
type QuotaConfig struct {
	Limit  int      `toml:"limit"`
	Window duration `toml:"window"`
	// Persist keeps the window in Redis across restarts.
	Persist bool `toml:"persist"`
}

// ReputationConfig screens partners by open ad count.
type ReputationConfig struct {
	MaxTradeAds int      `toml:"max_trade_ads"`
	CacheTTL    duration `toml:"cache_ttl"`
	// Backend is "memory" or "redis".
	Backend string `toml:"backend"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	LockTTL    duration `toml:"lock_ttl"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// HistoryConfig controls trade history collection and archival.
type HistoryConfig struct {
	Enabled          bool     `toml:"enabled"`
	CollectInterval  duration `toml:"collect_interval"`
	SnapshotInterval duration `toml:"snapshot_interval"`
	RetentionDays    int      `toml:"retention_days"`
	ArchiveCron      string   `toml:"archive_cron"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds status API parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// RateLimit is requests per minute per client; 0 disables it.
	RateLimit   int    `toml:"rate_limit"`
	MetricsAddr string `toml:"metrics_addr"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in limitedbot.example.toml.
func Defaults() Config {
	return Config{
		Roblox: RobloxConfig{
			TradesHost:    "https://trades.roblox.com",
			InventoryHost: "https://inventory.roblox.com",
			UsersHost:     "https://users.roblox.com",
			AuthHost:      "https://auth.roblox.com",
			TokenMaxAge:   duration{120 * time.Second},
			TokenRefresh:  duration{60 * time.Second},
		},
		Rolimons: RolimonsConfig{
			APIHost:         "https://api.rolimons.com",
			WebHost:         "https://www.rolimons.com",
			RefreshInterval: duration{60 * time.Second},
			Ads: AdsConfig{
				Enabled:   false,
				SleepTime: duration{16 * time.Minute},
				Tags:      trader.DefaultAdTags,
			},
		},
		Trade: TradeConfig{
			SleepTime:      duration{60 * time.Second},
			ReviewInterval: duration{30 * time.Second},
			HoldRecheck:    duration{3 * time.Hour},
			WatchInterval:  duration{20 * time.Second},
			CounterOffers:  true,
			ReviewOutbound: true,
			Prospect:       true,
		},
		Algorithm: valuation.DefaultSettings(),
		Quota: QuotaConfig{
			Limit:  100,
			Window: duration{24 * time.Hour},
		},
		Reputation: ReputationConfig{
			MaxTradeAds: 0,
			CacheTTL:    duration{600 * time.Second},
			Backend:     "memory",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "limitedbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			LockTTL:    duration{30 * time.Second},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "limitedbot-history",
			ForcePathStyle: true,
		},
		History: HistoryConfig{
			CollectInterval:  duration{5 * time.Minute},
			SnapshotInterval: duration{15 * time.Minute},
			RetentionDays:    90,
			ArchiveCron:      "0 3 * * *",
		},
		Server: ServerConfig{
			Enabled:     false,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
			RateLimit:   120,
		},
		Mode:      "trade",
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
	"monitor": true,
	"collect": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, monitor, collect, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}
	if f := strings.ToLower(c.LogFormat); f != "json" && f != "text" {
		errs = append(errs, fmt.Sprintf("unknown log_format %q (valid: json, text)", c.LogFormat))
	}

	// Account: every mode talks to Roblox.
	if c.Account.Cookie == "" && c.Account.SealedCookiePath == "" {
		errs = append(errs, "account: either cookie or sealed_cookie_path must be set")
	}
	if c.Account.SealedCookiePath != "" && c.Account.CookiePassword == "" {
		errs = append(errs, "account: cookie_password is required when sealed_cookie_path is set")
	}

	if c.Roblox.TradesHost == "" || c.Roblox.InventoryHost == "" || c.Roblox.UsersHost == "" || c.Roblox.AuthHost == "" {
		errs = append(errs, "roblox: every host must be set")
	}
	if c.Roblox.TokenMaxAge.Duration <= 0 {
		errs = append(errs, "roblox: token_max_age must be > 0")
	}
	if c.Rolimons.APIHost == "" {
		errs = append(errs, "rolimons: api_host must not be empty")
	}
	if c.Rolimons.RefreshInterval.Duration <= 0 {
		errs = append(errs, "rolimons: refresh_interval must be > 0")
	}
	if c.Rolimons.Ads.Enabled && c.Rolimons.Ads.SleepTime.Duration <= 0 {
		errs = append(errs, "rolimons.ads: sleep_time must be > 0 when enabled")
	}

	if c.Trade.SleepTime.Duration < 0 {
		errs = append(errs, "trade: sleep_time must be >= 0")
	}
	if c.Trade.HoldRecheck.Duration <= 0 {
		errs = append(errs, "trade: hold_recheck must be > 0")
	}

	for _, e := range c.Algorithm.Validate() {
		errs = append(errs, "algorithm: "+e)
	}

	if c.Quota.Limit < 1 {
		errs = append(errs, "quota: limit must be >= 1")
	}
	if c.Quota.Window.Duration <= 0 {
		errs = append(errs, "quota: window must be > 0")
	}
	if c.Quota.Persist && !c.Redis.Enabled {
		errs = append(errs, "quota: persist requires redis.enabled")
	}

	if c.Reputation.MaxTradeAds < 0 {
		errs = append(errs, "reputation: max_trade_ads must be >= 0")
	}
	switch c.Reputation.Backend {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			errs = append(errs, "reputation: redis backend requires redis.enabled")
		}
	default:
		errs = append(errs, fmt.Sprintf("reputation: unknown backend %q (valid: memory, redis)", c.Reputation.Backend))
	}

	if mode == "collect" || c.History.Enabled {
		if !c.Postgres.Enabled {
			errs = append(errs, "history: postgres.enabled is required to collect trade history")
		}
	}
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if !c.Postgres.Enabled {
			errs = append(errs, "s3: archival requires postgres.enabled")
		}
	}

	if c.History.RetentionDays < 1 {
		errs = append(errs, "history: retention_days must be >= 1")
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
