package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/limitedbot/internal/blob/s3"
	"github.com/alanyoungcy/limitedbot/internal/cache/memory"
	"github.com/alanyoungcy/limitedbot/internal/cache/redis"
	"github.com/alanyoungcy/limitedbot/internal/config"
	"github.com/alanyoungcy/limitedbot/internal/crypto"
	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/events"
	"github.com/alanyoungcy/limitedbot/internal/metrics"
	"github.com/alanyoungcy/limitedbot/internal/notify"
	"github.com/alanyoungcy/limitedbot/internal/platform/roblox"
	"github.com/alanyoungcy/limitedbot/internal/platform/rolimons"
	"github.com/alanyoungcy/limitedbot/internal/quota"
	"github.com/alanyoungcy/limitedbot/internal/reputation"
	"github.com/alanyoungcy/limitedbot/internal/store/postgres"
	"github.com/alanyoungcy/limitedbot/internal/valuation"
)

// Dependencies bundles everything the modes need. Optional parts are nil
// when their backend is disabled.
type Dependencies struct {
	// Account is a stable, non-reversible id of the session cookie used to
	// namespace per-account keys.
	Account string

	Roblox   *roblox.Client
	Rolimons *rolimons.Client
	Engine   *valuation.Engine
	Gate     *quota.Gate
	Filter   *reputation.Filter
	Notifier *notify.Notifier
	Metrics  *metrics.Recorder

	SignalBus   domain.SignalBus
	Events      *events.Publisher
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager

	// Optional backends.
	Redis    *redis.Client
	Postgres *postgres.Client

	TradeStore  domain.TradeHistoryStore
	MarketStore domain.MarketHistoryStore
	AuditStore  domain.AuditStore
	Archiver    domain.Archiver
}

// accountKey derives a short stable id from the session cookie.
func accountKey(cookie string) string {
	sum := sha256.Sum256([]byte(cookie))
	return hex.EncodeToString(sum[:8])
}

// Wire constructs every dependency from cfg and returns a cleanup function
// that releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	cookie, err := crypto.LoadCookie(crypto.CookieSource{
		Cookie:     cfg.Account.Cookie,
		SealedPath: cfg.Account.SealedCookiePath,
		Password:   cfg.Account.CookiePassword,
	})
	if err != nil {
		return fail(fmt.Errorf("wire: cookie: %w", err))
	}

	deps := &Dependencies{
		Account: accountKey(cookie),
		Metrics: metrics.New(),
	}

	// --- Platform clients ---
	deps.Roblox = roblox.New(cookie, roblox.Endpoints{
		Trades:    cfg.Roblox.TradesHost,
		Inventory: cfg.Roblox.InventoryHost,
		Users:     cfg.Roblox.UsersHost,
		Auth:      cfg.Roblox.AuthHost,
	}).WithTokenMaxAge(cfg.Roblox.TokenMaxAge.Duration)
	deps.Rolimons = rolimons.New(rolimons.Endpoints{
		API: cfg.Rolimons.APIHost,
		Web: cfg.Rolimons.WebHost,
	}, cfg.Rolimons.Verification)

	deps.Engine, err = valuation.New(cfg.Algorithm)
	if err != nil {
		return fail(fmt.Errorf("wire: valuation: %w", err))
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = rc.Close() })
		deps.Redis = rc
		deps.SignalBus = redis.NewSignalBus(rc)
		deps.RateLimiter = redis.NewRateLimiter(rc)
		deps.LockManager = redis.NewLockManager(rc, logger)
	} else {
		deps.SignalBus = events.NewMemoryBus(0)
		deps.RateLimiter = memory.NewRateLimiter()
	}
	deps.Events = events.NewPublisher(deps.SignalBus, logger)

	// --- Quota gate ---
	gateOpts := []quota.Option{quota.WithLogger(logger)}
	if cfg.Quota.Persist && deps.Redis != nil {
		gateOpts = append(gateOpts, quota.WithStore(
			redis.NewQuotaStore(deps.Redis, deps.Account, cfg.Quota.Window.Duration),
		))
	}
	deps.Gate = quota.New(cfg.Quota.Limit, cfg.Quota.Window.Duration, gateOpts...)
	if err := deps.Gate.Restore(ctx); err != nil {
		logger.WarnContext(ctx, "quota restore failed, starting with an empty window",
			slog.String("error", err.Error()))
	}

	// --- Reputation ---
	var adStore domain.AdCountStore = reputation.NewMemoryStore()
	if cfg.Reputation.Backend == "redis" && deps.Redis != nil {
		adStore = redis.NewAdCountStore(deps.Redis, 4*cfg.Reputation.CacheTTL.Duration)
	}
	counts := reputation.NewAdCountCache(adStore, deps.Rolimons, cfg.Reputation.CacheTTL.Duration, logger)
	deps.Filter = reputation.NewFilter(counts, cfg.Reputation.MaxTradeAds)

	// --- Postgres ---
	if cfg.Postgres.Enabled {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pg.Close)
		if cfg.Postgres.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}
		deps.Postgres = pg
		pool := pg.Pool()
		deps.TradeStore = postgres.NewTradeHistoryStore(pool)
		deps.MarketStore = postgres.NewMarketHistoryStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
	}

	// --- S3 archive (needs the history stores) ---
	if cfg.S3.Enabled && deps.TradeStore != nil {
		sc, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(sc),
			s3blob.NewReader(sc),
			deps.TradeStore,
			deps.MarketStore,
			deps.AuditStore,
			s3blob.DefaultBatch,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// lockTTL falls back to a minute when unset.
func lockTTL(cfg *config.Config) time.Duration {
	if d := cfg.Redis.LockTTL.Duration; d > 0 {
		return d
	}
	return time.Minute
}
