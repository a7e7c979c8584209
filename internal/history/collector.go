// Package history keeps a durable record of finished trades and of the
// item market, and moves aged rows to cold storage on a schedule.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// CatalogSource provides the current item catalog.
type CatalogSource interface {
	Catalog() domain.Catalog
}

// TradeSource lists and fetches the account's trades.
type TradeSource interface {
	ListOffers(ctx context.Context, dir domain.OfferDirection, cursor string, limit int) (domain.OfferPage, error)
	GetOffer(ctx context.Context, id int64) (domain.OfferDetail, error)
}

// Config holds collector schedules.
type Config struct {
	CollectInterval  time.Duration
	SnapshotInterval time.Duration
	RetentionDays    int
	// ArchiveCron is a standard five-field cron expression. Empty disables
	// archival.
	ArchiveCron string
}

const backfillPage = 100

// Collector backfills trade history, snapshots the catalog, and archives.
type Collector struct {
	cfg      Config
	trades   domain.TradeHistoryStore
	markets  domain.MarketHistoryStore
	archiver domain.Archiver
	source   TradeSource
	catalog  CatalogSource
	schedule cron.Schedule
	logger   *slog.Logger
	now      func() time.Time
}

// NewCollector validates cfg.ArchiveCron and builds a Collector. A nil
// archiver disables archival.
func NewCollector(
	cfg Config,
	trades domain.TradeHistoryStore,
	markets domain.MarketHistoryStore,
	archiver domain.Archiver,
	source TradeSource,
	catalog CatalogSource,
	logger *slog.Logger,
) (*Collector, error) {
	if trades == nil || markets == nil || source == nil || catalog == nil {
		return nil, errors.New("history: trades, markets, source and catalog are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Collector{
		cfg:      cfg,
		trades:   trades,
		markets:  markets,
		archiver: archiver,
		source:   source,
		catalog:  catalog,
		logger:   logger.With(slog.String("component", "history")),
		now:      time.Now,
	}
	if archiver != nil && cfg.ArchiveCron != "" {
		s, err := cron.ParseStandard(cfg.ArchiveCron)
		if err != nil {
			return nil, fmt.Errorf("history: archive_cron %q: %w", cfg.ArchiveCron, err)
		}
		c.schedule = s
	}
	return c, nil
}

// WithClock replaces the wall clock.
func (c *Collector) WithClock(now func() time.Time) *Collector {
	c.now = now
	return c
}

// Run drives the backfill and snapshot loops and the archive schedule until
// ctx ends.
func (c *Collector) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return every(gctx, c.cfg.CollectInterval, func(ctx context.Context) {
			n, err := c.Backfill(ctx)
			if err != nil {
				c.logger.WarnContext(ctx, "trade backfill failed", slog.String("error", err.Error()))
				return
			}
			if n > 0 {
				c.logger.InfoContext(ctx, "trades backfilled", slog.Int("count", n))
			}
		})
	})
	g.Go(func() error {
		return every(gctx, c.cfg.SnapshotInterval, func(ctx context.Context) {
			n, err := c.Snapshot(ctx)
			if err != nil {
				c.logger.WarnContext(ctx, "market snapshot failed", slog.String("error", err.Error()))
				return
			}
			c.logger.DebugContext(ctx, "market snapshot stored", slog.Int64("items", n))
		})
	})

	if c.schedule != nil {
		g.Go(func() error {
			sched := cron.New()
			sched.Schedule(c.schedule, cron.FuncJob(func() {
				if err := c.Archive(gctx); err != nil {
					c.logger.ErrorContext(gctx, "archive run failed", slog.String("error", err.Error()))
				}
			}))
			sched.Start()
			c.logger.InfoContext(gctx, "archive scheduled",
				slog.String("cron", c.cfg.ArchiveCron),
				slog.Time("next", c.schedule.Next(c.now())),
			)
			<-gctx.Done()
			<-sched.Stop().Done()
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// every runs fn immediately and then every interval. A non-positive
// interval disables the loop.
func every(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		fn(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Snapshot stores the current catalog. An empty catalog stores nothing.
func (c *Collector) Snapshot(ctx context.Context) (int64, error) {
	cat := c.catalog.Catalog()
	if len(cat) == 0 {
		return 0, nil
	}
	n, err := c.markets.InsertSnapshot(ctx, c.now().UTC().Truncate(time.Second), cat)
	if err != nil {
		return 0, fmt.Errorf("history: snapshot: %w", err)
	}
	return n, nil
}

// Backfill stores the newest completed and inactive trades that are not
// recorded yet.
func (c *Collector) Backfill(ctx context.Context) (int, error) {
	cat := c.catalog.Catalog()
	var fresh []domain.TradeRecord

	for _, dir := range []domain.OfferDirection{domain.OfferCompleted, domain.OfferInactive} {
		page, err := c.source.ListOffers(ctx, dir, "", backfillPage)
		if err != nil {
			return 0, fmt.Errorf("history: list %s: %w", dir, err)
		}
		for _, o := range page.Offers {
			_, err := c.trades.GetByID(ctx, o.ID)
			if err == nil {
				continue
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return 0, fmt.Errorf("history: lookup %d: %w", o.ID, err)
			}
			detail, err := c.source.GetOffer(ctx, o.ID)
			if err != nil {
				if k := domain.KindOf(err); k == domain.FailureAuth || k == domain.FailureShutdown {
					return 0, err
				}
				c.logger.WarnContext(ctx, "trade detail unavailable", slog.Int64("trade_id", o.ID), slog.String("error", err.Error()))
				continue
			}
			fresh = append(fresh, domain.NewTradeRecord(detail, cat))
		}
	}

	if err := c.trades.UpsertBatch(ctx, fresh); err != nil {
		return 0, fmt.Errorf("history: store trades: %w", err)
	}
	return len(fresh), nil
}

// Archive moves trades and snapshots older than the retention period.
func (c *Collector) Archive(ctx context.Context) error {
	if c.archiver == nil {
		return nil
	}
	cutoff := c.now().UTC().AddDate(0, 0, -c.cfg.RetentionDays)

	trades, err := c.archiver.ArchiveTrades(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("history: archive trades before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	snaps, err := c.archiver.ArchiveMarketHistory(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("history: archive market history before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	c.logger.InfoContext(ctx, "archive run complete",
		slog.Time("cutoff", cutoff),
		slog.Int64("trades", trades),
		slog.Int64("snapshots", snaps),
	)
	return nil
}
