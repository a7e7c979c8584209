package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// MarketHistoryStore implements domain.MarketHistoryStore. Snapshots are
// bulk loaded with COPY.
type MarketHistoryStore struct {
	pool *pgxpool.Pool
}

// NewMarketHistoryStore creates a MarketHistoryStore backed by pool.
func NewMarketHistoryStore(pool *pgxpool.Pool) *MarketHistoryStore {
	return &MarketHistoryStore{pool: pool}
}

var snapshotCols = []string{"item_id", "taken_at", "name", "rap", "value", "demand", "trend", "projected", "hyped", "rare"}

const snapshotSelect = `SELECT item_id, taken_at, name, rap, value, demand, trend, projected, hyped, rare FROM market_snapshots`

func scanSnapshot(row pgx.CollectableRow) (domain.MarketSnapshot, error) {
	var s domain.MarketSnapshot
	var demand, trend int16
	err := row.Scan(&s.Item.ID, &s.At, &s.Item.Name, &s.Item.RAP, &s.Item.Value,
		&demand, &trend, &s.Item.Projected, &s.Item.Hyped, &s.Item.Rare)
	s.Item.Demand, s.Item.Trend = int(demand), int(trend)
	return s, err
}

// InsertSnapshot copies every catalog item stamped with at.
func (s *MarketHistoryStore) InsertSnapshot(ctx context.Context, at time.Time, catalog domain.Catalog) (int64, error) {
	if len(catalog) == 0 {
		return 0, nil
	}
	rows := make([][]any, 0, len(catalog))
	for _, it := range catalog {
		rows = append(rows, []any{
			it.ID, at, it.Name, it.RAP, it.Value,
			int16(it.Demand), int16(it.Trend), it.Projected, it.Hyped, it.Rare,
		})
	}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{"market_snapshots"}, snapshotCols, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("postgres: copy market snapshot: %w", err)
	}
	return n, nil
}

// ListItem returns one item's snapshots newest first.
func (s *MarketHistoryStore) ListItem(ctx context.Context, itemID int64, opts domain.ListOpts) ([]domain.MarketSnapshot, error) {
	q := newListQuery(snapshotSelect+` WHERE item_id = $1`, itemID).window("taken_at", opts)
	return s.collect(ctx, "list item snapshots", q.String(), q.args...)
}

// ListBefore returns up to limit snapshots taken before the cutoff, oldest
// first.
func (s *MarketHistoryStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.MarketSnapshot, error) {
	return s.collect(ctx, "list snapshots before",
		snapshotSelect+` WHERE taken_at < $1 ORDER BY taken_at ASC, item_id ASC LIMIT $2`,
		before, limit)
}

// DeleteBefore removes snapshots taken before the cutoff.
func (s *MarketHistoryStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM market_snapshots WHERE taken_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete snapshots before: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *MarketHistoryStore) collect(ctx context.Context, op, query string, args ...any) ([]domain.MarketSnapshot, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	out, err := pgx.CollectRows(rows, scanSnapshot)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	return out, nil
}

var _ domain.MarketHistoryStore = (*MarketHistoryStore)(nil)
