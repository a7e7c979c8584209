package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// TradeHistoryStore implements domain.TradeHistoryStore. Assets are kept
// inline as JSONB.
type TradeHistoryStore struct {
	pool *pgxpool.Pool
}

// NewTradeHistoryStore creates a TradeHistoryStore backed by pool.
func NewTradeHistoryStore(pool *pgxpool.Pool) *TradeHistoryStore {
	return &TradeHistoryStore{pool: pool}
}

type assetJSON struct {
	AssetID  int64  `json:"asset_id"`
	Name     string `json:"name"`
	Received bool   `json:"received"`
	Value    int64  `json:"value"`
	RAP      int64  `json:"rap"`
}

func encodeAssets(in []domain.TradeAsset) ([]byte, error) {
	out := make([]assetJSON, len(in))
	for i, a := range in {
		out[i] = assetJSON(a)
	}
	return json.Marshal(out)
}

func decodeAssets(raw []byte) ([]domain.TradeAsset, error) {
	var in []assetJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	out := make([]domain.TradeAsset, len(in))
	for i, a := range in {
		out[i] = domain.TradeAsset(a)
	}
	return out, nil
}

const tradeCols = `trade_id, partner_id, status, kind, profit, assets, created_at, updated_at`

func scanTrade(row pgx.CollectableRow) (domain.TradeRecord, error) {
	var r domain.TradeRecord
	var kind string
	var raw []byte
	if err := row.Scan(&r.TradeID, &r.PartnerID, &r.Status, &kind, &r.Profit, &raw, &r.Created, &r.Updated); err != nil {
		return r, err
	}
	r.Kind = domain.TradeKind(kind)
	assets, err := decodeAssets(raw)
	if err != nil {
		return r, fmt.Errorf("trade %d assets: %w", r.TradeID, err)
	}
	r.Assets = assets
	return r, nil
}

// UpsertBatch writes records in one batch. A trade already stored is
// overwritten so a later status wins.
func (s *TradeHistoryStore) UpsertBatch(ctx context.Context, records []domain.TradeRecord) error {
	if len(records) == 0 {
		return nil
	}

	const query = `
		INSERT INTO trade_history (` + tradeCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (trade_id) DO UPDATE SET
			status     = EXCLUDED.status,
			kind       = EXCLUDED.kind,
			profit     = EXCLUDED.profit,
			assets     = EXCLUDED.assets,
			updated_at = EXCLUDED.updated_at`

	batch := &pgx.Batch{}
	for _, r := range records {
		assets, err := encodeAssets(r.Assets)
		if err != nil {
			return fmt.Errorf("postgres: encode trade %d: %w", r.TradeID, err)
		}
		batch.Queue(query, r.TradeID, r.PartnerID, r.Status, string(r.Kind), r.Profit, assets, r.Created, r.Updated)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for _, r := range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert trade %d: %w", r.TradeID, err)
		}
	}
	return nil
}

// GetByID returns domain.ErrNotFound for an unknown trade.
func (s *TradeHistoryStore) GetByID(ctx context.Context, tradeID int64) (domain.TradeRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+tradeCols+` FROM trade_history WHERE trade_id = $1`, tradeID)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("postgres: get trade %d: %w", tradeID, err)
	}
	r, err := pgx.CollectExactlyOneRow(rows, scanTrade)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TradeRecord{}, fmt.Errorf("postgres: trade %d: %w", tradeID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("postgres: get trade %d: %w", tradeID, err)
	}
	return r, nil
}

// List returns trades newest first by last update.
func (s *TradeHistoryStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.TradeRecord, error) {
	q := newListQuery(`SELECT ` + tradeCols + ` FROM trade_history WHERE TRUE`).window("updated_at", opts)
	return s.collect(ctx, "list trades", q.String(), q.args...)
}

// ListBefore returns up to limit trades updated before the cutoff, oldest
// first.
func (s *TradeHistoryStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.TradeRecord, error) {
	return s.collect(ctx, "list trades before",
		`SELECT `+tradeCols+` FROM trade_history WHERE updated_at < $1 ORDER BY updated_at ASC LIMIT $2`,
		before, limit)
}

// DeleteBefore removes trades updated before the cutoff.
func (s *TradeHistoryStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trade_history WHERE updated_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SumProfit totals the profit of completed trades updated since the cutoff.
func (s *TradeHistoryStore) SumProfit(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(profit), 0) FROM trade_history WHERE status = 'Completed' AND updated_at >= $1`,
		since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("postgres: sum profit: %w", err)
	}
	return total, nil
}

func (s *TradeHistoryStore) collect(ctx context.Context, op, query string, args ...any) ([]domain.TradeRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	out, err := pgx.CollectRows(rows, scanTrade)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	return out, nil
}

var _ domain.TradeHistoryStore = (*TradeHistoryStore)(nil)
