package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// TradeHistoryStore persists finished trades and their assets.
type TradeHistoryStore interface {
	UpsertBatch(ctx context.Context, records []TradeRecord) error
	GetByID(ctx context.Context, tradeID int64) (TradeRecord, error)
	List(ctx context.Context, opts ListOpts) ([]TradeRecord, error)
	ListBefore(ctx context.Context, before time.Time, limit int) ([]TradeRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
	SumProfit(ctx context.Context, since time.Time) (int64, error)
}

// MarketSnapshot is one item's market record at a point in time.
type MarketSnapshot struct {
	At   time.Time
	Item Item
}

// MarketHistoryStore persists periodic catalog snapshots.
type MarketHistoryStore interface {
	InsertSnapshot(ctx context.Context, at time.Time, catalog Catalog) (int64, error)
	ListItem(ctx context.Context, itemID int64, opts ListOpts) ([]MarketSnapshot, error)
	ListBefore(ctx context.Context, before time.Time, limit int) ([]MarketSnapshot, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
