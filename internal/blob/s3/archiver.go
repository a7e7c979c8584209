package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

const (
	// DefaultBatch bounds the rows moved by one archive call.
	DefaultBatch = 50000
	jsonlType    = "application/x-ndjson"
)

// Archiver implements domain.Archiver. Rows older than the cutoff are
// written to one JSONL object per call, the upload is confirmed, and only
// then are the rows deleted from the database.
type Archiver struct {
	writer  domain.BlobWriter
	reader  domain.BlobReader
	trades  domain.TradeHistoryStore
	markets domain.MarketHistoryStore
	audit   domain.AuditStore
	batch   int
}

// NewArchiver creates an Archiver moving at most batch rows per call. A
// nil audit store skips audit entries.
func NewArchiver(
	writer domain.BlobWriter,
	reader domain.BlobReader,
	trades domain.TradeHistoryStore,
	markets domain.MarketHistoryStore,
	audit domain.AuditStore,
	batch int,
) *Archiver {
	if batch <= 0 {
		batch = DefaultBatch
	}
	return &Archiver{writer: writer, reader: reader, trades: trades, markets: markets, audit: audit, batch: batch}
}

type tradeLine struct {
	TradeID   int64       `json:"trade_id"`
	PartnerID int64       `json:"partner_id"`
	Status    string      `json:"status"`
	Kind      string      `json:"kind"`
	Profit    int64       `json:"profit"`
	Created   time.Time   `json:"created"`
	Updated   time.Time   `json:"updated"`
	Assets    []assetLine `json:"assets"`
}

type assetLine struct {
	AssetID  int64  `json:"asset_id"`
	Name     string `json:"name"`
	Received bool   `json:"received"`
	Value    int64  `json:"value"`
	RAP      int64  `json:"rap"`
}

type snapshotLine struct {
	At        time.Time `json:"at"`
	ItemID    int64     `json:"item_id"`
	Name      string    `json:"name"`
	RAP       int64     `json:"rap"`
	Value     int64     `json:"value"`
	Demand    int       `json:"demand"`
	Trend     int       `json:"trend"`
	Projected bool      `json:"projected"`
	Hyped     bool      `json:"hyped"`
	Rare      bool      `json:"rare"`
}

func toTradeLine(r domain.TradeRecord, _ int) tradeLine {
	return tradeLine{
		TradeID:   r.TradeID,
		PartnerID: r.PartnerID,
		Status:    r.Status,
		Kind:      string(r.Kind),
		Profit:    r.Profit,
		Created:   r.Created,
		Updated:   r.Updated,
		Assets: lo.Map(r.Assets, func(a domain.TradeAsset, _ int) assetLine {
			return assetLine(a)
		}),
	}
}

func toSnapshotLine(s domain.MarketSnapshot, _ int) snapshotLine {
	it := s.Item
	return snapshotLine{
		At: s.At, ItemID: it.ID, Name: it.Name, RAP: it.RAP, Value: it.Value,
		Demand: it.Demand, Trend: it.Trend, Projected: it.Projected, Hyped: it.Hyped, Rare: it.Rare,
	}
}

// ArchiveTrades moves trades last updated before the cutoff.
func (a *Archiver) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	recs, err := a.trades.ListBefore(ctx, before, a.batch)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades: %w", err)
	}
	recs, cutoff := completeBatch(recs, a.batch, before, func(r domain.TradeRecord) time.Time { return r.Updated })
	return archive(ctx, a, "trades", cutoff, lo.Map(recs, toTradeLine), a.trades.DeleteBefore)
}

// ArchiveMarketHistory moves catalog snapshots taken before the cutoff.
func (a *Archiver) ArchiveMarketHistory(ctx context.Context, before time.Time) (int64, error) {
	snaps, err := a.markets.ListBefore(ctx, before, a.batch)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive market history: %w", err)
	}
	snaps, cutoff := completeBatch(snaps, a.batch, before, func(s domain.MarketSnapshot) time.Time { return s.At })
	return archive(ctx, a, "market_history", cutoff, lo.Map(snaps, toSnapshotLine), a.markets.DeleteBefore)
}

// completeBatch handles a full batch, which may stop partway through rows
// sharing one timestamp. It drops the rows at the last timestamp and lowers
// the cutoff to it, so that deleting before the cutoff removes exactly the
// rows kept. rows must be sorted oldest first.
func completeBatch[T any](rows []T, limit int, before time.Time, at func(T) time.Time) ([]T, time.Time) {
	if len(rows) < limit || len(rows) == 0 {
		return rows, before
	}
	last := at(rows[len(rows)-1])
	n := len(rows)
	for n > 0 && !at(rows[n-1]).Before(last) {
		n--
	}
	return rows[:n], last
}

func archive[T any](
	ctx context.Context,
	a *Archiver,
	kind string,
	cutoff time.Time,
	lines []T,
	deleteBefore func(context.Context, time.Time) (int64, error),
) (int64, error) {
	if len(lines) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(lines)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive %s: %w", kind, err)
	}
	path := archivePath(kind, cutoff)

	if int64(len(buf)) > MinPartSize {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), MinPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), jsonlType)
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive %s upload: %w", kind, err)
	}

	ok, err := a.reader.Exists(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive %s verify: %w", kind, err)
	}
	if !ok {
		return 0, fmt.Errorf("s3blob: archive %s: %s missing after upload", kind, path)
	}

	deleted, err := deleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive %s delete: %w", kind, err)
	}

	count := int64(len(lines))
	if a.audit != nil {
		if err := a.audit.Log(ctx, "archive."+kind, map[string]any{
			"path":    path,
			"count":   count,
			"deleted": deleted,
			"before":  cutoff.UTC().Format(time.RFC3339),
		}); err != nil {
			return count, fmt.Errorf("s3blob: archive %s audit: %w", kind, err)
		}
	}
	return count, nil
}

// archivePath names an archive object by kind and cutoff, e.g.
// archive/trades/2025-01/20250114T030000Z.jsonl.
func archivePath(kind string, cutoff time.Time) string {
	u := cutoff.UTC()
	return fmt.Sprintf("archive/%s/%s/%s.jsonl", kind, u.Format("2006-01"), u.Format("20060102T150405Z"))
}

// marshalJSONL encodes one compact JSON document per line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.Archiver = (*Archiver)(nil)
