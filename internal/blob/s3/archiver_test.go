package s3blob_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	s3blob "github.com/alanyoungcy/limitedbot/internal/blob/s3"
	"github.com/alanyoungcy/limitedbot/internal/domain"
)

type memBlobs struct {
	objects map[string][]byte
	putErr  error
}

func newMemBlobs() *memBlobs { return &memBlobs{objects: map[string][]byte{}} }

func (m *memBlobs) Put(_ context.Context, path string, data io.Reader, _ string) error {
	if m.putErr != nil {
		return m.putErr
	}
	b, err := io.ReadAll(data)
	m.objects[path] = b
	return err
}

func (m *memBlobs) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	return m.Put(ctx, path, data, "")
}

func (m *memBlobs) Get(_ context.Context, path string) (io.ReadCloser, error) {
	b, ok := m.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memBlobs) List(context.Context, string) ([]domain.BlobInfo, error) { return nil, nil }

func (m *memBlobs) Exists(_ context.Context, path string) (bool, error) {
	_, ok := m.objects[path]
	return ok, nil
}

type memTrades struct {
	domain.TradeHistoryStore
	rows    []domain.TradeRecord
	deleted []time.Time
}

func (m *memTrades) ListBefore(_ context.Context, before time.Time, limit int) ([]domain.TradeRecord, error) {
	var out []domain.TradeRecord
	for _, r := range m.rows {
		if r.Updated.Before(before) && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memTrades) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	m.deleted = append(m.deleted, before)
	var kept []domain.TradeRecord
	var n int64
	for _, r := range m.rows {
		if r.Updated.Before(before) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return n, nil
}

type memAudit struct {
	events []string
}

func (m *memAudit) Log(_ context.Context, event string, _ map[string]any) error {
	m.events = append(m.events, event)
	return nil
}

func (m *memAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func trade(id int64, at time.Time) domain.TradeRecord {
	return domain.TradeRecord{
		TradeID: id, PartnerID: 2, Status: "Completed", Kind: domain.TradeUpgrade,
		Profit: 10, Created: at, Updated: at,
		Assets: []domain.TradeAsset{{AssetID: 100, Name: "Alpha", Value: 1000, RAP: 900}},
	}
}

func readLines(t *testing.T, b []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	return out
}

func TestArchiveTradesUploadsThenDeletes(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	cutoff := base.Add(48 * time.Hour)
	store := &memTrades{rows: []domain.TradeRecord{
		trade(1, base),
		trade(2, base.Add(time.Hour)),
		trade(3, cutoff.Add(time.Hour)),
	}}
	blobs := newMemBlobs()
	audit := &memAudit{}

	a := s3blob.NewArchiver(blobs, blobs, store, nil, audit, 0)
	n, err := a.ArchiveTrades(ctx, cutoff)
	rq.NoError(err)
	rq.Equal(int64(2), n)

	rq.Len(blobs.objects, 1)
	body, ok := blobs.objects["archive/trades/2025-01/20250112T000000Z.jsonl"]
	rq.True(ok)
	lines := readLines(t, body)
	rq.Len(lines, 2)
	rq.EqualValues(1, lines[0]["trade_id"])
	rq.Equal("Upgrade", lines[0]["kind"])

	rq.Len(store.rows, 1)
	rq.Equal([]string{"archive.trades"}, audit.events)
}

func TestArchiveFullBatchStopsAtTimestampBoundary(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	store := &memTrades{rows: []domain.TradeRecord{
		trade(1, base),
		trade(2, base.Add(time.Minute)),
		trade(3, base.Add(time.Minute)),
	}}
	blobs := newMemBlobs()

	a := s3blob.NewArchiver(blobs, blobs, store, nil, nil, 2)
	n, err := a.ArchiveTrades(ctx, base.Add(time.Hour))
	rq.NoError(err)
	rq.Equal(int64(1), n)
	rq.Equal([]time.Time{base.Add(time.Minute)}, store.deleted)
	rq.Len(store.rows, 2)
}

func TestArchiveUploadFailureKeepsRows(t *testing.T) {
	rq := require.New(t)

	base := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	store := &memTrades{rows: []domain.TradeRecord{trade(1, base)}}
	blobs := newMemBlobs()
	blobs.putErr = errors.New("bucket gone")

	a := s3blob.NewArchiver(blobs, blobs, store, nil, nil, 0)
	_, err := a.ArchiveTrades(context.Background(), base.Add(time.Hour))
	rq.Error(err)
	rq.True(strings.Contains(err.Error(), "bucket gone"))
	rq.Len(store.rows, 1)
	rq.Empty(store.deleted)
}

func TestArchiveNothingToDo(t *testing.T) {
	store := &memTrades{}
	blobs := newMemBlobs()
	a := s3blob.NewArchiver(blobs, blobs, store, nil, nil, 0)

	n, err := a.ArchiveTrades(context.Background(), time.Now())
	require.NoError(t, err)
	require.Zero(t, n)
	require.Empty(t, blobs.objects)
}
