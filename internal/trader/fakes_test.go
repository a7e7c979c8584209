package trader_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/notify"
	"github.com/alanyoungcy/limitedbot/internal/platform/rolimons"
	"github.com/alanyoungcy/limitedbot/internal/quota"
	"github.com/alanyoungcy/limitedbot/internal/trader"
	"github.com/alanyoungcy/limitedbot/internal/valuation"
)

const (
	selfID    int64 = 1
	partnerID int64 = 2
)

// Catalog used across tests. RAP equals value so scores equal values.
var (
	itemA  = domain.Item{ID: 100, Name: "Alpha", RAP: 1000, Value: 1000, OriginalPrice: domain.UnknownValue, Demand: -1, Trend: -1}
	itemB  = domain.Item{ID: 101, Name: "Bravo", RAP: 1500, Value: 1500, OriginalPrice: domain.UnknownValue, Demand: -1, Trend: -1}
	itemX1 = domain.Item{ID: 102, Name: "Xray", RAP: 600, Value: 600, OriginalPrice: domain.UnknownValue, Demand: -1, Trend: -1}
	itemX2 = domain.Item{ID: 103, Name: "Xenon", RAP: 500, Value: 500, OriginalPrice: domain.UnknownValue, Demand: -1, Trend: -1}
	itemY  = domain.Item{ID: 104, Name: "Yankee", RAP: 1200, Value: 1200, OriginalPrice: domain.UnknownValue, Demand: -1, Trend: -1}
)

func testCatalog() domain.Catalog {
	return domain.Catalog{
		itemA.ID:  itemA,
		itemB.ID:  itemB,
		itemX1.ID: itemX1,
		itemX2.ID: itemX2,
		itemY.ID:  itemY,
	}
}

func entry(uaid int64, it domain.Item, onHold bool) domain.InventoryEntry {
	return domain.InventoryEntry{UserAssetID: uaid, AssetID: it.ID, Name: it.Name, RAP: it.RAP, OnHold: onHold}
}

func inventoryOf(entries ...domain.InventoryEntry) domain.Inventory {
	inv := domain.Inventory{}
	for _, e := range entries {
		inv[e.AssetID] = append(inv[e.AssetID], e)
	}
	return inv
}

func myInventory() domain.Inventory {
	return inventoryOf(entry(11, itemB, false), entry(12, itemX1, false), entry(13, itemX2, false))
}

func partnerInventory() domain.Inventory {
	return inventoryOf(entry(21, itemA, false), entry(22, itemY, false))
}

func asset(uaid int64, it domain.Item) domain.OfferAsset {
	return domain.OfferAsset{UserAssetID: uaid, AssetID: it.ID, Name: it.Name, RAP: it.RAP}
}

func offer(id int64, giving, receiving []domain.OfferAsset) domain.OfferDetail {
	return domain.OfferDetail{
		ID:        id,
		Status:    "Open",
		Created:   time.Unix(1700000000, 0),
		PartnerID: partnerID,
		Giving:    domain.OfferSide{UserID: selfID, Assets: giving},
		Receiving: domain.OfferSide{UserID: partnerID, Assets: receiving},
	}
}

type fakePricing struct {
	mu      sync.Mutex
	catalog domain.Catalog
	err     error
	calls   int
}

func (f *fakePricing) FetchCatalog(context.Context) (domain.Catalog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.catalog.Merge(nil), nil
}

func (f *fakePricing) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeInventory struct {
	mu    sync.Mutex
	users map[int64][]domain.Inventory
	calls map[int64]int
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{
		users: map[int64][]domain.Inventory{
			selfID:    {myInventory()},
			partnerID: {partnerInventory()},
		},
		calls: map[int64]int{},
	}
}

// FetchInventory returns the user's snapshots in order, repeating the last.
func (f *fakeInventory) FetchInventory(_ context.Context, userID int64) (domain.Inventory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seq, ok := f.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	i := min(f.calls[userID], len(seq)-1)
	f.calls[userID]++
	return seq[i], nil
}

type fakeTrading struct {
	mu        sync.Mutex
	authErr   error
	pages     map[domain.OfferDirection]map[string]domain.OfferPage
	details   map[int64]domain.OfferDetail
	accepted  []int64
	declined  []int64
	countered map[int64]domain.TradeRequest
	sent      []domain.TradeRequest

	counterErr error
	sendErr    error
	declineErr error
	// detailFailures makes the next n GetOffer calls fail.
	detailFailures int
}

func newFakeTrading() *fakeTrading {
	return &fakeTrading{
		pages:     map[domain.OfferDirection]map[string]domain.OfferPage{},
		details:   map[int64]domain.OfferDetail{},
		countered: map[int64]domain.TradeRequest{},
	}
}

// setOffers lists details as a single page in dir.
func (f *fakeTrading) setOffers(dir domain.OfferDirection, details ...domain.OfferDetail) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page := domain.OfferPage{}
	for _, d := range details {
		f.details[d.ID] = d
		page.Offers = append(page.Offers, domain.OfferSummary{ID: d.ID, PartnerID: d.PartnerID, Status: d.Status})
	}
	f.pages[dir] = map[string]domain.OfferPage{"": page}
}

func (f *fakeTrading) AuthenticatedUserID(context.Context) (int64, error) {
	if f.authErr != nil {
		return 0, f.authErr
	}
	return selfID, nil
}

func (f *fakeTrading) ListOffers(_ context.Context, dir domain.OfferDirection, cursor string, _ int) (domain.OfferPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pages[dir][cursor], nil
}

func (f *fakeTrading) GetOffer(_ context.Context, id int64) (domain.OfferDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detailFailures > 0 {
		f.detailFailures--
		return domain.OfferDetail{}, fmt.Errorf("offer %d: %w", id, domain.ErrUpstreamUnavailable)
	}
	d, ok := f.details[id]
	if !ok {
		return domain.OfferDetail{}, domain.ErrNotFound
	}
	return d, nil
}

func (f *fakeTrading) SendOffer(_ context.Context, req domain.TradeRequest) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.sent = append(f.sent, req)
	return int64(9000 + len(f.sent)), nil
}

func (f *fakeTrading) CounterOffer(_ context.Context, id int64, req domain.TradeRequest) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counterErr != nil {
		return 0, f.counterErr
	}
	f.countered[id] = req
	return id + 1000, nil
}

func (f *fakeTrading) AcceptOffer(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accepted = append(f.accepted, id)
	return nil
}

func (f *fakeTrading) DeclineOffer(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.declineErr != nil {
		return f.declineErr
	}
	f.declined = append(f.declined, id)
	return nil
}

type fakeAds struct {
	mu     sync.Mutex
	recent []rolimons.RecentAd
	posted []rolimons.Ad
}

func (f *fakeAds) RecentAds(context.Context) ([]rolimons.RecentAd, error) {
	return f.recent, nil
}

func (f *fakeAds) PostAd(_ context.Context, ad rolimons.Ad) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted = append(f.posted, ad)
	return nil
}

type sentMessage struct {
	kind domain.EventKind
	msg  notify.Message
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeNotifier) Notify(_ context.Context, kind domain.EventKind, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{kind: kind, msg: msg})
	return nil
}

func (f *fakeNotifier) kinds() []domain.EventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.EventKind, len(f.sent))
	for i, s := range f.sent {
		out[i] = s.kind
	}
	return out
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.Event
}

func (f *fakeEvents) Publish(_ context.Context, ev domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

type fakeRecorder struct {
	records []domain.TradeRecord
}

func (f *fakeRecorder) Record(_ context.Context, rec domain.TradeRecord) error {
	f.records = append(f.records, rec)
	return nil
}

type staticOverrides map[int64]int64

func (s staticOverrides) Load() (map[int64]int64, error) { return s, nil }

type harness struct {
	bot       *trader.Bot
	pricing   *fakePricing
	inventory *fakeInventory
	trading   *fakeTrading
	ads       *fakeAds
	notifier  *fakeNotifier
	events    *fakeEvents
	recorder  *fakeRecorder
	gate      *quota.Gate
}

type harnessOpt func(*trader.Config, *trader.Deps)

func zeroTimings() trader.Timings {
	return trader.Timings{HoldRecheck: time.Millisecond}
}

func newHarness(t *testing.T, opts ...harnessOpt) *harness {
	t.Helper()
	rq := require.New(t)

	s := valuation.DefaultSettings()
	s.Modes.TradeMethods = []string{valuation.MethodUpgrade}
	engine, err := valuation.New(s)
	rq.NoError(err)

	clock := time.Unix(1700000000, 0)
	h := &harness{
		pricing:   &fakePricing{catalog: testCatalog()},
		inventory: newFakeInventory(),
		trading:   newFakeTrading(),
		ads:       &fakeAds{},
		notifier:  &fakeNotifier{},
		events:    &fakeEvents{},
		recorder:  &fakeRecorder{},
		gate:      quota.New(quota.DefaultLimit, quota.DefaultWindow, quota.WithClock(func() time.Time { return clock })),
	}

	cfg := trader.DefaultConfig()
	cfg.Timings = zeroTimings()
	deps := trader.Deps{
		Pricing:   h.pricing,
		Inventory: h.inventory,
		Trading:   h.trading,
		Tokens:    fakeTokens{},
		AdNetwork: h.ads,
		Engine:    engine,
		Gate:      h.gate,
		Notifier:  h.notifier,
		Events:    h.events,
		Recorder:  h.recorder,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:       func() time.Time { return clock },
	}
	for _, o := range opts {
		o(&cfg, &deps)
	}

	h.bot, err = trader.New(cfg, deps)
	rq.NoError(err)
	return h
}

// boot runs Bootstrap and fails the test on error.
func (h *harness) boot(t *testing.T) {
	t.Helper()
	require.NoError(t, h.bot.Bootstrap(context.Background()))
}

type fakeTokens struct{}

func (fakeTokens) Refresh(context.Context) (string, error) { return "token", nil }
