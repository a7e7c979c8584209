package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

func TestItemEffectiveValue(t *testing.T) {
	rq := require.New(t)

	rq.Equal(int64(900), domain.Item{RAP: 900, Value: domain.UnknownValue}.EffectiveValue())
	rq.Equal(int64(1200), domain.Item{RAP: 900, Value: 1200}.EffectiveValue())
	rq.False(domain.Item{Value: domain.UnknownValue}.HasValue())
}

func TestInventoryOnlyHeld(t *testing.T) {
	rq := require.New(t)

	testCases := []struct {
		name string
		inv  domain.Inventory
		want bool
	}{
		{
			name: "single held item",
			inv:  domain.Inventory{1: {{UserAssetID: 10, AssetID: 1, OnHold: true}}},
			want: true,
		},
		{
			name: "single tradeable item",
			inv:  domain.Inventory{1: {{UserAssetID: 10, AssetID: 1}}},
		},
		{
			name: "two items one held",
			inv: domain.Inventory{
				1: {{UserAssetID: 10, AssetID: 1, OnHold: true}},
				2: {{UserAssetID: 11, AssetID: 2}},
			},
		},
		{
			name: "empty",
			inv:  domain.Inventory{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(*testing.T) {
			_, got := tc.inv.OnlyHeld()
			rq.Equal(tc.want, got)
		})
	}
}

func TestInventoryTradeable(t *testing.T) {
	rq := require.New(t)

	inv := domain.Inventory{
		2: {{UserAssetID: 21, AssetID: 2}, {UserAssetID: 20, AssetID: 2, OnHold: true}},
		1: {{UserAssetID: 10, AssetID: 1}},
	}

	got := inv.Tradeable()
	rq.Len(got, 2)
	rq.Equal(int64(10), got[0].UserAssetID)
	rq.Equal(int64(21), got[1].UserAssetID)
	rq.True(inv.Owns(2))
	rq.False(inv.Owns(3))
	rq.Equal(3, inv.Count())
}

func TestCatalogMergeAndEqual(t *testing.T) {
	rq := require.New(t)

	base := domain.Catalog{1: {ID: 1, Name: "A", RAP: 10, Value: -1}}
	merged := base.Merge(domain.Catalog{1: {ID: 1, Name: "A", RAP: 10, Value: 50}, 2: {ID: 2, Name: "B"}})

	rq.Len(merged, 2)
	rq.Equal(int64(50), merged[1].Value)
	rq.Equal(int64(-1), base[1].Value)
	rq.False(base.Equal(merged))
	rq.True(merged.Equal(merged.Merge(nil)))
}

func TestClassifyTrade(t *testing.T) {
	rq := require.New(t)

	rq.Equal(domain.TradeUpgrade, domain.ClassifyTrade(3, 1))
	rq.Equal(domain.TradeDowngrade, domain.ClassifyTrade(1, 2))
	rq.Equal(domain.TradeSidegrade, domain.ClassifyTrade(2, 2))
}

func TestNewTradeRecord(t *testing.T) {
	rq := require.New(t)

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	detail := domain.OfferDetail{
		ID:        99,
		Status:    "Completed",
		Created:   created,
		PartnerID: 7,
		Giving:    domain.OfferSide{Assets: []domain.OfferAsset{{AssetID: 1, Name: "A", RAP: 100}, {AssetID: 2, Name: "B", RAP: 80}}},
		Receiving: domain.OfferSide{Assets: []domain.OfferAsset{{AssetID: 3, Name: "C", RAP: 400}}},
	}
	catalog := domain.Catalog{
		1: {ID: 1, RAP: 100, Value: 150},
		3: {ID: 3, RAP: 400, Value: -1},
	}

	rec := domain.NewTradeRecord(detail, catalog)
	rq.Equal(domain.TradeUpgrade, rec.Kind)
	rq.Equal(int64(400-150-80), rec.Profit)
	rq.Equal(created, rec.Updated)
	rq.Len(rec.Assets, 3)
	rq.True(rec.Assets[2].Received)
}

func TestKindOf(t *testing.T) {
	rq := require.New(t)

	testCases := []struct {
		err  error
		want domain.FailureKind
	}{
		{nil, domain.FailureNone},
		{fmt.Errorf("roblox: inbound: %w", domain.ErrAuthInvalid), domain.FailureAuth},
		{fmt.Errorf("send: %w", domain.ErrRateLimited), domain.FailureRateLimited},
		{domain.ErrCooldown, domain.FailureRateLimited},
		{fmt.Errorf("decode: %w", domain.ErrMalformedResponse), domain.FailureSkip},
		{domain.ErrNoViableCandidate, domain.FailureEmpty},
		{context.Canceled, domain.FailureShutdown},
		{errors.New("dial tcp: timeout"), domain.FailureTransient},
	}

	for _, tc := range testCases {
		t.Run(tc.want.String(), func(*testing.T) {
			rq.Equal(tc.want, domain.KindOf(tc.err))
		})
	}
}
