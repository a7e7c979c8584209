package domain

import "time"

// OfferDirection selects which offer list to page through.
type OfferDirection string

const (
	OfferInbound   OfferDirection = "inbound"
	OfferOutbound  OfferDirection = "outbound"
	OfferCompleted OfferDirection = "completed"
	OfferInactive  OfferDirection = "inactive"
)

// OfferSummary is one row of an offer listing.
type OfferSummary struct {
	ID          int64
	PartnerID   int64
	PartnerName string
	Status      string
	Created     time.Time
}

// OfferPage is a page of offers plus the cursor for the next one.
type OfferPage struct {
	Offers     []OfferSummary
	NextCursor string
}

// OfferAsset is an item copy placed on one side of an offer.
type OfferAsset struct {
	UserAssetID int64
	AssetID     int64
	Name        string
	RAP         int64
}

// OfferSide is what one participant puts into an offer.
type OfferSide struct {
	UserID int64
	Assets []OfferAsset
	Robux  int64
}

// AssetIDs returns the asset ids on this side in offer order.
func (s OfferSide) AssetIDs() []int64 {
	ids := make([]int64, len(s.Assets))
	for i, a := range s.Assets {
		ids[i] = a.AssetID
	}
	return ids
}

// OfferDetail is the full record of an offer seen from the operator's account.
// Giving is the operator's side, Receiving the partner's.
type OfferDetail struct {
	ID        int64
	Status    string
	Created   time.Time
	Updated   time.Time
	PartnerID int64
	Giving    OfferSide
	Receiving OfferSide
}

// HasRobux reports whether either side carries currency.
func (d OfferDetail) HasRobux() bool {
	return d.Giving.Robux > 0 || d.Receiving.Robux > 0
}

// TradeRequest is the payload of an outgoing or counter offer.
type TradeRequest struct {
	SenderID      int64
	SenderAssets  []int64
	PartnerID     int64
	PartnerAssets []int64
}

// TradeKind labels a finished trade by item counts.
type TradeKind string

const (
	TradeUpgrade   TradeKind = "Upgrade"
	TradeDowngrade TradeKind = "Downgrade"
	TradeSidegrade TradeKind = "Sidegrade"
)

// ClassifyTrade compares the number of items given and received.
func ClassifyTrade(given, received int) TradeKind {
	switch {
	case received < given:
		return TradeUpgrade
	case received > given:
		return TradeDowngrade
	default:
		return TradeSidegrade
	}
}

// TradeAsset is an item recorded in trade history.
type TradeAsset struct {
	AssetID  int64
	Name     string
	Received bool
	Value    int64
	RAP      int64
}

// TradeRecord is a finished trade kept in history.
type TradeRecord struct {
	TradeID   int64
	PartnerID int64
	Status    string
	Kind      TradeKind
	Profit    int64
	Created   time.Time
	Updated   time.Time
	Assets    []TradeAsset
}

// NewTradeRecord values detail against catalog. Items missing from the
// catalog fall back to the RAP reported on the offer.
func NewTradeRecord(detail OfferDetail, catalog Catalog) TradeRecord {
	rec := TradeRecord{
		TradeID:   detail.ID,
		PartnerID: detail.PartnerID,
		Status:    detail.Status,
		Kind:      ClassifyTrade(len(detail.Giving.Assets), len(detail.Receiving.Assets)),
		Created:   detail.Created,
		Updated:   detail.Updated,
	}
	if rec.Updated.IsZero() {
		rec.Updated = rec.Created
	}
	add := func(a OfferAsset, received bool) int64 {
		asset := TradeAsset{AssetID: a.AssetID, Name: a.Name, Received: received, Value: UnknownValue, RAP: a.RAP}
		worth := a.RAP
		if it, ok := catalog.Lookup(a.AssetID); ok {
			asset.Value = it.Value
			asset.RAP = it.RAP
			worth = it.EffectiveValue()
		}
		rec.Assets = append(rec.Assets, asset)
		return worth
	}
	var given, received int64
	for _, a := range detail.Giving.Assets {
		given += add(a, false)
	}
	for _, a := range detail.Receiving.Assets {
		received += add(a, true)
	}
	rec.Profit = received - given
	return rec
}
