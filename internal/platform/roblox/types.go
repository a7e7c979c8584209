package roblox

import (
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// apiUser is the user stub embedded in trade payloads.
type apiUser struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// apiTradeSummary is one row of /v1/trades/{direction}.
type apiTradeSummary struct {
	ID       int64     `json:"id"`
	User     apiUser   `json:"user"`
	Created  time.Time `json:"created"`
	IsActive bool      `json:"isActive"`
	Status   string    `json:"status"`
}

type apiTradePage struct {
	Data           []apiTradeSummary `json:"data"`
	NextPageCursor *string           `json:"nextPageCursor"`
}

func (p apiTradePage) toDomain() domain.OfferPage {
	page := domain.OfferPage{Offers: make([]domain.OfferSummary, 0, len(p.Data))}
	for _, t := range p.Data {
		page.Offers = append(page.Offers, domain.OfferSummary{
			ID:          t.ID,
			PartnerID:   t.User.ID,
			PartnerName: t.User.Name,
			Status:      t.Status,
			Created:     t.Created,
		})
	}
	if p.NextPageCursor != nil {
		page.NextCursor = *p.NextPageCursor
	}
	return page
}

// apiUserAsset is an item copy inside a trade offer. Older payloads name
// the user asset id "id", newer ones "userAssetId".
type apiUserAsset struct {
	ID                 int64  `json:"id"`
	UserAssetID        int64  `json:"userAssetId"`
	SerialNumber       *int64 `json:"serialNumber"`
	AssetID            int64  `json:"assetId"`
	Name               string `json:"name"`
	RecentAveragePrice int64  `json:"recentAveragePrice"`
}

func (a apiUserAsset) toDomain() domain.OfferAsset {
	uaid := a.UserAssetID
	if uaid == 0 {
		uaid = a.ID
	}
	return domain.OfferAsset{UserAssetID: uaid, AssetID: a.AssetID, Name: a.Name, RAP: a.RecentAveragePrice}
}

type apiOffer struct {
	User       apiUser        `json:"user"`
	UserAssets []apiUserAsset `json:"userAssets"`
	Robux      int64          `json:"robux"`
}

func (o apiOffer) toDomain() domain.OfferSide {
	side := domain.OfferSide{UserID: o.User.ID, Robux: o.Robux}
	for _, a := range o.UserAssets {
		side.Assets = append(side.Assets, a.toDomain())
	}
	return side
}

// apiTradeDetail is the body of /v1/trades/{id}.
type apiTradeDetail struct {
	ID      int64      `json:"id"`
	User    apiUser    `json:"user"`
	Offers  []apiOffer `json:"offers"`
	Created time.Time  `json:"created"`
	Updated *time.Time `json:"updated"`
	Status  string     `json:"status"`
}

// apiTradeRequest is the body of /v1/trades/send and /v1/trades/{id}/counter.
type apiTradeRequest struct {
	Offers []apiTradeRequestOffer `json:"offers"`
}

type apiTradeRequestOffer struct {
	UserID       int64   `json:"userId"`
	UserAssetIDs []int64 `json:"userAssetIds"`
	Robux        int64   `json:"robux"`
}

func newTradeRequest(r domain.TradeRequest) apiTradeRequest {
	return apiTradeRequest{Offers: []apiTradeRequestOffer{
		{UserID: r.SenderID, UserAssetIDs: r.SenderAssets, Robux: 0},
		{UserID: r.PartnerID, UserAssetIDs: r.PartnerAssets, Robux: 0},
	}}
}

type apiTradeID struct {
	ID int64 `json:"id"`
}

// apiCollectible is one row of /v1/users/{id}/assets/collectibles.
type apiCollectible struct {
	UserAssetID        int64  `json:"userAssetId"`
	SerialNumber       *int64 `json:"serialNumber"`
	AssetID            int64  `json:"assetId"`
	Name               string `json:"name"`
	RecentAveragePrice int64  `json:"recentAveragePrice"`
	IsOnHold           bool   `json:"isOnHold"`
}

type apiCollectiblePage struct {
	Data           []apiCollectible `json:"data"`
	NextPageCursor *string          `json:"nextPageCursor"`
}

type apiAuthenticatedUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
