package trader

import (
	"context"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/notify"
	"github.com/alanyoungcy/limitedbot/internal/platform/rolimons"
)

// PricingSource supplies item market records.
type PricingSource interface {
	FetchCatalog(ctx context.Context) (domain.Catalog, error)
}

// InventorySource lists a user's collectibles.
type InventorySource interface {
	FetchInventory(ctx context.Context, userID int64) (domain.Inventory, error)
}

// TradingService is the trade API of the operator's account.
type TradingService interface {
	AuthenticatedUserID(ctx context.Context) (int64, error)
	ListOffers(ctx context.Context, dir domain.OfferDirection, cursor string, limit int) (domain.OfferPage, error)
	GetOffer(ctx context.Context, id int64) (domain.OfferDetail, error)
	SendOffer(ctx context.Context, req domain.TradeRequest) (int64, error)
	CounterOffer(ctx context.Context, id int64, req domain.TradeRequest) (int64, error)
	AcceptOffer(ctx context.Context, id int64) error
	DeclineOffer(ctx context.Context, id int64) error
}

// SessionTokens re-derives the anti-forgery token.
type SessionTokens interface {
	Refresh(ctx context.Context) (string, error)
}

// AdNetwork is the public trade ad board.
type AdNetwork interface {
	RecentAds(ctx context.Context) ([]rolimons.RecentAd, error)
	PostAd(ctx context.Context, ad rolimons.Ad) error
}

// Notifier delivers operator messages.
type Notifier interface {
	Notify(ctx context.Context, event domain.EventKind, msg notify.Message) error
}

// EventSink receives bot events for the status API and bus.
type EventSink interface {
	Publish(ctx context.Context, ev domain.Event)
}

// OverrideSource returns operator value overrides keyed by item id.
type OverrideSource interface {
	Load() (map[int64]int64, error)
}

// TradeRecorder persists finished trades.
type TradeRecorder interface {
	Record(ctx context.Context, rec domain.TradeRecord) error
}
