package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind names something the bot did or observed.
type EventKind string

const (
	EventOfferAccepted  EventKind = "offer.accepted"
	EventOfferDeclined  EventKind = "offer.declined"
	EventOfferCountered EventKind = "offer.countered"
	EventOfferSent      EventKind = "offer.sent"
	EventTradeCompleted EventKind = "trade.completed"
	EventTradeInactive  EventKind = "trade.inactive"
	EventRateLimited    EventKind = "quota.rate_limited"
	EventAuthLost       EventKind = "auth.lost"
	EventAuthRecovered  EventKind = "auth.recovered"
	EventPricingLost    EventKind = "pricing.lost"
	EventCatalogUpdated EventKind = "catalog.updated"
	EventHoldPaused     EventKind = "hold.paused"
	EventHoldResumed    EventKind = "hold.resumed"
	EventAdPosted       EventKind = "ad.posted"
)

// EventChannel is the bus channel an event of this kind is published on.
func (k EventKind) EventChannel() string { return "limitedbot:events:" + string(k) }

// Event is a published record of bot activity.
type Event struct {
	ID        string         `json:"id"`
	Kind      EventKind      `json:"kind"`
	At        time.Time      `json:"at"`
	TradeID   int64          `json:"trade_id,omitempty"`
	PartnerID int64          `json:"partner_id,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// NewEvent stamps a fresh event.
func NewEvent(kind EventKind, at time.Time) Event {
	return Event{ID: uuid.NewString(), Kind: kind, At: at.UTC()}
}
