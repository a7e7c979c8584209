package roblox

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// MaxPageSize is the largest page the trades API serves.
const MaxPageSize = 100

// AuthenticatedUserID returns the account id behind the cookie. The id is
// cached after the first successful call.
func (c *Client) AuthenticatedUserID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	id := c.selfID
	c.mu.Unlock()
	if id != 0 {
		return id, nil
	}

	var u apiAuthenticatedUser
	if err := c.getJSON(ctx, c.ep.Users+"/v1/users/authenticated", &u); err != nil {
		return 0, fmt.Errorf("roblox: authenticated user: %w", err)
	}
	if u.ID == 0 {
		return 0, fmt.Errorf("roblox: authenticated user: %w: empty id", domain.ErrMalformedResponse)
	}

	c.mu.Lock()
	c.selfID = u.ID
	c.mu.Unlock()
	return u.ID, nil
}

// ListOffers returns one page of offers, newest first.
func (c *Client) ListOffers(ctx context.Context, dir domain.OfferDirection, cursor string, limit int) (domain.OfferPage, error) {
	params := url.Values{}
	params.Set("cursor", cursor)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("sortOrder", "Desc")

	var page apiTradePage
	if err := c.getJSON(ctx, c.ep.Trades+"/v1/trades/"+string(dir)+"?"+params.Encode(), &page); err != nil {
		return domain.OfferPage{}, fmt.Errorf("roblox: list %s offers: %w", dir, err)
	}
	return page.toDomain(), nil
}

// GetOffer returns an offer split into the operator's and partner's sides.
func (c *Client) GetOffer(ctx context.Context, id int64) (domain.OfferDetail, error) {
	self, err := c.AuthenticatedUserID(ctx)
	if err != nil {
		return domain.OfferDetail{}, err
	}

	var raw apiTradeDetail
	if err := c.getJSON(ctx, fmt.Sprintf("%s/v1/trades/%d", c.ep.Trades, id), &raw); err != nil {
		return domain.OfferDetail{}, fmt.Errorf("roblox: get offer %d: %w", id, err)
	}
	if len(raw.Offers) != 2 {
		return domain.OfferDetail{}, fmt.Errorf("roblox: get offer %d: %w: %d offers", id, domain.ErrMalformedResponse, len(raw.Offers))
	}

	mine, theirs := raw.Offers[0], raw.Offers[1]
	if mine.User.ID != self {
		mine, theirs = theirs, mine
	}
	detail := domain.OfferDetail{
		ID:        raw.ID,
		Status:    raw.Status,
		Created:   raw.Created,
		PartnerID: theirs.User.ID,
		Giving:    mine.toDomain(),
		Receiving: theirs.toDomain(),
	}
	if raw.Updated != nil {
		detail.Updated = *raw.Updated
	}
	return detail, nil
}

// SendOffer opens a new trade and returns its id.
func (c *Client) SendOffer(ctx context.Context, req domain.TradeRequest) (int64, error) {
	var out apiTradeID
	if err := c.postJSON(ctx, c.ep.Trades+"/v1/trades/send", newTradeRequest(req), &out); err != nil {
		return 0, fmt.Errorf("roblox: send offer to %d: %w", req.PartnerID, err)
	}
	return out.ID, nil
}

// CounterOffer replaces offer id with req and returns the new trade id.
func (c *Client) CounterOffer(ctx context.Context, id int64, req domain.TradeRequest) (int64, error) {
	var out apiTradeID
	if err := c.postJSON(ctx, fmt.Sprintf("%s/v1/trades/%d/counter", c.ep.Trades, id), newTradeRequest(req), &out); err != nil {
		return 0, fmt.Errorf("roblox: counter offer %d: %w", id, err)
	}
	return out.ID, nil
}

// AcceptOffer accepts an inbound offer.
func (c *Client) AcceptOffer(ctx context.Context, id int64) error {
	if err := c.postJSON(ctx, fmt.Sprintf("%s/v1/trades/%d/accept", c.ep.Trades, id), struct{}{}, nil); err != nil {
		return fmt.Errorf("roblox: accept offer %d: %w", id, err)
	}
	return nil
}

// DeclineOffer declines an inbound offer or cancels an outbound one.
func (c *Client) DeclineOffer(ctx context.Context, id int64) error {
	if err := c.postJSON(ctx, fmt.Sprintf("%s/v1/trades/%d/decline", c.ep.Trades, id), struct{}{}, nil); err != nil {
		return fmt.Errorf("roblox: decline offer %d: %w", id, err)
	}
	return nil
}
