// Package rolimons reads item values and the public trade ad feed from
// Rolimons and publishes trade ads.
package rolimons

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// Endpoints holds the API and web roots.
type Endpoints struct {
	API string
	Web string
}

// DefaultEndpoints returns the production roots.
func DefaultEndpoints() Endpoints {
	return Endpoints{API: "https://api.rolimons.com", Web: "https://www.rolimons.com"}
}

// Client is the Rolimons REST and page client.
type Client struct {
	ep           Endpoints
	verification string
	httpClient   *http.Client
}

// New creates a client. verification is the _RoliVerification cookie used
// to post ads; it may be empty when ads are not posted.
func New(ep Endpoints, verification string) *Client {
	return &Client{
		ep:           ep,
		verification: verification,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type itemDetailsResponse struct {
	Success bool                         `json:"success"`
	Items   map[string][]json.RawMessage `json:"items"`
}

// FetchCatalog downloads every item's market record.
func (c *Client) FetchCatalog(ctx context.Context) (domain.Catalog, error) {
	body, err := c.doGet(ctx, c.ep.API+"/items/v2/itemdetails")
	if err != nil {
		return nil, fmt.Errorf("rolimons: item details: %w", err)
	}

	var resp itemDetailsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("rolimons: decode item details: %w: %v", domain.ErrMalformedResponse, err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("rolimons: item details: %w: no items", domain.ErrMalformedResponse)
	}

	catalog := make(domain.Catalog, len(resp.Items))
	for key, tuple := range resp.Items {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		it, ok := parseItemTuple(id, tuple)
		if !ok {
			continue
		}
		catalog[id] = it
	}
	return catalog, nil
}

// parseItemTuple decodes
// [name, acronym, rap, value, default_value, demand, trend, projected, hyped, rare].
func parseItemTuple(id int64, t []json.RawMessage) (domain.Item, bool) {
	if len(t) < 10 {
		return domain.Item{}, false
	}
	it := domain.Item{
		ID:            id,
		Name:          str(t[0]),
		Acronym:       str(t[1]),
		RAP:           num(t[2], 0),
		Value:         num(t[3], domain.UnknownValue),
		OriginalPrice: num(t[4], domain.UnknownValue),
		Demand:        int(num(t[5], -1)),
		Trend:         int(num(t[6], -1)),
		Projected:     num(t[7], -1) == 1,
		Hyped:         num(t[8], -1) == 1,
		Rare:          num(t[9], -1) == 1,
	}
	return it, it.Name != ""
}

func str(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func num(raw json.RawMessage, fallback int64) int64 {
	var f *float64
	if json.Unmarshal(raw, &f) != nil || f == nil {
		return fallback
	}
	return int64(*f)
}

// Ad is a trade advertisement.
type Ad struct {
	PlayerID       int64    `json:"player_id"`
	OfferItemIDs   []int64  `json:"offer_item_ids"`
	RequestItemIDs []int64  `json:"request_item_ids"`
	RequestTags    []string `json:"request_tags"`
}

// PostAd publishes ad. Rolimons answers 201 on success.
func (c *Client) PostAd(ctx context.Context, ad Ad) error {
	if ad.RequestItemIDs == nil {
		ad.RequestItemIDs = []int64{}
	}
	if ad.RequestTags == nil {
		ad.RequestTags = []string{}
	}
	payload, err := json.Marshal(ad)
	if err != nil {
		return fmt.Errorf("rolimons: marshal ad: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ep.API+"/tradeads/v1/createad", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("rolimons: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "_RoliVerification", Value: c.verification})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rolimons: post ad: %w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	if resp.StatusCode != http.StatusCreated {
		if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
			return fmt.Errorf("rolimons: post ad: %w", err)
		}
		return fmt.Errorf("rolimons: post ad: unexpected HTTP %d: %s", resp.StatusCode, body)
	}
	return nil
}

// RecentAd is one entry of the public ad feed.
type RecentAd struct {
	AdID     int64
	PlayerID int64
	Username string
}

type recentAdsResponse struct {
	Success  bool                `json:"success"`
	TradeAds [][]json.RawMessage `json:"trade_ads"`
}

// RecentAds returns the latest public trade ads, newest first.
func (c *Client) RecentAds(ctx context.Context) ([]RecentAd, error) {
	body, err := c.doGet(ctx, c.ep.API+"/tradeads/v1/getrecentads")
	if err != nil {
		return nil, fmt.Errorf("rolimons: recent ads: %w", err)
	}
	var resp recentAdsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("rolimons: decode recent ads: %w: %v", domain.ErrMalformedResponse, err)
	}

	ads := make([]RecentAd, 0, len(resp.TradeAds))
	for _, row := range resp.TradeAds {
		if len(row) < 3 {
			continue
		}
		ad := RecentAd{AdID: num(row[0], 0), PlayerID: num(row[2], 0)}
		if len(row) > 3 {
			ad.Username = str(row[3])
		}
		if ad.PlayerID != 0 {
			ads = append(ads, ad)
		}
	}
	return ads, nil
}

var playerDetailsVar = regexp.MustCompile(`\bvar\s+player_details_data\s*=\s*`)

// TradeAdCount scrapes a player's open trade ad count from their profile.
func (c *Client) TradeAdCount(ctx context.Context, userID int64) (int, error) {
	body, err := c.doGet(ctx, fmt.Sprintf("%s/player/%d", c.ep.Web, userID))
	if err != nil {
		return 0, fmt.Errorf("rolimons: player %d: %w", userID, err)
	}
	loc := playerDetailsVar.FindIndex(body)
	if loc == nil {
		return 0, fmt.Errorf("rolimons: player %d: %w: player_details_data missing", userID, domain.ErrMalformedResponse)
	}

	var details struct {
		TradeAdCount int `json:"trade_ad_count"`
	}
	if err := json.NewDecoder(bytes.NewReader(body[loc[1]:])).Decode(&details); err != nil {
		return 0, fmt.Errorf("rolimons: player %d: %w: %v", userID, domain.ErrMalformedResponse, err)
	}
	return details.TradeAdCount, nil
}

func (c *Client) doGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrUpstreamUnavailable, err)
	}
	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	if len(body) > 256 {
		body = body[:256]
	}
	switch {
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, body)
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", domain.ErrAuthInvalid, statusCode)
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, body)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrUpstreamUnavailable, statusCode, body)
	}
}
