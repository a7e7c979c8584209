// Package roblox is a client for the Roblox trading, inventory and user
// APIs authenticated by a .ROBLOSECURITY session cookie.
package roblox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

const (
	cookieName = ".ROBLOSECURITY"
	csrfHeader = "x-csrf-token"
)

// Endpoints holds the API roots. Tests point them at httptest servers.
type Endpoints struct {
	Trades    string
	Inventory string
	Users     string
	Auth      string
}

// DefaultEndpoints returns the production API roots.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Trades:    "https://trades.roblox.com",
		Inventory: "https://inventory.roblox.com",
		Users:     "https://users.roblox.com",
		Auth:      "https://auth.roblox.com",
	}
}

// Client talks to Roblox on behalf of one account.
type Client struct {
	ep         Endpoints
	cookie     string
	httpClient *http.Client
	tokens     *TokenSource

	mu     sync.Mutex
	selfID int64
}

// New creates a client for the account owning cookie.
func New(cookie string, ep Endpoints) *Client {
	c := &Client{
		ep:     ep,
		cookie: cookie,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	c.tokens = NewTokenSource(c.fetchToken, DefaultTokenMaxAge)
	return c
}

// WithTokenMaxAge changes how long a csrf token is reused. Non-positive
// values keep the default.
func (c *Client) WithTokenMaxAge(d time.Duration) *Client {
	if d > 0 {
		c.tokens = NewTokenSource(c.fetchToken, d)
	}
	return c
}

// Tokens exposes the anti-forgery token source.
func (c *Client) Tokens() *TokenSource { return c.tokens }

// fetchToken derives a fresh x-csrf-token. Roblox answers the logout
// endpoint with 403 and the token header when the cookie is valid.
func (c *Client) fetchToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ep.Auth+"/v2/logout", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: cookieName, Value: c.cookie})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if token := resp.Header.Get(csrfHeader); token != "" {
		return token, nil
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return "", fmt.Errorf("%w: csrf: HTTP %d", domain.ErrAuthInvalid, resp.StatusCode)
	}
	return "", fmt.Errorf("%w: csrf: no token in HTTP %d", domain.ErrMalformedResponse, resp.StatusCode)
}

// do sends an authenticated request and returns the body of a 2xx
// response. Mutating requests carry the csrf token and are retried once
// when Roblox rotates it.
func (c *Client) do(ctx context.Context, method, url string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		payload = b
	}
	mutating := method != http.MethodGet

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.AddCookie(&http.Cookie{Name: cookieName, Value: c.cookie})
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if mutating {
			token, err := c.tokens.Token(ctx)
			if err != nil {
				return nil, err
			}
			req.Header.Set(csrfHeader, token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read response: %v", domain.ErrUpstreamUnavailable, err)
		}

		if mutating && attempt == 0 && resp.StatusCode == http.StatusForbidden {
			if rotated := resp.Header.Get(csrfHeader); rotated != "" {
				c.tokens.Set(rotated)
				continue
			}
		}
		if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
			return nil, err
		}
		return respBody, nil
	}
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	body, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return decode(body, out)
}

func (c *Client) postJSON(ctx context.Context, url string, in, out any) error {
	body, err := c.do(ctx, http.MethodPost, url, in)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decode(body, out)
}

func decode(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return nil
}

// StatusError carries a non-2xx status that has no domain meaning.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string { return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body) }

// StatusCode extracts the HTTP status from err when one is known.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrAuthInvalid):
		return http.StatusUnauthorized
	}
	return 0
}

// checkHTTPStatus maps non-2xx status codes to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	if len(bodyStr) > 512 {
		bodyStr = bodyStr[:512]
	}
	switch {
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrAuthInvalid, statusCode, bodyStr)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case statusCode >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrUpstreamUnavailable, statusCode, bodyStr)
	default:
		return &StatusError{Code: statusCode, Body: bodyStr}
	}
}
