package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"
)

// TelegramSender delivers notifications via the Telegram Bot API.
type TelegramSender struct {
	apiBase string
	token   string
	chatID  string
	client  *http.Client
}

// NewTelegramSender creates a TelegramSender for the given bot token and chat
// ID. It uses a default HTTP client with a 10-second timeout.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		apiBase: "https://api.telegram.org",
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL points the sender at another Bot API root.
func (t *TelegramSender) WithBaseURL(base string) *TelegramSender {
	t.apiBase = base
	return t
}

// discordTimestamp matches <t:unix:style> markup, which Telegram cannot render.
var discordTimestamp = regexp.MustCompile(`<t:(\d+):[a-zA-Z]>`)

func plainTimestamps(s string) string {
	return discordTimestamp.ReplaceAllStringFunc(s, func(tag string) string {
		m := discordTimestamp.FindStringSubmatch(tag)
		var unix int64
		if _, err := fmt.Sscan(m[1], &unix); err != nil {
			return tag
		}
		return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04 MST")
	})
}

// Send posts msg to the configured chat using sendMessage.
func (t *TelegramSender) Send(ctx context.Context, msg Message) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)

	text := plainTimestamps(msg.Text())
	if msg.Title != "" {
		text = fmt.Sprintf("*%s*\n%s", msg.Title, text)
	}

	payload := map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
