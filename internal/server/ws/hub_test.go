package ws

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/events"
)

func dial(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWS))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestHubStatusThenFilteredEvents(t *testing.T) {
	r := require.New(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHub(events.NewMemoryBus(10), events.Pattern, func() any {
		return map[string]any{"mode": "trade"}
	}, logger)

	conn := dial(t, h)
	env := readFrame(t, conn)
	r.Equal("bot_status", env.Type)
	r.JSONEq(`{"mode":"trade"}`, string(env.Payload))
	r.Eventually(func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	r.NoError(conn.WriteJSON(subscribeMsg{Action: "unsubscribe", Kinds: []string{"*"}}))
	r.NoError(conn.WriteJSON(subscribeMsg{Action: "subscribe", Kinds: []string{"trade.*"}}))
	var c *client
	h.mu.RLock()
	for cl := range h.clients {
		c = cl
	}
	h.mu.RUnlock()
	r.Eventually(func() bool {
		return !c.wants("offer.sent") && c.wants("trade.completed")
	}, time.Second, 10*time.Millisecond)

	for _, k := range []domain.EventKind{domain.EventOfferSent, domain.EventTradeCompleted} {
		data, err := json.Marshal(domain.NewEvent(k, time.Now()))
		r.NoError(err)
		h.broadcast(data)
	}

	env = readFrame(t, conn)
	r.Equal("event", env.Type)
	r.Equal(domain.EventTradeCompleted.EventChannel(), env.Channel)
}

func TestHubIgnoresMalformedPayloads(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHub(events.NewMemoryBus(10), events.Pattern, nil, logger)
	h.broadcast([]byte("not json"))
	h.broadcast([]byte(`{"id":"x"}`))
	require.Zero(t, h.ClientCount())
}
