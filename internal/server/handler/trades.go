package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// TradeHandler serves recorded trade history.
type TradeHandler struct {
	store  domain.TradeHistoryStore
	logger *slog.Logger
	now    func() time.Time
}

// NewTradeHandler creates a TradeHandler. store may be nil when history is
// disabled; the endpoints then answer 404.
func NewTradeHandler(store domain.TradeHistoryStore, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{store: store, logger: logger.With(slog.String("handler", "trades")), now: time.Now}
}

type assetView struct {
	AssetID  int64  `json:"asset_id"`
	Name     string `json:"name"`
	Received bool   `json:"received"`
	Value    int64  `json:"value"`
	RAP      int64  `json:"rap"`
}

type tradeView struct {
	TradeID   int64       `json:"trade_id"`
	PartnerID int64       `json:"partner_id"`
	Status    string      `json:"status"`
	Kind      string      `json:"kind"`
	Profit    int64       `json:"profit"`
	Created   time.Time   `json:"created"`
	Updated   time.Time   `json:"updated"`
	Assets    []assetView `json:"assets"`
}

func viewOf(r domain.TradeRecord) tradeView {
	v := tradeView{
		TradeID: r.TradeID, PartnerID: r.PartnerID, Status: r.Status, Kind: string(r.Kind),
		Profit: r.Profit, Created: r.Created, Updated: r.Updated,
		Assets: make([]assetView, len(r.Assets)),
	}
	for i, a := range r.Assets {
		v.Assets[i] = assetView(a)
	}
	return v
}

// ListTrades returns trades newest first plus the completed-trade profit
// over the last 24 hours.
// GET /api/trades?limit=&offset=&since=&until=
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "trade history is disabled")
		return
	}
	opts, err := parseListOpts(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "since/until must be RFC 3339")
		return
	}

	recs, err := h.store.List(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list trades failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	profit, err := h.store.SumProfit(r.Context(), h.now().Add(-24*time.Hour))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "sum profit failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to sum profit")
		return
	}

	views := make([]tradeView, len(recs))
	for i, rec := range recs {
		views[i] = viewOf(rec)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trades":     views,
		"profit_24h": profit,
	})
}

// GetTrade returns one trade.
// GET /api/trades/{id}
func (h *TradeHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "trade history is disabled")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trade id")
		return
	}
	rec, err := h.store.GetByID(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "trade not found")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "get trade failed", slog.Int64("trade_id", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to get trade")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rec))
}
