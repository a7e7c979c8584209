package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/quota"
	"github.com/alanyoungcy/limitedbot/internal/trader"
)

// StatusSource exposes the running bot's state.
type StatusSource interface {
	Status() trader.Status
}

// QuotaSource exposes the trade quota window.
type QuotaSource interface {
	Snapshot() quota.Snapshot
}

// StatusHandler serves bot and quota status.
type StatusHandler struct {
	mode      string
	startedAt time.Time
	bot       StatusSource
	quota     QuotaSource
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(mode string, startedAt time.Time, bot StatusSource, q QuotaSource) *StatusHandler {
	return &StatusHandler{mode: mode, startedAt: startedAt, bot: bot, quota: q}
}

// GetStatus reports mode, uptime and bot state.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":           h.mode,
		"started_at":     h.startedAt.UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"bot":            h.bot.Status(),
	})
}

// GetQuota reports the trade quota window.
// GET /api/quota
func (h *StatusHandler) GetQuota(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.quota.Snapshot())
}
