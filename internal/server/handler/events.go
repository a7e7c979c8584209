package handler

import (
	"context"
	"net/http"

	"github.com/alanyoungcy/limitedbot/internal/events"
)

// EventLog pages through published events.
type EventLog interface {
	Read(ctx context.Context, cursor string, limit int) (events.Page, error)
}

// EventHandler serves the replayable event log.
type EventHandler struct {
	log EventLog
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(log EventLog) *EventHandler {
	return &EventHandler{log: log}
}

// ListEvents returns events after the cursor, oldest first. Pass the
// returned next value as after to continue.
// GET /api/events?after=&limit=
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	page, err := h.log.Read(r.Context(), r.URL.Query().Get("after"), queryInt(r, "limit", defaultLimit))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, page)
}
