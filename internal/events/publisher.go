package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// LogStream is the stream every event is appended to.
const LogStream = "limitedbot:eventlog"

// Pattern matches every event channel.
const Pattern = "limitedbot:events:*"

// Publisher encodes events as JSON onto a SignalBus: once on the live
// channel for their kind, once on the replayable log.
type Publisher struct {
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewPublisher creates a Publisher over bus.
func NewPublisher(bus domain.SignalBus, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{bus: bus, logger: logger.With(slog.String("component", "events"))}
}

// Publish never fails the caller; bus errors are logged.
func (p *Publisher) Publish(ctx context.Context, ev domain.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.WarnContext(ctx, "event encode failed", slog.String("kind", string(ev.Kind)), slog.String("error", err.Error()))
		return
	}
	if err := p.bus.Publish(ctx, ev.Kind.EventChannel(), payload); err != nil {
		p.logger.WarnContext(ctx, "event publish failed", slog.String("kind", string(ev.Kind)), slog.String("error", err.Error()))
	}
	if err := p.bus.StreamAppend(ctx, LogStream, payload); err != nil {
		p.logger.WarnContext(ctx, "event log append failed", slog.String("kind", string(ev.Kind)), slog.String("error", err.Error()))
	}
}

// Page is a slice of the event log plus the cursor to continue from.
type Page struct {
	Events []domain.Event `json:"events"`
	Next   string         `json:"next"`
}

// Read returns up to limit logged events after cursor ("0" for the start).
// Undecodable entries are skipped but still advance the cursor.
func (p *Publisher) Read(ctx context.Context, cursor string, limit int) (Page, error) {
	if cursor == "" {
		cursor = "0"
	}
	msgs, err := p.bus.StreamRead(ctx, LogStream, cursor, limit)
	if err != nil {
		return Page{}, fmt.Errorf("events: read log: %w", err)
	}

	page := Page{Events: make([]domain.Event, 0, len(msgs)), Next: cursor}
	for _, m := range msgs {
		page.Next = m.ID
		var ev domain.Event
		if err := json.Unmarshal(m.Payload, &ev); err != nil {
			continue
		}
		page.Events = append(page.Events, ev)
	}
	return page, nil
}
