// Package notify delivers operator alerts and trade reports. Messages are
// dispatched to every registered sender (Discord, Telegram) and can be
// filtered by event kind so operators receive only what they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// Field is a named block of a message.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Message is a channel-neutral notification. Discord renders it as an
// embed; text channels flatten it.
type Message struct {
	Title       string
	Description string
	Color       int
	URL         string
	Fields      []Field
	Footer      string
	Timestamp   time.Time
}

// Text flattens m for plain-text channels.
func (m Message) Text() string {
	var b strings.Builder
	if m.Description != "" {
		b.WriteString(m.Description)
		b.WriteString("\n")
	}
	for _, f := range m.Fields {
		fmt.Fprintf(&b, "\n%s:\n%s\n", f.Name, f.Value)
	}
	if m.URL != "" {
		fmt.Fprintf(&b, "\n%s\n", m.URL)
	}
	if m.Footer != "" {
		fmt.Fprintf(&b, "\n%s", m.Footer)
	}
	return strings.TrimSpace(b.String())
}

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers one message.
	Send(ctx context.Context, msg Message) error
	// Name returns a human-readable identifier for the sender (e.g. "discord").
	Name() string
}

// Notifier dispatches messages to one or more Senders. Notify only forwards
// events in the allowed set; NotifyAll bypasses the filter.
type Notifier struct {
	senders []Sender
	events  map[domain.EventKind]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders. If
// events is empty, all event kinds are allowed.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[domain.EventKind]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[domain.EventKind(e)] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify sends msg if event passes the filter.
func (n *Notifier) Notify(ctx context.Context, event domain.EventKind, msg Message) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", string(event)),
		)
		return nil
	}
	return n.dispatch(ctx, msg)
}

// NotifyAll sends msg to all senders regardless of event kind.
func (n *Notifier) NotifyAll(ctx context.Context, msg Message) error {
	return n.dispatch(ctx, msg)
}

// dispatch delivers to every sender. A single sender failure does not
// prevent delivery to the rest.
func (n *Notifier) dispatch(ctx context.Context, msg Message) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, msg); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", msg.Title),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
