// Package events carries bot activity to the status API, either through
// Redis or through an in-process bus when Redis is not configured.
package events

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

const (
	subscriberBuffer = 128
	defaultStreamLen = 1000
)

type subscription struct {
	pattern string
	ch      chan []byte
}

type entry struct {
	seq     uint64
	payload []byte
}

// MemoryBus is an in-process domain.SignalBus. Slow subscribers lose
// messages rather than block publishers. Streams keep the newest maxLen
// entries.
type MemoryBus struct {
	mu      sync.RWMutex
	subs    map[*subscription]struct{}
	streams map[string][]entry
	seq     uint64
	maxLen  int
}

// NewMemoryBus creates a MemoryBus. A non-positive maxLen uses the default.
func NewMemoryBus(maxLen int) *MemoryBus {
	if maxLen <= 0 {
		maxLen = defaultStreamLen
	}
	return &MemoryBus{
		subs:    make(map[*subscription]struct{}),
		streams: make(map[string][]entry),
		maxLen:  maxLen,
	}
}

// Publish delivers payload to every subscription whose pattern matches.
func (b *MemoryBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		if !matches(s.pattern, channel) {
			continue
		}
		select {
		case s.ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registers a glob pattern. The channel closes when ctx ends.
func (b *MemoryBus) Subscribe(ctx context.Context, pattern string) (<-chan []byte, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("events: bad pattern %q: %w", pattern, err)
	}
	s := &subscription{pattern: pattern, ch: make(chan []byte, subscriberBuffer)}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, s)
		close(s.ch)
		b.mu.Unlock()
	}()
	return s.ch, nil
}

// StreamAppend adds payload to stream.
func (b *MemoryBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	es := append(b.streams[stream], entry{seq: b.seq, payload: payload})
	if over := len(es) - b.maxLen; over > 0 {
		es = es[over:]
	}
	b.streams[stream] = es
	return nil
}

// StreamRead returns up to count entries with ids after lastID.
func (b *MemoryBus) StreamRead(_ context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	after, err := parseID(lastID)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []domain.StreamMessage
	for _, e := range b.streams[stream] {
		if e.seq <= after {
			continue
		}
		out = append(out, domain.StreamMessage{ID: formatID(e.seq), Payload: e.payload})
		if count > 0 && len(out) == count {
			break
		}
	}
	return out, nil
}

func matches(pattern, channel string) bool {
	ok, _ := path.Match(pattern, channel)
	return ok
}

func formatID(seq uint64) string { return strconv.FormatUint(seq, 10) + "-0" }

func parseID(id string) (uint64, error) {
	head, _, _ := strings.Cut(id, "-")
	if head == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(head, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("events: bad stream id %q: %w", id, err)
	}
	return n, nil
}

var _ domain.SignalBus = (*MemoryBus)(nil)
