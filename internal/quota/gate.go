// Package quota bounds trade-initiating actions to a rolling window.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// Roblox allows this many trade sends per rolling day.
const (
	DefaultLimit  = 100
	DefaultWindow = 24 * time.Hour
)

// Gate is a sliding-window action budget with a cooldown. Every check and
// mutation happens under one mutex; a granted Reservation holds its slot
// until it is committed or released, so concurrent actors cannot spend the
// same slot twice.
type Gate struct {
	mu            sync.Mutex
	limit         int
	window        time.Duration
	actions       []time.Time
	pending       int
	cooldownUntil time.Time

	now    func() time.Time
	store  domain.QuotaStore
	logger *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(g *Gate) { g.now = now } }

// WithStore persists the window through s.
func WithStore(s domain.QuotaStore) Option { return func(g *Gate) { g.store = s } }

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *slog.Logger) Option { return func(g *Gate) { g.logger = l } }

// New returns a Gate allowing limit actions per window.
func New(limit int, window time.Duration, opts ...Option) *Gate {
	g := &Gate{
		limit:  limit,
		window: window,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Restore loads persisted actions and cooldown. It is a no-op without a store.
func (g *Gate) Restore(ctx context.Context) error {
	if g.store == nil {
		return nil
	}
	now := g.now()
	st, err := g.store.Load(ctx, now.Add(-g.window))
	if err != nil {
		return fmt.Errorf("quota: restore: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.actions = append(g.actions[:0], st.Actions...)
	if st.CooldownUntil.After(g.cooldownUntil) {
		g.cooldownUntil = st.CooldownUntil
	}
	g.prune(now)
	return nil
}

// prune drops actions that fell out of the window. Callers hold mu.
func (g *Gate) prune(now time.Time) {
	keep := 0
	for keep < len(g.actions) && now.Sub(g.actions[keep]) >= g.window {
		keep++
	}
	if keep > 0 {
		g.actions = append(g.actions[:0], g.actions[keep:]...)
	}
}

// Reservation is a granted, not yet used, action slot.
type Reservation struct {
	g    *Gate
	once sync.Once
}

// Acquire reserves a slot or explains why none is available. Denials wrap
// domain.ErrCooldown or domain.ErrQuotaExhausted.
func (g *Gate) Acquire() (*Reservation, error) {
	now := g.now()

	g.mu.Lock()
	g.prune(now)
	if now.Before(g.cooldownUntil) {
		until := g.cooldownUntil
		g.mu.Unlock()
		return nil, fmt.Errorf("%w until %s", domain.ErrCooldown, until.Format(time.RFC3339))
	}
	if len(g.actions)+g.pending >= g.limit {
		var until time.Time
		if len(g.actions) >= g.limit {
			g.cooldownUntil = g.actions[0].Add(g.window)
			until = g.cooldownUntil
		}
		g.mu.Unlock()
		if !until.IsZero() {
			g.persistCooldown(until)
			return nil, fmt.Errorf("%w until %s", domain.ErrQuotaExhausted, until.Format(time.RFC3339))
		}
		return nil, domain.ErrQuotaExhausted
	}
	g.pending++
	g.mu.Unlock()
	return &Reservation{g: g}, nil
}

// Commit records the action as performed now.
func (r *Reservation) Commit() {
	r.once.Do(func() {
		g := r.g
		now := g.now()
		g.mu.Lock()
		g.pending--
		g.actions = append(g.actions, now)
		g.mu.Unlock()
		if g.store != nil {
			if err := g.store.RecordAction(context.Background(), now); err != nil {
				g.logger.Warn("quota: persist action failed", slog.String("error", err.Error()))
			}
		}
	})
}

// Release gives the slot back unused.
func (r *Reservation) Release() {
	r.once.Do(func() {
		r.g.mu.Lock()
		r.g.pending--
		r.g.mu.Unlock()
	})
}

// RateLimited releases the slot and forces a cooldown after the upstream
// rejected the action. With a full window of history the cooldown ends when
// the oldest action ages out; otherwise a whole window is waited out.
func (r *Reservation) RateLimited() time.Time {
	var until time.Time
	r.once.Do(func() {
		until = r.g.forceCooldown()
		r.g.persistCooldown(until)
	})
	return until
}

func (g *Gate) forceCooldown() time.Time {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending--
	g.prune(now)
	if len(g.actions) >= g.limit {
		g.cooldownUntil = g.actions[0].Add(g.window)
	} else {
		g.cooldownUntil = now.Add(g.window)
	}
	return g.cooldownUntil
}

func (g *Gate) persistCooldown(until time.Time) {
	if g.store == nil {
		return
	}
	if err := g.store.SetCooldown(context.Background(), until); err != nil {
		g.logger.Warn("quota: persist cooldown failed", slog.String("error", err.Error()))
	}
}

// Snapshot is a point-in-time view of the gate.
type Snapshot struct {
	Used          int       `json:"used"`
	Pending       int       `json:"pending"`
	Limit         int       `json:"limit"`
	Window        string    `json:"window"`
	CooldownUntil time.Time `json:"cooldown_until"`
	CoolingDown   bool      `json:"cooling_down"`
}

// Snapshot prunes and reports the current window.
func (g *Gate) Snapshot() Snapshot {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune(now)
	return Snapshot{
		Used:          len(g.actions),
		Pending:       g.pending,
		Limit:         g.limit,
		Window:        g.window.String(),
		CooldownUntil: g.cooldownUntil,
		CoolingDown:   now.Before(g.cooldownUntil),
	}
}
