package trader

import (
	"sync"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// State is everything the actors share. Each method is one critical
// section, so compound transitions such as pause/resume are atomic.
type State struct {
	mu sync.RWMutex

	userID      int64
	catalog     domain.Catalog
	catalogAt   time.Time
	inventory   domain.Inventory
	inventoryAt time.Time

	paused        bool
	cookieBroken  bool
	pricingBroken bool
	alertedUntil  time.Time
}

// NewState returns an empty State.
func NewState() *State {
	return &State{catalog: domain.Catalog{}, inventory: domain.Inventory{}}
}

func (s *State) UserID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *State) SetUserID(id int64) {
	s.mu.Lock()
	s.userID = id
	s.mu.Unlock()
}

// Catalog returns the current catalog. Callers must not mutate it.
func (s *State) Catalog() domain.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// SetCatalog replaces the catalog and reports whether it changed.
func (s *State) SetCatalog(c domain.Catalog, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := !s.catalog.Equal(c)
	s.catalog = c
	s.catalogAt = at
	return changed
}

// Inventory returns the operator's inventory. Callers must not mutate it.
func (s *State) Inventory() domain.Inventory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inventory
}

func (s *State) SetInventory(inv domain.Inventory, at time.Time) {
	s.mu.Lock()
	s.inventory = inv
	s.inventoryAt = at
	s.mu.Unlock()
}

func (s *State) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

// TryPause sets the hold flag. It returns false if it was already set.
func (s *State) TryPause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return false
	}
	s.paused = true
	return true
}

// Resume clears the hold flag. It returns false if it was not set.
func (s *State) Resume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return false
	}
	s.paused = false
	return true
}

// SetCookieBroken records the session state and reports whether it flipped.
func (s *State) SetCookieBroken(broken bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cookieBroken == broken {
		return false
	}
	s.cookieBroken = broken
	return true
}

// SetPricingBroken records pricing health and reports whether it flipped.
func (s *State) SetPricingBroken(broken bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pricingBroken == broken {
		return false
	}
	s.pricingBroken = broken
	return true
}

// ClaimRateLimitAlert reports whether a cooldown ending at until has not
// been announced yet, and marks it announced.
func (s *State) ClaimRateLimitAlert(until time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if until.IsZero() || until.Equal(s.alertedUntil) {
		return false
	}
	s.alertedUntil = until
	return true
}

// Status is a read-only view for the status API.
type Status struct {
	UserID         int64     `json:"user_id"`
	CatalogItems   int       `json:"catalog_items"`
	CatalogAt      time.Time `json:"catalog_updated_at"`
	InventoryItems int       `json:"inventory_items"`
	InventoryAt    time.Time `json:"inventory_updated_at"`
	Paused         bool      `json:"paused"`
	CookieBroken   bool      `json:"cookie_broken"`
	PricingBroken  bool      `json:"pricing_broken"`
}

func (s *State) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		UserID:         s.userID,
		CatalogItems:   len(s.catalog),
		CatalogAt:      s.catalogAt,
		InventoryItems: s.inventory.Count(),
		InventoryAt:    s.inventoryAt,
		Paused:         s.paused,
		CookieBroken:   s.cookieBroken,
		PricingBroken:  s.pricingBroken,
	}
}
