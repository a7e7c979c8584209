package trader

import "sync"

// recentSet remembers the last n ids added.
type recentSet struct {
	mu    sync.Mutex
	max   int
	order []int64
	ids   map[int64]struct{}
}

func newRecentSet(n int) *recentSet {
	return &recentSet{max: n, ids: make(map[int64]struct{}, n)}
}

// Add records id and reports whether it was new. The oldest id is evicted
// once the set is full.
func (s *recentSet) Add(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	if len(s.order) >= s.max {
		delete(s.ids, s.order[0])
		s.order = s.order[1:]
	}
	s.order = append(s.order, id)
	s.ids[id] = struct{}{}
	return true
}

// Has reports whether id is remembered.
func (s *recentSet) Has(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// watchSet is the set of finished trade ids already reported.
type watchSet struct {
	mu     sync.Mutex
	seeded bool
	ids    map[int64]struct{}
}

func newWatchSet() *watchSet {
	return &watchSet{ids: make(map[int64]struct{})}
}

// Mark records id and reports whether it was unseen.
func (w *watchSet) Mark(id int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.ids[id]; ok {
		return false
	}
	w.ids[id] = struct{}{}
	return true
}

// Unmark forgets id so a later pass reports it again.
func (w *watchSet) Unmark(id int64) {
	w.mu.Lock()
	delete(w.ids, id)
	w.mu.Unlock()
}

func (w *watchSet) Seeded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seeded
}

func (w *watchSet) SetSeeded() {
	w.mu.Lock()
	w.seeded = true
	w.mu.Unlock()
}
