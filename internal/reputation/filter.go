package reputation

import "context"

// Filter rejects partners that keep more open ads than Ceiling. A zero
// ceiling disables the filter.
type Filter struct {
	counts  *AdCountCache
	ceiling int
}

// NewFilter returns a Filter over counts.
func NewFilter(counts *AdCountCache, ceiling int) *Filter {
	return &Filter{counts: counts, ceiling: ceiling}
}

// Enabled reports whether the filter screens anyone.
func (f *Filter) Enabled() bool { return f != nil && f.ceiling > 0 && f.counts != nil }

// Allow reports whether userID may be traded with, along with the observed
// count. Lookup failures are returned so callers can decide to fail open.
func (f *Filter) Allow(ctx context.Context, userID int64) (bool, int, error) {
	if !f.Enabled() {
		return true, 0, nil
	}
	n, err := f.counts.Count(ctx, userID)
	if err != nil {
		return true, 0, err
	}
	return n <= f.ceiling, n, nil
}
