package valuation

import (
	"cmp"
	"slices"
	"strings"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// GenerateOptions bounds candidate enumeration.
type GenerateOptions struct {
	GiverMin    int
	GiverMax    int
	ReceiverMin int
	ReceiverMax int
	// Mode is MethodUpgrade, MethodDowngrade or empty for no bias.
	Mode string
	// MaxPairs stops enumeration once reached. Zero means no cap.
	MaxPairs       int
	MinGivingTotal int64
}

// Generate enumerates candidate bundle pairs drawn from the two pools.
// Pairs sharing an item name or an effective value are skipped. The
// result is deterministic for identical inputs and never contains
// duplicate name sets. Any internal failure yields an empty result.
func Generate(giverPool, receiverPool []domain.Item, opts GenerateOptions) (out []Candidate) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()

	givers := sortedByValue(giverPool)
	receivers := sortedByValue(receiverPool)

	giverSizes := sizeRange(opts.GiverMin, opts.GiverMax, len(givers))
	receiverSizes := sizeRange(opts.ReceiverMin, opts.ReceiverMax, len(receivers))
	switch opts.Mode {
	case MethodDowngrade:
		slices.Reverse(receiverSizes)
	case MethodUpgrade:
		slices.Reverse(giverSizes)
	}

	seen := make(map[string]struct{})
	full := func() bool { return opts.MaxPairs > 0 && len(out) >= opts.MaxPairs }

	for _, i := range giverSizes {
		stop := combinations(givers, i, func(giving []domain.Item) bool {
			givingNames := nameSet(giving)
			givingValues := valueSet(giving)
			givingTotal := RawValue(giving)

			for _, j := range receiverSizes {
				if opts.Mode == MethodDowngrade && j <= i {
					continue
				}
				if opts.Mode == MethodUpgrade && i <= j {
					continue
				}
				if givingTotal < opts.MinGivingTotal {
					continue
				}
				stop := combinations(receivers, j, func(receiving []domain.Item) bool {
					receivingNames := nameSet(receiving)
					if intersects(givingNames, receivingNames) || intersects(givingValues, valueSet(receiving)) {
						return false
					}
					key := setKey(givingNames) + "|" + setKey(receivingNames)
					if _, dup := seen[key]; dup {
						return false
					}
					seen[key] = struct{}{}
					out = append(out, Candidate{
						Giving:    slices.Clone(giving),
						Receiving: slices.Clone(receiving),
					})
					return full()
				})
				if stop {
					return true
				}
			}
			return false
		})
		if stop {
			break
		}
	}
	return out
}

func sortedByValue(pool []domain.Item) []domain.Item {
	out := slices.Clone(pool)
	slices.SortStableFunc(out, func(a, b domain.Item) int {
		return cmp.Compare(b.EffectiveValue(), a.EffectiveValue())
	})
	return out
}

func sizeRange(lo, hi, n int) []int {
	hi = min(hi, n)
	var sizes []int
	for k := max(lo, 0); k <= hi; k++ {
		if k == 0 {
			continue
		}
		sizes = append(sizes, k)
	}
	return sizes
}

// combinations calls fn with every k-subset of pool in lexicographic index
// order. It stops and returns true as soon as fn does.
func combinations(pool []domain.Item, k int, fn func([]domain.Item) bool) bool {
	n := len(pool)
	if k <= 0 || k > n {
		return false
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	buf := make([]domain.Item, k)
	for {
		for i, p := range idx {
			buf[i] = pool[p]
		}
		if fn(buf) {
			return true
		}
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return false
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

func nameSet(items []domain.Item) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it.Name] = struct{}{}
	}
	return set
}

func valueSet(items []domain.Item) map[int64]struct{} {
	set := make(map[int64]struct{}, len(items))
	for _, it := range items {
		set[it.EffectiveValue()] = struct{}{}
	}
	return set
}

func intersects[K comparable](a, b map[K]struct{}) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

func setKey(set map[string]struct{}) string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	slices.Sort(names)
	return strings.Join(names, "\x00")
}
