package valuation

import (
	"fmt"
	"math"
	"regexp"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// Engine scores, enumerates and judges trades under one Settings value.
// It is immutable and safe for concurrent use.
type Engine struct {
	s         Settings
	discounts []discount
}

type discount struct {
	re       *regexp.Regexp
	maxValue int64
	factor   float64
}

// New compiles settings into an Engine.
func New(s Settings) (*Engine, error) {
	e := &Engine{s: s}
	for i, r := range s.DiscountRules {
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("valuation: discount rule %d: %w", i, err)
		}
		e.discounts = append(e.discounts, discount{re: re, maxValue: r.MaxValue, factor: r.Factor})
	}
	return e, nil
}

// Settings returns the settings the engine was built with.
func (e *Engine) Settings() Settings { return e.s }

// adjustValue nudges an assessed value toward a RAP that trades above it.
func adjustValue(value, rap float64) float64 {
	if rap <= value || value <= 0 {
		return value
	}
	p := rap / value
	return value * (1 + 0.1*math.Tanh(10*(p-0.9)))
}

// ItemScore is the weighted worth of a single item.
func (e *Engine) ItemScore(it domain.Item) float64 {
	m := e.s.Modifiers
	hasValue := it.HasValue()

	var base float64
	switch {
	case e.s.Modes.RapOnlyBase:
		base = float64(it.RAP) * m.LowerRapOnlyItem
	case !hasValue:
		base = float64(it.RAP) * m.LowerRapOnlyItem
	case it.Value != it.OriginalPrice:
		base = adjustValue(float64(it.Value), float64(it.RAP))
	default:
		base = float64(it.Value)
	}

	if it.Projected && !hasValue {
		base *= m.LowerProjectedItem
	}

	demand := float64(max(it.Demand, 0))
	rare := 0.0
	if it.Rare {
		rare = 1
	}
	score := base
	if m.BaseDivisor > 0 {
		score += base / m.BaseDivisor * (demand*m.DemandMultiplier + rare*m.RareMultiplier)
	}

	for _, d := range e.discounts {
		if it.EffectiveValue() <= d.maxValue && d.re.MatchString(it.Name) {
			score *= d.factor
		}
	}
	return math.Max(score, 0)
}

// BundleScore scores own against the bundle on the other side of the trade.
func (e *Engine) BundleScore(own, other []domain.Item) float64 {
	var score float64
	for _, it := range own {
		score += e.ItemScore(it)
	}
	if n := len(own); n > 1 {
		score *= math.Max(1-e.s.Penalties.BulkPenaltyRate*float64(n-1), 0)
	}
	if len(own) < len(other) {
		score *= e.s.Penalties.UpgradePenaltyMultiplier
	}
	return score
}

// RawValue sums effective values.
func RawValue(items []domain.Item) int64 {
	var total int64
	for _, it := range items {
		total += it.EffectiveValue()
	}
	return total
}

func maxEffective(items []domain.Item) int64 {
	var m int64
	for i, it := range items {
		if v := it.EffectiveValue(); i == 0 || v > m {
			m = v
		}
	}
	return m
}

// balanced reports whether no item takes more than maxRatio or less than
// minRatio of the bundle's blended worth.
func balanced(items []domain.Item, maxRatio, minRatio float64) bool {
	worth := func(it domain.Item) float64 {
		if it.HasValue() {
			return float64(it.Value+it.RAP) / 2
		}
		return float64(it.RAP)
	}
	var total float64
	for _, it := range items {
		total += worth(it)
	}
	if total == 0 {
		return true
	}
	for _, it := range items {
		w := worth(it)
		if w > total*maxRatio || w < total*minRatio {
			return false
		}
	}
	return true
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
