package valuation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/valuation"
)

func item(name string, value, rap int64) domain.Item {
	return domain.Item{Name: name, Value: value, RAP: rap, Demand: -1}
}

func newEngine(t *testing.T, mutate func(*valuation.Settings)) *valuation.Engine {
	t.Helper()
	s := valuation.DefaultSettings()
	if mutate != nil {
		mutate(&s)
	}
	e, err := valuation.New(s)
	require.NoError(t, err)
	return e
}

func TestItemScore(t *testing.T) {
	rq := require.New(t)
	e := newEngine(t, func(s *valuation.Settings) {
		s.DiscountRules = []valuation.DiscountRule{{Pattern: "egg", MaxValue: 5000, Factor: 0}}
	})

	testCases := []struct {
		name string
		item domain.Item
		want float64
	}{
		{
			name: "rap only with demand",
			item: domain.Item{Name: "Valk", Value: -1, RAP: 1000, Demand: 2},
			want: 816,
		},
		{
			name: "projected rap only",
			item: domain.Item{Name: "Proj", Value: -1, RAP: 1000, Demand: 2, Projected: true},
			want: 408,
		},
		{
			name: "value at original price",
			item: domain.Item{Name: "Dom", Value: 1000, OriginalPrice: 1000, RAP: 5000},
			want: 1000,
		},
		{
			name: "value below rap is smoothed up",
			item: domain.Item{Name: "Hat", Value: 1000, OriginalPrice: 500, RAP: 1200},
			want: 1099.5055,
		},
		{
			name: "rare bonus",
			item: domain.Item{Name: "Rare", Value: 1000, RAP: 900, Rare: true},
			want: 1050,
		},
		{
			name: "discounted egg",
			item: domain.Item{Name: "Golden Egg", Value: 100, RAP: 90},
			want: 0,
		},
		{
			name: "egg above discount ceiling",
			item: domain.Item{Name: "Egg Hunt Crown", Value: 6000, RAP: 5000},
			want: 6000,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(*testing.T) {
			rq.InDelta(tc.want, e.ItemScore(tc.item), 0.001)
		})
	}
}

func TestItemScoreMonotonic(t *testing.T) {
	rq := require.New(t)
	e := newEngine(t, nil)

	prev := -1.0
	for rap := int64(0); rap <= 20000; rap += 250 {
		score := e.ItemScore(domain.Item{Name: "R", Value: -1, RAP: rap, Demand: 3})
		rq.GreaterOrEqual(score, prev)
		rq.GreaterOrEqual(score, 0.0)
		prev = score
	}

	prev = -1.0
	for value := int64(1000); value <= 20000; value += 250 {
		score := e.ItemScore(domain.Item{Name: "V", Value: value, RAP: 1000, Demand: 1})
		rq.GreaterOrEqual(score, prev)
		prev = score
	}

	// Below RAP the value is boosted, so the score is monotonic on each
	// side of value == rap but drops when the value reaches the RAP.
	prev = -1.0
	for value := int64(250); value < 1000; value += 25 {
		score := e.ItemScore(domain.Item{Name: "U", Value: value, RAP: 1000, Demand: 1})
		rq.GreaterOrEqual(score, prev)
		prev = score
	}
	below := e.ItemScore(domain.Item{Name: "U", Value: 999, RAP: 1000, Demand: 1})
	at := e.ItemScore(domain.Item{Name: "U", Value: 1000, RAP: 1000, Demand: 1})
	rq.InDelta(1086.3, below, 0.5)
	rq.InDelta(1010.0, at, 0.001)
	rq.Greater(below, at)
}

func TestBundleScorePenalties(t *testing.T) {
	rq := require.New(t)
	e := newEngine(t, nil)

	two := []domain.Item{item("A", 1000, 900), item("B", 1000, 900)}
	three := []domain.Item{item("C", 1, 1), item("D", 2, 2), item("E", 3, 3)}

	rq.InDelta(1940.0, e.BundleScore(two, two[:1]), 0.001)
	rq.InDelta(1843.0, e.BundleScore(two, three), 0.001)
	rq.InDelta(1000.0, e.BundleScore(two[:1], two[:1]), 0.001)
}

func TestEvaluate(t *testing.T) {
	rq := require.New(t)
	e := newEngine(t, func(s *valuation.Settings) {
		s.Thresholds.MaxGivingValueWhenUpgrading = 0.9
	})

	testCases := []struct {
		name      string
		candidate valuation.Candidate
		allowEdge bool
		want      valuation.Verdict
	}{
		{
			name: "upgrade within ratio",
			candidate: valuation.Candidate{
				Giving:    []domain.Item{item("A", 1000, 900)},
				Receiving: []domain.Item{item("B", 1500, 1400)},
			},
			want: valuation.Verdict{Decision: valuation.Keep, GivingScore: 1000, ReceivingScore: 1500},
		},
		{
			name: "upgrade paying too much",
			candidate: valuation.Candidate{
				Giving:    []domain.Item{item("A", 1400, 1300)},
				Receiving: []domain.Item{item("B", 1500, 1400)},
			},
			want: valuation.Verdict{Decision: valuation.Reject, GivingScore: 1400, ReceivingScore: 1500},
		},
		{
			name: "downgrade without margin",
			candidate: valuation.Candidate{
				Giving:    []domain.Item{item("A", 2000, 1900)},
				Receiving: []domain.Item{item("B", 1000, 900), item("C", 1050, 1000)},
			},
			want: valuation.Verdict{Decision: valuation.Reject, GivingScore: 1900, ReceivingScore: 1988.5},
		},
		{
			name: "downgrade with margin",
			candidate: valuation.Candidate{
				Giving:    []domain.Item{item("A", 2000, 1900)},
				Receiving: []domain.Item{item("B", 1100, 1000), item("C", 1200, 1100)},
			},
			want: valuation.Verdict{Decision: valuation.Keep, GivingScore: 1900, ReceivingScore: 2231},
		},
		{
			name: "overpay beyond edge rejected without edge allowance",
			candidate: valuation.Candidate{
				Giving:    []domain.Item{item("A", 100, 90)},
				Receiving: []domain.Item{item("B", 1000, 900)},
			},
			want: valuation.Verdict{Decision: valuation.Reject, GivingScore: 100, ReceivingScore: 1000},
		},
		{
			name: "overpay beyond edge kept with edge allowance",
			candidate: valuation.Candidate{
				Giving:    []domain.Item{item("A", 100, 90)},
				Receiving: []domain.Item{item("B", 1000, 900)},
			},
			allowEdge: true,
			want:      valuation.Verdict{Decision: valuation.Keep, GivingScore: 100, ReceivingScore: 1000},
		},
		{
			name:      "empty side",
			candidate: valuation.Candidate{Giving: []domain.Item{item("A", 100, 90)}},
			want:      valuation.Verdict{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(*testing.T) {
			got := e.Evaluate(tc.candidate, tc.allowEdge)
			rq.Equal(tc.want, got)
			rq.Equal(got, e.Evaluate(tc.candidate, tc.allowEdge))
		})
	}
}

func TestEvaluateValueOnly(t *testing.T) {
	rq := require.New(t)
	e := newEngine(t, func(s *valuation.Settings) { s.Modes.ValueOnly = true })

	got := e.Evaluate(valuation.Candidate{
		Giving:    []domain.Item{item("A", 1000, 900)},
		Receiving: []domain.Item{item("B", -1, 1500)},
	}, false)
	rq.Equal(valuation.Verdict{}, got)
}

func TestEvaluateUnbalancedGiving(t *testing.T) {
	rq := require.New(t)
	e := newEngine(t, func(s *valuation.Settings) {
		s.ItemRatio.MaxItemRatioUpgrade = 0.8
		s.ItemRatio.MinItemRatioUpgrade = 0.1
	})

	got := e.Evaluate(valuation.Candidate{
		Giving:    []domain.Item{item("A", 1000, 1000), item("B", 20, 20)},
		Receiving: []domain.Item{item("C", 2000, 2000)},
	}, true)
	rq.Equal(valuation.Reject, got.Decision)
}

func TestGenerateVetoes(t *testing.T) {
	rq := require.New(t)
	opts := valuation.GenerateOptions{GiverMin: 1, GiverMax: 4, ReceiverMin: 1, ReceiverMax: 4}

	rq.Empty(valuation.Generate(
		[]domain.Item{item("A", 500, 400)},
		[]domain.Item{item("B", 500, 450)},
		opts,
	))
	rq.Empty(valuation.Generate(
		[]domain.Item{item("A", 500, 400)},
		[]domain.Item{item("A", 700, 600)},
		opts,
	))
	rq.Empty(valuation.Generate(nil, []domain.Item{item("B", 1, 1)}, opts))
}

func pool(prefix string, values ...int64) []domain.Item {
	out := make([]domain.Item, len(values))
	for i, v := range values {
		out[i] = item(prefix+string(rune('a'+i)), v, v)
	}
	return out
}

func TestGenerateInvariants(t *testing.T) {
	rq := require.New(t)
	givers := pool("g", 100, 250, 300, 420, 510)
	receivers := pool("r", 120, 250, 330, 400, 600)

	testCases := []struct {
		name string
		opts valuation.GenerateOptions
	}{
		{name: "unbiased", opts: valuation.GenerateOptions{GiverMin: 1, GiverMax: 3, ReceiverMin: 1, ReceiverMax: 3}},
		{name: "downgrade", opts: valuation.GenerateOptions{GiverMin: 1, GiverMax: 2, ReceiverMin: 1, ReceiverMax: 3, Mode: valuation.MethodDowngrade}},
		{name: "upgrade", opts: valuation.GenerateOptions{GiverMin: 1, GiverMax: 3, ReceiverMin: 1, ReceiverMax: 2, Mode: valuation.MethodUpgrade}},
		{name: "minimum total", opts: valuation.GenerateOptions{GiverMin: 1, GiverMax: 2, ReceiverMin: 1, ReceiverMax: 1, MinGivingTotal: 700}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(*testing.T) {
			got := valuation.Generate(givers, receivers, tc.opts)
			rq.NotEmpty(got)

			seen := map[string]bool{}
			for _, c := range got {
				names := map[string]bool{}
				values := map[int64]bool{}
				key := ""
				for _, it := range c.Giving {
					names[it.Name] = true
					values[it.EffectiveValue()] = true
					key += it.Name
				}
				key += "|"
				for _, it := range c.Receiving {
					rq.False(names[it.Name])
					rq.False(values[it.EffectiveValue()])
					key += it.Name
				}
				rq.False(seen[key])
				seen[key] = true

				rq.GreaterOrEqual(valuation.RawValue(c.Giving), tc.opts.MinGivingTotal)
				switch tc.opts.Mode {
				case valuation.MethodDowngrade:
					rq.Greater(len(c.Receiving), len(c.Giving))
				case valuation.MethodUpgrade:
					rq.Greater(len(c.Giving), len(c.Receiving))
				}
			}
		})
	}
}

func TestGenerateModeOrder(t *testing.T) {
	rq := require.New(t)
	givers := pool("g", 100, 200, 300)
	receivers := pool("r", 10, 20, 30, 40)

	got := valuation.Generate(givers, receivers, valuation.GenerateOptions{
		GiverMin: 1, GiverMax: 2, ReceiverMin: 1, ReceiverMax: 3, Mode: valuation.MethodDowngrade,
	})
	rq.NotEmpty(got)
	rq.Len(got[0].Giving, 1)
	rq.Equal(int64(300), got[0].Giving[0].Value)
	rq.Len(got[0].Receiving, 3)
	rq.Equal([]int64{40, 30, 20}, []int64{got[0].Receiving[0].Value, got[0].Receiving[1].Value, got[0].Receiving[2].Value})
}

func TestGenerateCap(t *testing.T) {
	rq := require.New(t)
	givers := pool("g", 100, 250, 300, 420, 510)
	receivers := pool("r", 120, 260, 330, 400, 600)
	opts := valuation.GenerateOptions{GiverMin: 1, GiverMax: 4, ReceiverMin: 1, ReceiverMax: 4, MaxPairs: 7}

	first := valuation.Generate(givers, receivers, opts)
	rq.Len(first, 7)
	rq.Equal(first, valuation.Generate(givers, receivers, opts))
}

func TestFindBest(t *testing.T) {
	rq := require.New(t)
	e := newEngine(t, nil)
	ctx := context.Background()

	givers := []domain.Item{item("A", 1000, 900)}
	receivers := []domain.Item{item("B", 1500, 1400), item("C", 1300, 1200)}
	opts := valuation.GenerateOptions{GiverMin: 1, GiverMax: 4, ReceiverMin: 1, ReceiverMax: 4}

	best, err := e.FindBest(ctx, givers, receivers, opts, true)
	rq.NoError(err)
	rq.Equal(3, best.Considered)
	rq.Len(best.Candidate.Receiving, 2)
	rq.InDelta(950.0, best.Verdict.GivingScore, 0.001)
	rq.InDelta(2716.0, best.Verdict.ReceivingScore, 0.001)

	best, err = e.FindBest(ctx, givers, receivers, opts, false)
	rq.NoError(err)
	rq.Len(best.Candidate.Receiving, 1)
	rq.Equal("B", best.Candidate.Receiving[0].Name)
}

func TestFindBestNoViable(t *testing.T) {
	rq := require.New(t)
	e := newEngine(t, nil)

	_, err := e.FindBest(context.Background(),
		[]domain.Item{item("A", 1000, 900)},
		[]domain.Item{item("B", 900, 800)},
		valuation.GenerateOptions{GiverMin: 1, GiverMax: 1, ReceiverMin: 1, ReceiverMax: 1},
		true,
	)
	rq.ErrorIs(err, domain.ErrNoViableCandidate)
}

func TestSettingsValidate(t *testing.T) {
	rq := require.New(t)

	rq.Empty(valuation.DefaultSettings().Validate())

	s := valuation.DefaultSettings()
	s.Modes.TradeMethods = []string{"sideways"}
	s.DiscountRules = []valuation.DiscountRule{{Pattern: "("}}
	s.Upgrade.MinItems = 0
	rq.Len(s.Validate(), 3)

	_, err := valuation.New(s)
	rq.Error(err)
}
