package valuation

import (
	"context"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// Best is the winning candidate of a search.
type Best struct {
	Candidate Candidate
	Verdict   Verdict
	// Considered is how many candidates were evaluated.
	Considered int
}

// FindBest generates candidates from the pools, evaluates them in parallel
// batches and returns the kept candidate with the largest positive score
// margin. Ties go to the candidate with the larger raw value gain. It
// returns domain.ErrNoViableCandidate when nothing qualifies.
func (e *Engine) FindBest(ctx context.Context, giverPool, receiverPool []domain.Item, opts GenerateOptions, allowEdge bool) (Best, error) {
	candidates := Generate(giverPool, receiverPool, opts)
	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		ga := RawValue(a.Receiving) - RawValue(a.Giving)
		gb := RawValue(b.Receiving) - RawValue(b.Giving)
		switch {
		case ga > gb:
			return -1
		case ga < gb:
			return 1
		default:
			return 0
		}
	})

	verdicts := make([]Verdict, len(candidates))
	batch := max(e.s.Performance.BatchSize, 1)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for start := 0; start < len(candidates); start += batch {
		end := min(start+batch, len(candidates))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				verdicts[i] = e.Evaluate(candidates[i], allowEdge)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Best{}, err
	}

	best := -1
	bestProfit := 0.0
	for i, v := range verdicts {
		if v.Decision == Keep && v.Profit() > bestProfit {
			best, bestProfit = i, v.Profit()
		}
	}
	if best < 0 {
		return Best{Considered: len(candidates)}, domain.ErrNoViableCandidate
	}
	return Best{Candidate: candidates[best], Verdict: verdicts[best], Considered: len(candidates)}, nil
}
