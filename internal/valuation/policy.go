package valuation

import "github.com/alanyoungcy/limitedbot/internal/domain"

// Decision is the outcome of evaluating a candidate.
type Decision int

const (
	Reject Decision = 0
	Keep   Decision = 1
)

func (d Decision) String() string {
	if d == Keep {
		return "keep"
	}
	return "reject"
}

// Candidate pairs what the operator gives with what they receive.
type Candidate struct {
	Giving    []domain.Item
	Receiving []domain.Item
}

// Verdict is a candidate's decision plus both bundle scores, rounded to
// two decimals.
type Verdict struct {
	Decision       Decision
	GivingScore    float64
	ReceivingScore float64
}

// Profit is the score margin in the operator's favour.
func (v Verdict) Profit() float64 { return v.ReceivingScore - v.GivingScore }

// Evaluate judges a candidate. allowEdge relaxes the overpay guard on the
// receiving side and is used for trades the operator did not start.
func (e *Engine) Evaluate(c Candidate, allowEdge bool) Verdict {
	giving, receiving := c.Giving, c.Receiving
	if len(giving) == 0 || len(receiving) == 0 {
		return Verdict{}
	}
	if e.s.Modes.ValueOnly {
		for _, it := range receiving {
			if it.Value <= 0 {
				return Verdict{}
			}
		}
	}

	givingScore := e.BundleScore(giving, receiving)
	receivingScore := e.BundleScore(receiving, giving)
	givingRaw := float64(RawValue(giving))
	receivingRaw := float64(RawValue(receiving))

	th := e.s.Thresholds
	ratio := e.s.ItemRatio
	decision := Reject

	downgrading := maxEffective(giving) > maxEffective(receiving)
	if !downgrading {
		if givingRaw < receivingRaw*th.MaxGivingValueWhenUpgrading &&
			balanced(giving, ratio.MaxItemRatioUpgrade, ratio.MinItemRatioUpgrade) {
			decision = Keep
		}
	} else {
		if receivingRaw > givingRaw*th.MinReceivingValueWhenDowngrading && receivingRaw > givingRaw &&
			balanced(receiving, ratio.MaxItemRatioUpgrade, ratio.MinItemRatioUpgrade) {
			decision = Keep
		}
	}

	switch {
	case givingRaw > receivingRaw*th.MaxEdgeValue:
		decision = Reject
	case !allowEdge && receivingRaw > givingRaw*th.MaxEdgeValue:
		decision = Reject
	}

	if receivingScore <= givingScore {
		decision = Reject
	}

	return Verdict{
		Decision:       decision,
		GivingScore:    round2(givingScore),
		ReceivingScore: round2(receivingScore),
	}
}
