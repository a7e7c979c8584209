package valuation

import (
	"fmt"
	"regexp"
)

// Trade methods accepted in Modes.TradeMethods.
const (
	MethodUpgrade   = "upgrade"
	MethodDowngrade = "downgrade"
)

// Modifiers weight an item's base score.
type Modifiers struct {
	BaseDivisor        float64 `toml:"base_divisor"`
	DemandMultiplier   float64 `toml:"demand_multiplier"`
	RareMultiplier     float64 `toml:"rare_multiplier"`
	LowerRapOnlyItem   float64 `toml:"lower_rap_only_item"`
	LowerProjectedItem float64 `toml:"lower_projected_item"`
}

// Penalties shrink bundle scores.
type Penalties struct {
	BulkPenaltyRate          float64 `toml:"bulk_penalty_rate"`
	UpgradePenaltyMultiplier float64 `toml:"upgrade_penalty_multiplier"`
}

// Modes toggle scoring behaviour.
type Modes struct {
	RapOnlyBase  bool     `toml:"rap_only_base"`
	ValueOnly    bool     `toml:"value_only"`
	TradeMethods []string `toml:"trade_methods"`
}

// Thresholds bound the raw value ratios a trade may have.
type Thresholds struct {
	MaxGivingValueWhenUpgrading      float64 `toml:"max_giving_value_when_upgrading"`
	MinReceivingValueWhenDowngrading float64 `toml:"min_receiving_value_when_downgrading"`
	MaxEdgeValue                     float64 `toml:"max_edge_value"`
	MinTradeSendValueTotal           int64   `toml:"min_trade_send_value_total"`
}

// RatioConstraints bound each item's share of its bundle.
type RatioConstraints struct {
	MaxItemRatioUpgrade float64 `toml:"max_item_ratio_upgrade"`
	MinItemRatioUpgrade float64 `toml:"min_item_ratio_upgrade"`
}

// SizeRange bounds a bundle's item count.
type SizeRange struct {
	MinItems int `toml:"min_items"`
	MaxItems int `toml:"max_items"`
}

func (r SizeRange) valid() bool { return r.MinItems >= 1 && r.MaxItems >= r.MinItems }

// Performance caps the candidate search.
type Performance struct {
	MaxPairs  int `toml:"max_pairs"`
	BatchSize int `toml:"batch_size"`
}

// DiscountRule scales the score of cheap items whose name matches Pattern.
type DiscountRule struct {
	Pattern  string  `toml:"pattern"`
	MaxValue int64   `toml:"max_value"`
	Factor   float64 `toml:"factor"`
}

// Settings is the full set of valuation knobs.
type Settings struct {
	Modifiers     Modifiers        `toml:"modifiers"`
	Penalties     Penalties        `toml:"penalties"`
	Modes         Modes            `toml:"modes"`
	Thresholds    Thresholds       `toml:"thresholds"`
	ItemRatio     RatioConstraints `toml:"item_ratio_constraints"`
	Upgrade       SizeRange        `toml:"upgrade"`
	Downgrade     SizeRange        `toml:"downgrade"`
	Performance   Performance      `toml:"performance"`
	DiscountRules []DiscountRule   `toml:"discount_rules"`
}

// DefaultSettings returns conservative weights.
func DefaultSettings() Settings {
	return Settings{
		Modifiers: Modifiers{
			BaseDivisor:        100,
			DemandMultiplier:   1,
			RareMultiplier:     5,
			LowerRapOnlyItem:   0.8,
			LowerProjectedItem: 0.5,
		},
		Penalties: Penalties{
			BulkPenaltyRate:          0.03,
			UpgradePenaltyMultiplier: 0.95,
		},
		Modes: Modes{
			TradeMethods: []string{MethodUpgrade, MethodDowngrade},
		},
		Thresholds: Thresholds{
			MaxGivingValueWhenUpgrading:      0.97,
			MinReceivingValueWhenDowngrading: 1.05,
			MaxEdgeValue:                     2.5,
		},
		ItemRatio: RatioConstraints{
			MaxItemRatioUpgrade: 1,
			MinItemRatioUpgrade: 0.05,
		},
		Upgrade:     SizeRange{MinItems: 1, MaxItems: 4},
		Downgrade:   SizeRange{MinItems: 1, MaxItems: 4},
		Performance: Performance{MaxPairs: 5000, BatchSize: 50},
	}
}

// Validate reports every inconsistent setting.
func (s Settings) Validate() []string {
	var errs []string
	if s.Modifiers.BaseDivisor <= 0 {
		errs = append(errs, "algorithm.modifiers.base_divisor must be > 0")
	}
	if s.Penalties.BulkPenaltyRate < 0 || s.Penalties.BulkPenaltyRate >= 1 {
		errs = append(errs, "algorithm.penalties.bulk_penalty_rate must be in [0, 1)")
	}
	if s.Penalties.UpgradePenaltyMultiplier < 0 {
		errs = append(errs, "algorithm.penalties.upgrade_penalty_multiplier must be >= 0")
	}
	if len(s.Modes.TradeMethods) == 0 {
		errs = append(errs, "algorithm.modes.trade_methods must not be empty")
	}
	for _, m := range s.Modes.TradeMethods {
		if m != MethodUpgrade && m != MethodDowngrade {
			errs = append(errs, fmt.Sprintf("algorithm.modes.trade_methods: unknown method %q", m))
		}
	}
	if s.Thresholds.MaxEdgeValue <= 0 {
		errs = append(errs, "algorithm.thresholds.max_edge_value must be > 0")
	}
	if s.ItemRatio.MinItemRatioUpgrade > s.ItemRatio.MaxItemRatioUpgrade {
		errs = append(errs, "algorithm.item_ratio_constraints: min exceeds max")
	}
	if !s.Upgrade.valid() {
		errs = append(errs, "algorithm.upgrade: need 1 <= min_items <= max_items")
	}
	if !s.Downgrade.valid() {
		errs = append(errs, "algorithm.downgrade: need 1 <= min_items <= max_items")
	}
	if s.Performance.BatchSize < 1 {
		errs = append(errs, "algorithm.performance.batch_size must be >= 1")
	}
	for i, r := range s.DiscountRules {
		if _, err := regexp.Compile("(?i)" + r.Pattern); err != nil {
			errs = append(errs, fmt.Sprintf("algorithm.discount_rules[%d]: %v", i, err))
		}
		if r.Factor < 0 {
			errs = append(errs, fmt.Sprintf("algorithm.discount_rules[%d]: factor must be >= 0", i))
		}
	}
	return errs
}
