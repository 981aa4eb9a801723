// Package pricing turns firm pricing configuration and billing-cycle input
// into gross invoice amounts. Every function here is pure; settings and
// options are passed in explicitly.
package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"osgb/internal/money"
	"osgb/pkg/models"
)

// TierFallback selects the TIERED result when the headcount is below every tier.
type TierFallback string

const (
	FallbackBaseFee     TierFallback = "base_fee"
	FallbackLowestTier  TierFallback = "lowest_tier"
	FallbackExtrapolate TierFallback = "extrapolate"
)

// ParseTierFallback maps a configuration value to a TierFallback.
func ParseTierFallback(s string) (TierFallback, error) {
	switch TierFallback(strings.ToLower(strings.TrimSpace(s))) {
	case "", FallbackBaseFee:
		return FallbackBaseFee, nil
	case FallbackLowestTier:
		return FallbackLowestTier, nil
	case FallbackExtrapolate:
		return FallbackExtrapolate, nil
	}
	return "", fmt.Errorf("unknown tier fallback %q (want base_fee, lowest_tier or extrapolate)", s)
}

// Options carries the tunable policies of the engine.
type Options struct {
	TierFallback TierFallback

	// ImplicitBranches pools ParentFirmID children under roots that have no
	// saved pool configuration. Off by default: membership then comes from
	// saved configurations only, and branches are billed on their own.
	ImplicitBranches bool
}

// DefaultOptions returns base-fee fallback with explicit pools only.
func DefaultOptions() Options {
	return Options{TierFallback: FallbackBaseFee}
}

// EvaluateModel computes the raw fee of one pricing model for a headcount.
// The result is never negative.
func EvaluateModel(count int, cfg models.PricingConfig, tolerance decimal.Decimal, fallback TierFallback) decimal.Decimal {
	n := decimal.NewFromInt(int64(count))
	limit := decimal.NewFromInt(int64(cfg.BasePersonLimit))

	var fee decimal.Decimal
	switch cfg.Model {
	case models.PricingTolerance:
		band := tolerance.Div(money.Hundred)
		lower := limit.Mul(decimal.NewFromInt(1).Sub(band))
		upper := limit.Mul(decimal.NewFromInt(1).Add(band))
		switch {
		case n.GreaterThan(upper):
			fee = cfg.BaseFee.Add(n.Sub(upper).Mul(cfg.ExtraPersonFee))
		case n.LessThan(lower):
			fee = cfg.BaseFee.Sub(lower.Sub(n).Mul(cfg.ExtraPersonFee))
		default:
			fee = cfg.BaseFee
		}
	case models.PricingTiered:
		fee = evaluateTiers(count, cfg, fallback)
	default:
		// STANDARD, and unknown or missing models.
		fee = cfg.BaseFee
		if count > cfg.BasePersonLimit {
			fee = fee.Add(n.Sub(limit).Mul(cfg.ExtraPersonFee))
		}
	}

	if fee.IsNegative() {
		return decimal.Zero
	}
	return fee
}

func evaluateTiers(count int, cfg models.PricingConfig, fallback TierFallback) decimal.Decimal {
	if len(cfg.Tiers) == 0 {
		return cfg.BaseFee
	}

	for _, t := range cfg.Tiers {
		if t.Min <= count && count <= t.Max {
			return t.Price
		}
	}

	// No exact match: above every max, inside a gap, or below every min.
	var below, lowest *models.Tier
	for i := range cfg.Tiers {
		t := &cfg.Tiers[i]
		if t.Max < count && (below == nil || t.Max > below.Max) {
			below = t
		}
		if lowest == nil || t.Min < lowest.Min {
			lowest = t
		}
	}

	if below != nil {
		over := decimal.NewFromInt(int64(count - below.Max))
		return below.Price.Add(over.Mul(cfg.ExtraPersonFee))
	}

	switch fallback {
	case FallbackLowestTier:
		return lowest.Price
	case FallbackExtrapolate:
		under := decimal.NewFromInt(int64(lowest.Min - count))
		return lowest.Price.Sub(under.Mul(cfg.ExtraPersonFee))
	default:
		return cfg.BaseFee
	}
}
