package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"osgb/pkg/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func standard(base string, limit int, extra string) models.PricingConfig {
	return models.PricingConfig{
		Model:           models.PricingStandard,
		BaseFee:         d(base),
		BasePersonLimit: limit,
		ExtraPersonFee:  d(extra),
	}
}

func TestEvaluateStandard(t *testing.T) {
	cfg := standard("1000", 10, "50")
	tests := []struct {
		count int
		want  string
	}{
		{0, "1000"},
		{5, "1000"},
		{10, "1000"},
		{11, "1050"},
		{15, "1250"},
	}
	for _, tt := range tests {
		got := EvaluateModel(tt.count, cfg, decimal.Zero, FallbackBaseFee)
		if !got.Equal(d(tt.want)) {
			t.Errorf("count=%d: expected %s, got %s", tt.count, tt.want, got)
		}
	}
}

func TestEvaluateStandardMonotonic(t *testing.T) {
	cfg := standard("1000", 10, "50")
	prev := EvaluateModel(0, cfg, decimal.Zero, FallbackBaseFee)
	for count := 1; count <= 40; count++ {
		got := EvaluateModel(count, cfg, decimal.Zero, FallbackBaseFee)
		if count <= 10 && !got.Equal(prev) {
			t.Fatalf("count=%d: expected constant fee %s below limit, got %s", count, prev, got)
		}
		if got.LessThan(prev) {
			t.Fatalf("count=%d: fee decreased from %s to %s", count, prev, got)
		}
		prev = got
	}
}

func TestEvaluateTolerance(t *testing.T) {
	cfg := models.PricingConfig{
		Model:               models.PricingTolerance,
		BaseFee:             d("1000"),
		BasePersonLimit:     100,
		ExtraPersonFee:      d("10"),
		TolerancePercentage: d("10"),
	}
	tests := []struct {
		count int
		want  string
	}{
		{95, "1000"},
		{90, "1000"},
		{110, "1000"},
		{80, "900"},
		{120, "1100"},
		{0, "100"},
	}
	for _, tt := range tests {
		got := EvaluateModel(tt.count, cfg, cfg.TolerancePercentage, FallbackBaseFee)
		if !got.Equal(d(tt.want)) {
			t.Errorf("count=%d: expected %s, got %s", tt.count, tt.want, got)
		}
	}
}

func TestEvaluateToleranceClampsAtZero(t *testing.T) {
	cfg := models.PricingConfig{
		Model:           models.PricingTolerance,
		BaseFee:         d("100"),
		BasePersonLimit: 100,
		ExtraPersonFee:  d("50"),
	}
	got := EvaluateModel(10, cfg, decimal.Zero, FallbackBaseFee)
	if !got.IsZero() {
		t.Fatalf("expected clamp to 0, got %s", got)
	}
}

func TestEvaluateTiered(t *testing.T) {
	cfg := models.PricingConfig{
		Model:          models.PricingTiered,
		BaseFee:        d("300"),
		ExtraPersonFee: d("20"),
		Tiers: []models.Tier{
			{Min: 0, Max: 10, Price: d("500")},
			{Min: 11, Max: 20, Price: d("900")},
		},
	}
	tests := []struct {
		count int
		want  string
	}{
		{0, "500"},
		{10, "500"},
		{11, "900"},
		{15, "900"},
		{20, "900"},
		{25, "1000"},
	}
	for _, tt := range tests {
		got := EvaluateModel(tt.count, cfg, decimal.Zero, FallbackBaseFee)
		if !got.Equal(d(tt.want)) {
			t.Errorf("count=%d: expected %s, got %s", tt.count, tt.want, got)
		}
	}
}

func TestEvaluateTieredOverflowUsesLargestMax(t *testing.T) {
	cfg := models.PricingConfig{
		Model:          models.PricingTiered,
		ExtraPersonFee: d("10"),
		Tiers: []models.Tier{
			{Min: 21, Max: 50, Price: d("2000")},
			{Min: 1, Max: 20, Price: d("1000")},
		},
	}
	got := EvaluateModel(55, cfg, decimal.Zero, FallbackBaseFee)
	if !got.Equal(d("2050")) {
		t.Fatalf("expected 2050, got %s", got)
	}
}

func TestEvaluateTieredGap(t *testing.T) {
	cfg := models.PricingConfig{
		Model:          models.PricingTiered,
		ExtraPersonFee: d("10"),
		Tiers: []models.Tier{
			{Min: 1, Max: 10, Price: d("500")},
			{Min: 20, Max: 30, Price: d("1200")},
		},
	}
	got := EvaluateModel(14, cfg, decimal.Zero, FallbackBaseFee)
	if !got.Equal(d("540")) {
		t.Fatalf("expected 540, got %s", got)
	}
}

func TestEvaluateTieredBelowMinimum(t *testing.T) {
	cfg := models.PricingConfig{
		Model:          models.PricingTiered,
		BaseFee:        d("250"),
		ExtraPersonFee: d("30"),
		Tiers: []models.Tier{
			{Min: 5, Max: 10, Price: d("500")},
			{Min: 11, Max: 20, Price: d("900")},
		},
	}
	tests := []struct {
		name     string
		fallback TierFallback
		count    int
		want     string
	}{
		{"base fee", FallbackBaseFee, 2, "250"},
		{"lowest tier", FallbackLowestTier, 2, "500"},
		{"extrapolate", FallbackExtrapolate, 2, "410"},
		{"extrapolate from zero", FallbackExtrapolate, 0, "350"},
		{"unset behaves as base fee", "", 1, "250"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateModel(tt.count, cfg, decimal.Zero, tt.fallback)
			if !got.Equal(d(tt.want)) {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestEvaluateTieredEmptyUsesBaseFee(t *testing.T) {
	cfg := models.PricingConfig{Model: models.PricingTiered, BaseFee: d("750")}
	got := EvaluateModel(12, cfg, decimal.Zero, FallbackBaseFee)
	if !got.Equal(d("750")) {
		t.Fatalf("expected 750, got %s", got)
	}
}

func TestEvaluateMissingConfigIsZero(t *testing.T) {
	got := EvaluateModel(40, models.PricingConfig{}, decimal.Zero, FallbackBaseFee)
	if !got.IsZero() {
		t.Fatalf("expected 0 for empty config, got %s", got)
	}
}

func TestParseTierFallback(t *testing.T) {
	for in, want := range map[string]TierFallback{
		"":            FallbackBaseFee,
		"base_fee":    FallbackBaseFee,
		"LOWEST_TIER": FallbackLowestTier,
		"extrapolate": FallbackExtrapolate,
	} {
		got, err := ParseTierFallback(in)
		if err != nil || got != want {
			t.Errorf("ParseTierFallback(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseTierFallback("ceiling"); err == nil {
		t.Error("expected error for unknown fallback")
	}
}
