package pricing

import (
	"github.com/shopspring/decimal"

	"osgb/internal/money"
	"osgb/pkg/models"
)

// FirmTotal is the computed invoice amount of a single firm for one cycle.
type FirmTotal struct {
	FirmID        string
	EmployeeCount int

	PrimaryFee       decimal.Decimal
	SecondaryFee     decimal.Decimal
	ServiceBase      decimal.Decimal // after yearly-fee replacement, before split and VAT
	YearlyFeeApplied bool

	Shares
}

// Details returns the snapshot stored on the invoice transaction, rounded
// to kuruş.
func (t FirmTotal) Details() models.CalculatedDetails {
	d := models.CalculatedDetails{
		EmployeeCount:   t.EmployeeCount,
		ServiceAmount:   money.Round2(t.Service()),
		ExtraItemAmount: money.Round2(t.Health),
		ExpertShare:     money.Round2(t.Expert),
		DoctorShare:     money.Round2(t.Doctor),
		HealthShare:     money.Round2(t.Health),
	}
	if t.YearlyFeeApplied {
		d.YearlyFeeAmount = d.ServiceAmount
	}
	return d
}

// ComputeFirmTotal combines the primary and optional secondary model, applies
// the yearly-fee override, then splits and VATs the result. Missing
// configuration evaluates as zero; the grand total is not clamped.
func ComputeFirmTotal(firm *models.Firm, item models.PreparationItem, settings models.GlobalSettings, opts Options) FirmTotal {
	t := FirmTotal{
		FirmID:        firm.ID,
		EmployeeCount: item.CurrentEmployeeCount,
	}

	t.PrimaryFee = EvaluateModel(item.CurrentEmployeeCount, firm.Pricing, firm.Pricing.TolerancePercentage, opts.TierFallback)
	t.ServiceBase = t.PrimaryFee
	if firm.HasSecondaryModel {
		t.SecondaryFee = EvaluateModel(item.CurrentEmployeeCount, firm.Secondary, decimal.Zero, opts.TierFallback)
		t.ServiceBase = t.ServiceBase.Add(t.SecondaryFee)
	}

	if item.AddYearlyFee {
		t.ServiceBase = firm.YearlyFee
		t.YearlyFeeApplied = true
	}

	t.Shares = Split(t.ServiceBase, item.ExtraItemAmount, firm.EffectiveServiceType(), firm.IsKdvExcluded, settings)
	return t
}
