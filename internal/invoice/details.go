package invoice

import (
	"github.com/shopspring/decimal"

	"osgb/internal/money"
	"osgb/internal/pricing"
	"osgb/pkg/models"
)

// DetailsFor returns the gross breakdown of an invoice. The stored snapshot
// is used when present. Legacy transactions without one are re-split from
// their debt using the firm's current service type and the current settings;
// such figures are approximate when pricing has changed since, and
// approximate is reported true. firm may be nil for deleted firms.
func DetailsFor(t *models.Transaction, firm *models.Firm, settings models.GlobalSettings) (d models.CalculatedDetails, approximate bool) {
	if t.CalculatedDetails != nil {
		return *t.CalculatedDetails, false
	}

	serviceType := models.ServiceExpertOnly
	if firm != nil {
		serviceType = firm.EffectiveServiceType()
	}
	shares := pricing.Split(t.Debt, decimal.Zero, serviceType, false, settings)
	return models.CalculatedDetails{
		ServiceAmount: money.Round2(shares.Service()),
		ExpertShare:   money.Round2(shares.Expert),
		DoctorShare:   money.Round2(shares.Doctor),
	}, true
}

// NetShares is the VAT-exclusive view of a gross breakdown.
type NetShares struct {
	Expert decimal.Decimal
	Doctor decimal.Decimal
	Health decimal.Decimal
	Total  decimal.Decimal
}

// NetFromGross derives net shares for firms priced net of VAT. For firms
// priced gross the shares are returned unchanged.
func NetFromGross(d models.CalculatedDetails, firm *models.Firm, settings models.GlobalSettings) NetShares {
	n := NetShares{Expert: d.ExpertShare, Doctor: d.DoctorShare, Health: d.HealthShare}
	if firm != nil && firm.IsKdvExcluded {
		n.Expert = money.Round2(pricing.Net(d.ExpertShare, settings.VatRateExpert))
		n.Doctor = money.Round2(pricing.Net(d.DoctorShare, settings.VatRateDoctor))
		n.Health = money.Round2(pricing.Net(d.HealthShare, settings.VatRateHealth))
	}
	n.Total = n.Expert.Add(n.Doctor).Add(n.Health)
	return n
}
