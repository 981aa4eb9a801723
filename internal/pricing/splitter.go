package pricing

import (
	"github.com/shopspring/decimal"

	"osgb/internal/money"
	"osgb/pkg/models"
)

// Shares is the gross decomposition of an invoice.
type Shares struct {
	Expert     decimal.Decimal `json:"expert"`
	Doctor     decimal.Decimal `json:"doctor"`
	Health     decimal.Decimal `json:"health"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// Service returns the gross service amount (expert + doctor).
func (s Shares) Service() decimal.Decimal {
	return s.Expert.Add(s.Doctor)
}

// Add sums two share sets component-wise.
func (s Shares) Add(o Shares) Shares {
	return Shares{
		Expert:     s.Expert.Add(o.Expert),
		Doctor:     s.Doctor.Add(o.Doctor),
		Health:     s.Health.Add(o.Health),
		GrandTotal: s.GrandTotal.Add(o.GrandTotal),
	}
}

// Gross adds VAT at rate percent to a net amount.
func Gross(net, rate decimal.Decimal) decimal.Decimal {
	return net.Add(net.Mul(rate).Div(money.Hundred))
}

// Net removes VAT at rate percent from a gross amount.
func Net(gross, rate decimal.Decimal) decimal.Decimal {
	return gross.Div(decimal.NewFromInt(1).Add(rate.Div(money.Hundred)))
}

// Split attributes the service base to expert and doctor shares according
// to the service type, takes the extra item as the health share, and applies
// per-share VAT when the amounts are configured net of VAT.
func Split(serviceBase, extraItem decimal.Decimal, serviceType models.ServiceType, isKdvExcluded bool, settings models.GlobalSettings) Shares {
	var expert, doctor decimal.Decimal
	switch serviceType {
	case models.ServiceExpertOnly:
		expert = serviceBase
	case models.ServiceDoctorOnly:
		doctor = serviceBase
	default:
		expert = serviceBase.Mul(settings.ExpertPercentage).Div(money.Hundred)
		if settings.ExpertPercentage.Add(settings.DoctorPercentage).Equal(money.Hundred) {
			doctor = serviceBase.Sub(expert)
		} else {
			doctor = serviceBase.Mul(settings.DoctorPercentage).Div(money.Hundred)
		}
	}
	health := extraItem

	if isKdvExcluded {
		expert = Gross(expert, settings.VatRateExpert)
		doctor = Gross(doctor, settings.VatRateDoctor)
		health = Gross(health, settings.VatRateHealth)
	}

	return Shares{
		Expert:     expert,
		Doctor:     doctor,
		Health:     health,
		GrandTotal: expert.Add(doctor).Add(health),
	}
}
