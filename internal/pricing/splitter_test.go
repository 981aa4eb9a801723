package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"osgb/pkg/models"
)

func settings() models.GlobalSettings {
	return models.GlobalSettings{
		ExpertPercentage: d("60"),
		DoctorPercentage: d("40"),
		VatRateExpert:    d("20"),
		VatRateDoctor:    d("20"),
		VatRateHealth:    d("10"),
	}
}

func TestSplitServiceTypes(t *testing.T) {
	tests := []struct {
		name        string
		serviceType models.ServiceType
		excluded    bool
		expert      string
		doctor      string
		health      string
		total       string
	}{
		{"both gross", models.ServiceBoth, false, "600", "400", "100", "1100"},
		{"both net", models.ServiceBoth, true, "720", "480", "110", "1310"},
		{"expert only", models.ServiceExpertOnly, false, "1000", "0", "100", "1100"},
		{"doctor only net", models.ServiceDoctorOnly, true, "0", "1200", "110", "1310"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(d("1000"), d("100"), tt.serviceType, tt.excluded, settings())
			if !got.Expert.Equal(d(tt.expert)) {
				t.Errorf("expert: expected %s, got %s", tt.expert, got.Expert)
			}
			if !got.Doctor.Equal(d(tt.doctor)) {
				t.Errorf("doctor: expected %s, got %s", tt.doctor, got.Doctor)
			}
			if !got.Health.Equal(d(tt.health)) {
				t.Errorf("health: expected %s, got %s", tt.health, got.Health)
			}
			if !got.GrandTotal.Equal(d(tt.total)) {
				t.Errorf("total: expected %s, got %s", tt.total, got.GrandTotal)
			}
		})
	}
}

func TestSplitBothHasNoLeakage(t *testing.T) {
	splits := [][2]string{{"60", "40"}, {"33.33", "66.67"}, {"100", "0"}, {"12.5", "87.5"}}
	bases := []string{"0", "1", "999.99", "1234.57", "17"}
	for _, sp := range splits {
		s := settings()
		s.ExpertPercentage = d(sp[0])
		s.DoctorPercentage = d(sp[1])
		s.VatRateDoctor = s.VatRateExpert
		for _, b := range bases {
			base := d(b)
			plain := Split(base, decimal.Zero, models.ServiceBoth, false, s)
			if !plain.Service().Equal(base) {
				t.Errorf("split %v base %s: expert+doctor = %s", sp, b, plain.Service())
			}
			vat := Split(base, decimal.Zero, models.ServiceBoth, true, s)
			if !vat.Service().Equal(Gross(base, s.VatRateExpert)) {
				t.Errorf("split %v base %s: gross expert+doctor = %s, want %s", sp, b, vat.Service(), Gross(base, s.VatRateExpert))
			}
		}
	}
}

func TestVATRoundTrip(t *testing.T) {
	epsilon := d("0.0000001")
	for _, n := range []string{"0", "0.01", "100", "1234.56", "98765.43"} {
		for _, r := range []string{"0", "1", "8", "10", "18", "20"} {
			net := d(n)
			back := Net(Gross(net, d(r)), d(r))
			if back.Sub(net).Abs().GreaterThan(epsilon) {
				t.Errorf("net %s rate %s: round trip gave %s", n, r, back)
			}
		}
	}
}

func TestSharesAdd(t *testing.T) {
	a := Shares{Expert: d("1"), Doctor: d("2"), Health: d("3"), GrandTotal: d("6")}
	b := Shares{Expert: d("10"), Doctor: d("20"), Health: d("30"), GrandTotal: d("60")}
	sum := a.Add(b)
	if !sum.GrandTotal.Equal(d("66")) || !sum.Service().Equal(d("33")) || !sum.Health.Equal(d("33")) {
		t.Fatalf("unexpected sum %+v", sum)
	}
}
