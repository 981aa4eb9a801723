package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"osgb/pkg/models"
)

// Bucket labels, oldest last.
var BucketLabels = [4]string{"0-30", "31-60", "61-90", "90+"}

// Aging is the open debt of one firm split by age.
type Aging struct {
	FirmID  string
	Buckets [4]decimal.Decimal
	Open    decimal.Decimal
	Advance decimal.Decimal // credit not yet matched to any debt
}

func bucketFor(days int) int {
	switch {
	case days <= 30:
		return 0
	case days <= 60:
		return 1
	case days <= 90:
		return 2
	default:
		return 3
	}
}

// AgeDebt applies a firm's approved credits to its approved debts oldest
// first, then buckets what remains open by days since the debt date.
func AgeDebt(firmID string, txns []models.Transaction, asOf time.Time) Aging {
	a := Aging{FirmID: firmID}

	type open struct {
		date   time.Time
		amount decimal.Decimal
	}
	var debts []open
	credit := decimal.Zero
	for _, t := range Approved(txns) {
		if t.FirmID != firmID {
			continue
		}
		if t.Debt.IsPositive() {
			debts = append(debts, open{date: t.Date, amount: t.Debt})
		}
		credit = credit.Add(t.Credit)
	}
	sort.SliceStable(debts, func(i, j int) bool { return debts[i].date.Before(debts[j].date) })

	for i := range debts {
		if !credit.IsPositive() {
			break
		}
		applied := decimal.Min(credit, debts[i].amount)
		debts[i].amount = debts[i].amount.Sub(applied)
		credit = credit.Sub(applied)
	}
	a.Advance = credit

	for _, d := range debts {
		if !d.amount.IsPositive() {
			continue
		}
		days := int(asOf.Sub(d.date).Hours() / 24)
		if days < 0 {
			days = 0
		}
		b := bucketFor(days)
		a.Buckets[b] = a.Buckets[b].Add(d.amount)
		a.Open = a.Open.Add(d.amount)
	}
	return a
}

// AgeAll runs AgeDebt for every firm and keeps firms with open debt.
func AgeAll(firms []models.Firm, txns []models.Transaction, asOf time.Time) []Aging {
	var out []Aging
	for _, f := range firms {
		if a := AgeDebt(f.ID, txns, asOf); a.Open.IsPositive() {
			out = append(out, a)
		}
	}
	return out
}
