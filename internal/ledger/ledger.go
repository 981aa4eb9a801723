// Package ledger derives balances, statements and debt aging from APPROVED
// transactions. Pending drafts never contribute.
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"osgb/pkg/models"
)

// Approved returns the approved transactions in date order.
func Approved(txns []models.Transaction) []models.Transaction {
	var out []models.Transaction
	for _, t := range txns {
		if t.IsApproved() {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Balance is a firm's cumulative position.
type Balance struct {
	FirmID   string
	FirmName string
	Debt     decimal.Decimal
	Credit   decimal.Decimal
	Balance  decimal.Decimal // debt minus credit; positive means the firm owes
	Orphaned bool            // firm record no longer exists
}

// Balances totals approved transactions per firm. Firms without transactions
// are listed with zero balances; transactions of deleted firms are grouped
// under their id and flagged as orphaned.
func Balances(firms []models.Firm, txns []models.Transaction) []Balance {
	byFirm := make(map[string]*Balance)
	var order []string
	for _, f := range firms {
		byFirm[f.ID] = &Balance{FirmID: f.ID, FirmName: f.Name}
		order = append(order, f.ID)
	}

	for _, t := range Approved(txns) {
		b, ok := byFirm[t.FirmID]
		if !ok {
			b = &Balance{FirmID: t.FirmID, Orphaned: true}
			byFirm[t.FirmID] = b
			order = append(order, t.FirmID)
		}
		b.Debt = b.Debt.Add(t.Debt)
		b.Credit = b.Credit.Add(t.Credit)
	}

	out := make([]Balance, 0, len(order))
	for _, id := range order {
		b := byFirm[id]
		b.Balance = b.Debt.Sub(b.Credit)
		out = append(out, *b)
	}
	return out
}

// BalanceOf returns a single firm's balance.
func BalanceOf(firmID string, txns []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range Approved(txns) {
		if t.FirmID == firmID {
			total = total.Add(t.Net())
		}
	}
	return total
}

// StatementLine is one transaction with the balance after it.
type StatementLine struct {
	Transaction models.Transaction
	Balance     decimal.Decimal
}

// Statement is a firm's account extract for a period.
type Statement struct {
	FirmID  string
	From    time.Time
	To      time.Time
	Opening decimal.Decimal
	Lines   []StatementLine
	Debt    decimal.Decimal
	Credit  decimal.Decimal
	Closing decimal.Decimal
}

// BuildStatement lists a firm's approved transactions between from and to
// (inclusive, zero bounds are open) with a running balance. Earlier
// transactions form the opening balance.
func BuildStatement(firmID string, txns []models.Transaction, from, to time.Time) Statement {
	st := Statement{FirmID: firmID, From: from, To: to}
	running := decimal.Zero
	for _, t := range Approved(txns) {
		if t.FirmID != firmID {
			continue
		}
		if !to.IsZero() && t.Date.After(to) {
			continue
		}
		running = running.Add(t.Net())
		if !from.IsZero() && t.Date.Before(from) {
			st.Opening = running
			continue
		}
		st.Debt = st.Debt.Add(t.Debt)
		st.Credit = st.Credit.Add(t.Credit)
		st.Lines = append(st.Lines, StatementLine{Transaction: t, Balance: running})
	}
	st.Closing = running
	return st
}

// MonthTotal aggregates one calendar month.
type MonthTotal struct {
	Year   int
	Month  int
	Debt   decimal.Decimal
	Credit decimal.Decimal
}

// MonthlyTotals groups approved transactions of a year by month using the
// stored month and year. firmID may be empty for all firms.
func MonthlyTotals(txns []models.Transaction, year int, firmID string) []MonthTotal {
	months := make([]MonthTotal, 12)
	for i := range months {
		months[i] = MonthTotal{Year: year, Month: i + 1}
	}
	for _, t := range Approved(txns) {
		if t.Year != year || t.Month < 1 || t.Month > 12 {
			continue
		}
		if firmID != "" && t.FirmID != firmID {
			continue
		}
		m := &months[t.Month-1]
		m.Debt = m.Debt.Add(t.Debt)
		m.Credit = m.Credit.Add(t.Credit)
	}
	return months
}
