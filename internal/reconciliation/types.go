package reconciliation

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRow is one incoming payment read from the payment sheet.
type PaymentRow struct {
	Row         int             // 1-based sheet row
	Date        time.Time       // Tarih - column A
	Payer       string          // Firma / Gönderen - column B
	TaxNumber   string          // Vergi No - column C
	Amount      decimal.Decimal // Tutar - column D
	Description string          // Açıklama - column E
}

// Match methods.
const (
	MatchByTaxNumber = "tax_number"
	MatchByName      = "name"
)

// MatchResult pairs a payment row with the firm it was attributed to.
type MatchResult struct {
	Payment    PaymentRow
	FirmID     string
	FirmName   string
	MatchedBy  string   // empty when unmatched
	Candidates []string // firm ids when the name matched more than one firm
	Duplicate  bool     // an identical approved payment already exists
}

// Matched reports whether the row resolved to exactly one firm.
func (m *MatchResult) Matched() bool {
	return m.FirmID != ""
}

// Report summarises a reconciliation run.
type Report struct {
	Results  []MatchResult
	Recorded int
}

// Unmatched returns the rows that could not be attributed.
func (r *Report) Unmatched() []MatchResult {
	var out []MatchResult
	for _, m := range r.Results {
		if !m.Matched() {
			out = append(out, m)
		}
	}
	return out
}
