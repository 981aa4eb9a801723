package reconciliation

import (
	"context"
	"fmt"
	"sort"

	"osgb/internal/invoice"
	"osgb/internal/logger"
	"osgb/pkg/models"
)

// PaymentRecorder records an approved payment.
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, e invoice.LedgerEntry) (*models.Transaction, error)
}

// Reconciler matches sheet payments to firms and records them.
type Reconciler struct {
	reader   *DataReader
	recorder PaymentRecorder
}

// NewReconciler wires a reader to a payment recorder.
func NewReconciler(reader *DataReader, recorder PaymentRecorder) *Reconciler {
	return &Reconciler{
		reader:   reader,
		recorder: recorder,
	}
}

// Run reads sheetName, matches every payment against firms and, unless dryRun
// is set, records matched payments that are not already in the ledger. It
// logs through the logger carried by ctx.
func (r *Reconciler) Run(ctx context.Context, sheetName string, firms []models.Firm, existing []models.Transaction, dryRun bool) (*Report, error) {
	const op = "Reconcile"
	log := logger.WithContext(ctx)

	payments, err := r.reader.ReadPayments(ctx, sheetName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	report := &Report{Results: MatchAll(firms, payments, existing)}

	for _, m := range report.Results {
		switch {
		case !m.Matched():
			log.Warn().
				Int("row", m.Payment.Row).
				Str("payer", m.Payment.Payer).
				Strs("candidates", m.Candidates).
				Msg("Payment could not be attributed to a firm")
			continue
		case m.Duplicate:
			log.Info().
				Int("row", m.Payment.Row).
				Str("firm_id", m.FirmID).
				Msg("Payment already recorded, skipping")
			continue
		case dryRun:
			continue
		}

		desc := m.Payment.Description
		if desc == "" {
			desc = "Tahsilat - " + m.Payment.Payer
		}
		_, err := r.recorder.RecordPayment(ctx, invoice.LedgerEntry{
			FirmID:      m.FirmID,
			Amount:      m.Payment.Amount,
			Date:        m.Payment.Date,
			Description: desc,
		})
		if err != nil {
			return report, fmt.Errorf("%s: row %d: %w", op, m.Payment.Row, err)
		}
		report.Recorded++
	}

	log.Info().
		Int("payments", len(payments)).
		Int("recorded", report.Recorded).
		Int("unmatched", len(report.Unmatched())).
		Bool("dry_run", dryRun).
		Msg("Reconciliation finished")

	return report, nil
}

type paymentKey struct {
	firmID string
	date   string
	amount string
}

// MatchAll matches payments in date order and flags those already present as
// approved payments with the same firm, date and amount. Each existing
// payment absorbs at most one sheet row.
func MatchAll(firms []models.Firm, payments []PaymentRow, existing []models.Transaction) []MatchResult {
	seen := make(map[paymentKey]int)
	for _, t := range existing {
		if t.Type == models.TransactionPayment && t.IsApproved() {
			seen[paymentKey{t.FirmID, t.Date.Format("2006-01-02"), t.Credit.StringFixed(2)}]++
		}
	}

	sorted := append([]PaymentRow(nil), payments...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	matcher := NewMatcher(firms)
	results := make([]MatchResult, 0, len(sorted))
	for _, p := range sorted {
		m := matcher.Match(p)
		if m.Matched() {
			k := paymentKey{m.FirmID, p.Date.Format("2006-01-02"), p.Amount.StringFixed(2)}
			if seen[k] > 0 {
				seen[k]--
				m.Duplicate = true
			}
		}
		results = append(results, m)
	}
	return results
}
