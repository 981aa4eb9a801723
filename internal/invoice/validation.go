package invoice

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"osgb/internal/logger"
	"osgb/pkg/models"
)

// DraftValidation cross-checks stored invoice snapshots against their debt
// before operators approve them.
type DraftValidation struct {
	log zerolog.Logger
}

// NewDraftValidation creates a new draft validation service
func NewDraftValidation() *DraftValidation {
	return &DraftValidation{
		log: logger.WithComponent("draft-validation"),
	}
}

// DraftValidationResult lists the warnings found on one transaction.
type DraftValidationResult struct {
	TransactionID  string
	Warnings       []string
	HasDiscrepancy bool
}

// roundingTolerance is the rounding slack allowed per invoiced firm.
var roundingTolerance = decimal.RequireFromString("0.02")

// Validate checks that expert, doctor and health shares add up to the debt
// and that the service amount matches expert plus doctor.
func (dv *DraftValidation) Validate(t *models.Transaction) *DraftValidationResult {
	result := &DraftValidationResult{TransactionID: t.ID}

	if t.Type != models.TransactionInvoice {
		return result
	}
	d := t.CalculatedDetails
	if d == nil {
		result.Warnings = append(result.Warnings, "no calculated details stored; breakdown will be derived from the debt")
		return result
	}

	tolerance := roundingTolerance.Mul(decimal.NewFromInt(int64(1 + len(t.PoolMemberIDs))))

	sum := d.ExpertShare.Add(d.DoctorShare).Add(d.HealthShare)
	if diff := sum.Sub(t.Debt).Abs(); diff.GreaterThan(tolerance) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"share sum mismatch: expert(%s) + doctor(%s) + health(%s) = %s, but debt=%s (difference: %s)",
			d.ExpertShare.StringFixed(2), d.DoctorShare.StringFixed(2), d.HealthShare.StringFixed(2),
			sum.StringFixed(2), t.Debt.StringFixed(2), diff.StringFixed(2)))
		result.HasDiscrepancy = true

		dv.log.Warn().
			Str("transaction_id", t.ID).
			Str("share_sum", sum.StringFixed(2)).
			Str("debt", t.Debt.StringFixed(2)).
			Msg("Invoice share sum does not match debt")
	}

	service := d.ExpertShare.Add(d.DoctorShare)
	if diff := service.Sub(d.ServiceAmount).Abs(); diff.GreaterThan(tolerance) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"service amount %s differs from expert + doctor = %s",
			d.ServiceAmount.StringFixed(2), service.StringFixed(2)))
		result.HasDiscrepancy = true
	}

	return result
}

// ValidateAll runs Validate over a list and returns only results with warnings.
func (dv *DraftValidation) ValidateAll(txns []models.Transaction) []*DraftValidationResult {
	var out []*DraftValidationResult
	for i := range txns {
		if r := dv.Validate(&txns[i]); len(r.Warnings) > 0 {
			out = append(out, r)
		}
	}
	return out
}
