package invoice

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"osgb/pkg/models"
)

func TestDraftValidation(t *testing.T) {
	dv := NewDraftValidation()
	d := decimal.RequireFromString

	consistent := models.Transaction{
		ID: "ok", Type: models.TransactionInvoice, Debt: d("1110.00"),
		CalculatedDetails: &models.CalculatedDetails{
			ServiceAmount: d("1000.00"), ExpertShare: d("600.00"), DoctorShare: d("400.00"), HealthShare: d("110.00"),
		},
	}
	assert.Empty(t, dv.Validate(&consistent).Warnings)

	offByKurus := consistent
	offByKurus.ID = "kurus"
	offByKurus.Debt = d("1110.01")
	assert.False(t, dv.Validate(&offByKurus).HasDiscrepancy)

	mismatch := consistent
	mismatch.ID = "bad"
	mismatch.Debt = d("1200.00")
	res := dv.Validate(&mismatch)
	assert.True(t, res.HasDiscrepancy)
	assert.Len(t, res.Warnings, 1)

	legacy := models.Transaction{ID: "legacy", Type: models.TransactionInvoice, Debt: d("100")}
	res = dv.Validate(&legacy)
	assert.False(t, res.HasDiscrepancy)
	assert.Len(t, res.Warnings, 1)

	payment := models.Transaction{ID: "pay", Type: models.TransactionPayment, Credit: d("100")}
	assert.Empty(t, dv.Validate(&payment).Warnings)

	all := dv.ValidateAll([]models.Transaction{consistent, mismatch, legacy, payment})
	if assert.Len(t, all, 2) {
		assert.Equal(t, "bad", all[0].TransactionID)
		assert.Equal(t, "legacy", all[1].TransactionID)
	}
}

func TestDraftValidationPoolTolerance(t *testing.T) {
	d := decimal.RequireFromString
	pool := models.Transaction{
		ID: "pool", Type: models.TransactionInvoice, Debt: d("3000.05"),
		PoolMemberIDs: []string{"b1", "b2"},
		CalculatedDetails: &models.CalculatedDetails{
			ServiceAmount: d("3000.00"), ExpertShare: d("1800.00"), DoctorShare: d("1200.00"),
		},
	}
	// three firms allow 0.06 of rounding slack
	assert.False(t, NewDraftValidation().Validate(&pool).HasDiscrepancy)
}
