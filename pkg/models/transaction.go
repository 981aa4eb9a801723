package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes debts raised against a firm from payments received.
type TransactionType string

const (
	TransactionInvoice TransactionType = "INVOICE"
	TransactionPayment TransactionType = "PAYMENT"
)

// TransactionStatus is the draft lifecycle state. There is no rejected state:
// rejection is deletion.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "PENDING"
	StatusApproved TransactionStatus = "APPROVED"
)

// CalculatedDetails is the gross breakdown captured when an invoice is created,
// so historical invoices stay reproducible after firm pricing changes.
type CalculatedDetails struct {
	EmployeeCount   int             `json:"employee_count"`
	ServiceAmount   decimal.Decimal `json:"service_amount"`
	ExtraItemAmount decimal.Decimal `json:"extra_item_amount"`
	YearlyFeeAmount decimal.Decimal `json:"yearly_fee_amount"`
	ExpertShare     decimal.Decimal `json:"expert_share"`
	DoctorShare     decimal.Decimal `json:"doctor_share"`
	HealthShare     decimal.Decimal `json:"health_share"`
}

// Add sums two snapshots component-wise.
func (d CalculatedDetails) Add(o CalculatedDetails) CalculatedDetails {
	return CalculatedDetails{
		EmployeeCount:   d.EmployeeCount + o.EmployeeCount,
		ServiceAmount:   d.ServiceAmount.Add(o.ServiceAmount),
		ExtraItemAmount: d.ExtraItemAmount.Add(o.ExtraItemAmount),
		YearlyFeeAmount: d.YearlyFeeAmount.Add(o.YearlyFeeAmount),
		ExpertShare:     d.ExpertShare.Add(o.ExpertShare),
		DoctorShare:     d.DoctorShare.Add(o.DoctorShare),
		HealthShare:     d.HealthShare.Add(o.HealthShare),
	}
}

// Transaction is a ledger entry. Once APPROVED it is final.
type Transaction struct {
	ID          string            `json:"id"`
	FirmID      string            `json:"firm_id"`
	Date        time.Time         `json:"date"`
	Type        TransactionType   `json:"type"`
	Debt        decimal.Decimal   `json:"debt"`
	Credit      decimal.Decimal   `json:"credit"`
	Month       int               `json:"month"`
	Year        int               `json:"year"`
	Status      TransactionStatus `json:"status"`
	InvoiceType InvoiceType       `json:"invoice_type,omitempty"`
	Description string            `json:"description,omitempty"`

	CalculatedDetails *CalculatedDetails `json:"calculated_details,omitempty"`
	PoolMemberIDs     []string           `json:"pool_member_ids,omitempty"` // firms folded into a pool invoice

	CreatedAt time.Time `json:"created_at"`
}

// IsPending reports whether the transaction is still a draft.
func (t *Transaction) IsPending() bool {
	return t.Status == StatusPending
}

// IsApproved reports whether the transaction feeds balances and statements.
func (t *Transaction) IsApproved() bool {
	return t.Status == StatusApproved
}

// IsPendingInvoice reports whether the transaction is an invoice draft.
func (t *Transaction) IsPendingInvoice() bool {
	return t.Type == TransactionInvoice && t.IsPending()
}

// Net returns debt minus credit.
func (t *Transaction) Net() decimal.Decimal {
	return t.Debt.Sub(t.Credit)
}

// GlobalSettings is the process-wide configuration read by every computation.
// It is passed explicitly into pricing calls rather than read from ambient state.
type GlobalSettings struct {
	ExpertPercentage decimal.Decimal `json:"expert_percentage"`
	DoctorPercentage decimal.Decimal `json:"doctor_percentage"`
	VatRateExpert    decimal.Decimal `json:"vat_rate_expert"`
	VatRateDoctor    decimal.Decimal `json:"vat_rate_doctor"`
	VatRateHealth    decimal.Decimal `json:"vat_rate_health"`
	BankInfo         string          `json:"bank_info,omitempty"`
}

// DefaultGlobalSettings returns the settings used before the operator saves any.
func DefaultGlobalSettings() GlobalSettings {
	return GlobalSettings{
		ExpertPercentage: decimal.NewFromInt(60),
		DoctorPercentage: decimal.NewFromInt(40),
		VatRateExpert:    decimal.NewFromInt(20),
		VatRateDoctor:    decimal.NewFromInt(20),
		VatRateHealth:    decimal.NewFromInt(10),
	}
}
