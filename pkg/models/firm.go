package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricingModel selects how a headcount is turned into a monthly fee.
type PricingModel string

const (
	PricingStandard  PricingModel = "STANDARD"
	PricingTolerance PricingModel = "TOLERANCE"
	PricingTiered    PricingModel = "TIERED"
)

// ServiceType gates how the service base is split between expert and doctor shares.
type ServiceType string

const (
	ServiceBoth       ServiceType = "BOTH"
	ServiceExpertOnly ServiceType = "EXPERT_ONLY"
	ServiceDoctorOnly ServiceType = "DOCTOR_ONLY"
)

// InvoiceType is one of the two formal invoice categories.
type InvoiceType string

const (
	InvoiceTypeEFatura InvoiceType = "E_FATURA"
	InvoiceTypeEArsiv  InvoiceType = "E_ARSIV"
)

// Tier is a headcount range with a flat price, used by the TIERED model.
type Tier struct {
	Min   int             `json:"min" validate:"min=0"`
	Max   int             `json:"max" validate:"min=0,gtefield=Min"`
	Price decimal.Decimal `json:"price"`
}

// PricingConfig holds the parameters of one pricing model.
// Missing numeric fields decode to zero and are evaluated as such.
type PricingConfig struct {
	Model               PricingModel    `json:"model" validate:"omitempty,oneof=STANDARD TOLERANCE TIERED"`
	BasePersonLimit     int             `json:"base_person_limit" validate:"min=0"`
	BaseFee             decimal.Decimal `json:"base_fee"`
	ExtraPersonFee      decimal.Decimal `json:"extra_person_fee"`
	TolerancePercentage decimal.Decimal `json:"tolerance_percentage"` // TOLERANCE only
	Tiers               []Tier          `json:"tiers,omitempty" validate:"dive"`
}

// Firm is a billable client. It may be standalone, a branch (ParentFirmID set)
// or a pool root (SavedPoolConfig set).
type Firm struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`

	// Hierarchy
	ParentFirmID    string   `json:"parent_firm_id,omitempty"`
	SavedPoolConfig []string `json:"saved_pool_config,omitempty"`

	// Pricing
	Pricing           PricingConfig `json:"pricing"`
	HasSecondaryModel bool          `json:"has_secondary_model"`
	Secondary         PricingConfig `json:"secondary"`

	// Tax treatment
	IsKdvExcluded bool        `json:"is_kdv_excluded"` // prices configured net of VAT
	ServiceType   ServiceType `json:"service_type" validate:"omitempty,oneof=BOTH EXPERT_ONLY DOCTOR_ONLY"`

	// Billing defaults
	DefaultInvoiceType   InvoiceType     `json:"default_invoice_type,omitempty" validate:"omitempty,oneof=E_FATURA E_ARSIV"`
	DefaultEmployeeCount int             `json:"default_employee_count" validate:"min=0"`
	YearlyFee            decimal.Decimal `json:"yearly_fee"`
	TaxNumber            string          `json:"tax_number,omitempty"`
	TaxOffice            string          `json:"tax_office,omitempty"`
	Address              string          `json:"address,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsPoolRoot reports whether the firm declares an explicit pool.
func (f *Firm) IsPoolRoot() bool {
	return len(f.SavedPoolConfig) > 0
}

// EffectiveServiceType treats an unset service type as BOTH.
func (f *Firm) EffectiveServiceType() ServiceType {
	if f.ServiceType == "" {
		return ServiceBoth
	}
	return f.ServiceType
}

// PreparationItem is the per-firm working state for the current billing cycle.
type PreparationItem struct {
	FirmID               string          `json:"firm_id"`
	CurrentEmployeeCount int             `json:"current_employee_count"`
	ExtraItemAmount      decimal.Decimal `json:"extra_item_amount"` // net or gross, following the firm's VAT flag
	AddYearlyFee         bool            `json:"add_yearly_fee"`
}

// NewPreparationItem initialises a preparation item from firm defaults.
func NewPreparationItem(f *Firm) PreparationItem {
	return PreparationItem{
		FirmID:               f.ID,
		CurrentEmployeeCount: f.DefaultEmployeeCount,
		ExtraItemAmount:      decimal.Zero,
	}
}
