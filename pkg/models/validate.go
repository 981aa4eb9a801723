package models

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// ValidationError reports a single field that failed firm validation.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every field error found on one record.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidateFirm checks the save-time invariants of a firm: known enum values,
// non-negative limits, fees and percentages, ordered tiers, and no self-reference
// in the pool configuration.
func ValidateFirm(f *Firm) error {
	var errs ValidationErrors

	if err := validatorInstance().Struct(f); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = append(errs, &ValidationError{
				Field:   fe.Namespace(),
				Value:   fe.Value(),
				Message: "failed '" + fe.Tag() + "' check",
			})
		}
	}

	errs = append(errs, validatePricing("Pricing", &f.Pricing)...)
	if f.HasSecondaryModel {
		errs = append(errs, validatePricing("Secondary", &f.Secondary)...)
	}

	if f.YearlyFee.IsNegative() {
		errs = append(errs, &ValidationError{Field: "YearlyFee", Value: f.YearlyFee, Message: "must not be negative"})
	}

	for _, id := range f.SavedPoolConfig {
		if id == f.ID {
			errs = append(errs, &ValidationError{Field: "SavedPoolConfig", Value: id, Message: "firm cannot be a member of its own pool"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validatePricing(prefix string, p *PricingConfig) ValidationErrors {
	var errs ValidationErrors
	if p.BaseFee.IsNegative() {
		errs = append(errs, &ValidationError{Field: prefix + ".BaseFee", Value: p.BaseFee, Message: "must not be negative"})
	}
	if p.ExtraPersonFee.IsNegative() {
		errs = append(errs, &ValidationError{Field: prefix + ".ExtraPersonFee", Value: p.ExtraPersonFee, Message: "must not be negative"})
	}
	if p.TolerancePercentage.IsNegative() {
		errs = append(errs, &ValidationError{Field: prefix + ".TolerancePercentage", Value: p.TolerancePercentage, Message: "must not be negative"})
	}
	for i, t := range p.Tiers {
		if t.Price.IsNegative() {
			errs = append(errs, &ValidationError{Field: fmt.Sprintf("%s.Tiers[%d].Price", prefix, i), Value: t.Price, Message: "must not be negative"})
		}
	}
	return errs
}

// ValidateSettings checks that percentages and VAT rates are non-negative.
func ValidateSettings(s *GlobalSettings) error {
	var errs ValidationErrors
	check := func(field string, v interface{ IsNegative() bool }) {
		if v.IsNegative() {
			errs = append(errs, &ValidationError{Field: field, Value: v, Message: "must not be negative"})
		}
	}
	check("ExpertPercentage", s.ExpertPercentage)
	check("DoctorPercentage", s.DoctorPercentage)
	check("VatRateExpert", s.VatRateExpert)
	check("VatRateDoctor", s.VatRateDoctor)
	check("VatRateHealth", s.VatRateHealth)
	if len(errs) > 0 {
		return errs
	}
	return nil
}
