package invoice

import (
	"errors"
	"fmt"
)

// Invoicing errors
var (
	// ErrNoFirmSelected is returned when an operation needs a firm id and none was given.
	ErrNoFirmSelected = errors.New("no firm selected")

	// ErrFirmNotFound is returned when the selected firm does not exist.
	ErrFirmNotFound = errors.New("firm not found")

	// ErrNonPositiveTotal is returned when a computed invoice total is zero or
	// negative. No transaction is created; callers report it as a notice.
	ErrNonPositiveTotal = errors.New("invoice total is not positive")

	// ErrTransactionNotFound is returned when a transaction id does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrNotPending is returned when a draft-only operation targets an approved transaction.
	ErrNotPending = errors.New("transaction is not a pending draft")

	// ErrSelfPoolMember is returned when a firm is listed in its own pool.
	ErrSelfPoolMember = errors.New("firm cannot be a member of its own pool")

	// ErrNestedPool is returned when a pool would contain a firm that roots a
	// pool itself, or when the root is already a member elsewhere.
	ErrNestedPool = errors.New("pools cannot be nested")

	// ErrPoolMemberTaken is returned when a member already belongs to another root's pool.
	ErrPoolMemberTaken = errors.New("firm already belongs to another pool")

	// ErrNotPoolLine is returned when a pool session is asked about a firm it does not contain.
	ErrNotPoolLine = errors.New("firm is not part of this pool")

	// ErrInvalidAmount is returned for negative manual amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// InvoiceError wraps errors with the operation and firm they concern.
type InvoiceError struct {
	// Op is the operation that failed (e.g., "InvoiceFirm", "CommitPool").
	Op string

	// FirmID is the firm the operation targeted, if any.
	FirmID string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *InvoiceError) Error() string {
	if e.FirmID != "" {
		return fmt.Sprintf("invoice: %s failed (firm: %s): %v", e.Op, e.FirmID, e.Err)
	}
	return fmt.Sprintf("invoice: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *InvoiceError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *InvoiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapInvoiceError wraps an error as an InvoiceError if it isn't already one.
func WrapInvoiceError(op, firmID string, err error) error {
	if err == nil {
		return nil
	}

	var invoiceErr *InvoiceError
	if errors.As(err, &invoiceErr) {
		return err
	}

	return &InvoiceError{Op: op, FirmID: firmID, Err: err}
}
