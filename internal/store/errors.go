package store

import (
	"errors"
	"fmt"

	"osgb/pkg/services"
)

var (
	// ErrNotFound is returned when a keyed record does not exist.
	ErrNotFound = services.ErrNotFound

	// ErrUnsupportedDriver is returned for database drivers other than sqlite and postgres.
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	// ErrStatusReversal is returned when an approved transaction would move back to pending.
	ErrStatusReversal = errors.New("approved transaction cannot return to pending")

	// ErrNegativeAmount is returned when a transaction carries a negative debt or credit.
	ErrNegativeAmount = errors.New("debt and credit must not be negative")
)

// StoreError wraps a storage failure with the record it concerned.
type StoreError struct {
	Op         string
	Collection string
	Key        string
	Err        error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("store: %s %s/%s: %v", e.Op, e.Collection, e.Key, e.Err)
	}
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Collection, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is reports whether the underlying error matches target.
func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func wrap(op, collection, key string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Collection: collection, Key: key, Err: err}
}
