package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Typed errors
// ---------------------------------------------------------------------------

// InvalidInputError reports a parameter the engine refuses to clamp.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func invalidInput(field, reason string) error {
	return &InvalidInputError{Field: field, Reason: reason}
}

// UnknownAgreementError reports a reference to an agreement that does not exist.
type UnknownAgreementError struct {
	AgreementID string
}

func (e *UnknownAgreementError) Error() string {
	if e.AgreementID == "" {
		return "unknown agreement: missing agreement reference"
	}
	return fmt.Sprintf("unknown agreement %q", e.AgreementID)
}

// UnknownScheduleEntryError reports an explicit schedule reference that does
// not belong to the agreement.
type UnknownScheduleEntryError struct {
	EntryID string
}

func (e *UnknownScheduleEntryError) Error() string {
	return fmt.Sprintf("unknown schedule entry %q", e.EntryID)
}

// NegativeAmountError reports a payment amount below zero.
type NegativeAmountError struct {
	Amount decimal.Decimal
}

func (e *NegativeAmountError) Error() string {
	return fmt.Sprintf("negative payment amount %s", e.Amount.StringFixed(2))
}

// ReconciliationConflictError reports write contention on one agreement. The
// caller may retry.
type ReconciliationConflictError struct {
	AgreementID string
	Err         error
}

func (e *ReconciliationConflictError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("reconciliation conflict on agreement %q", e.AgreementID)
	}
	return fmt.Sprintf("reconciliation conflict on agreement %q: %v", e.AgreementID, e.Err)
}

func (e *ReconciliationConflictError) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	// ErrDuplicateMaterialization is returned when an agreement already has
	// schedule entries. Callers treat it as a no-op.
	ErrDuplicateMaterialization = errors.New("schedule already materialized")
	ErrFactImmutable            = errors.New("payment fact is immutable once completed")
	ErrNotFound                 = errors.New("not found")
)

// IsConflict reports whether err is a ReconciliationConflictError.
func IsConflict(err error) bool {
	var c *ReconciliationConflictError
	return errors.As(err, &c)
}
