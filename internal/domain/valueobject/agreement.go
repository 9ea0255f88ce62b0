package valueobject

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// AgreementType – immutable value object
// ---------------------------------------------------------------------------

// AgreementType distinguishes amortized lease-to-own contracts from flat
// recurring short-term rentals.
type AgreementType struct {
	value string
}

const (
	agreementTypeLeaseToOwn = "lease_to_own"
	agreementTypeShortTerm  = "short_term"
)

var (
	AgreementTypeLeaseToOwn = AgreementType{value: agreementTypeLeaseToOwn}
	AgreementTypeShortTerm  = AgreementType{value: agreementTypeShortTerm}
)

var validAgreementTypes = map[string]AgreementType{
	agreementTypeLeaseToOwn: AgreementTypeLeaseToOwn,
	agreementTypeShortTerm:  AgreementTypeShortTerm,
}

// NewAgreementType creates an AgreementType from a raw string.
func NewAgreementType(s string) (AgreementType, error) {
	v, ok := validAgreementTypes[s]
	if !ok {
		return AgreementType{}, fmt.Errorf("invalid agreement type: %q", s)
	}
	return v, nil
}

// String returns the string representation of the type.
func (t AgreementType) String() string { return t.value }

// IsZero returns true if the type has not been initialised.
func (t AgreementType) IsZero() bool { return t.value == "" }

// Equal returns true when both types carry the same value.
func (t AgreementType) Equal(other AgreementType) bool { return t.value == other.value }

// ---------------------------------------------------------------------------
// AgreementStatus – immutable value object
// ---------------------------------------------------------------------------

// AgreementStatus represents the lifecycle stage of an agreement.
type AgreementStatus struct {
	value string
}

const (
	agreementStatusDraft     = "draft"
	agreementStatusActive    = "active"
	agreementStatusClosed    = "closed"
	agreementStatusCancelled = "cancelled"
)

var (
	AgreementStatusDraft     = AgreementStatus{value: agreementStatusDraft}
	AgreementStatusActive    = AgreementStatus{value: agreementStatusActive}
	AgreementStatusClosed    = AgreementStatus{value: agreementStatusClosed}
	AgreementStatusCancelled = AgreementStatus{value: agreementStatusCancelled}
)

var validAgreementStatuses = map[string]AgreementStatus{
	agreementStatusDraft:     AgreementStatusDraft,
	agreementStatusActive:    AgreementStatusActive,
	agreementStatusClosed:    AgreementStatusClosed,
	agreementStatusCancelled: AgreementStatusCancelled,
}

// NewAgreementStatus creates an AgreementStatus from a raw string.
func NewAgreementStatus(s string) (AgreementStatus, error) {
	v, ok := validAgreementStatuses[s]
	if !ok {
		return AgreementStatus{}, fmt.Errorf("invalid agreement status: %q", s)
	}
	return v, nil
}

// String returns the string representation of the status.
func (s AgreementStatus) String() string { return s.value }

// IsZero returns true if the status has not been initialised.
func (s AgreementStatus) IsZero() bool { return s.value == "" }

// Equal returns true when both statuses carry the same value.
func (s AgreementStatus) Equal(other AgreementStatus) bool { return s.value == other.value }

// IsTerminal reports whether no further payments are reconciled.
func (s AgreementStatus) IsTerminal() bool {
	return s.value == agreementStatusClosed || s.value == agreementStatusCancelled
}

// ---------------------------------------------------------------------------
// BillingPeriod – immutable value object
// ---------------------------------------------------------------------------

// BillingPeriod is the cadence of short-term agreement installments.
type BillingPeriod struct {
	value string
}

const (
	billingPeriodDaily   = "daily"
	billingPeriodMonthly = "monthly"
)

var (
	BillingPeriodDaily   = BillingPeriod{value: billingPeriodDaily}
	BillingPeriodMonthly = BillingPeriod{value: billingPeriodMonthly}
)

var validBillingPeriods = map[string]BillingPeriod{
	billingPeriodDaily:   BillingPeriodDaily,
	billingPeriodMonthly: BillingPeriodMonthly,
}

// NewBillingPeriod creates a BillingPeriod from a raw string. An empty string
// yields monthly.
func NewBillingPeriod(s string) (BillingPeriod, error) {
	if s == "" {
		return BillingPeriodMonthly, nil
	}
	v, ok := validBillingPeriods[s]
	if !ok {
		return BillingPeriod{}, fmt.Errorf("invalid billing period: %q", s)
	}
	return v, nil
}

// String returns the string representation of the period.
func (p BillingPeriod) String() string { return p.value }

// IsZero returns true if the period has not been initialised.
func (p BillingPeriod) IsZero() bool { return p.value == "" }

// Equal returns true when both periods carry the same value.
func (p BillingPeriod) Equal(other BillingPeriod) bool { return p.value == other.value }

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)
