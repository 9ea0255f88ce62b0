package valueobject

import "fmt"

// ---------------------------------------------------------------------------
// EntryStatus – immutable value object
// ---------------------------------------------------------------------------

// EntryStatus is the reconciliation state of one schedule entry.
type EntryStatus struct {
	value string
}

const (
	entryStatusPending   = "pending"
	entryStatusCompleted = "completed"
	entryStatusOverdue   = "overdue"
	entryStatusPartial   = "partial"
	entryStatusCancelled = "cancelled"
)

var (
	EntryStatusPending   = EntryStatus{value: entryStatusPending}
	EntryStatusCompleted = EntryStatus{value: entryStatusCompleted}
	EntryStatusOverdue   = EntryStatus{value: entryStatusOverdue}
	EntryStatusPartial   = EntryStatus{value: entryStatusPartial}
	EntryStatusCancelled = EntryStatus{value: entryStatusCancelled}
)

var validEntryStatuses = map[string]EntryStatus{
	entryStatusPending:   EntryStatusPending,
	entryStatusCompleted: EntryStatusCompleted,
	entryStatusOverdue:   EntryStatusOverdue,
	entryStatusPartial:   EntryStatusPartial,
	entryStatusCancelled: EntryStatusCancelled,
}

// NewEntryStatus creates an EntryStatus from a raw string.
func NewEntryStatus(s string) (EntryStatus, error) {
	v, ok := validEntryStatuses[s]
	if !ok {
		return EntryStatus{}, fmt.Errorf("invalid schedule entry status: %q", s)
	}
	return v, nil
}

// String returns the string representation of the status.
func (s EntryStatus) String() string { return s.value }

// IsZero returns true if the status has not been initialised.
func (s EntryStatus) IsZero() bool { return s.value == "" }

// Equal returns true when both statuses carry the same value.
func (s EntryStatus) Equal(other EntryStatus) bool { return s.value == other.value }

// IsOutstanding reports whether the entry still accepts payment.
func (s EntryStatus) IsOutstanding() bool {
	switch s.value {
	case entryStatusPending, entryStatusOverdue, entryStatusPartial:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// FactStatus – immutable value object
// ---------------------------------------------------------------------------

// FactStatus is the lifecycle stage of a payment fact.
type FactStatus struct {
	value string
}

const (
	factStatusPending   = "pending"
	factStatusCompleted = "completed"
	factStatusRefunded  = "refunded"
)

var (
	FactStatusPending   = FactStatus{value: factStatusPending}
	FactStatusCompleted = FactStatus{value: factStatusCompleted}
	FactStatusRefunded  = FactStatus{value: factStatusRefunded}
)

var validFactStatuses = map[string]FactStatus{
	factStatusPending:   FactStatusPending,
	factStatusCompleted: FactStatusCompleted,
	factStatusRefunded:  FactStatusRefunded,
}

// NewFactStatus creates a FactStatus from a raw string. An empty string
// yields pending.
func NewFactStatus(s string) (FactStatus, error) {
	if s == "" {
		return FactStatusPending, nil
	}
	v, ok := validFactStatuses[s]
	if !ok {
		return FactStatus{}, fmt.Errorf("invalid payment status: %q", s)
	}
	return v, nil
}

// String returns the string representation of the status.
func (s FactStatus) String() string { return s.value }

// IsZero returns true if the status has not been initialised.
func (s FactStatus) IsZero() bool { return s.value == "" }

// Equal returns true when both statuses carry the same value.
func (s FactStatus) Equal(other FactStatus) bool { return s.value == other.value }

// ---------------------------------------------------------------------------
// Classification – immutable value object
// ---------------------------------------------------------------------------

// Classification describes how a payment related to the schedule it was
// matched against.
type Classification struct {
	value string
}

const (
	classificationOnTime      = "on_time"
	classificationLate        = "late"
	classificationPartial     = "partial"
	classificationOverpayment = "overpayment"
)

var (
	ClassificationOnTime      = Classification{value: classificationOnTime}
	ClassificationLate        = Classification{value: classificationLate}
	ClassificationPartial     = Classification{value: classificationPartial}
	ClassificationOverpayment = Classification{value: classificationOverpayment}
)

var validClassifications = map[string]Classification{
	classificationOnTime:      ClassificationOnTime,
	classificationLate:        ClassificationLate,
	classificationPartial:     ClassificationPartial,
	classificationOverpayment: ClassificationOverpayment,
}

// NewClassification creates a Classification from a raw string. An empty
// string yields the zero value, meaning "not yet matched".
func NewClassification(s string) (Classification, error) {
	if s == "" {
		return Classification{}, nil
	}
	v, ok := validClassifications[s]
	if !ok {
		return Classification{}, fmt.Errorf("invalid payment classification: %q", s)
	}
	return v, nil
}

// String returns the string representation of the classification.
func (c Classification) String() string { return c.value }

// IsZero returns true if the payment has not been classified.
func (c Classification) IsZero() bool { return c.value == "" }

// Equal returns true when both classifications carry the same value.
func (c Classification) Equal(other Classification) bool { return c.value == other.value }
