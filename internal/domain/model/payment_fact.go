package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/leasing/internal/domain/event"
	"github.com/bibbank/leasing/internal/domain/valueobject"
	"github.com/bibbank/leasing/pkg/money"
)

// DefaultPaymentMethod is recorded when the source supplies none.
const DefaultPaymentMethod = "unspecified"

// ---------------------------------------------------------------------------
// PaymentFact
// ---------------------------------------------------------------------------

// PaymentFact is an observed payment. The observation (amount, date,
// method, description) never changes. Allocation fields record how the
// payment was applied when it completed and are frozen from then on; the
// current split lives in the schedule entries and balance.
type PaymentFact struct {
	id              string
	agreementID     string
	amount          decimal.Decimal
	amountApplied   decimal.Decimal
	lateFeeAmount   decimal.Decimal
	overpayment     decimal.Decimal
	paymentDate     time.Time
	method          string
	description     string
	status          valueobject.FactStatus
	classification  valueobject.Classification
	daysOverdue     int
	scheduleEntryID string
	externalRef     string
	failureReason   string
	recordedAt      time.Time
	reconciledAt    time.Time
	refundedAt      time.Time
	domainEvents    []event.DomainEvent
}

// PaymentParams describes a payment as captured by a collaborator.
type PaymentParams struct {
	ID              string
	AgreementID     string
	Amount          decimal.Decimal
	PaymentDate     time.Time
	Method          string
	Description     string
	ScheduleEntryID string
	ExternalRef     string
	Status          valueobject.FactStatus
}

// Allocation is the outcome of matching one fact against a schedule.
type Allocation struct {
	Applied        decimal.Decimal
	LateFee        decimal.Decimal
	Overpayment    decimal.Decimal
	DaysOverdue    int
	Classification valueobject.Classification
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewPaymentFact validates and records a payment. Only pending and refunded
// facts can be captured; completion is the reconciler's job.
func NewPaymentFact(p PaymentParams, now time.Time) (PaymentFact, error) {
	if strings.TrimSpace(p.AgreementID) == "" {
		return PaymentFact{}, &UnknownAgreementError{}
	}
	if p.Amount.IsNegative() {
		return PaymentFact{}, &NegativeAmountError{Amount: p.Amount}
	}
	amount := money.Round(p.Amount)
	if amount.IsZero() {
		return PaymentFact{}, invalidInput("amount", "must be positive")
	}
	if p.PaymentDate.IsZero() {
		return PaymentFact{}, invalidInput("payment_date", "is required")
	}
	status := p.Status
	if status.IsZero() {
		status = valueobject.FactStatusPending
	}
	if status.Equal(valueobject.FactStatusCompleted) {
		return PaymentFact{}, invalidInput("status", "must be pending or refunded")
	}
	method := strings.TrimSpace(p.Method)
	if method == "" {
		method = DefaultPaymentMethod
	}
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}

	f := PaymentFact{
		id:              id,
		agreementID:     p.AgreementID,
		amount:          amount,
		amountApplied:   decimal.Zero,
		lateFeeAmount:   decimal.Zero,
		overpayment:     decimal.Zero,
		paymentDate:     Date(p.PaymentDate),
		method:          method,
		description:     p.Description,
		status:          status,
		scheduleEntryID: p.ScheduleEntryID,
		externalRef:     strings.TrimSpace(p.ExternalRef),
		recordedAt:      now,
	}
	if status.Equal(valueobject.FactStatusRefunded) {
		f.refundedAt = now
	}
	f.domainEvents = append(f.domainEvents, event.NewPaymentRecorded(
		f.id, f.agreementID, f.amount, f.paymentDate, f.method, f.externalRef, now,
	))
	return f, nil
}

// ReconstructPaymentFact rebuilds a PaymentFact from persistence.
func ReconstructPaymentFact(
	id, agreementID string,
	amount, amountApplied, lateFeeAmount, overpayment decimal.Decimal,
	paymentDate time.Time,
	method, description string,
	status valueobject.FactStatus,
	classification valueobject.Classification,
	daysOverdue int,
	scheduleEntryID, externalRef, failureReason string,
	recordedAt, reconciledAt, refundedAt time.Time,
) PaymentFact {
	return PaymentFact{
		id:              id,
		agreementID:     agreementID,
		amount:          amount,
		amountApplied:   amountApplied,
		lateFeeAmount:   lateFeeAmount,
		overpayment:     overpayment,
		paymentDate:     paymentDate,
		method:          method,
		description:     description,
		status:          status,
		classification:  classification,
		daysOverdue:     daysOverdue,
		scheduleEntryID: scheduleEntryID,
		externalRef:     externalRef,
		failureReason:   failureReason,
		recordedAt:      recordedAt,
		reconciledAt:    reconciledAt,
		refundedAt:      refundedAt,
	}
}

// ---------------------------------------------------------------------------
// State transitions
// ---------------------------------------------------------------------------

// Complete marks a pending fact reconciled with the given allocation.
func (f PaymentFact) Complete(a Allocation, at time.Time) (PaymentFact, error) {
	if !f.status.Equal(valueobject.FactStatusPending) {
		return f, ErrFactImmutable
	}
	next := f.withAllocation(a)
	next.status = valueobject.FactStatusCompleted
	next.failureReason = ""
	next.reconciledAt = at
	return next, nil
}

func (f PaymentFact) withAllocation(a Allocation) PaymentFact {
	next := f
	next.amountApplied = a.Applied
	next.lateFeeAmount = a.LateFee
	next.overpayment = a.Overpayment
	next.daysOverdue = a.DaysOverdue
	next.classification = a.Classification
	return next
}

// Skip records why a pending fact could not be applied. It stays pending.
func (f PaymentFact) Skip(reason string) PaymentFact {
	if !f.status.Equal(valueobject.FactStatusPending) {
		return f
	}
	next := f
	next.failureReason = reason
	return next
}

// Refund reverses the fact. It is the only way a completed fact changes
// status.
func (f PaymentFact) Refund(reason string, now time.Time) (PaymentFact, error) {
	if f.status.Equal(valueobject.FactStatusRefunded) {
		return f, valueobject.ErrInvalidStatusTransition
	}
	next := f
	next.status = valueobject.FactStatusRefunded
	next.refundedAt = now
	next.domainEvents = copyEvents(f.domainEvents)
	next.domainEvents = append(next.domainEvents, event.NewPaymentRefunded(f.id, f.agreementID, f.amount, reason, now))
	return next, nil
}

// SameState reports whether two versions of a fact agree on status and
// allocation.
func (f PaymentFact) SameState(o PaymentFact) bool {
	return f.id == o.id &&
		f.status.Equal(o.status) &&
		f.amountApplied.Equal(o.amountApplied) &&
		f.lateFeeAmount.Equal(o.lateFeeAmount) &&
		f.overpayment.Equal(o.overpayment) &&
		f.daysOverdue == o.daysOverdue &&
		f.classification.Equal(o.classification) &&
		f.failureReason == o.failureReason
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (f PaymentFact) ID() string                                 { return f.id }
func (f PaymentFact) AgreementID() string                        { return f.agreementID }
func (f PaymentFact) Amount() decimal.Decimal                    { return f.amount }
func (f PaymentFact) AmountApplied() decimal.Decimal             { return f.amountApplied }
func (f PaymentFact) LateFeeAmount() decimal.Decimal             { return f.lateFeeAmount }
func (f PaymentFact) Overpayment() decimal.Decimal               { return f.overpayment }
func (f PaymentFact) PaymentDate() time.Time                     { return f.paymentDate }
func (f PaymentFact) Method() string                             { return f.method }
func (f PaymentFact) Description() string                        { return f.description }
func (f PaymentFact) Status() valueobject.FactStatus             { return f.status }
func (f PaymentFact) Classification() valueobject.Classification { return f.classification }
func (f PaymentFact) DaysOverdue() int                           { return f.daysOverdue }
func (f PaymentFact) ScheduleEntryID() string                    { return f.scheduleEntryID }
func (f PaymentFact) ExternalRef() string                        { return f.externalRef }
func (f PaymentFact) FailureReason() string                      { return f.failureReason }
func (f PaymentFact) RecordedAt() time.Time                      { return f.recordedAt }
func (f PaymentFact) ReconciledAt() time.Time                    { return f.reconciledAt }
func (f PaymentFact) RefundedAt() time.Time                      { return f.refundedAt }
func (f PaymentFact) DomainEvents() []event.DomainEvent          { return f.domainEvents }

// IsPending reports whether the fact awaits reconciliation.
func (f PaymentFact) IsPending() bool { return f.status.Equal(valueobject.FactStatusPending) }

// ClearEvents returns a copy with an empty event list.
func (f PaymentFact) ClearEvents() PaymentFact {
	next := f
	next.domainEvents = nil
	return next
}
