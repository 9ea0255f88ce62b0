package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/leasing/internal/domain/valueobject"
	"github.com/bibbank/leasing/pkg/money"
)

// entryNamespace seeds deterministic schedule entry IDs so that a retried
// materialization produces the same keys.
var entryNamespace = uuid.MustParse("6f1d7c1e-4b8a-5c0e-9d3f-2a7b1e6c4d90")

// EntryID derives the identifier of the index-th entry of an agreement.
func EntryID(agreementID string, index int) string {
	return uuid.NewSHA1(entryNamespace, []byte(fmt.Sprintf("%s:%d", agreementID, index))).String()
}

// ---------------------------------------------------------------------------
// ScheduleEntry
// ---------------------------------------------------------------------------

// ScheduleEntry is one installment of an agreement. Values are immutable;
// transitions return a new copy.
type ScheduleEntry struct {
	id             string
	agreementID    string
	index          int
	dueDate        time.Time
	amount         decimal.Decimal
	principal      decimal.Decimal
	interest       decimal.Decimal
	status         valueobject.EntryStatus
	amountPaid     decimal.Decimal
	lateFee        decimal.Decimal
	lateFeePaid    decimal.Decimal
	daysOverdue    int
	reminderCount  int
	lastReminderAt time.Time
	paidAt         time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

// NewScheduleEntry creates a pending entry from a computed installment.
// An installment with nothing to pay starts completed.
func NewScheduleEntry(agreementID string, inst Installment, now time.Time) ScheduleEntry {
	return ScheduleEntry{
		id:          EntryID(agreementID, inst.Index),
		agreementID: agreementID,
		index:       inst.Index,
		dueDate:     inst.DueDate,
		amount:      inst.Amount,
		principal:   inst.Principal,
		interest:    inst.Interest,
		status:      initialStatus(inst.Amount),
		amountPaid:  decimal.Zero,
		lateFee:     decimal.Zero,
		lateFeePaid: decimal.Zero,
		createdAt:   now,
		updatedAt:   now,
	}
}

func initialStatus(amount decimal.Decimal) valueobject.EntryStatus {
	if !money.Positive(amount) {
		return valueobject.EntryStatusCompleted
	}
	return valueobject.EntryStatusPending
}

// ReconstructScheduleEntry rebuilds a ScheduleEntry from persistence.
func ReconstructScheduleEntry(
	id, agreementID string,
	index int,
	dueDate time.Time,
	amount, principal, interest decimal.Decimal,
	status valueobject.EntryStatus,
	amountPaid, lateFee, lateFeePaid decimal.Decimal,
	daysOverdue, reminderCount int,
	lastReminderAt, paidAt, createdAt, updatedAt time.Time,
) ScheduleEntry {
	return ScheduleEntry{
		id:             id,
		agreementID:    agreementID,
		index:          index,
		dueDate:        dueDate,
		amount:         amount,
		principal:      principal,
		interest:       interest,
		status:         status,
		amountPaid:     amountPaid,
		lateFee:        lateFee,
		lateFeePaid:    lateFeePaid,
		daysOverdue:    daysOverdue,
		reminderCount:  reminderCount,
		lastReminderAt: lastReminderAt,
		paidAt:         paidAt,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// ---------------------------------------------------------------------------
// Derived amounts
// ---------------------------------------------------------------------------

// Outstanding is the unpaid part of the installment itself.
func (e ScheduleEntry) Outstanding() decimal.Decimal {
	return money.NonNegative(e.amount.Sub(e.amountPaid))
}

// FeeOutstanding is the unpaid part of the accrued late fee.
func (e ScheduleEntry) FeeOutstanding() decimal.Decimal {
	return money.NonNegative(e.lateFee.Sub(e.lateFeePaid))
}

// AmountDue is what it takes to complete the entry today.
func (e ScheduleEntry) AmountDue() decimal.Decimal {
	return e.Outstanding().Add(e.FeeOutstanding())
}

// IsOutstanding reports whether the entry still accepts payment.
func (e ScheduleEntry) IsOutstanding() bool { return e.status.IsOutstanding() }

// ---------------------------------------------------------------------------
// State transitions
// ---------------------------------------------------------------------------

// Reset returns the entry as materialized, keeping reminder bookkeeping.
// Cancelled entries are returned unchanged.
func (e ScheduleEntry) Reset() ScheduleEntry {
	if e.status.Equal(valueobject.EntryStatusCancelled) {
		return e
	}
	next := e
	next.status = initialStatus(e.amount)
	next.amountPaid = decimal.Zero
	next.lateFee = decimal.Zero
	next.lateFeePaid = decimal.Zero
	next.daysOverdue = 0
	next.paidAt = time.Time{}
	return next
}

// AccrueFee raises the accrued fee to acc.Fee. Fees never shrink.
func (e ScheduleEntry) AccrueFee(acc LateFeeAccrual) ScheduleEntry {
	next := e
	if acc.Fee.GreaterThan(e.lateFee) {
		next.lateFee = acc.Fee
	}
	return next
}

// Settle applies a payment split into its installment and late-fee parts.
// The entry completes once neither part is outstanding; otherwise it is
// partial and keeps the overdue day count observed at payment time.
func (e ScheduleEntry) Settle(toInstallment, toFee decimal.Decimal, daysOverdue int, paidOn time.Time) ScheduleEntry {
	next := e
	next.amountPaid = e.amountPaid.Add(toInstallment)
	next.lateFeePaid = e.lateFeePaid.Add(toFee)
	if !money.Positive(next.AmountDue()) {
		next.status = valueobject.EntryStatusCompleted
		next.daysOverdue = 0
		next.paidAt = Date(paidOn)
		return next
	}
	next.status = valueobject.EntryStatusPartial
	next.daysOverdue = daysOverdue
	return next
}

// MarkOverdue applies time-driven accrual as of asOf. A pending entry past
// its due date becomes overdue; a partial entry stays partial but its fee and
// day count grow.
func (e ScheduleEntry) MarkOverdue(asOf time.Time, acc LateFeeAccrual) ScheduleEntry {
	if !e.IsOutstanding() || !money.Positive(e.amount) || !Date(asOf).After(e.dueDate) {
		return e
	}
	next := e.AccrueFee(acc)
	next.daysOverdue = acc.DaysOverdue
	if e.status.Equal(valueobject.EntryStatusPending) {
		next.status = valueobject.EntryStatusOverdue
	}
	return next
}

// Terminate cancels an outstanding entry without implying payment.
func (e ScheduleEntry) Terminate(now time.Time) (ScheduleEntry, bool) {
	if !e.IsOutstanding() {
		return e, false
	}
	next := e
	next.status = valueobject.EntryStatusCancelled
	next.updatedAt = now
	return next, true
}

// RecordReminder counts a reminder sent for an outstanding entry.
func (e ScheduleEntry) RecordReminder(at time.Time) (ScheduleEntry, error) {
	if !e.IsOutstanding() {
		return e, valueobject.ErrInvalidStatusTransition
	}
	next := e
	next.reminderCount++
	next.lastReminderAt = at
	next.updatedAt = at
	return next, nil
}

// Touch stamps the modification time.
func (e ScheduleEntry) Touch(now time.Time) ScheduleEntry {
	next := e
	next.updatedAt = now
	return next
}

// SameState reports whether two entries agree on every reconciled field.
func (e ScheduleEntry) SameState(o ScheduleEntry) bool {
	return e.id == o.id &&
		e.status.Equal(o.status) &&
		e.amountPaid.Equal(o.amountPaid) &&
		e.lateFee.Equal(o.lateFee) &&
		e.lateFeePaid.Equal(o.lateFeePaid) &&
		e.daysOverdue == o.daysOverdue &&
		e.paidAt.Equal(o.paidAt) &&
		e.reminderCount == o.reminderCount
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (e ScheduleEntry) ID() string                      { return e.id }
func (e ScheduleEntry) AgreementID() string             { return e.agreementID }
func (e ScheduleEntry) Index() int                      { return e.index }
func (e ScheduleEntry) DueDate() time.Time              { return e.dueDate }
func (e ScheduleEntry) Amount() decimal.Decimal         { return e.amount }
func (e ScheduleEntry) Principal() decimal.Decimal      { return e.principal }
func (e ScheduleEntry) Interest() decimal.Decimal       { return e.interest }
func (e ScheduleEntry) Status() valueobject.EntryStatus { return e.status }
func (e ScheduleEntry) AmountPaid() decimal.Decimal     { return e.amountPaid }
func (e ScheduleEntry) LateFee() decimal.Decimal        { return e.lateFee }
func (e ScheduleEntry) LateFeePaid() decimal.Decimal    { return e.lateFeePaid }
func (e ScheduleEntry) DaysOverdue() int                { return e.daysOverdue }
func (e ScheduleEntry) ReminderCount() int              { return e.reminderCount }
func (e ScheduleEntry) LastReminderAt() time.Time       { return e.lastReminderAt }
func (e ScheduleEntry) PaidAt() time.Time               { return e.paidAt }
func (e ScheduleEntry) CreatedAt() time.Time            { return e.createdAt }
func (e ScheduleEntry) UpdatedAt() time.Time            { return e.updatedAt }
