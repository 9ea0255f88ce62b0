package event

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/leasing/pkg/events"
)

// DomainEvent is an alias for the shared pkg/events.DomainEvent interface.
type DomainEvent = events.DomainEvent

const (
	aggregateAgreement = "Agreement"
	aggregatePayment   = "PaymentFact"
)

// ---------------------------------------------------------------------------
// Agreement Events
// ---------------------------------------------------------------------------

// AgreementCreated is raised when an agreement and its schedule are created.
type AgreementCreated struct {
	events.BaseEvent
	AgreementType string          `json:"agreement_type"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Installments  int             `json:"installments"`
	StartDate     time.Time       `json:"start_date"`
}

func NewAgreementCreated(
	agreementID, agreementType string,
	total decimal.Decimal, installments int,
	startDate, now time.Time,
) AgreementCreated {
	return AgreementCreated{
		BaseEvent:     events.NewBaseEvent("leasing.agreement.created", agreementID, aggregateAgreement, now),
		AgreementType: agreementType,
		TotalAmount:   total,
		Installments:  installments,
		StartDate:     startDate,
	}
}

// AgreementReconciled is raised when a reconciliation changed an agreement's
// schedule or balance.
type AgreementReconciled struct {
	events.BaseEvent
	Applied         int             `json:"applied"`
	Skipped         int             `json:"skipped"`
	Failed          int             `json:"failed"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	AsOf            time.Time       `json:"as_of"`
}

func NewAgreementReconciled(
	agreementID string,
	applied, skipped, failed int,
	paid, remaining decimal.Decimal,
	asOf, now time.Time,
) AgreementReconciled {
	return AgreementReconciled{
		BaseEvent:       events.NewBaseEvent("leasing.agreement.reconciled", agreementID, aggregateAgreement, now),
		Applied:         applied,
		Skipped:         skipped,
		Failed:          failed,
		AmountPaid:      paid,
		RemainingAmount: remaining,
		AsOf:            asOf,
	}
}

// AgreementClosed is raised when an agreement is closed or cancelled.
type AgreementClosed struct {
	events.BaseEvent
	Status           string `json:"status"`
	EntriesCancelled int    `json:"entries_cancelled"`
}

func NewAgreementClosed(agreementID, status string, cancelled int, now time.Time) AgreementClosed {
	return AgreementClosed{
		BaseEvent:        events.NewBaseEvent("leasing.agreement.closed", agreementID, aggregateAgreement, now),
		Status:           status,
		EntriesCancelled: cancelled,
	}
}

// AgreementDeleted is raised after an agreement and its dependents are removed.
type AgreementDeleted struct {
	events.BaseEvent
	ScheduleEntries int64 `json:"schedule_entries"`
	PaymentFacts    int64 `json:"payment_facts"`
}

func NewAgreementDeleted(agreementID string, entries, facts int64, now time.Time) AgreementDeleted {
	return AgreementDeleted{
		BaseEvent:       events.NewBaseEvent("leasing.agreement.deleted", agreementID, aggregateAgreement, now),
		ScheduleEntries: entries,
		PaymentFacts:    facts,
	}
}

// ReminderRecorded is raised when a payment reminder is logged against an entry.
type ReminderRecorded struct {
	events.BaseEvent
	ScheduleEntryID string `json:"schedule_entry_id"`
	ReminderCount   int    `json:"reminder_count"`
}

func NewReminderRecorded(agreementID, entryID string, count int, now time.Time) ReminderRecorded {
	return ReminderRecorded{
		BaseEvent:       events.NewBaseEvent("leasing.schedule_entry.reminder_recorded", agreementID, aggregateAgreement, now),
		ScheduleEntryID: entryID,
		ReminderCount:   count,
	}
}

// ---------------------------------------------------------------------------
// Payment Events
// ---------------------------------------------------------------------------

// PaymentRecorded is raised when a payment fact is captured.
type PaymentRecorded struct {
	events.BaseEvent
	AgreementID string          `json:"agreement_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	Method      string          `json:"method"`
	ExternalRef string          `json:"external_ref,omitempty"`
}

func NewPaymentRecorded(
	factID, agreementID string,
	amount decimal.Decimal,
	paymentDate time.Time,
	method, externalRef string,
	now time.Time,
) PaymentRecorded {
	return PaymentRecorded{
		BaseEvent:   events.NewBaseEvent("leasing.payment.recorded", factID, aggregatePayment, now),
		AgreementID: agreementID,
		Amount:      amount,
		PaymentDate: paymentDate,
		Method:      method,
		ExternalRef: externalRef,
	}
}

// PaymentRefunded is raised when a payment fact is reversed.
type PaymentRefunded struct {
	events.BaseEvent
	AgreementID string          `json:"agreement_id"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason,omitempty"`
}

func NewPaymentRefunded(factID, agreementID string, amount decimal.Decimal, reason string, now time.Time) PaymentRefunded {
	return PaymentRefunded{
		BaseEvent:   events.NewBaseEvent("leasing.payment.refunded", factID, aggregatePayment, now),
		AgreementID: agreementID,
		Amount:      amount,
		Reason:      reason,
	}
}
