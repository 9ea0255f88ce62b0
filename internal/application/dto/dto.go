package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// CreateAgreementRequest carries the terms of a new agreement.
type CreateAgreementRequest struct {
	AgreementID       string          `json:"agreement_id,omitempty"`
	CustomerID        string          `json:"customer_id,omitempty"`
	VehicleID         string          `json:"vehicle_id,omitempty"`
	Type              string          `json:"type"`
	Status            string          `json:"status,omitempty"`
	BillingPeriod     string          `json:"billing_period,omitempty"`
	Principal         decimal.Decimal `json:"principal"`
	DownPayment       decimal.Decimal `json:"down_payment"`
	AnnualRatePercent decimal.Decimal `json:"annual_rate_percent"`
	RecurringAmount   decimal.Decimal `json:"recurring_amount"`
	DailyLateFeeRate  decimal.Decimal `json:"daily_late_fee_rate"`
	TermMonths        int             `json:"term_months"`
	// GracePeriodDays falls back to the engine default when nil.
	GracePeriodDays *int      `json:"grace_period_days,omitempty"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date,omitempty"`
}

// RecordPaymentRequest carries one observed payment.
type RecordPaymentRequest struct {
	PaymentID       string          `json:"payment_id,omitempty"`
	AgreementID     string          `json:"agreement_id"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     time.Time       `json:"payment_date"`
	Method          string          `json:"method,omitempty"`
	Description     string          `json:"description,omitempty"`
	ScheduleEntryID string          `json:"schedule_entry_id,omitempty"`
	ExternalRef     string          `json:"external_ref,omitempty"`
	Status          string          `json:"status,omitempty"`
	// Defer records the fact without reconciling it.
	Defer bool `json:"defer,omitempty"`
}

// ReconcileRequest identifies one agreement to reconcile. A zero AsOf means today.
type ReconcileRequest struct {
	AgreementID string    `json:"agreement_id"`
	AsOf        time.Time `json:"as_of,omitempty"`
}

// ReconcileAllRequest triggers a bulk sweep. A zero AsOf means today.
type ReconcileAllRequest struct {
	AsOf time.Time `json:"as_of,omitempty"`
}

// GetScheduleRequest identifies an agreement's schedule.
type GetScheduleRequest struct {
	AgreementID string `json:"agreement_id"`
}

// GetBalanceRequest identifies an agreement's balance.
type GetBalanceRequest struct {
	AgreementID string `json:"agreement_id"`
}

// PaymentRow is one raw row from a bulk import collaborator. Amount and
// date are unparsed.
type PaymentRow struct {
	RowRef      string `json:"row_ref"`
	AgreementID string `json:"agreement_id"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Method      string `json:"method,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	ExternalRef string `json:"external_ref,omitempty"`
}

// ImportPaymentsRequest is a batch of raw rows. Source namespaces row
// references so a retried import does not duplicate facts.
type ImportPaymentsRequest struct {
	Source string       `json:"source,omitempty"`
	Rows   []PaymentRow `json:"rows"`
}

// RefundPaymentRequest reverses a payment fact.
type RefundPaymentRequest struct {
	PaymentID string `json:"payment_id"`
	Reason    string `json:"reason,omitempty"`
}

// ChangeAgreementStatusRequest activates, closes or cancels an agreement.
type ChangeAgreementStatusRequest struct {
	AgreementID string `json:"agreement_id"`
	Status      string `json:"status"`
}

// DeleteAgreementRequest removes an agreement and its dependents.
type DeleteAgreementRequest struct {
	AgreementID string `json:"agreement_id"`
}

// RecordReminderRequest logs a reminder sent for a schedule entry. A zero
// At means now.
type RecordReminderRequest struct {
	ScheduleEntryID string    `json:"schedule_entry_id"`
	At              time.Time `json:"at,omitempty"`
}

// ListOverdueRequest asks for entries due before AsOf and still unpaid.
type ListOverdueRequest struct {
	AsOf  time.Time `json:"as_of,omitempty"`
	Limit int       `json:"limit,omitempty"`
}

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// AgreementResponse is the external representation of an agreement.
type AgreementResponse struct {
	ID                string          `json:"id"`
	CustomerID        string          `json:"customer_id,omitempty"`
	VehicleID         string          `json:"vehicle_id,omitempty"`
	Type              string          `json:"type"`
	Status            string          `json:"status"`
	BillingPeriod     string          `json:"billing_period"`
	Principal         decimal.Decimal `json:"principal"`
	DownPayment       decimal.Decimal `json:"down_payment"`
	AnnualRatePercent decimal.Decimal `json:"annual_rate_percent"`
	RecurringAmount   decimal.Decimal `json:"recurring_amount"`
	DailyLateFeeRate  decimal.Decimal `json:"daily_late_fee_rate"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	TermMonths        int             `json:"term_months"`
	GracePeriodDays   int             `json:"grace_period_days"`
	StartDate         time.Time       `json:"start_date"`
	EndDate           time.Time       `json:"end_date"`
	Installments      int             `json:"installments"`
	// Created is false when the request replayed an existing agreement ID.
	Created   bool      `json:"created"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScheduleEntryResponse represents one installment.
type ScheduleEntryResponse struct {
	ID             string          `json:"id"`
	AgreementID    string          `json:"agreement_id"`
	Index          int             `json:"index"`
	DueDate        time.Time       `json:"due_date"`
	Amount         decimal.Decimal `json:"amount"`
	Principal      decimal.Decimal `json:"principal"`
	Interest       decimal.Decimal `json:"interest"`
	Status         string          `json:"status"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	Outstanding    decimal.Decimal `json:"outstanding"`
	LateFee        decimal.Decimal `json:"late_fee"`
	LateFeePaid    decimal.Decimal `json:"late_fee_paid"`
	DaysOverdue    int             `json:"days_overdue"`
	ReminderCount  int             `json:"reminder_count"`
	LastReminderAt *time.Time      `json:"last_reminder_at,omitempty"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
}

// ScheduleResponse is an agreement's ordered schedule.
type ScheduleResponse struct {
	AgreementID string                  `json:"agreement_id"`
	Entries     []ScheduleEntryResponse `json:"entries"`
}

// BalanceResponse is the cached per-agreement balance.
type BalanceResponse struct {
	AgreementID     string          `json:"agreement_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	LateFeesAccrued decimal.Decimal `json:"late_fees_accrued"`
	LateFeesPaid    decimal.Decimal `json:"late_fees_paid"`
	Overpayment     decimal.Decimal `json:"overpayment"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// PaymentFactResponse is the external representation of a payment fact.
type PaymentFactResponse struct {
	ID              string          `json:"id"`
	AgreementID     string          `json:"agreement_id"`
	Amount          decimal.Decimal `json:"amount"`
	AmountApplied   decimal.Decimal `json:"amount_applied"`
	LateFeeAmount   decimal.Decimal `json:"late_fee_amount"`
	Overpayment     decimal.Decimal `json:"overpayment"`
	PaymentDate     time.Time       `json:"payment_date"`
	Method          string          `json:"method"`
	Description     string          `json:"description,omitempty"`
	Status          string          `json:"status"`
	Classification  string          `json:"classification,omitempty"`
	DaysOverdue     int             `json:"days_overdue"`
	ScheduleEntryID string          `json:"schedule_entry_id,omitempty"`
	ExternalRef     string          `json:"external_ref,omitempty"`
	FailureReason   string          `json:"failure_reason,omitempty"`
	RecordedAt      time.Time       `json:"recorded_at"`
}

// RecordPaymentResponse is the recorded fact plus the reconciliation it
// triggered, if any.
type RecordPaymentResponse struct {
	Payment PaymentFactResponse `json:"payment"`
	// Duplicate is true when the external reference was already recorded.
	Duplicate bool                          `json:"duplicate"`
	Report    *ReconciliationReportResponse `json:"report,omitempty"`
	Balance   *BalanceResponse              `json:"balance,omitempty"`
}

// FailureResponse explains one skipped or failed item.
type FailureResponse struct {
	Ref    string `json:"ref"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// ReconciliationReportResponse counts what a reconciliation did.
type ReconciliationReportResponse struct {
	Agreements int               `json:"agreements"`
	Applied    int               `json:"applied"`
	Skipped    int               `json:"skipped"`
	Failed     int               `json:"failed"`
	Failures   []FailureResponse `json:"failures,omitempty"`
	Summary    string            `json:"summary"`
}

// RowResult is the outcome of one import row.
type RowResult struct {
	RowRef    string `json:"row_ref"`
	PaymentID string `json:"payment_id,omitempty"`
	Outcome   string `json:"outcome"`
	Reason    string `json:"reason,omitempty"`
}

// ImportPaymentsResponse reports per-row outcomes and the reconciliation
// of every agreement the import touched.
type ImportPaymentsResponse struct {
	Recorded   int                          `json:"recorded"`
	Duplicates int                          `json:"duplicates"`
	Rejected   int                          `json:"rejected"`
	Rows       []RowResult                  `json:"rows"`
	Report     ReconciliationReportResponse `json:"report"`
	Summary    string                       `json:"summary"`
}

// DeleteAgreementResponse reports what a cascade delete removed.
type DeleteAgreementResponse struct {
	AgreementID     string `json:"agreement_id"`
	ScheduleEntries int64  `json:"schedule_entries"`
	PaymentFacts    int64  `json:"payment_facts"`
}

// OverdueResponse lists overdue entries for reminder collaborators.
type OverdueResponse struct {
	AsOf    time.Time               `json:"as_of"`
	Entries []ScheduleEntryResponse `json:"entries"`
}
