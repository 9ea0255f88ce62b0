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

// ---------------------------------------------------------------------------
// Agreement aggregate root
// ---------------------------------------------------------------------------

// Agreement is a signed lease. It is immutable; mutations return a new copy.
type Agreement struct {
	id               string
	customerID       string
	vehicleID        string
	agreementType    valueobject.AgreementType
	status           valueobject.AgreementStatus
	billingPeriod    valueobject.BillingPeriod
	principal        decimal.Decimal
	downPayment      decimal.Decimal
	annualRate       decimal.Decimal
	recurringAmount  decimal.Decimal
	dailyLateFeeRate decimal.Decimal
	totalAmount      decimal.Decimal
	termMonths       int
	gracePeriodDays  int
	startDate        time.Time
	endDate          time.Time
	version          int
	createdAt        time.Time
	updatedAt        time.Time
	domainEvents     []event.DomainEvent
}

// AgreementParams carries the terms of a new agreement.
type AgreementParams struct {
	// ID is optional. Supplying it makes creation retry-safe.
	ID               string
	CustomerID       string
	VehicleID        string
	Type             valueobject.AgreementType
	Status           valueobject.AgreementStatus
	BillingPeriod    valueobject.BillingPeriod
	Principal        decimal.Decimal
	DownPayment      decimal.Decimal
	AnnualRate       decimal.Decimal
	RecurringAmount  decimal.Decimal
	DailyLateFeeRate decimal.Decimal
	TermMonths       int
	GracePeriodDays  int
	StartDate        time.Time
	EndDate          time.Time
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewAgreement validates the terms, computes the installment plan and
// returns an agreement whose total amount equals the plan's sum.
func NewAgreement(p AgreementParams, now time.Time) (Agreement, error) {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		id = uuid.NewString()
	}
	if p.Type.IsZero() {
		return Agreement{}, invalidInput("type", "is required")
	}
	status := p.Status
	if status.IsZero() {
		status = valueobject.AgreementStatusActive
	}
	if status.IsTerminal() {
		return Agreement{}, invalidInput("status", "must be draft or active")
	}
	period := p.BillingPeriod
	if period.IsZero() {
		period = valueobject.BillingPeriodMonthly
	}
	if p.StartDate.IsZero() {
		return Agreement{}, invalidInput("start_date", "is required")
	}
	if p.DailyLateFeeRate.IsNegative() {
		return Agreement{}, invalidInput("daily_late_fee_rate", "must not be negative")
	}
	if p.GracePeriodDays < 0 {
		return Agreement{}, invalidInput("grace_period_days", "must not be negative")
	}

	a := Agreement{
		id:               id,
		customerID:       p.CustomerID,
		vehicleID:        p.VehicleID,
		agreementType:    p.Type,
		status:           status,
		billingPeriod:    period,
		principal:        money.Round(p.Principal),
		downPayment:      money.Round(p.DownPayment),
		annualRate:       p.AnnualRate,
		recurringAmount:  money.Round(p.RecurringAmount),
		dailyLateFeeRate: p.DailyLateFeeRate,
		termMonths:       p.TermMonths,
		gracePeriodDays:  p.GracePeriodDays,
		startDate:        Date(p.StartDate),
		version:          1,
		createdAt:        now,
		updatedAt:        now,
	}
	if !p.EndDate.IsZero() {
		a.endDate = Date(p.EndDate)
	}

	switch {
	case p.Type.Equal(valueobject.AgreementTypeLeaseToOwn):
		if err := a.validateLeaseToOwn(); err != nil {
			return Agreement{}, err
		}
	case p.Type.Equal(valueobject.AgreementTypeShortTerm):
		if err := a.validateShortTerm(); err != nil {
			return Agreement{}, err
		}
	}

	plan, err := a.Installments()
	if err != nil {
		return Agreement{}, err
	}
	a.totalAmount = ScheduleTotal(plan)
	a.endDate = plan[len(plan)-1].DueDate
	if a.agreementType.Equal(valueobject.AgreementTypeLeaseToOwn) {
		a.recurringAmount = plan[0].Amount
	} else {
		a.principal = a.totalAmount
	}

	a.domainEvents = append(a.domainEvents, event.NewAgreementCreated(
		a.id, a.agreementType.String(), a.totalAmount, len(plan), a.startDate, now,
	))
	return a, nil
}

func (a Agreement) validateLeaseToOwn() error {
	if a.principal.IsNegative() {
		return invalidInput("principal", "must not be negative")
	}
	if a.downPayment.IsNegative() {
		return invalidInput("down_payment", "must not be negative")
	}
	if a.downPayment.GreaterThan(a.principal) {
		return invalidInput("down_payment", "must not exceed principal")
	}
	if a.annualRate.IsNegative() {
		return invalidInput("annual_rate_percent", "must not be negative")
	}
	if a.termMonths < 1 {
		return invalidInput("term_months", "must be at least 1")
	}
	return nil
}

func (a Agreement) validateShortTerm() error {
	if !a.recurringAmount.IsPositive() {
		return invalidInput("recurring_amount", "must be positive")
	}
	if a.billingPeriod.Equal(valueobject.BillingPeriodDaily) {
		if a.endDate.IsZero() || !a.endDate.After(a.startDate) {
			return invalidInput("end_date", "must be after start_date for daily billing")
		}
		return nil
	}
	if a.termMonths < 1 {
		return invalidInput("term_months", "must be at least 1")
	}
	return nil
}

// ReconstructAgreement rebuilds an Agreement from persistence.
func ReconstructAgreement(
	id, customerID, vehicleID string,
	agreementType valueobject.AgreementType,
	status valueobject.AgreementStatus,
	billingPeriod valueobject.BillingPeriod,
	principal, downPayment, annualRate, recurringAmount, dailyLateFeeRate, totalAmount decimal.Decimal,
	termMonths, gracePeriodDays int,
	startDate, endDate time.Time,
	version int,
	createdAt, updatedAt time.Time,
) Agreement {
	return Agreement{
		id:               id,
		customerID:       customerID,
		vehicleID:        vehicleID,
		agreementType:    agreementType,
		status:           status,
		billingPeriod:    billingPeriod,
		principal:        principal,
		downPayment:      downPayment,
		annualRate:       annualRate,
		recurringAmount:  recurringAmount,
		dailyLateFeeRate: dailyLateFeeRate,
		totalAmount:      totalAmount,
		termMonths:       termMonths,
		gracePeriodDays:  gracePeriodDays,
		startDate:        startDate,
		endDate:          endDate,
		version:          version,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

// ---------------------------------------------------------------------------
// Installment plan
// ---------------------------------------------------------------------------

// Installments computes the agreement's plan. Lease-to-own agreements
// amortize principal minus down payment; short-term agreements bill the
// recurring amount once per period with no interest.
func (a Agreement) Installments() ([]Installment, error) {
	if a.agreementType.Equal(valueobject.AgreementTypeLeaseToOwn) {
		return GenerateSchedule(AmortizationParams{
			Principal:         a.FinancedPrincipal(),
			AnnualRatePercent: a.annualRate,
			Frequency:         FrequencyMonthly,
			StartDate:         a.startDate,
			TermMonths:        a.termMonths,
		})
	}
	if a.agreementType.Equal(valueobject.AgreementTypeShortTerm) {
		return a.recurringPlan()
	}
	return nil, invalidInput("type", "is required")
}

func (a Agreement) recurringPlan() ([]Installment, error) {
	var (
		periods int
		dueDate func(i int) time.Time
	)
	if a.billingPeriod.Equal(valueobject.BillingPeriodDaily) {
		periods = DaysBetween(a.startDate, a.endDate)
		dueDate = func(i int) time.Time { return a.startDate.AddDate(0, 0, i) }
	} else {
		periods = a.termMonths
		dueDate = func(i int) time.Time { return AddMonthsClamped(a.startDate, i) }
	}
	if periods < 1 {
		return nil, invalidInput("term", "must cover at least one billing period")
	}

	plan := make([]Installment, 0, periods)
	remaining := a.recurringAmount.Mul(decimal.NewFromInt(int64(periods)))
	for i := 1; i <= periods; i++ {
		remaining = remaining.Sub(a.recurringAmount)
		plan = append(plan, Installment{
			Index:              i,
			DueDate:            dueDate(i),
			Amount:             a.recurringAmount,
			Principal:          a.recurringAmount,
			Interest:           decimal.Zero,
			RemainingPrincipal: remaining,
		})
	}
	return plan, nil
}

// FinancedPrincipal is the amount amortized over the term.
func (a Agreement) FinancedPrincipal() decimal.Decimal {
	return a.principal.Sub(a.downPayment)
}

// ---------------------------------------------------------------------------
// State transitions
// ---------------------------------------------------------------------------

// Activate transitions DRAFT -> ACTIVE.
func (a Agreement) Activate(now time.Time) (Agreement, error) {
	if !a.status.Equal(valueobject.AgreementStatusDraft) {
		return a, valueobject.ErrInvalidStatusTransition
	}
	next := a
	next.status = valueobject.AgreementStatusActive
	next.updatedAt = now
	next.domainEvents = copyEvents(a.domainEvents)
	return next, nil
}

// Close transitions DRAFT|ACTIVE -> CLOSED|CANCELLED. cancelledEntries is
// the number of schedule entries terminated alongside, for the event.
func (a Agreement) Close(target valueobject.AgreementStatus, cancelledEntries int, now time.Time) (Agreement, error) {
	if a.status.IsTerminal() || !target.IsTerminal() {
		return a, valueobject.ErrInvalidStatusTransition
	}
	next := a
	next.status = target
	next.updatedAt = now
	next.domainEvents = copyEvents(a.domainEvents)
	next.domainEvents = append(next.domainEvents, event.NewAgreementClosed(a.id, target.String(), cancelledEntries, now))
	return next, nil
}

// WithVersion returns a copy carrying the persisted version.
func (a Agreement) WithVersion(v int) Agreement {
	next := a
	next.version = v
	return next
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (a Agreement) ID() string                               { return a.id }
func (a Agreement) CustomerID() string                       { return a.customerID }
func (a Agreement) VehicleID() string                        { return a.vehicleID }
func (a Agreement) Type() valueobject.AgreementType          { return a.agreementType }
func (a Agreement) Status() valueobject.AgreementStatus      { return a.status }
func (a Agreement) BillingPeriod() valueobject.BillingPeriod { return a.billingPeriod }
func (a Agreement) Principal() decimal.Decimal               { return a.principal }
func (a Agreement) DownPayment() decimal.Decimal             { return a.downPayment }
func (a Agreement) AnnualRate() decimal.Decimal              { return a.annualRate }
func (a Agreement) RecurringAmount() decimal.Decimal         { return a.recurringAmount }
func (a Agreement) DailyLateFeeRate() decimal.Decimal        { return a.dailyLateFeeRate }
func (a Agreement) TotalAmount() decimal.Decimal             { return a.totalAmount }
func (a Agreement) TermMonths() int                          { return a.termMonths }
func (a Agreement) GracePeriodDays() int                     { return a.gracePeriodDays }
func (a Agreement) StartDate() time.Time                     { return a.startDate }
func (a Agreement) EndDate() time.Time                       { return a.endDate }
func (a Agreement) Version() int                             { return a.version }
func (a Agreement) CreatedAt() time.Time                     { return a.createdAt }
func (a Agreement) UpdatedAt() time.Time                     { return a.updatedAt }
func (a Agreement) DomainEvents() []event.DomainEvent        { return a.domainEvents }

// ClearEvents returns a copy with an empty event list.
func (a Agreement) ClearEvents() Agreement {
	next := a
	next.domainEvents = nil
	return next
}

func copyEvents(src []event.DomainEvent) []event.DomainEvent {
	if src == nil {
		return nil
	}
	dst := make([]event.DomainEvent, len(src))
	copy(dst, src)
	return dst
}
