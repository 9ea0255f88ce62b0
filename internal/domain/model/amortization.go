package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/leasing/pkg/money"
)

// FrequencyMonthly is the only installment frequency the calculator supports.
const FrequencyMonthly = "monthly"

// Installment is one computed period of an amortization schedule.
type Installment struct {
	Index              int
	DueDate            time.Time
	Amount             decimal.Decimal
	Principal          decimal.Decimal
	Interest           decimal.Decimal
	RemainingPrincipal decimal.Decimal
}

// AmortizationParams are the inputs to GenerateSchedule.
type AmortizationParams struct {
	Principal         decimal.Decimal
	AnnualRatePercent decimal.Decimal
	Frequency         string
	StartDate         time.Time
	TermMonths        int
}

// GenerateSchedule computes a fixed-payment amortization schedule.
//
// With a zero rate the principal is split evenly and the last installment
// absorbs the rounding remainder. Otherwise:
//
//	r       = annualRatePercent / 12 / 100
//	payment = P * r * (1+r)^n / ((1+r)^n - 1)
//
// rounded to minor units; the final installment retires whatever principal
// is left. The principal components always sum to P exactly.
func GenerateSchedule(p AmortizationParams) ([]Installment, error) {
	if p.TermMonths < 1 {
		return nil, invalidInput("term_months", "must be at least 1")
	}
	if p.Principal.IsNegative() {
		return nil, invalidInput("principal", "must not be negative")
	}
	if p.AnnualRatePercent.IsNegative() {
		return nil, invalidInput("annual_rate_percent", "must not be negative")
	}
	if p.Frequency != "" && p.Frequency != FrequencyMonthly {
		return nil, invalidInput("frequency", "must be monthly")
	}
	if p.StartDate.IsZero() {
		return nil, invalidInput("start_date", "is required")
	}

	principal := money.Round(p.Principal)
	start := Date(p.StartDate)

	if p.AnnualRatePercent.IsZero() || principal.IsZero() {
		return evenSplit(principal, start, p.TermMonths)
	}

	// float64 for the power term only; monetary arithmetic stays in decimal.
	monthlyRate := p.AnnualRatePercent.Div(decimal.NewFromInt(1200))
	r := monthlyRate.InexactFloat64()
	factor := math.Pow(1+r, float64(p.TermMonths))
	payment := money.Round(decimal.NewFromFloat(principal.InexactFloat64() * r * factor / (factor - 1)))

	schedule := make([]Installment, 0, p.TermMonths)
	remaining := principal

	for period := 1; period <= p.TermMonths; period++ {
		interest := money.Round(remaining.Mul(monthlyRate))
		principalPart := payment.Sub(interest)

		if period == p.TermMonths || principalPart.GreaterThan(remaining) {
			principalPart = remaining
		}
		principalPart = money.NonNegative(principalPart)
		remaining = remaining.Sub(principalPart)

		schedule = append(schedule, Installment{
			Index:              period,
			DueDate:            AddMonthsClamped(start, period),
			Amount:             principalPart.Add(interest),
			Principal:          principalPart,
			Interest:           interest,
			RemainingPrincipal: remaining,
		})
	}

	return schedule, nil
}

func evenSplit(principal decimal.Decimal, start time.Time, term int) ([]Installment, error) {
	shares, err := money.Split(principal, term)
	if err != nil {
		return nil, err
	}
	schedule := make([]Installment, 0, term)
	remaining := principal
	for i, share := range shares {
		remaining = remaining.Sub(share)
		schedule = append(schedule, Installment{
			Index:              i + 1,
			DueDate:            AddMonthsClamped(start, i+1),
			Amount:             share,
			Principal:          share,
			Interest:           decimal.Zero,
			RemainingPrincipal: remaining,
		})
	}
	return schedule, nil
}

// ScheduleTotal sums the installment amounts.
func ScheduleTotal(schedule []Installment) decimal.Decimal {
	total := decimal.Zero
	for _, inst := range schedule {
		total = total.Add(inst.Amount)
	}
	return total
}
