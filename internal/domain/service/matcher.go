package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/leasing/internal/domain/model"
	"github.com/bibbank/leasing/internal/domain/valueobject"
	"github.com/bibbank/leasing/pkg/money"
)

// ---------------------------------------------------------------------------
// PaymentMatcher – applies one payment fact to a schedule
// ---------------------------------------------------------------------------

// ScheduleView is an agreement's schedule as the matcher sees it.
type ScheduleView struct {
	Agreement model.Agreement
	Entries   []model.ScheduleEntry
	// Overpayment is surplus already held against the balance.
	Overpayment decimal.Decimal
	// At stamps the recomputed balance.
	At time.Time
}

// MatchResult is the schedule after one fact has been applied. The input
// fact and view are never modified.
type MatchResult struct {
	UpdatedEntries []model.ScheduleEntry
	UpdatedBalance model.RemainingBalance
	Classification valueobject.Classification
	Allocation     model.Allocation
	// Touched lists the IDs of entries the payment reached, in order.
	Touched []string
}

// PaymentMatcher selects the installments a payment satisfies.
type PaymentMatcher struct{}

// NewPaymentMatcher returns a new matcher.
func NewPaymentMatcher() *PaymentMatcher {
	return &PaymentMatcher{}
}

// Apply matches fact against view.
//
// The target is the explicitly referenced entry when it is still
// outstanding, else the oldest outstanding entry. Expected amount is the
// entry's outstanding installment plus its late fee accrued as of the payment
// date. Equal completes the entry (on_time or late); less leaves it partial;
// more completes it and carries the surplus to the oldest remaining
// outstanding entries in turn. Surplus no entry absorbs is held as
// overpayment. Each payment covers the installment before the late fee.
func (m *PaymentMatcher) Apply(fact model.PaymentFact, view ScheduleView) (MatchResult, error) {
	if fact.AgreementID() != view.Agreement.ID() {
		return MatchResult{}, &model.UnknownAgreementError{AgreementID: fact.AgreementID()}
	}
	if fact.Amount().IsNegative() {
		return MatchResult{}, &model.NegativeAmountError{Amount: fact.Amount()}
	}

	entries := make([]model.ScheduleEntry, len(view.Entries))
	copy(entries, view.Entries)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Index() < entries[j].Index() })

	result := MatchResult{
		Allocation: model.Allocation{
			Applied:     decimal.Zero,
			LateFee:     decimal.Zero,
			Overpayment: decimal.Zero,
		},
	}

	if fact.Status().Equal(valueobject.FactStatusRefunded) {
		result.UpdatedEntries = entries
		result.UpdatedBalance = m.balance(view, entries, view.Overpayment)
		return result, nil
	}

	// A named entry is settled first; any remainder falls back to the
	// oldest outstanding entries, not the ones after the named entry.
	order, err := targetOrder(fact, entries)
	if err != nil {
		return MatchResult{}, err
	}

	remaining := fact.Amount()
	rate, grace := view.Agreement.DailyLateFeeRate(), view.Agreement.GracePeriodDays()

	for n, i := range order {
		if n > 0 && !money.Positive(remaining) {
			break
		}
		e := entries[i]
		acc, err := model.AccrueLateFee(e.DueDate(), fact.PaymentDate(), rate, grace)
		if err != nil {
			return MatchResult{}, err
		}
		e = e.AccrueFee(acc)
		due := e.AmountDue()

		if n == 0 {
			result.Allocation.DaysOverdue = acc.DaysOverdue
			result.Classification = classify(remaining, due, acc.DaysOverdue)
		}

		pay := money.Min(remaining, due)
		toInstallment := money.Min(pay, e.Outstanding())
		toFee := pay.Sub(toInstallment)

		entries[i] = e.Settle(toInstallment, toFee, acc.DaysOverdue, fact.PaymentDate())
		result.Touched = append(result.Touched, e.ID())
		result.Allocation.Applied = result.Allocation.Applied.Add(toInstallment)
		result.Allocation.LateFee = result.Allocation.LateFee.Add(toFee)
		remaining = remaining.Sub(pay)
	}

	if len(order) == 0 {
		result.Classification = valueobject.ClassificationOverpayment
	}
	result.Allocation.Overpayment = money.NonNegative(remaining)
	result.Allocation.Classification = result.Classification
	result.UpdatedEntries = entries
	result.UpdatedBalance = m.balance(view, entries, view.Overpayment.Add(result.Allocation.Overpayment))
	return result, nil
}

func (m *PaymentMatcher) balance(view ScheduleView, entries []model.ScheduleEntry, overpayment decimal.Decimal) model.RemainingBalance {
	return model.ComputeBalance(view.Agreement.ID(), view.Agreement.TotalAmount(), entries, overpayment, view.At)
}

// targetOrder returns the indexes of outstanding entries in the order a
// payment reaches them: the referenced entry if still outstanding, then the
// rest by due date.
func targetOrder(fact model.PaymentFact, entries []model.ScheduleEntry) ([]int, error) {
	first := -1
	if ref := fact.ScheduleEntryID(); ref != "" {
		found := false
		for i, e := range entries {
			if e.ID() == ref {
				found = true
				if e.IsOutstanding() {
					first = i
				}
				break
			}
		}
		if !found {
			return nil, &model.UnknownScheduleEntryError{EntryID: ref}
		}
	}

	order := make([]int, 0, len(entries))
	if first >= 0 {
		order = append(order, first)
	}
	for i, e := range entries {
		if i != first && e.IsOutstanding() {
			order = append(order, i)
		}
	}
	return order, nil
}

func classify(amount, expected decimal.Decimal, daysOverdue int) valueobject.Classification {
	switch {
	case money.Equal(amount, expected):
		if daysOverdue == 0 {
			return valueobject.ClassificationOnTime
		}
		return valueobject.ClassificationLate
	case amount.LessThan(expected):
		return valueobject.ClassificationPartial
	default:
		return valueobject.ClassificationOverpayment
	}
}
