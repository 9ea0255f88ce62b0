package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/leasing/internal/domain/model"
	"github.com/bibbank/leasing/internal/domain/service"
	"github.com/bibbank/leasing/internal/domain/valueobject"
)

func replay(t *testing.T, in service.ReplayInput) service.ReplayOutcome {
	t.Helper()
	return service.NewReconciler(service.NewPaymentMatcher()).Replay(in)
}

// persist folds an outcome back into the inputs the way a store would.
func persist(in service.ReplayInput, out service.ReplayOutcome) service.ReplayInput {
	byID := make(map[string]model.PaymentFact, len(out.ChangedFacts))
	for _, f := range out.ChangedFacts {
		byID[f.ID()] = f
	}
	facts := make([]model.PaymentFact, len(in.Facts))
	for i, f := range in.Facts {
		if changed, ok := byID[f.ID()]; ok {
			facts[i] = changed
		} else {
			facts[i] = f
		}
	}
	balance := out.Balance
	if out.BalanceChanged {
		balance = balance.WithVersion(balance.Version() + 1)
	}
	in.Entries = out.Entries
	in.Facts = facts
	in.Balance = &balance
	return in
}

func TestReplay_AppliesPendingFactsInPaymentOrder(t *testing.T) {
	a, entries := twoInstallments(t)
	late := payment(t, "1000", date(2024, 1, 20), "")
	early := payment(t, "400", date(2024, 1, 1), "")

	out := replay(t, service.ReplayInput{
		Agreement: a, Entries: entries, Facts: []model.PaymentFact{late, early},
		AsOf: date(2024, 1, 20), Now: now,
	})

	assert.Equal(t, 2, out.Report.Applied)
	assert.Zero(t, out.Report.Skipped)
	require.Len(t, out.ChangedFacts, 2)
	assert.Equal(t, early.ID(), out.ChangedFacts[0].ID())
	assert.True(t, out.ChangedFacts[0].Classification().Equal(valueobject.ClassificationPartial))

	// 400 on time, then 1000 nineteen days late: 600 closes the installment,
	// 190 covers the fee, 210 carries to February.
	second := out.ChangedFacts[1]
	assert.True(t, second.Status().Equal(valueobject.FactStatusCompleted))
	assert.True(t, second.AmountApplied().Equal(dec("810")), "applied %s", second.AmountApplied())
	assert.True(t, second.LateFeeAmount().Equal(dec("190")))
	assert.True(t, out.Entries[0].Status().Equal(valueobject.EntryStatusCompleted))
	assert.True(t, out.Entries[1].Status().Equal(valueobject.EntryStatusPartial))
	assert.True(t, out.Balance.RemainingAmount().Equal(dec("790")))
	assert.True(t, out.BalanceChanged)
}

func TestReplay_Idempotent(t *testing.T) {
	a, entries := twoInstallments(t)
	in := service.ReplayInput{
		Agreement: a,
		Entries:   entries,
		Facts: []model.PaymentFact{
			payment(t, "1500", date(2024, 1, 1), ""),
			payment(t, "20", date(2024, 2, 3), ""),
		},
		AsOf: date(2024, 3, 15),
		Now:  now,
	}

	first := replay(t, in)
	require.True(t, first.Changed())
	in = persist(in, first)

	second := replay(t, in)
	assert.False(t, second.Changed())
	assert.Empty(t, second.ChangedEntries)
	assert.Empty(t, second.ChangedFacts)
	assert.Zero(t, second.Report.Applied)
	assert.Equal(t, first.Balance.RemainingAmount(), second.Balance.RemainingAmount())
	for i := range first.Entries {
		assert.True(t, first.Entries[i].SameState(second.Entries[i]))
	}
}

func TestReplay_MarksOverdueAsTimePasses(t *testing.T) {
	a, entries := twoInstallments(t)

	out := replay(t, service.ReplayInput{Agreement: a, Entries: entries, AsOf: date(2024, 1, 4), Now: now})

	assert.True(t, out.Entries[0].Status().Equal(valueobject.EntryStatusOverdue))
	assert.Equal(t, 3, out.Entries[0].DaysOverdue())
	assert.True(t, out.Entries[0].LateFee().Equal(dec("30")))
	assert.True(t, out.Entries[1].Status().Equal(valueobject.EntryStatusPending))
	assert.True(t, out.Balance.LateFeesAccrued().Equal(dec("30")))
	assert.True(t, out.Balance.RemainingAmount().Equal(dec("2000")))
}

func TestReplay_SkipsWithReasons(t *testing.T) {
	a, entries := twoInstallments(t)
	future := payment(t, "100", date(2024, 6, 1), "")
	unknown := payment(t, "100", date(2024, 1, 1), "missing")

	out := replay(t, service.ReplayInput{
		Agreement: a, Entries: entries, Facts: []model.PaymentFact{future, unknown},
		AsOf: date(2024, 1, 1), Now: now,
	})

	assert.Zero(t, out.Report.Applied)
	assert.Equal(t, 2, out.Report.Skipped)
	assert.Contains(t, out.Report.Summary(), service.ReasonFutureDated)
	assert.Contains(t, out.Report.Summary(), `unknown schedule entry "missing"`)
	for _, f := range out.ChangedFacts {
		assert.True(t, f.IsPending())
		assert.NotEmpty(t, f.FailureReason())
	}
}

func TestReplay_ClosedAgreementLeavesScheduleAlone(t *testing.T) {
	a, entries := twoInstallments(t)
	closed, err := a.Close(valueobject.AgreementStatusClosed, 0, now)
	require.NoError(t, err)

	out := replay(t, service.ReplayInput{
		Agreement: closed, Entries: entries, Facts: []model.PaymentFact{payment(t, "1000", date(2024, 1, 1), "")},
		AsOf: date(2024, 2, 1), Now: now,
	})

	assert.Equal(t, 1, out.Report.Skipped)
	assert.Empty(t, out.ChangedEntries)
	require.Len(t, out.ChangedFacts, 1)
	assert.Equal(t, service.ReasonAgreementClosed, out.ChangedFacts[0].FailureReason())
}

func TestReplay_RefundRegressesCompletedEntry(t *testing.T) {
	a, entries := twoInstallments(t)
	in := service.ReplayInput{
		Agreement: a, Entries: entries,
		Facts: []model.PaymentFact{payment(t, "1000", date(2024, 1, 1), "")},
		AsOf:  date(2024, 1, 1), Now: now,
	}
	in = persist(in, replay(t, in))
	require.True(t, in.Entries[0].Status().Equal(valueobject.EntryStatusCompleted))

	refunded, err := in.Facts[0].Refund("chargeback", now)
	require.NoError(t, err)
	in.Facts[0] = refunded

	out := replay(t, in)
	assert.True(t, out.Entries[0].Status().Equal(valueobject.EntryStatusPending))
	assert.True(t, out.Balance.RemainingAmount().Equal(dec("2000")))
	assert.True(t, out.BalanceChanged)
}

func TestReplay_RefundLeavesOtherCompletedFactsUntouched(t *testing.T) {
	a, entries := twoInstallments(t)
	in := service.ReplayInput{
		Agreement: a, Entries: entries,
		Facts: []model.PaymentFact{
			payment(t, "1000", date(2024, 1, 1), ""),
			payment(t, "1000", date(2024, 1, 5), ""),
		},
		AsOf: date(2024, 1, 5), Now: now,
	}
	in = persist(in, replay(t, in))
	require.True(t, in.Entries[1].Status().Equal(valueobject.EntryStatusCompleted))
	second := in.Facts[1]

	refunded, err := in.Facts[0].Refund("chargeback", now)
	require.NoError(t, err)
	in.Facts[0] = refunded

	out := replay(t, in)
	for _, f := range out.ChangedFacts {
		assert.NotEqual(t, second.ID(), f.ID(), "completed fact rewritten")
	}
	assert.False(t, out.Entries[0].Status().Equal(valueobject.EntryStatusPending))
	assert.True(t, out.Entries[1].Status().Equal(valueobject.EntryStatusPending))
	assert.True(t, second.AmountApplied().Equal(dec("1000")))
}

func TestReplay_BackdatedPaymentKeepsCompletedAllocations(t *testing.T) {
	a, entries := twoInstallments(t)
	in := service.ReplayInput{
		Agreement: a, Entries: entries,
		Facts: []model.PaymentFact{payment(t, "1000", date(2024, 1, 10), "")},
		AsOf:  date(2024, 1, 10), Now: now,
	}
	in = persist(in, replay(t, in))
	before := in.Facts[0]

	in.Facts = append(in.Facts, payment(t, "500", date(2024, 1, 2), ""))
	out := replay(t, in)

	assert.Equal(t, 1, out.Report.Applied)
	for _, f := range out.ChangedFacts {
		assert.NotEqual(t, before.ID(), f.ID(), "completed fact reallocated")
	}

	applied := before.AmountApplied()
	for _, f := range out.ChangedFacts {
		applied = applied.Add(f.AmountApplied())
	}
	assert.True(t, out.Balance.AmountPaid().Equal(applied))
	assert.True(t, out.Balance.RemainingAmount().Equal(a.TotalAmount().Sub(applied)))
}
