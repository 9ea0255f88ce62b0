package model_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/leasing/internal/domain/model"
	"github.com/bibbank/leasing/internal/domain/valueobject"
)

func entry(amount string) model.ScheduleEntry {
	return model.NewScheduleEntry("agr-1", model.Installment{
		Index:     1,
		DueDate:   date(2024, 1, 1),
		Amount:    dec(amount),
		Principal: dec(amount),
		Interest:  decimal.Zero,
	}, now)
}

func TestEntryID_Deterministic(t *testing.T) {
	assert.Equal(t, model.EntryID("agr-1", 3), model.EntryID("agr-1", 3))
	assert.NotEqual(t, model.EntryID("agr-1", 3), model.EntryID("agr-1", 4))
	assert.NotEqual(t, model.EntryID("agr-1", 3), model.EntryID("agr-2", 3))
}

func TestScheduleEntry_Settle(t *testing.T) {
	e := entry("1000")

	partial := e.Settle(dec("400"), decimal.Zero, 0, date(2024, 1, 1))
	assert.True(t, partial.Status().Equal(valueobject.EntryStatusPartial))
	assert.True(t, partial.Outstanding().Equal(dec("600")))

	done := partial.Settle(dec("600"), decimal.Zero, 0, date(2024, 1, 5))
	assert.True(t, done.Status().Equal(valueobject.EntryStatusCompleted))
	assert.Equal(t, 0, done.DaysOverdue())
	assert.Equal(t, date(2024, 1, 5), done.PaidAt())
}

func TestScheduleEntry_MarkOverdue(t *testing.T) {
	e := entry("1000")
	acc := model.LateFeeAccrual{Fee: dec("20"), DaysOverdue: 4}

	same := e.MarkOverdue(date(2024, 1, 1), acc)
	assert.True(t, same.Status().Equal(valueobject.EntryStatusPending))

	overdue := e.MarkOverdue(date(2024, 1, 5), acc)
	assert.True(t, overdue.Status().Equal(valueobject.EntryStatusOverdue))
	assert.True(t, overdue.LateFee().Equal(dec("20")))
	assert.Equal(t, 4, overdue.DaysOverdue())

	partial := e.Settle(dec("100"), decimal.Zero, 0, date(2024, 1, 1)).MarkOverdue(date(2024, 1, 5), acc)
	assert.True(t, partial.Status().Equal(valueobject.EntryStatusPartial))
	assert.True(t, partial.AmountDue().Equal(dec("920")))
}

func TestScheduleEntry_ZeroAmountIsSettled(t *testing.T) {
	e := entry("0")
	assert.True(t, e.Status().Equal(valueobject.EntryStatusCompleted))

	acc := model.LateFeeAccrual{Fee: dec("20"), DaysOverdue: 30}
	late := e.MarkOverdue(date(2024, 2, 1), acc)
	assert.True(t, late.Status().Equal(valueobject.EntryStatusCompleted))
	assert.True(t, late.LateFee().IsZero())
	assert.Equal(t, 0, late.DaysOverdue())

	assert.True(t, e.Reset().Status().Equal(valueobject.EntryStatusCompleted))
}

func TestScheduleEntry_ResetKeepsReminders(t *testing.T) {
	e, err := entry("1000").RecordReminder(now)
	require.NoError(t, err)
	e = e.Settle(dec("1000"), decimal.Zero, 0, date(2024, 1, 1))

	reset := e.Reset()
	assert.True(t, reset.Status().Equal(valueobject.EntryStatusPending))
	assert.True(t, reset.AmountPaid().IsZero())
	assert.Equal(t, 1, reset.ReminderCount())
	assert.True(t, reset.PaidAt().IsZero())
}

func TestScheduleEntry_TerminateAndReminder(t *testing.T) {
	cancelled, ok := entry("1000").Terminate(now)
	require.True(t, ok)
	assert.True(t, cancelled.Status().Equal(valueobject.EntryStatusCancelled))

	_, ok = cancelled.Terminate(now)
	assert.False(t, ok)

	_, err := cancelled.RecordReminder(now)
	assert.ErrorIs(t, err, valueobject.ErrInvalidStatusTransition)

	assert.True(t, cancelled.Reset().Status().Equal(valueobject.EntryStatusCancelled))
}
