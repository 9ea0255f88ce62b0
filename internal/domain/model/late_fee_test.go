package model_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/leasing/internal/domain/model"
)

func TestAccrueLateFee(t *testing.T) {
	due := date(2024, 1, 1)

	tests := []struct {
		name     string
		asOf     int // days after due
		rate     string
		grace    int
		wantFee  string
		wantDays int
	}{
		{name: "before due", asOf: -5, rate: "5", wantFee: "0", wantDays: 0},
		{name: "on due date", asOf: 0, rate: "5", wantFee: "0", wantDays: 0},
		{name: "one day late", asOf: 1, rate: "5", wantFee: "5", wantDays: 1},
		{name: "ten days late", asOf: 10, rate: "2.5", wantFee: "25", wantDays: 10},
		{name: "inside grace", asOf: 3, rate: "5", grace: 3, wantFee: "0", wantDays: 0},
		{name: "past grace", asOf: 10, rate: "5", grace: 3, wantFee: "35", wantDays: 7},
		{name: "round half up", asOf: 1, rate: "0.125", wantFee: "0.13", wantDays: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := model.AccrueLateFee(due, due.AddDate(0, 0, tt.asOf), dec(tt.rate), tt.grace)
			require.NoError(t, err)
			assert.True(t, acc.Fee.Equal(dec(tt.wantFee)), "fee = %s", acc.Fee)
			assert.Equal(t, tt.wantDays, acc.DaysOverdue)
		})
	}
}

func TestAccrueLateFee_Monotonic(t *testing.T) {
	due := date(2024, 2, 29)
	prev := decimal.Zero
	for day := -10; day <= 120; day++ {
		acc, err := model.AccrueLateFee(due, due.AddDate(0, 0, day), dec("1.37"), 2)
		require.NoError(t, err)
		assert.True(t, acc.Fee.GreaterThanOrEqual(prev), "fee decreased at day %d", day)
		assert.GreaterOrEqual(t, acc.DaysOverdue, 0)
		prev = acc.Fee
	}
}

func TestAccrueLateFee_Deterministic(t *testing.T) {
	due, asOf := date(2024, 1, 1), date(2024, 3, 1)
	a, err := model.AccrueLateFee(due, asOf, dec("3"), 0)
	require.NoError(t, err)
	b, err := model.AccrueLateFee(due, asOf, dec("3"), 0)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAccrueLateFee_InvalidInput(t *testing.T) {
	_, err := model.AccrueLateFee(date(2024, 1, 1), date(2024, 2, 1), dec("-1"), 0)
	var invalid *model.InvalidInputError
	assert.ErrorAs(t, err, &invalid)

	_, err = model.AccrueLateFee(date(2024, 1, 1), date(2024, 2, 1), dec("1"), -1)
	assert.ErrorAs(t, err, &invalid)
}

func TestCalendarHelpers(t *testing.T) {
	assert.Equal(t, date(2023, 2, 28), model.AddMonthsClamped(date(2023, 1, 31), 1))
	assert.Equal(t, date(2025, 1, 31), model.AddMonthsClamped(date(2024, 1, 31), 12))
	assert.Equal(t, 29, model.DaysBetween(date(2024, 2, 1), date(2024, 3, 1)))
	assert.Equal(t, -1, model.DaysBetween(date(2024, 3, 1), date(2024, 2, 29)))
}
