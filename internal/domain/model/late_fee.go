package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/leasing/pkg/money"
)

// LateFeeAccrual is the fee owed on one installment as of a given date.
type LateFeeAccrual struct {
	Fee         decimal.Decimal
	DaysOverdue int
}

// AccrueLateFee computes the late fee for an installment due on dueDate,
// evaluated at asOf (the payment date, or the reconciliation date when the
// installment is unpaid). Days inside the grace period are free. The result
// depends only on its arguments.
func AccrueLateFee(dueDate, asOf time.Time, dailyRate decimal.Decimal, graceDays int) (LateFeeAccrual, error) {
	if dailyRate.IsNegative() {
		return LateFeeAccrual{}, invalidInput("daily_late_fee_rate", "must not be negative")
	}
	if graceDays < 0 {
		return LateFeeAccrual{}, invalidInput("grace_period_days", "must not be negative")
	}

	days := DaysBetween(dueDate, asOf) - graceDays
	if days <= 0 {
		return LateFeeAccrual{Fee: decimal.Zero}, nil
	}

	return LateFeeAccrual{
		Fee:         money.Round(dailyRate.Mul(decimal.NewFromInt(int64(days)))),
		DaysOverdue: days,
	}, nil
}
