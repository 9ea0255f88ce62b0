package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RemainingBalance is the cached per-agreement aggregate. remainingAmount is
// always totalAmount minus the installment portion applied by completed facts.
type RemainingBalance struct {
	agreementID     string
	totalAmount     decimal.Decimal
	amountPaid      decimal.Decimal
	remainingAmount decimal.Decimal
	lateFeesAccrued decimal.Decimal
	lateFeesPaid    decimal.Decimal
	overpayment     decimal.Decimal
	version         int
	updatedAt       time.Time
}

// NewRemainingBalance is the balance of a freshly materialized agreement.
func NewRemainingBalance(agreementID string, total decimal.Decimal, now time.Time) RemainingBalance {
	return RemainingBalance{
		agreementID:     agreementID,
		totalAmount:     total,
		amountPaid:      decimal.Zero,
		remainingAmount: total,
		lateFeesAccrued: decimal.Zero,
		lateFeesPaid:    decimal.Zero,
		overpayment:     decimal.Zero,
		version:         1,
		updatedAt:       now,
	}
}

// ComputeBalance derives the balance from reconciled entries plus any
// surplus no entry could absorb.
func ComputeBalance(agreementID string, total decimal.Decimal, entries []ScheduleEntry, overpayment decimal.Decimal, now time.Time) RemainingBalance {
	paid, accrued, feesPaid := decimal.Zero, decimal.Zero, decimal.Zero
	for _, e := range entries {
		paid = paid.Add(e.amountPaid)
		accrued = accrued.Add(e.lateFee)
		feesPaid = feesPaid.Add(e.lateFeePaid)
	}
	return RemainingBalance{
		agreementID:     agreementID,
		totalAmount:     total,
		amountPaid:      paid,
		remainingAmount: total.Sub(paid),
		lateFeesAccrued: accrued,
		lateFeesPaid:    feesPaid,
		overpayment:     overpayment,
		updatedAt:       now,
	}
}

// ReconstructRemainingBalance rebuilds a RemainingBalance from persistence.
func ReconstructRemainingBalance(
	agreementID string,
	totalAmount, amountPaid, remainingAmount, lateFeesAccrued, lateFeesPaid, overpayment decimal.Decimal,
	version int,
	updatedAt time.Time,
) RemainingBalance {
	return RemainingBalance{
		agreementID:     agreementID,
		totalAmount:     totalAmount,
		amountPaid:      amountPaid,
		remainingAmount: remainingAmount,
		lateFeesAccrued: lateFeesAccrued,
		lateFeesPaid:    lateFeesPaid,
		overpayment:     overpayment,
		version:         version,
		updatedAt:       updatedAt,
	}
}

// SameState reports whether two balances carry the same amounts.
func (b RemainingBalance) SameState(o RemainingBalance) bool {
	return b.agreementID == o.agreementID &&
		b.totalAmount.Equal(o.totalAmount) &&
		b.amountPaid.Equal(o.amountPaid) &&
		b.remainingAmount.Equal(o.remainingAmount) &&
		b.lateFeesAccrued.Equal(o.lateFeesAccrued) &&
		b.lateFeesPaid.Equal(o.lateFeesPaid) &&
		b.overpayment.Equal(o.overpayment)
}

// WithVersion returns a copy carrying the given version.
func (b RemainingBalance) WithVersion(v int) RemainingBalance {
	next := b
	next.version = v
	return next
}

func (b RemainingBalance) AgreementID() string              { return b.agreementID }
func (b RemainingBalance) TotalAmount() decimal.Decimal     { return b.totalAmount }
func (b RemainingBalance) AmountPaid() decimal.Decimal      { return b.amountPaid }
func (b RemainingBalance) RemainingAmount() decimal.Decimal { return b.remainingAmount }
func (b RemainingBalance) LateFeesAccrued() decimal.Decimal { return b.lateFeesAccrued }
func (b RemainingBalance) LateFeesPaid() decimal.Decimal    { return b.lateFeesPaid }
func (b RemainingBalance) Overpayment() decimal.Decimal     { return b.overpayment }
func (b RemainingBalance) Version() int                     { return b.version }
func (b RemainingBalance) UpdatedAt() time.Time             { return b.updatedAt }
