package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/bibbank/leasing/internal/domain/model"
	pgutil "github.com/bibbank/leasing/pkg/postgres"
)

// BalanceRepo implements port.BalanceRepository.
type BalanceRepo struct {
	q pgutil.Querier
}

// Save upserts the balance with optimistic locking.
func (r *BalanceRepo) Save(ctx context.Context, b model.RemainingBalance) error {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO remaining_balances (
			agreement_id, total_amount, amount_paid, remaining_amount,
			late_fees_accrued, late_fees_paid, overpayment, version, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (agreement_id) DO UPDATE SET
			total_amount      = EXCLUDED.total_amount,
			amount_paid       = EXCLUDED.amount_paid,
			remaining_amount  = EXCLUDED.remaining_amount,
			late_fees_accrued = EXCLUDED.late_fees_accrued,
			late_fees_paid    = EXCLUDED.late_fees_paid,
			overpayment       = EXCLUDED.overpayment,
			version           = remaining_balances.version + 1,
			updated_at        = EXCLUDED.updated_at
		WHERE remaining_balances.version = $8
	`,
		b.AgreementID(), b.TotalAmount(), b.AmountPaid(), b.RemainingAmount(),
		b.LateFeesAccrued(), b.LateFeesPaid(), b.Overpayment(), b.Version(), b.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("save balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &model.ReconciliationConflictError{AgreementID: b.AgreementID(), Err: ErrVersionMismatch}
	}
	return nil
}

func (r *BalanceRepo) FindByAgreement(ctx context.Context, agreementID string) (model.RemainingBalance, error) {
	var (
		total, paid, remaining, accrued, feesPaid, overpayment decimal.Decimal
		version                                                int
		updatedAt                                              time.Time
	)
	err := r.q.QueryRow(ctx, `
		SELECT total_amount, amount_paid, remaining_amount, late_fees_accrued,
		       late_fees_paid, overpayment, version, updated_at
		FROM remaining_balances WHERE agreement_id = $1
	`, agreementID).Scan(&total, &paid, &remaining, &accrued, &feesPaid, &overpayment, &version, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RemainingBalance{}, notFound("balance", agreementID)
	}
	if err != nil {
		return model.RemainingBalance{}, fmt.Errorf("scan balance: %w", err)
	}
	return model.ReconstructRemainingBalance(
		agreementID, total, paid, remaining, accrued, feesPaid, overpayment, version, updatedAt.UTC(),
	), nil
}

func (r *BalanceRepo) DeleteByAgreement(ctx context.Context, agreementID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM remaining_balances WHERE agreement_id = $1`, agreementID); err != nil {
		return fmt.Errorf("delete balance: %w", err)
	}
	return nil
}
