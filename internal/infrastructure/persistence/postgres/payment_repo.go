package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/bibbank/leasing/internal/domain/model"
	"github.com/bibbank/leasing/internal/domain/valueobject"
	pgutil "github.com/bibbank/leasing/pkg/postgres"
)

const factColumns = `
	id, agreement_id, amount, amount_applied, late_fee_amount, overpayment,
	payment_date, method, description, status, classification, days_overdue,
	schedule_entry_id, external_ref, failure_reason,
	recorded_at, reconciled_at, refunded_at`

// PaymentFactRepo implements port.PaymentFactRepository.
type PaymentFactRepo struct {
	q pgutil.Querier
}

func (r *PaymentFactRepo) Insert(ctx context.Context, f model.PaymentFact) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO payment_facts (`+factColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`,
		f.ID(), f.AgreementID(), f.Amount(), f.AmountApplied(), f.LateFeeAmount(), f.Overpayment(),
		f.PaymentDate(), f.Method(), f.Description(), f.Status().String(), f.Classification().String(), f.DaysOverdue(),
		f.ScheduleEntryID(), f.ExternalRef(), f.FailureReason(),
		f.RecordedAt(), nullTime(f.ReconciledAt()), nullTime(f.RefundedAt()),
	)
	if err != nil {
		return mapWriteErr(err, "payment fact", f.ID())
	}
	return nil
}

// Update rewrites the reconciliation outcome of existing facts.
func (r *PaymentFactRepo) Update(ctx context.Context, facts ...model.PaymentFact) error {
	query := `
		UPDATE payment_facts SET
			amount_applied    = $2,
			late_fee_amount   = $3,
			overpayment       = $4,
			status            = $5,
			classification    = $6,
			days_overdue      = $7,
			schedule_entry_id = $8,
			failure_reason    = $9,
			reconciled_at     = $10,
			refunded_at       = $11
		WHERE id = $1
	`
	for _, f := range facts {
		tag, err := r.q.Exec(ctx, query,
			f.ID(), f.AmountApplied(), f.LateFeeAmount(), f.Overpayment(),
			f.Status().String(), f.Classification().String(), f.DaysOverdue(),
			f.ScheduleEntryID(), f.FailureReason(),
			nullTime(f.ReconciledAt()), nullTime(f.RefundedAt()),
		)
		if err != nil {
			return fmt.Errorf("update payment fact %q: %w", f.ID(), err)
		}
		if tag.RowsAffected() == 0 {
			return notFound("payment fact", f.ID())
		}
	}
	return nil
}

func (r *PaymentFactRepo) FindByID(ctx context.Context, id string) (model.PaymentFact, error) {
	f, err := scanFact(r.q.QueryRow(ctx, `SELECT `+factColumns+` FROM payment_facts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PaymentFact{}, notFound("payment fact", id)
	}
	return f, err
}

func (r *PaymentFactRepo) FindByExternalRef(ctx context.Context, agreementID, ref string) (model.PaymentFact, error) {
	f, err := scanFact(r.q.QueryRow(ctx, `
		SELECT `+factColumns+` FROM payment_facts
		WHERE agreement_id = $1 AND external_ref = $2 AND external_ref <> ''
	`, agreementID, ref))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PaymentFact{}, notFound("payment reference", ref)
	}
	return f, err
}

func (r *PaymentFactRepo) FindByAgreement(ctx context.Context, agreementID string) ([]model.PaymentFact, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+factColumns+` FROM payment_facts
		WHERE agreement_id = $1
		ORDER BY payment_date, recorded_at, id
	`, agreementID)
	if err != nil {
		return nil, fmt.Errorf("query payment facts: %w", err)
	}
	defer rows.Close()

	var result []model.PaymentFact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (r *PaymentFactRepo) ListAgreementsWithPending(ctx context.Context) ([]string, error) {
	return queryIDs(ctx, r.q, `
		SELECT DISTINCT agreement_id FROM payment_facts
		WHERE status = 'pending'
		ORDER BY agreement_id
	`)
}

func (r *PaymentFactRepo) DeleteByAgreement(ctx context.Context, agreementID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM payment_facts WHERE agreement_id = $1`, agreementID)
	if err != nil {
		return 0, fmt.Errorf("delete payment facts: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanFact(s scannable) (model.PaymentFact, error) {
	var (
		id, agreementID                       string
		amount, applied, lateFee, overpayment decimal.Decimal
		paymentDate                           time.Time
		method, description                   string
		statusStr, classStr                   string
		daysOverdue                           int
		entryID, externalRef, failureReason   string
		recordedAt                            time.Time
		reconciledAt, refundedAt              *time.Time
	)
	err := s.Scan(
		&id, &agreementID, &amount, &applied, &lateFee, &overpayment,
		&paymentDate, &method, &description, &statusStr, &classStr, &daysOverdue,
		&entryID, &externalRef, &failureReason,
		&recordedAt, &reconciledAt, &refundedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PaymentFact{}, err
		}
		return model.PaymentFact{}, fmt.Errorf("scan payment fact: %w", err)
	}

	status, err := valueobject.NewFactStatus(statusStr)
	if err != nil {
		return model.PaymentFact{}, fmt.Errorf("parse fact status: %w", err)
	}
	class, err := valueobject.NewClassification(classStr)
	if err != nil {
		return model.PaymentFact{}, fmt.Errorf("parse classification: %w", err)
	}

	return model.ReconstructPaymentFact(
		id, agreementID,
		amount, applied, lateFee, overpayment,
		dateOf(paymentDate),
		method, description,
		status, class, daysOverdue,
		entryID, externalRef, failureReason,
		recordedAt.UTC(), fromNull(reconciledAt), fromNull(refundedAt),
	), nil
}
