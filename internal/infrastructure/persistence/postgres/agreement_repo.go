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

const agreementColumns = `
	id, customer_id, vehicle_id, agreement_type, status, billing_period,
	principal, down_payment, annual_rate, recurring_amount, daily_late_fee_rate, total_amount,
	term_months, grace_period_days, start_date, end_date,
	version, created_at, updated_at`

// AgreementRepo implements port.AgreementRepository.
type AgreementRepo struct {
	q pgutil.Querier
}

// Save inserts an agreement or updates it when the stored version matches
// (upsert by ID with optimistic locking).
func (r *AgreementRepo) Save(ctx context.Context, a model.Agreement) error {
	query := `
		INSERT INTO agreements (` + agreementColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (id) DO UPDATE SET
			status     = EXCLUDED.status,
			end_date   = EXCLUDED.end_date,
			version    = agreements.version + 1,
			updated_at = EXCLUDED.updated_at
		WHERE agreements.version = $17
	`
	tag, err := r.q.Exec(ctx, query,
		a.ID(), a.CustomerID(), a.VehicleID(),
		a.Type().String(), a.Status().String(), a.BillingPeriod().String(),
		a.Principal(), a.DownPayment(), a.AnnualRate(), a.RecurringAmount(), a.DailyLateFeeRate(), a.TotalAmount(),
		a.TermMonths(), a.GracePeriodDays(), a.StartDate(), nullTime(a.EndDate()),
		a.Version(), a.CreatedAt(), a.UpdatedAt(),
	)
	if err != nil {
		return mapWriteErr(err, "agreement", a.ID())
	}
	if tag.RowsAffected() == 0 {
		return &model.ReconciliationConflictError{AgreementID: a.ID(), Err: ErrVersionMismatch}
	}
	return nil
}

// FindByID retrieves a single agreement.
func (r *AgreementRepo) FindByID(ctx context.Context, id string) (model.Agreement, error) {
	query := `SELECT ` + agreementColumns + ` FROM agreements WHERE id = $1`
	a, err := scanAgreement(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Agreement{}, notFound("agreement", id)
	}
	return a, err
}

// ListOpenIDs returns the IDs of agreements still accepting payments.
func (r *AgreementRepo) ListOpenIDs(ctx context.Context) ([]string, error) {
	return queryIDs(ctx, r.q, `
		SELECT id FROM agreements
		WHERE status NOT IN ('closed', 'cancelled')
		ORDER BY id
	`)
}

func (r *AgreementRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM agreements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete agreement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("agreement", id)
	}
	return nil
}

func scanAgreement(s scannable) (model.Agreement, error) {
	var (
		id, customerID, vehicleID          string
		typeStr, statusStr, periodStr      string
		principal, downPayment, annualRate decimal.Decimal
		recurring, lateFeeRate, total      decimal.Decimal
		termMonths, graceDays, version     int
		startDate                          time.Time
		endDate                            *time.Time
		createdAt, updatedAt               time.Time
	)
	err := s.Scan(
		&id, &customerID, &vehicleID, &typeStr, &statusStr, &periodStr,
		&principal, &downPayment, &annualRate, &recurring, &lateFeeRate, &total,
		&termMonths, &graceDays, &startDate, &endDate,
		&version, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Agreement{}, err
		}
		return model.Agreement{}, fmt.Errorf("scan agreement: %w", err)
	}

	agreementType, err := valueobject.NewAgreementType(typeStr)
	if err != nil {
		return model.Agreement{}, fmt.Errorf("parse agreement type: %w", err)
	}
	status, err := valueobject.NewAgreementStatus(statusStr)
	if err != nil {
		return model.Agreement{}, fmt.Errorf("parse agreement status: %w", err)
	}
	period, err := valueobject.NewBillingPeriod(periodStr)
	if err != nil {
		return model.Agreement{}, fmt.Errorf("parse billing period: %w", err)
	}

	return model.ReconstructAgreement(
		id, customerID, vehicleID,
		agreementType, status, period,
		principal, downPayment, annualRate, recurring, lateFeeRate, total,
		termMonths, graceDays,
		dateOf(startDate), dateOfNull(endDate),
		version, createdAt.UTC(), updatedAt.UTC(),
	), nil
}

func queryIDs(ctx context.Context, q pgutil.Querier, query string, args ...any) ([]string, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect ids: %w", err)
	}
	return ids, nil
}
