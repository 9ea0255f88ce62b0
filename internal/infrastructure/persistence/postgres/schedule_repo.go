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

const entryColumns = `
	id, agreement_id, installment, due_date, amount, principal, interest,
	status, amount_paid, late_fee, late_fee_paid, days_overdue, reminder_count,
	last_reminder_at, paid_at, created_at, updated_at`

// ScheduleRepo implements port.ScheduleRepository.
type ScheduleRepo struct {
	q pgutil.Querier
}

func (r *ScheduleRepo) Exists(ctx context.Context, agreementID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM schedule_entries WHERE agreement_id = $1)`, agreementID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check schedule: %w", err)
	}
	return exists, nil
}

// InsertBatch writes a freshly materialized schedule. Any existing entry
// fails the whole batch.
func (r *ScheduleRepo) InsertBatch(ctx context.Context, entries []model.ScheduleEntry) error {
	query := `INSERT INTO schedule_entries (` + entryColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`
	for _, e := range entries {
		_, err := r.q.Exec(ctx, query,
			e.ID(), e.AgreementID(), e.Index(), e.DueDate(),
			e.Amount(), e.Principal(), e.Interest(),
			e.Status().String(), e.AmountPaid(), e.LateFee(), e.LateFeePaid(),
			e.DaysOverdue(), e.ReminderCount(),
			nullTime(e.LastReminderAt()), nullTime(e.PaidAt()), e.CreatedAt(), e.UpdatedAt(),
		)
		if err != nil {
			return mapWriteErr(err, "schedule entry", e.ID())
		}
	}
	return nil
}

// Update rewrites the mutable state of existing entries.
func (r *ScheduleRepo) Update(ctx context.Context, entries ...model.ScheduleEntry) error {
	query := `
		UPDATE schedule_entries SET
			status           = $2,
			amount_paid      = $3,
			late_fee         = $4,
			late_fee_paid    = $5,
			days_overdue     = $6,
			reminder_count   = $7,
			last_reminder_at = $8,
			paid_at          = $9,
			updated_at       = $10
		WHERE id = $1
	`
	for _, e := range entries {
		tag, err := r.q.Exec(ctx, query,
			e.ID(), e.Status().String(),
			e.AmountPaid(), e.LateFee(), e.LateFeePaid(),
			e.DaysOverdue(), e.ReminderCount(),
			nullTime(e.LastReminderAt()), nullTime(e.PaidAt()), e.UpdatedAt(),
		)
		if err != nil {
			return fmt.Errorf("update schedule entry %q: %w", e.ID(), err)
		}
		if tag.RowsAffected() == 0 {
			return notFound("schedule entry", e.ID())
		}
	}
	return nil
}

func (r *ScheduleRepo) FindByAgreement(ctx context.Context, agreementID string) ([]model.ScheduleEntry, error) {
	return r.scanMany(ctx, `
		SELECT `+entryColumns+` FROM schedule_entries
		WHERE agreement_id = $1
		ORDER BY installment
	`, agreementID)
}

func (r *ScheduleRepo) FindByID(ctx context.Context, id string) (model.ScheduleEntry, error) {
	e, err := scanEntry(r.q.QueryRow(ctx, `SELECT `+entryColumns+` FROM schedule_entries WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ScheduleEntry{}, notFound("schedule entry", id)
	}
	return e, err
}

// ListOverdue returns outstanding entries due strictly before asOf, oldest
// first.
func (r *ScheduleRepo) ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]model.ScheduleEntry, error) {
	query := `
		SELECT ` + entryColumns + ` FROM schedule_entries
		WHERE status IN ('pending', 'overdue', 'partial') AND due_date < $1
		ORDER BY due_date, agreement_id, installment
	`
	args := []any{asOf}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return r.scanMany(ctx, query, args...)
}

func (r *ScheduleRepo) DeleteByAgreement(ctx context.Context, agreementID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM schedule_entries WHERE agreement_id = $1`, agreementID)
	if err != nil {
		return 0, fmt.Errorf("delete schedule: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *ScheduleRepo) scanMany(ctx context.Context, query string, args ...any) ([]model.ScheduleEntry, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query schedule entries: %w", err)
	}
	defer rows.Close()

	var result []model.ScheduleEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func scanEntry(s scannable) (model.ScheduleEntry, error) {
	var (
		id, agreementID                  string
		index, daysOverdue, reminders    int
		dueDate                          time.Time
		amount, principal, interest      decimal.Decimal
		statusStr                        string
		amountPaid, lateFee, lateFeePaid decimal.Decimal
		lastReminderAt, paidAt           *time.Time
		createdAt, updatedAt             time.Time
	)
	err := s.Scan(
		&id, &agreementID, &index, &dueDate, &amount, &principal, &interest,
		&statusStr, &amountPaid, &lateFee, &lateFeePaid, &daysOverdue, &reminders,
		&lastReminderAt, &paidAt, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ScheduleEntry{}, err
		}
		return model.ScheduleEntry{}, fmt.Errorf("scan schedule entry: %w", err)
	}

	status, err := valueobject.NewEntryStatus(statusStr)
	if err != nil {
		return model.ScheduleEntry{}, fmt.Errorf("parse entry status: %w", err)
	}

	return model.ReconstructScheduleEntry(
		id, agreementID, index, dateOf(dueDate),
		amount, principal, interest,
		status, amountPaid, lateFee, lateFeePaid,
		daysOverdue, reminders,
		fromNull(lastReminderAt), fromNull(paidAt), createdAt.UTC(), updatedAt.UTC(),
	), nil
}
