// Package postgres implements the persistence ports on PostgreSQL. Each unit
// of work is one transaction holding a transaction-scoped advisory lock on
// the agreement it writes.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bibbank/leasing/internal/domain/model"
	"github.com/bibbank/leasing/internal/domain/port"
	pgutil "github.com/bibbank/leasing/pkg/postgres"
)

// Migrations holds the schema, applied through golang-migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations holding the files.
const MigrationsDir = "migrations"

var (
	// ErrVersionMismatch is the optimistic-locking failure.
	ErrVersionMismatch = errors.New("version mismatch")
	// ErrDuplicateKey reports an insert over an existing key.
	ErrDuplicateKey = errors.New("duplicate key")
)

// Store implements port.TransactionManager.
type Store struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewStore wraps pool. A positive lockTimeout overrides the session
// lock_timeout for the agreement lock.
func NewStore(pool *pgxpool.Pool, lockTimeout time.Duration) *Store {
	return &Store{pool: pool, lockTimeout: lockTimeout}
}

var _ port.TransactionManager = (*Store)(nil)

// WithinAgreement implements port.TransactionManager.
func (s *Store) WithinAgreement(
	ctx context.Context,
	agreementID string,
	fn func(ctx context.Context, repos port.Repositories) error,
) error {
	err := pgutil.WithTransactionOptions(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		if s.lockTimeout > 0 {
			if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", s.lockTimeout.Milliseconds())); err != nil {
				return fmt.Errorf("set lock timeout: %w", err)
			}
		}
		if err := pgutil.AdvisoryXactLock(ctx, tx, "agreement:"+agreementID); err != nil {
			return err
		}
		return fn(ctx, repositories(tx))
	})
	if err != nil && pgutil.IsContention(err) && !model.IsConflict(err) {
		return &model.ReconciliationConflictError{AgreementID: agreementID, Err: err}
	}
	return err
}

// Reader implements port.TransactionManager. Statements run on the pool
// without the agreement lock.
func (s *Store) Reader() port.Repositories {
	return repositories(s.pool)
}

// Ping reports database health.
func (s *Store) Ping(ctx context.Context) error {
	return pgutil.HealthCheck(ctx, s.pool)
}

func repositories(q pgutil.Querier) port.Repositories {
	return port.Repositories{
		Agreements: &AgreementRepo{q: q},
		Schedule:   &ScheduleRepo{q: q},
		Payments:   &PaymentFactRepo{q: q},
		Balances:   &BalanceRepo{q: q},
	}
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type scannable interface {
	Scan(dest ...any) error
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, model.ErrNotFound)
}

// nullTime stores a zero time as NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func fromNull(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

// dateOf normalises a DATE column to UTC midnight.
func dateOf(t time.Time) time.Time {
	return model.Date(t)
}

func dateOfNull(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return model.Date(*t)
}

func mapWriteErr(err error, kind, id string) error {
	if pgutil.IsUniqueViolation(err) {
		return fmt.Errorf("%s %q: %w", kind, id, ErrDuplicateKey)
	}
	return fmt.Errorf("save %s %q: %w", kind, id, err)
}
