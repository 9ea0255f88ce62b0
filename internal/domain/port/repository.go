package port

import (
	"context"
	"time"

	"github.com/bibbank/leasing/internal/domain/event"
	"github.com/bibbank/leasing/internal/domain/model"
)

// ---------------------------------------------------------------------------
// Repository ports (driven/secondary adapters)
// ---------------------------------------------------------------------------

// AgreementRepository persists and retrieves agreements. Save inserts a new
// agreement or updates an existing one when its version matches.
type AgreementRepository interface {
	Save(ctx context.Context, agreement model.Agreement) error
	FindByID(ctx context.Context, id string) (model.Agreement, error)
	ListOpenIDs(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// ScheduleRepository persists schedule entries.
type ScheduleRepository interface {
	Exists(ctx context.Context, agreementID string) (bool, error)
	InsertBatch(ctx context.Context, entries []model.ScheduleEntry) error
	Update(ctx context.Context, entries ...model.ScheduleEntry) error
	FindByAgreement(ctx context.Context, agreementID string) ([]model.ScheduleEntry, error)
	FindByID(ctx context.Context, id string) (model.ScheduleEntry, error)
	ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]model.ScheduleEntry, error)
	DeleteByAgreement(ctx context.Context, agreementID string) (int64, error)
}

// PaymentFactRepository persists payment facts.
type PaymentFactRepository interface {
	Insert(ctx context.Context, fact model.PaymentFact) error
	Update(ctx context.Context, facts ...model.PaymentFact) error
	FindByID(ctx context.Context, id string) (model.PaymentFact, error)
	FindByExternalRef(ctx context.Context, agreementID, ref string) (model.PaymentFact, error)
	FindByAgreement(ctx context.Context, agreementID string) ([]model.PaymentFact, error)
	ListAgreementsWithPending(ctx context.Context) ([]string, error)
	DeleteByAgreement(ctx context.Context, agreementID string) (int64, error)
}

// BalanceRepository persists the cached per-agreement balance.
type BalanceRepository interface {
	Save(ctx context.Context, balance model.RemainingBalance) error
	FindByAgreement(ctx context.Context, agreementID string) (model.RemainingBalance, error)
	DeleteByAgreement(ctx context.Context, agreementID string) error
}

// Repositories groups the repositories bound to one unit of work.
type Repositories struct {
	Agreements AgreementRepository
	Schedule   ScheduleRepository
	Payments   PaymentFactRepository
	Balances   BalanceRepository
}

// ---------------------------------------------------------------------------
// Unit of work
// ---------------------------------------------------------------------------

// TransactionManager runs read-modify-write cycles for one agreement.
//
// WithinAgreement holds the agreement's exclusive write lock for the duration
// of fn and commits every write fn makes through repos atomically, or none of
// them. Contention surfaces as *model.ReconciliationConflictError. Once fn
// returns, the commit or rollback completes even if ctx is cancelled.
type TransactionManager interface {
	WithinAgreement(ctx context.Context, agreementID string, fn func(ctx context.Context, repos Repositories) error) error
	Reader() Repositories
}

// ---------------------------------------------------------------------------
// Event publisher port
// ---------------------------------------------------------------------------

// EventPublisher publishes domain events to external consumers.
type EventPublisher interface {
	Publish(ctx context.Context, events ...event.DomainEvent) error
}
