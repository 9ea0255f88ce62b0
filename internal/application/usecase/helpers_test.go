package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/leasing/internal/application/dto"
	"github.com/bibbank/leasing/internal/application/usecase"
	"github.com/bibbank/leasing/internal/domain/event"
	"github.com/bibbank/leasing/internal/domain/model"
	"github.com/bibbank/leasing/internal/domain/port"
	"github.com/bibbank/leasing/internal/infrastructure/persistence/memory"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockEventPublisher struct {
	mu              sync.Mutex
	publishFunc     func(ctx context.Context, events ...event.DomainEvent) error
	publishedEvents []event.DomainEvent
}

func (m *mockEventPublisher) Publish(ctx context.Context, events ...event.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishFunc != nil {
		if err := m.publishFunc(ctx, events...); err != nil {
			return err
		}
	}
	m.publishedEvents = append(m.publishedEvents, events...)
	return nil
}

func (m *mockEventPublisher) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.publishedEvents))
	for _, e := range m.publishedEvents {
		types = append(types, e.EventType())
	}
	return types
}

// conflictingTx fails the first conflicts units of work for an agreement.
type conflictingTx struct {
	port.TransactionManager
	mu        sync.Mutex
	conflicts int
	attempts  int
}

func (c *conflictingTx) WithinAgreement(
	ctx context.Context,
	agreementID string,
	fn func(ctx context.Context, repos port.Repositories) error,
) error {
	c.mu.Lock()
	c.attempts++
	fail := c.attempts <= c.conflicts
	c.mu.Unlock()
	if fail {
		return &model.ReconciliationConflictError{AgreementID: agreementID}
	}
	return c.TransactionManager.WithinAgreement(ctx, agreementID, fn)
}

// retryConflicts retries conflicting operations a fixed number of times.
type retryConflicts struct{ max int }

func (r retryConflicts) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for i := 0; i < r.max; i++ {
		if err = op(ctx); err == nil || !model.IsConflict(err) {
			return err
		}
	}
	return err
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

type engine struct {
	store     *memory.Store
	publisher *mockEventPublisher
	clock     *fakeClock
	rc        *usecase.Reconciliation
}

func newEngine(t *testing.T, opts ...usecase.Option) *engine {
	t.Helper()
	e := &engine{
		store:     memory.NewStore(time.Second),
		publisher: &mockEventPublisher{},
		clock:     &fakeClock{t: day(2024, 1, 1).Add(9 * time.Hour)},
	}
	opts = append([]usecase.Option{usecase.WithClock(e.clock.Now)}, opts...)
	e.rc = usecase.NewReconciliation(e.store, e.publisher, opts...)
	return e
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// monthlyRental creates a short-term agreement with two 1000.00 installments
// due 2024-01-01 and 2024-02-01 and a 10.00 daily late fee.
func (e *engine) monthlyRental(t *testing.T, id string) dto.AgreementResponse {
	t.Helper()
	grace := 0
	resp, err := usecase.NewCreateAgreementUseCase(e.rc, 3).Execute(context.Background(), dto.CreateAgreementRequest{
		AgreementID:      id,
		Type:             "short_term",
		BillingPeriod:    "monthly",
		RecurringAmount:  dec("1000"),
		DailyLateFeeRate: dec("10"),
		TermMonths:       2,
		GracePeriodDays:  &grace,
		StartDate:        day(2023, 12, 1),
	})
	require.NoError(t, err)
	return resp
}

func (e *engine) pay(t *testing.T, agreementID, amount string, on time.Time) dto.RecordPaymentResponse {
	t.Helper()
	resp, err := usecase.NewRecordPaymentUseCase(e.rc).Execute(context.Background(), dto.RecordPaymentRequest{
		AgreementID: agreementID,
		Amount:      dec(amount),
		PaymentDate: on,
		Method:      "bank_transfer",
	})
	require.NoError(t, err)
	return resp
}

func (e *engine) schedule(t *testing.T, agreementID string) []dto.ScheduleEntryResponse {
	t.Helper()
	resp, err := usecase.NewGetScheduleUseCase(e.rc).Execute(context.Background(), dto.GetScheduleRequest{AgreementID: agreementID})
	require.NoError(t, err)
	return resp.Entries
}

func (e *engine) balance(t *testing.T, agreementID string) dto.BalanceResponse {
	t.Helper()
	resp, err := usecase.NewGetBalanceUseCase(e.rc).Execute(context.Background(), dto.GetBalanceRequest{AgreementID: agreementID})
	require.NoError(t, err)
	return resp
}
