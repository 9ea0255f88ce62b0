package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/leasing/internal/application/dto"
	"github.com/bibbank/leasing/internal/application/usecase"
	"github.com/bibbank/leasing/internal/domain/model"
	"github.com/bibbank/leasing/internal/domain/valueobject"
	"github.com/bibbank/leasing/pkg/testutil"
)

func TestRefundPayment_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("refund reopens the entry and restores the balance", func(t *testing.T) {
		e := newEngine(t)
		e.monthlyRental(t, "agr-1")
		paid := e.pay(t, "agr-1", "1000", day(2024, 1, 1))
		require.Equal(t, "completed", e.schedule(t, "agr-1")[0].Status)

		resp, err := usecase.NewRefundPaymentUseCase(e.rc).Execute(ctx, dto.RefundPaymentRequest{
			PaymentID: paid.Payment.ID,
			Reason:    "chargeback",
		})
		require.NoError(t, err)

		assert.Equal(t, "refunded", resp.Payment.Status)
		assert.Equal(t, "pending", e.schedule(t, "agr-1")[0].Status)
		testutil.AssertDecimal(t, "2000", resp.Balance.RemainingAmount)
		testutil.AssertDecimal(t, "2000", e.balance(t, "agr-1").RemainingAmount)
		assert.Contains(t, e.publisher.eventTypes(), "leasing.payment.refunded")

		_, err = usecase.NewRefundPaymentUseCase(e.rc).Execute(ctx, dto.RefundPaymentRequest{PaymentID: paid.Payment.ID})
		assert.ErrorIs(t, err, valueobject.ErrInvalidStatusTransition)
	})

	t.Run("unknown payment", func(t *testing.T) {
		e := newEngine(t)
		_, err := usecase.NewRefundPaymentUseCase(e.rc).Execute(ctx, dto.RefundPaymentRequest{PaymentID: "pay-404"})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("closed agreements refuse refunds", func(t *testing.T) {
		e := newEngine(t)
		e.monthlyRental(t, "agr-1")
		paid := e.pay(t, "agr-1", "1000", day(2024, 1, 1))
		_, err := usecase.NewChangeAgreementStatusUseCase(e.rc).Execute(ctx, dto.ChangeAgreementStatusRequest{
			AgreementID: "agr-1",
			Status:      "closed",
		})
		require.NoError(t, err)

		_, err = usecase.NewRefundPaymentUseCase(e.rc).Execute(ctx, dto.RefundPaymentRequest{PaymentID: paid.Payment.ID})
		assert.ErrorIs(t, err, valueobject.ErrInvalidStatusTransition)
	})
}

func TestChangeAgreementStatus_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("closing cancels outstanding entries without paying them", func(t *testing.T) {
		e := newEngine(t)
		e.monthlyRental(t, "agr-1")
		e.pay(t, "agr-1", "1000", day(2024, 1, 1))
		uc := usecase.NewChangeAgreementStatusUseCase(e.rc)

		resp, err := uc.Execute(ctx, dto.ChangeAgreementStatusRequest{AgreementID: "agr-1", Status: "cancelled"})
		require.NoError(t, err)
		assert.Equal(t, "cancelled", resp.Status)

		entries := e.schedule(t, "agr-1")
		assert.Equal(t, "completed", entries[0].Status)
		assert.Equal(t, "cancelled", entries[1].Status)
		testutil.AssertDecimal(t, "0", entries[1].AmountPaid)
		testutil.AssertDecimal(t, "1000", e.balance(t, "agr-1").AmountPaid)
		assert.Contains(t, e.publisher.eventTypes(), "leasing.agreement.closed")

		_, err = uc.Execute(ctx, dto.ChangeAgreementStatusRequest{AgreementID: "agr-1", Status: "closed"})
		assert.ErrorIs(t, err, valueobject.ErrInvalidStatusTransition)
	})

	t.Run("activates a draft", func(t *testing.T) {
		e := newEngine(t)
		created, err := usecase.NewCreateAgreementUseCase(e.rc, 0).Execute(ctx, dto.CreateAgreementRequest{
			AgreementID:     "agr-1",
			Type:            "short_term",
			Status:          "draft",
			RecurringAmount: dec("300"),
			TermMonths:      3,
			StartDate:       day(2024, 1, 1),
		})
		require.NoError(t, err)
		require.Equal(t, "draft", created.Status)

		resp, err := usecase.NewChangeAgreementStatusUseCase(e.rc).Execute(ctx, dto.ChangeAgreementStatusRequest{
			AgreementID: "agr-1",
			Status:      "active",
		})
		require.NoError(t, err)
		assert.Equal(t, "active", resp.Status)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		e := newEngine(t)
		e.monthlyRental(t, "agr-1")
		_, err := usecase.NewChangeAgreementStatusUseCase(e.rc).Execute(ctx, dto.ChangeAgreementStatusRequest{
			AgreementID: "agr-1",
			Status:      "archived",
		})
		testutil.AssertErrorAs[*model.InvalidInputError](t, err)
	})
}

func TestDeleteAgreement_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("removes dependents before the agreement", func(t *testing.T) {
		e := newEngine(t)
		e.monthlyRental(t, "agr-1")
		e.monthlyRental(t, "agr-2")
		e.pay(t, "agr-1", "1000", day(2024, 1, 1))

		resp, err := usecase.NewDeleteAgreementUseCase(e.rc).Execute(ctx, dto.DeleteAgreementRequest{AgreementID: "agr-1"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.ScheduleEntries)
		assert.Equal(t, int64(1), resp.PaymentFacts)

		reader := e.store.Reader()
		entries, err := reader.Schedule.FindByAgreement(ctx, "agr-1")
		require.NoError(t, err)
		assert.Empty(t, entries)
		facts, err := reader.Payments.FindByAgreement(ctx, "agr-1")
		require.NoError(t, err)
		assert.Empty(t, facts)
		_, err = reader.Balances.FindByAgreement(ctx, "agr-1")
		assert.ErrorIs(t, err, model.ErrNotFound)

		_, err = usecase.NewGetScheduleUseCase(e.rc).Execute(ctx, dto.GetScheduleRequest{AgreementID: "agr-1"})
		testutil.AssertErrorAs[*model.UnknownAgreementError](t, err)

		assert.Len(t, e.schedule(t, "agr-2"), 2, "other agreements untouched")
		assert.Contains(t, e.publisher.eventTypes(), "leasing.agreement.deleted")
	})

	t.Run("unknown agreement", func(t *testing.T) {
		e := newEngine(t)
		_, err := usecase.NewDeleteAgreementUseCase(e.rc).Execute(ctx, dto.DeleteAgreementRequest{AgreementID: "agr-404"})
		testutil.AssertErrorAs[*model.UnknownAgreementError](t, err)
	})
}

func TestReminders(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	e.monthlyRental(t, "agr-1")
	e.monthlyRental(t, "agr-2")
	e.pay(t, "agr-2", "1000", day(2024, 1, 1))

	overdue, err := usecase.NewListOverdueUseCase(e.rc).Execute(ctx, dto.ListOverdueRequest{AsOf: day(2024, 2, 15)})
	require.NoError(t, err)
	require.Len(t, overdue.Entries, 3)
	assert.Equal(t, "agr-1", overdue.Entries[0].AgreementID)
	assert.Equal(t, day(2024, 1, 1), overdue.Entries[0].DueDate)

	limited, err := usecase.NewListOverdueUseCase(e.rc).Execute(ctx, dto.ListOverdueRequest{AsOf: day(2024, 2, 15), Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited.Entries, 1)

	sentAt := time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC)
	uc := usecase.NewRecordReminderUseCase(e.rc)
	entry, err := uc.Execute(ctx, dto.RecordReminderRequest{ScheduleEntryID: overdue.Entries[0].ID, At: sentAt})
	require.NoError(t, err)
	assert.Equal(t, 1, entry.ReminderCount)
	require.NotNil(t, entry.LastReminderAt)
	assert.Equal(t, sentAt, *entry.LastReminderAt)

	paidEntry := e.schedule(t, "agr-2")[0]
	_, err = uc.Execute(ctx, dto.RecordReminderRequest{ScheduleEntryID: paidEntry.ID})
	assert.ErrorIs(t, err, valueobject.ErrInvalidStatusTransition)

	_, err = uc.Execute(ctx, dto.RecordReminderRequest{ScheduleEntryID: "entry-404"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}
