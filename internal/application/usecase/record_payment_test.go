package usecase_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/leasing/internal/application/dto"
	"github.com/bibbank/leasing/internal/application/usecase"
	"github.com/bibbank/leasing/internal/domain/model"
	"github.com/bibbank/leasing/pkg/testutil"
)

func TestRecordPayment_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("exact match completes the entry on time", func(t *testing.T) {
		e := newEngine(t)
		e.monthlyRental(t, "agr-1")

		resp := e.pay(t, "agr-1", "1000", day(2024, 1, 1))

		assert.False(t, resp.Duplicate)
		assert.Equal(t, "completed", resp.Payment.Status)
		assert.Equal(t, "on_time", resp.Payment.Classification)
		testutil.AssertDecimal(t, "1000", resp.Payment.AmountApplied)
		testutil.AssertDecimal(t, "0", resp.Payment.LateFeeAmount)
		require.NotNil(t, resp.Report)
		assert.Equal(t, 1, resp.Report.Applied)

		entries := e.schedule(t, "agr-1")
		assert.Equal(t, "completed", entries[0].Status)
		testutil.AssertDecimal(t, "0", entries[0].LateFee)
		assert.Equal(t, "pending", entries[1].Status)

		testutil.AssertDecimal(t, "1000", e.balance(t, "agr-1").RemainingAmount)
		assert.Equal(t, []string{
			"leasing.agreement.created",
			"leasing.payment.recorded",
			"leasing.agreement.reconciled",
		}, e.publisher.eventTypes())
	})

	t.Run("partial payment leaves the remainder outstanding", func(t *testing.T) {
		e := newEngine(t)
		e.monthlyRental(t, "agr-1")

		resp := e.pay(t, "agr-1", "400", day(2024, 1, 1))

		assert.Equal(t, "partial", resp.Payment.Classification)
		entries := e.schedule(t, "agr-1")
		assert.Equal(t, "partial", entries[0].Status)
		testutil.AssertDecimal(t, "600", entries[0].Outstanding)
		testutil.AssertDecimal(t, "1600", e.balance(t, "agr-1").RemainingAmount)
	})

	t.Run("overpayment carries forward to the next entry", func(t *testing.T) {
		e := newEngine(t)
		e.monthlyRental(t, "agr-1")

		resp := e.pay(t, "agr-1", "1500", day(2024, 1, 1))

		assert.Equal(t, "overpayment", resp.Payment.Classification)
		entries := e.schedule(t, "agr-1")
		assert.Equal(t, "completed", entries[0].Status)
		assert.Equal(t, "partial", entries[1].Status)
		testutil.AssertDecimal(t, "500", entries[1].AmountPaid)
		testutil.AssertDecimal(t, "500", e.balance(t, "agr-1").RemainingAmount)
	})

	t.Run("late payment covers the accrued fee", func(t *testing.T) {
		e := newEngine(t)
		e.monthlyRental(t, "agr-1")
		e.clock.Set(day(2024, 1, 11))

		resp := e.pay(t, "agr-1", "1100", day(2024, 1, 11))

		assert.Equal(t, "late", resp.Payment.Classification)
		assert.Equal(t, 10, resp.Payment.DaysOverdue)
		testutil.AssertDecimal(t, "100", resp.Payment.LateFeeAmount)

		entries := e.schedule(t, "agr-1")
		assert.Equal(t, "completed", entries[0].Status)
		assert.Equal(t, 0, entries[0].DaysOverdue)
		testutil.AssertDecimal(t, "1000", e.balance(t, "agr-1").RemainingAmount)
	})

	t.Run("explicit schedule reference targets that entry", func(t *testing.T) {
		e := newEngine(t)
		e.monthlyRental(t, "agr-1")
		second := e.schedule(t, "agr-1")[1]

		resp, err := usecase.NewRecordPaymentUseCase(e.rc).Execute(ctx, dto.RecordPaymentRequest{
			AgreementID:     "agr-1",
			Amount:          dec("1000"),
			PaymentDate:     day(2024, 1, 1),
			ScheduleEntryID: second.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, second.ID, resp.Payment.ScheduleEntryID)

		entries := e.schedule(t, "agr-1")
		assert.Equal(t, "pending", entries[0].Status)
		assert.Equal(t, "completed", entries[1].Status)
	})

	t.Run("deferred payment waits for reconciliation", func(t *testing.T) {
		e := newEngine(t)
		e.monthlyRental(t, "agr-1")

		resp, err := usecase.NewRecordPaymentUseCase(e.rc).Execute(ctx, dto.RecordPaymentRequest{
			AgreementID: "agr-1",
			Amount:      dec("1000"),
			PaymentDate: day(2024, 1, 1),
			Defer:       true,
		})
		require.NoError(t, err)
		assert.Equal(t, "pending", resp.Payment.Status)
		assert.Nil(t, resp.Report)
		testutil.AssertDecimal(t, "2000", e.balance(t, "agr-1").RemainingAmount)

		report, err := usecase.NewReconcileAgreementUseCase(e.rc).Execute(ctx, dto.ReconcileRequest{AgreementID: "agr-1"})
		require.NoError(t, err)
		assert.Equal(t, 1, report.Applied)
		testutil.AssertDecimal(t, "1000", e.balance(t, "agr-1").RemainingAmount)
	})

	t.Run("repeated external reference is recorded once", func(t *testing.T) {
		e := newEngine(t)
		e.monthlyRental(t, "agr-1")
		uc := usecase.NewRecordPaymentUseCase(e.rc)
		req := dto.RecordPaymentRequest{
			AgreementID: "agr-1",
			Amount:      dec("1000"),
			PaymentDate: day(2024, 1, 1),
			ExternalRef: "bank:tx-77",
		}

		first, err := uc.Execute(ctx, req)
		require.NoError(t, err)
		second, err := uc.Execute(ctx, req)
		require.NoError(t, err)

		assert.True(t, second.Duplicate)
		assert.Equal(t, first.Payment.ID, second.Payment.ID)
		testutil.AssertDecimal(t, "1000", e.balance(t, "agr-1").RemainingAmount)
	})

	t.Run("errors", func(t *testing.T) {
		e := newEngine(t)
		e.monthlyRental(t, "agr-1")
		uc := usecase.NewRecordPaymentUseCase(e.rc)

		_, err := uc.Execute(ctx, dto.RecordPaymentRequest{AgreementID: "agr-404", Amount: dec("10"), PaymentDate: day(2024, 1, 1)})
		unknown := testutil.AssertErrorAs[*model.UnknownAgreementError](t, err)
		if unknown != nil {
			assert.Equal(t, "agr-404", unknown.AgreementID)
		}

		_, err = uc.Execute(ctx, dto.RecordPaymentRequest{Amount: dec("10"), PaymentDate: day(2024, 1, 1)})
		testutil.AssertErrorContains(t, err, "missing agreement reference")

		_, err = uc.Execute(ctx, dto.RecordPaymentRequest{AgreementID: "agr-1", Amount: dec("-5"), PaymentDate: day(2024, 1, 1)})
		testutil.AssertErrorAs[*model.NegativeAmountError](t, err)

		_, err = uc.Execute(ctx, dto.RecordPaymentRequest{AgreementID: "agr-1", Amount: dec("5"), PaymentDate: day(2024, 1, 1), Status: "completed"})
		testutil.AssertErrorAs[*model.InvalidInputError](t, err)

		_, err = uc.Execute(ctx, dto.RecordPaymentRequest{
			AgreementID: "agr-1", Amount: dec("5"), PaymentDate: day(2024, 1, 1), ScheduleEntryID: "entry-404",
		})
		testutil.AssertErrorAs[*model.UnknownScheduleEntryError](t, err)

		testutil.AssertDecimal(t, "2000", e.balance(t, "agr-1").RemainingAmount)
	})

	t.Run("concurrent payments never double-apply", func(t *testing.T) {
		e := newEngine(t, usecase.WithRetrier(retryConflicts{max: 5}))
		e.monthlyRental(t, "agr-1")
		uc := usecase.NewRecordPaymentUseCase(e.rc)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := uc.Execute(ctx, dto.RecordPaymentRequest{
					AgreementID: "agr-1",
					Amount:      dec("200"),
					PaymentDate: day(2024, 1, 1),
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		entries := e.schedule(t, "agr-1")
		assert.Equal(t, "completed", entries[0].Status)
		assert.Equal(t, "completed", entries[1].Status)
		balance := e.balance(t, "agr-1")
		testutil.AssertDecimal(t, "2000", balance.AmountPaid)
		testutil.AssertDecimal(t, "0", balance.RemainingAmount)
		testutil.AssertDecimal(t, "0", balance.Overpayment)
	})
}
