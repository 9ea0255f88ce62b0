package usecase

import (
	"time"

	"github.com/bibbank/leasing/internal/application/dto"
	"github.com/bibbank/leasing/internal/domain/model"
)

func toAgreementResponse(a model.Agreement, installments int, created bool) dto.AgreementResponse {
	return dto.AgreementResponse{
		ID:                a.ID(),
		CustomerID:        a.CustomerID(),
		VehicleID:         a.VehicleID(),
		Type:              a.Type().String(),
		Status:            a.Status().String(),
		BillingPeriod:     a.BillingPeriod().String(),
		Principal:         a.Principal(),
		DownPayment:       a.DownPayment(),
		AnnualRatePercent: a.AnnualRate(),
		RecurringAmount:   a.RecurringAmount(),
		DailyLateFeeRate:  a.DailyLateFeeRate(),
		TotalAmount:       a.TotalAmount(),
		TermMonths:        a.TermMonths(),
		GracePeriodDays:   a.GracePeriodDays(),
		StartDate:         a.StartDate(),
		EndDate:           a.EndDate(),
		Installments:      installments,
		Created:           created,
		CreatedAt:         a.CreatedAt(),
		UpdatedAt:         a.UpdatedAt(),
	}
}

func toEntryResponse(e model.ScheduleEntry) dto.ScheduleEntryResponse {
	return dto.ScheduleEntryResponse{
		ID:             e.ID(),
		AgreementID:    e.AgreementID(),
		Index:          e.Index(),
		DueDate:        e.DueDate(),
		Amount:         e.Amount(),
		Principal:      e.Principal(),
		Interest:       e.Interest(),
		Status:         e.Status().String(),
		AmountPaid:     e.AmountPaid(),
		Outstanding:    e.Outstanding(),
		LateFee:        e.LateFee(),
		LateFeePaid:    e.LateFeePaid(),
		DaysOverdue:    e.DaysOverdue(),
		ReminderCount:  e.ReminderCount(),
		LastReminderAt: timePtr(e.LastReminderAt()),
		PaidAt:         timePtr(e.PaidAt()),
	}
}

func toEntryResponses(entries []model.ScheduleEntry) []dto.ScheduleEntryResponse {
	out := make([]dto.ScheduleEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return out
}

func toBalanceResponse(b model.RemainingBalance) dto.BalanceResponse {
	return dto.BalanceResponse{
		AgreementID:     b.AgreementID(),
		TotalAmount:     b.TotalAmount(),
		AmountPaid:      b.AmountPaid(),
		RemainingAmount: b.RemainingAmount(),
		LateFeesAccrued: b.LateFeesAccrued(),
		LateFeesPaid:    b.LateFeesPaid(),
		Overpayment:     b.Overpayment(),
		UpdatedAt:       b.UpdatedAt(),
	}
}

func toFactResponse(f model.PaymentFact) dto.PaymentFactResponse {
	return dto.PaymentFactResponse{
		ID:              f.ID(),
		AgreementID:     f.AgreementID(),
		Amount:          f.Amount(),
		AmountApplied:   f.AmountApplied(),
		LateFeeAmount:   f.LateFeeAmount(),
		Overpayment:     f.Overpayment(),
		PaymentDate:     f.PaymentDate(),
		Method:          f.Method(),
		Description:     f.Description(),
		Status:          f.Status().String(),
		Classification:  f.Classification().String(),
		DaysOverdue:     f.DaysOverdue(),
		ScheduleEntryID: f.ScheduleEntryID(),
		ExternalRef:     f.ExternalRef(),
		FailureReason:   f.FailureReason(),
		RecordedAt:      f.RecordedAt(),
	}
}

func toReportResponse(r model.ReconciliationReport, agreements int) dto.ReconciliationReportResponse {
	resp := dto.ReconciliationReportResponse{
		Agreements: agreements,
		Applied:    r.Applied,
		Skipped:    r.Skipped,
		Failed:     r.Failed,
		Summary:    r.Summary(),
	}
	for _, f := range r.Failures {
		resp.Failures = append(resp.Failures, dto.FailureResponse{Ref: f.Ref, Kind: f.Kind, Reason: f.Reason})
	}
	return resp
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
