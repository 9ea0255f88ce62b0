package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bibbank/leasing/internal/application/dto"
	"github.com/bibbank/leasing/internal/domain/model"
	"github.com/bibbank/leasing/internal/domain/port"
	"github.com/bibbank/leasing/internal/domain/valueobject"
	"github.com/bibbank/leasing/pkg/events"
)

// RecordPaymentUseCase captures a payment fact and, unless deferred,
// reconciles its agreement in the same unit of work.
type RecordPaymentUseCase struct {
	rc *Reconciliation
}

// NewRecordPaymentUseCase wires dependencies.
func NewRecordPaymentUseCase(rc *Reconciliation) *RecordPaymentUseCase {
	return &RecordPaymentUseCase{rc: rc}
}

// Execute records the payment. A fact whose external reference was already
// recorded for the agreement is returned as a duplicate without a new write.
func (uc *RecordPaymentUseCase) Execute(
	ctx context.Context,
	req dto.RecordPaymentRequest,
) (dto.RecordPaymentResponse, error) {
	agreementID := strings.TrimSpace(req.AgreementID)
	if agreementID == "" {
		return dto.RecordPaymentResponse{}, &model.UnknownAgreementError{}
	}
	status, err := valueobject.NewFactStatus(req.Status)
	if err != nil {
		return dto.RecordPaymentResponse{}, &model.InvalidInputError{Field: "status", Reason: err.Error()}
	}

	fact, err := model.NewPaymentFact(model.PaymentParams{
		ID:              req.PaymentID,
		AgreementID:     agreementID,
		Amount:          req.Amount,
		PaymentDate:     req.PaymentDate,
		Method:          req.Method,
		Description:     req.Description,
		ScheduleEntryID: strings.TrimSpace(req.ScheduleEntryID),
		ExternalRef:     req.ExternalRef,
		Status:          status,
	}, uc.rc.Now())
	if err != nil {
		return dto.RecordPaymentResponse{}, fmt.Errorf("record payment: %w", err)
	}

	var resp dto.RecordPaymentResponse
	err = uc.rc.Write(ctx, agreementID, func(ctx context.Context, repos port.Repositories, collected *events.EventCollector) error {
		resp = dto.RecordPaymentResponse{}
		if _, err := findAgreement(ctx, repos, agreementID); err != nil {
			return err
		}

		if ref := fact.ExternalRef(); ref != "" {
			existing, err := repos.Payments.FindByExternalRef(ctx, agreementID, ref)
			switch {
			case err == nil:
				resp.Payment = toFactResponse(existing)
				resp.Duplicate = true
				return nil
			case !errors.Is(err, model.ErrNotFound):
				return fmt.Errorf("find payment by reference: %w", err)
			}
		}

		if entryID := fact.ScheduleEntryID(); entryID != "" {
			entry, err := repos.Schedule.FindByID(ctx, entryID)
			if errors.Is(err, model.ErrNotFound) || (err == nil && entry.AgreementID() != agreementID) {
				return &model.UnknownScheduleEntryError{EntryID: entryID}
			}
			if err != nil {
				return fmt.Errorf("find schedule entry: %w", err)
			}
		}

		if err := repos.Payments.Insert(ctx, fact); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		collected.Record(fact.DomainEvents()...)
		resp.Payment = toFactResponse(fact)

		if req.Defer {
			return nil
		}
		out, err := uc.rc.replay(ctx, repos, agreementID, time.Time{}, collected)
		if err != nil {
			return err
		}
		for _, f := range out.ChangedFacts {
			if f.ID() == fact.ID() {
				resp.Payment = toFactResponse(f)
			}
		}
		report := toReportResponse(out.Report, 1)
		balance := toBalanceResponse(out.Balance)
		resp.Report, resp.Balance = &report, &balance
		return nil
	})
	if err != nil {
		return dto.RecordPaymentResponse{}, err
	}

	if !resp.Duplicate {
		uc.rc.logger.Info("payment recorded",
			"agreement_id", agreementID,
			"fact_id", resp.Payment.ID,
			"amount", resp.Payment.Amount.StringFixed(2),
			"status", resp.Payment.Status,
		)
	}
	return resp, nil
}
