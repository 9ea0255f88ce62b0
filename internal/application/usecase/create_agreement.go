package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/bibbank/leasing/internal/application/dto"
	"github.com/bibbank/leasing/internal/domain/model"
	"github.com/bibbank/leasing/internal/domain/port"
	"github.com/bibbank/leasing/internal/domain/service"
	"github.com/bibbank/leasing/internal/domain/valueobject"
	"github.com/bibbank/leasing/pkg/events"
)

// CreateAgreementUseCase registers an agreement and materializes its schedule.
type CreateAgreementUseCase struct {
	rc                 *Reconciliation
	materializer       *service.ScheduleMaterializer
	defaultGracePeriod int
}

// NewCreateAgreementUseCase wires dependencies. defaultGracePeriod applies
// when a request does not name one.
func NewCreateAgreementUseCase(rc *Reconciliation, defaultGracePeriod int) *CreateAgreementUseCase {
	return &CreateAgreementUseCase{
		rc:                 rc,
		materializer:       service.NewScheduleMaterializer(),
		defaultGracePeriod: defaultGracePeriod,
	}
}

// Execute validates the terms, persists the agreement and its schedule in one
// unit of work. Re-submitting an existing agreement ID returns the stored
// agreement unchanged.
func (uc *CreateAgreementUseCase) Execute(
	ctx context.Context,
	req dto.CreateAgreementRequest,
) (dto.AgreementResponse, error) {
	params, err := uc.params(req)
	if err != nil {
		return dto.AgreementResponse{}, err
	}

	agreement, err := model.NewAgreement(params, uc.rc.Now())
	if err != nil {
		return dto.AgreementResponse{}, fmt.Errorf("create agreement: %w", err)
	}

	var (
		resp    dto.AgreementResponse
		created bool
	)
	err = uc.rc.Write(ctx, agreement.ID(), func(ctx context.Context, repos port.Repositories, collected *events.EventCollector) error {
		stored, err := repos.Agreements.FindByID(ctx, agreement.ID())
		switch {
		case err == nil:
			created = false
		case errors.Is(err, model.ErrNotFound):
			if err := repos.Agreements.Save(ctx, agreement); err != nil {
				return fmt.Errorf("save agreement: %w", err)
			}
			stored, created = agreement, true
			collected.Record(agreement.DomainEvents()...)
		default:
			return fmt.Errorf("find agreement: %w", err)
		}

		entries, err := uc.materializer.Materialize(ctx, repos, stored, uc.rc.Now())
		if errors.Is(err, model.ErrDuplicateMaterialization) {
			entries, err = repos.Schedule.FindByAgreement(ctx, stored.ID())
		}
		if err != nil {
			return fmt.Errorf("materialize schedule: %w", err)
		}
		resp = toAgreementResponse(stored.ClearEvents(), len(entries), created)
		return nil
	})
	if err != nil {
		return dto.AgreementResponse{}, err
	}

	if created {
		uc.rc.logger.Info("agreement created",
			"agreement_id", resp.ID,
			"type", resp.Type,
			"installments", resp.Installments,
			"total_amount", resp.TotalAmount.StringFixed(2),
		)
	}
	return resp, nil
}

func (uc *CreateAgreementUseCase) params(req dto.CreateAgreementRequest) (model.AgreementParams, error) {
	agreementType, err := valueobject.NewAgreementType(req.Type)
	if err != nil {
		return model.AgreementParams{}, &model.InvalidInputError{Field: "type", Reason: err.Error()}
	}
	var status valueobject.AgreementStatus
	if req.Status != "" {
		if status, err = valueobject.NewAgreementStatus(req.Status); err != nil {
			return model.AgreementParams{}, &model.InvalidInputError{Field: "status", Reason: err.Error()}
		}
	}
	period, err := valueobject.NewBillingPeriod(req.BillingPeriod)
	if err != nil {
		return model.AgreementParams{}, &model.InvalidInputError{Field: "billing_period", Reason: err.Error()}
	}
	grace := uc.defaultGracePeriod
	if req.GracePeriodDays != nil {
		grace = *req.GracePeriodDays
	}

	return model.AgreementParams{
		ID:               req.AgreementID,
		CustomerID:       req.CustomerID,
		VehicleID:        req.VehicleID,
		Type:             agreementType,
		Status:           status,
		BillingPeriod:    period,
		Principal:        req.Principal,
		DownPayment:      req.DownPayment,
		AnnualRate:       req.AnnualRatePercent,
		RecurringAmount:  req.RecurringAmount,
		DailyLateFeeRate: req.DailyLateFeeRate,
		TermMonths:       req.TermMonths,
		GracePeriodDays:  grace,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
	}, nil
}
