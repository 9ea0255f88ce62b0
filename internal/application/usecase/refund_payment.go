package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/bibbank/leasing/internal/application/dto"
	"github.com/bibbank/leasing/internal/domain/port"
	"github.com/bibbank/leasing/internal/domain/valueobject"
	"github.com/bibbank/leasing/pkg/events"
)

// RefundPaymentUseCase reverses a payment fact and reconciles its agreement.
// It is the only path by which a completed entry regresses.
type RefundPaymentUseCase struct {
	rc *Reconciliation
}

// NewRefundPaymentUseCase wires dependencies.
func NewRefundPaymentUseCase(rc *Reconciliation) *RefundPaymentUseCase {
	return &RefundPaymentUseCase{rc: rc}
}

// Execute marks the fact refunded. Facts on closed or cancelled agreements
// cannot be refunded.
func (uc *RefundPaymentUseCase) Execute(
	ctx context.Context,
	req dto.RefundPaymentRequest,
) (dto.RecordPaymentResponse, error) {
	located, err := uc.rc.Reader().Payments.FindByID(ctx, req.PaymentID)
	if err != nil {
		return dto.RecordPaymentResponse{}, fmt.Errorf("find payment: %w", err)
	}
	agreementID := located.AgreementID()

	var resp dto.RecordPaymentResponse
	err = uc.rc.Write(ctx, agreementID, func(ctx context.Context, repos port.Repositories, collected *events.EventCollector) error {
		agreement, err := findAgreement(ctx, repos, agreementID)
		if err != nil {
			return err
		}
		if agreement.Status().IsTerminal() {
			return fmt.Errorf("refund payment on %s agreement: %w", agreement.Status(), valueobject.ErrInvalidStatusTransition)
		}

		fact, err := repos.Payments.FindByID(ctx, req.PaymentID)
		if err != nil {
			return fmt.Errorf("find payment: %w", err)
		}
		refunded, err := fact.Refund(req.Reason, uc.rc.Now())
		if err != nil {
			return fmt.Errorf("refund payment: %w", err)
		}
		if err := repos.Payments.Update(ctx, refunded); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		collected.Record(refunded.DomainEvents()...)

		out, err := uc.rc.replay(ctx, repos, agreementID, time.Time{}, collected)
		if err != nil {
			return err
		}
		report := toReportResponse(out.Report, 1)
		balance := toBalanceResponse(out.Balance)
		resp = dto.RecordPaymentResponse{
			Payment: toFactResponse(refunded),
			Report:  &report,
			Balance: &balance,
		}
		return nil
	})
	if err != nil {
		return dto.RecordPaymentResponse{}, err
	}

	uc.rc.logger.Info("payment refunded",
		"agreement_id", agreementID,
		"fact_id", req.PaymentID,
		"remaining_amount", resp.Balance.RemainingAmount.StringFixed(2),
	)
	return resp, nil
}
