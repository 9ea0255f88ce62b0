package grpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/leasing/internal/application/dto"
	"github.com/bibbank/leasing/internal/application/usecase"
	"github.com/bibbank/leasing/internal/domain/model"
	"github.com/bibbank/leasing/internal/domain/valueobject"
	"github.com/bibbank/leasing/pkg/money"
)

// UseCases groups the operations the handler exposes.
type UseCases struct {
	CreateAgreement       *usecase.CreateAgreementUseCase
	ChangeAgreementStatus *usecase.ChangeAgreementStatusUseCase
	DeleteAgreement       *usecase.DeleteAgreementUseCase
	RecordPayment         *usecase.RecordPaymentUseCase
	RefundPayment         *usecase.RefundPaymentUseCase
	ImportPayments        *usecase.ImportPaymentsUseCase
	Reconcile             *usecase.ReconcileAgreementUseCase
	ReconcileAll          *usecase.ReconcileAllUseCase
	GetSchedule           *usecase.GetScheduleUseCase
	GetBalance            *usecase.GetBalanceUseCase
	RecordReminder        *usecase.RecordReminderUseCase
	ListOverdue           *usecase.ListOverdueUseCase
}

// NewUseCases wires every use case onto one reconciliation core.
func NewUseCases(rc *usecase.Reconciliation, defaultGracePeriod, bulkConcurrency int) UseCases {
	return UseCases{
		CreateAgreement:       usecase.NewCreateAgreementUseCase(rc, defaultGracePeriod),
		ChangeAgreementStatus: usecase.NewChangeAgreementStatusUseCase(rc),
		DeleteAgreement:       usecase.NewDeleteAgreementUseCase(rc),
		RecordPayment:         usecase.NewRecordPaymentUseCase(rc),
		RefundPayment:         usecase.NewRefundPaymentUseCase(rc),
		ImportPayments:        usecase.NewImportPaymentsUseCase(rc),
		Reconcile:             usecase.NewReconcileAgreementUseCase(rc),
		ReconcileAll:          usecase.NewReconcileAllUseCase(rc, bulkConcurrency),
		GetSchedule:           usecase.NewGetScheduleUseCase(rc),
		GetBalance:            usecase.NewGetBalanceUseCase(rc),
		RecordReminder:        usecase.NewRecordReminderUseCase(rc),
		ListOverdue:           usecase.NewListOverdueUseCase(rc),
	}
}

// LeasingHandler implements LeasingServiceServer.
type LeasingHandler struct {
	UnimplementedLeasingServiceServer
	uc UseCases
}

// NewLeasingHandler creates a handler over uc.
func NewLeasingHandler(uc UseCases) *LeasingHandler {
	return &LeasingHandler{uc: uc}
}

var _ LeasingServiceServer = (*LeasingHandler)(nil)

// ---------------------------------------------------------------------------
// Agreements
// ---------------------------------------------------------------------------

func (h *LeasingHandler) CreateAgreement(ctx context.Context, req *CreateAgreementRequest) (*dto.AgreementResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	in := dto.CreateAgreementRequest{
		AgreementID:   req.AgreementID,
		CustomerID:    req.CustomerID,
		VehicleID:     req.VehicleID,
		Type:          req.Type,
		Status:        req.Status,
		BillingPeriod: req.BillingPeriod,
		TermMonths:    int(req.TermMonths),
	}
	if req.GracePeriodDays != nil {
		days := int(*req.GracePeriodDays)
		in.GracePeriodDays = &days
	}

	var err error
	amounts := []struct {
		field string
		raw   string
		dst   *decimal.Decimal
	}{
		{"principal", req.Principal, &in.Principal},
		{"down_payment", req.DownPayment, &in.DownPayment},
		{"recurring_amount", req.RecurringAmount, &in.RecurringAmount},
		{"daily_late_fee_rate", req.DailyLateFeeRate, &in.DailyLateFeeRate},
	}
	for _, a := range amounts {
		if *a.dst, err = optionalAmount(a.field, a.raw); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(req.AnnualRatePercent) != "" {
		if in.AnnualRatePercent, err = decimal.NewFromString(strings.TrimSpace(req.AnnualRatePercent)); err != nil {
			return nil, invalidArgument("annual_rate_percent", err)
		}
	}
	if in.StartDate, err = requiredDate("start_date", req.StartDate); err != nil {
		return nil, err
	}
	if in.EndDate, err = optionalDate("end_date", req.EndDate); err != nil {
		return nil, err
	}

	result, err := h.uc.CreateAgreement.Execute(ctx, in)
	if err != nil {
		return nil, toStatus(err)
	}
	return &result, nil
}

func (h *LeasingHandler) ChangeAgreementStatus(ctx context.Context, req *dto.ChangeAgreementStatusRequest) (*dto.AgreementResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	result, err := h.uc.ChangeAgreementStatus.Execute(ctx, *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return &result, nil
}

func (h *LeasingHandler) DeleteAgreement(ctx context.Context, req *dto.DeleteAgreementRequest) (*dto.DeleteAgreementResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	result, err := h.uc.DeleteAgreement.Execute(ctx, *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return &result, nil
}

// ---------------------------------------------------------------------------
// Payments
// ---------------------------------------------------------------------------

func (h *LeasingHandler) RecordPayment(ctx context.Context, req *RecordPaymentRequest) (*dto.RecordPaymentResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return nil, invalidArgument("amount", err)
	}
	paymentDate, err := requiredDate("payment_date", req.PaymentDate)
	if err != nil {
		return nil, err
	}

	result, err := h.uc.RecordPayment.Execute(ctx, dto.RecordPaymentRequest{
		PaymentID:       req.PaymentID,
		AgreementID:     req.AgreementID,
		Amount:          amount,
		PaymentDate:     paymentDate,
		Method:          req.Method,
		Description:     req.Description,
		ScheduleEntryID: req.ScheduleEntryID,
		ExternalRef:     req.ExternalRef,
		Status:          req.Status,
		Defer:           req.Defer,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &result, nil
}

func (h *LeasingHandler) RefundPayment(ctx context.Context, req *dto.RefundPaymentRequest) (*dto.RecordPaymentResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	result, err := h.uc.RefundPayment.Execute(ctx, *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return &result, nil
}

func (h *LeasingHandler) ImportPayments(ctx context.Context, req *dto.ImportPaymentsRequest) (*dto.ImportPaymentsResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	result, err := h.uc.ImportPayments.Execute(ctx, *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return &result, nil
}

// ---------------------------------------------------------------------------
// Reconciliation
// ---------------------------------------------------------------------------

func (h *LeasingHandler) Reconcile(ctx context.Context, req *ReconcileRequest) (*dto.ReconciliationReportResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	asOf, err := optionalDate("as_of", req.AsOf)
	if err != nil {
		return nil, err
	}
	result, err := h.uc.Reconcile.Execute(ctx, dto.ReconcileRequest{AgreementID: req.AgreementID, AsOf: asOf})
	if err != nil {
		return nil, toStatus(err)
	}
	return &result, nil
}

func (h *LeasingHandler) ReconcileAll(ctx context.Context, req *ReconcileAllRequest) (*dto.ReconciliationReportResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	asOf, err := optionalDate("as_of", req.AsOf)
	if err != nil {
		return nil, err
	}
	result, err := h.uc.ReconcileAll.Execute(ctx, dto.ReconcileAllRequest{AsOf: asOf})
	if err != nil {
		return nil, toStatus(err)
	}
	return &result, nil
}

// ---------------------------------------------------------------------------
// Queries and reminders
// ---------------------------------------------------------------------------

func (h *LeasingHandler) GetSchedule(ctx context.Context, req *dto.GetScheduleRequest) (*dto.ScheduleResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	result, err := h.uc.GetSchedule.Execute(ctx, *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return &result, nil
}

func (h *LeasingHandler) GetBalance(ctx context.Context, req *dto.GetBalanceRequest) (*dto.BalanceResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	result, err := h.uc.GetBalance.Execute(ctx, *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return &result, nil
}

func (h *LeasingHandler) RecordReminder(ctx context.Context, req *RecordReminderRequest) (*dto.ScheduleEntryResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	at, err := optionalTime("at", req.At)
	if err != nil {
		return nil, err
	}
	result, err := h.uc.RecordReminder.Execute(ctx, dto.RecordReminderRequest{ScheduleEntryID: req.ScheduleEntryID, At: at})
	if err != nil {
		return nil, toStatus(err)
	}
	return &result, nil
}

func (h *LeasingHandler) ListOverdue(ctx context.Context, req *ListOverdueRequest) (*dto.OverdueResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	asOf, err := optionalDate("as_of", req.AsOf)
	if err != nil {
		return nil, err
	}
	result, err := h.uc.ListOverdue.Execute(ctx, dto.ListOverdueRequest{AsOf: asOf, Limit: int(req.Limit)})
	if err != nil {
		return nil, toStatus(err)
	}
	return &result, nil
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

// toStatus maps engine errors onto gRPC codes.
func toStatus(err error) error {
	var (
		invalid     *model.InvalidInputError
		negative    *model.NegativeAmountError
		noAgreement *model.UnknownAgreementError
		noEntry     *model.UnknownScheduleEntryError
		conflict    *model.ReconciliationConflictError
	)
	switch {
	case errors.As(err, &invalid), errors.As(err, &negative):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &noAgreement), errors.As(err, &noEntry), errors.Is(err, model.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &conflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, valueobject.ErrInvalidStatusTransition), errors.Is(err, model.ErrFactImmutable):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func invalidArgument(field string, err error) error {
	return status.Error(codes.InvalidArgument, fmt.Sprintf("invalid %s: %v", field, err))
}

func optionalAmount(field, raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	d, err := money.Parse(raw)
	if err != nil {
		return decimal.Zero, invalidArgument(field, err)
	}
	return d, nil
}

// Dates are calendar days ("2006-01-02"); RFC 3339 timestamps are accepted
// and truncated by the engine.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func requiredDate(field, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, status.Error(codes.InvalidArgument, field+" is required")
	}
	t, err := parseDate(raw)
	if err != nil {
		return time.Time{}, invalidArgument(field, err)
	}
	return t, nil
}

func optionalDate(field, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return time.Time{}, invalidArgument(field, err)
	}
	return t, nil
}

func optionalTime(field, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, invalidArgument(field, err)
	}
	return t, nil
}
