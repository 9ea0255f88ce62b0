package grpc

// proto.go defines the LeasingService wire contract by hand. Messages are
// plain structs serialised by the JSON codec; amounts and dates travel as
// strings and are parsed by the handler. Responses reuse the application DTOs.

import (
	"context"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/leasing/internal/application/dto"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "leasing.v1.LeasingService"

// ---------------------------------------------------------------------------
// Request messages
// ---------------------------------------------------------------------------

type CreateAgreementRequest struct {
	AgreementID       string `json:"agreement_id,omitempty"`
	CustomerID        string `json:"customer_id,omitempty"`
	VehicleID         string `json:"vehicle_id,omitempty"`
	Type              string `json:"type"`
	Status            string `json:"status,omitempty"`
	BillingPeriod     string `json:"billing_period,omitempty"`
	Principal         string `json:"principal,omitempty"`
	DownPayment       string `json:"down_payment,omitempty"`
	AnnualRatePercent string `json:"annual_rate_percent,omitempty"`
	RecurringAmount   string `json:"recurring_amount,omitempty"`
	DailyLateFeeRate  string `json:"daily_late_fee_rate,omitempty"`
	TermMonths        int32  `json:"term_months"`
	GracePeriodDays   *int32 `json:"grace_period_days,omitempty"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date,omitempty"`
}

type RecordPaymentRequest struct {
	PaymentID       string `json:"payment_id,omitempty"`
	AgreementID     string `json:"agreement_id"`
	Amount          string `json:"amount"`
	PaymentDate     string `json:"payment_date"`
	Method          string `json:"method,omitempty"`
	Description     string `json:"description,omitempty"`
	ScheduleEntryID string `json:"schedule_entry_id,omitempty"`
	ExternalRef     string `json:"external_ref,omitempty"`
	Status          string `json:"status,omitempty"`
	Defer           bool   `json:"defer,omitempty"`
}

type ReconcileRequest struct {
	AgreementID string `json:"agreement_id"`
	AsOf        string `json:"as_of,omitempty"`
}

type ReconcileAllRequest struct {
	AsOf string `json:"as_of,omitempty"`
}

type RecordReminderRequest struct {
	ScheduleEntryID string `json:"schedule_entry_id"`
	At              string `json:"at,omitempty"`
}

type ListOverdueRequest struct {
	AsOf  string `json:"as_of,omitempty"`
	Limit int32  `json:"limit,omitempty"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// LeasingServiceServer is the server API for LeasingService.
type LeasingServiceServer interface {
	CreateAgreement(context.Context, *CreateAgreementRequest) (*dto.AgreementResponse, error)
	ChangeAgreementStatus(context.Context, *dto.ChangeAgreementStatusRequest) (*dto.AgreementResponse, error)
	DeleteAgreement(context.Context, *dto.DeleteAgreementRequest) (*dto.DeleteAgreementResponse, error)
	RecordPayment(context.Context, *RecordPaymentRequest) (*dto.RecordPaymentResponse, error)
	RefundPayment(context.Context, *dto.RefundPaymentRequest) (*dto.RecordPaymentResponse, error)
	ImportPayments(context.Context, *dto.ImportPaymentsRequest) (*dto.ImportPaymentsResponse, error)
	Reconcile(context.Context, *ReconcileRequest) (*dto.ReconciliationReportResponse, error)
	ReconcileAll(context.Context, *ReconcileAllRequest) (*dto.ReconciliationReportResponse, error)
	GetSchedule(context.Context, *dto.GetScheduleRequest) (*dto.ScheduleResponse, error)
	GetBalance(context.Context, *dto.GetBalanceRequest) (*dto.BalanceResponse, error)
	RecordReminder(context.Context, *RecordReminderRequest) (*dto.ScheduleEntryResponse, error)
	ListOverdue(context.Context, *ListOverdueRequest) (*dto.OverdueResponse, error)
	mustEmbedUnimplementedLeasingServiceServer()
}

// UnimplementedLeasingServiceServer provides forward-compatible default implementations.
type UnimplementedLeasingServiceServer struct{}

func (UnimplementedLeasingServiceServer) CreateAgreement(context.Context, *CreateAgreementRequest) (*dto.AgreementResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CreateAgreement not implemented")
}
func (UnimplementedLeasingServiceServer) ChangeAgreementStatus(context.Context, *dto.ChangeAgreementStatusRequest) (*dto.AgreementResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ChangeAgreementStatus not implemented")
}
func (UnimplementedLeasingServiceServer) DeleteAgreement(context.Context, *dto.DeleteAgreementRequest) (*dto.DeleteAgreementResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method DeleteAgreement not implemented")
}
func (UnimplementedLeasingServiceServer) RecordPayment(context.Context, *RecordPaymentRequest) (*dto.RecordPaymentResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RecordPayment not implemented")
}
func (UnimplementedLeasingServiceServer) RefundPayment(context.Context, *dto.RefundPaymentRequest) (*dto.RecordPaymentResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RefundPayment not implemented")
}
func (UnimplementedLeasingServiceServer) ImportPayments(context.Context, *dto.ImportPaymentsRequest) (*dto.ImportPaymentsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ImportPayments not implemented")
}
func (UnimplementedLeasingServiceServer) Reconcile(context.Context, *ReconcileRequest) (*dto.ReconciliationReportResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Reconcile not implemented")
}
func (UnimplementedLeasingServiceServer) ReconcileAll(context.Context, *ReconcileAllRequest) (*dto.ReconciliationReportResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ReconcileAll not implemented")
}
func (UnimplementedLeasingServiceServer) GetSchedule(context.Context, *dto.GetScheduleRequest) (*dto.ScheduleResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetSchedule not implemented")
}
func (UnimplementedLeasingServiceServer) GetBalance(context.Context, *dto.GetBalanceRequest) (*dto.BalanceResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetBalance not implemented")
}
func (UnimplementedLeasingServiceServer) RecordReminder(context.Context, *RecordReminderRequest) (*dto.ScheduleEntryResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RecordReminder not implemented")
}
func (UnimplementedLeasingServiceServer) ListOverdue(context.Context, *ListOverdueRequest) (*dto.OverdueResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListOverdue not implemented")
}
func (UnimplementedLeasingServiceServer) mustEmbedUnimplementedLeasingServiceServer() {}

// RegisterLeasingServiceServer registers srv with the gRPC server.
func RegisterLeasingServiceServer(s grpclib.ServiceRegistrar, srv LeasingServiceServer) {
	s.RegisterService(&leasingServiceDesc, srv)
}

var leasingServiceDesc = grpclib.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LeasingServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		unary("CreateAgreement", func(s LeasingServiceServer, ctx context.Context, in *CreateAgreementRequest) (any, error) {
			return s.CreateAgreement(ctx, in)
		}),
		unary("ChangeAgreementStatus", func(s LeasingServiceServer, ctx context.Context, in *dto.ChangeAgreementStatusRequest) (any, error) {
			return s.ChangeAgreementStatus(ctx, in)
		}),
		unary("DeleteAgreement", func(s LeasingServiceServer, ctx context.Context, in *dto.DeleteAgreementRequest) (any, error) {
			return s.DeleteAgreement(ctx, in)
		}),
		unary("RecordPayment", func(s LeasingServiceServer, ctx context.Context, in *RecordPaymentRequest) (any, error) {
			return s.RecordPayment(ctx, in)
		}),
		unary("RefundPayment", func(s LeasingServiceServer, ctx context.Context, in *dto.RefundPaymentRequest) (any, error) {
			return s.RefundPayment(ctx, in)
		}),
		unary("ImportPayments", func(s LeasingServiceServer, ctx context.Context, in *dto.ImportPaymentsRequest) (any, error) {
			return s.ImportPayments(ctx, in)
		}),
		unary("Reconcile", func(s LeasingServiceServer, ctx context.Context, in *ReconcileRequest) (any, error) {
			return s.Reconcile(ctx, in)
		}),
		unary("ReconcileAll", func(s LeasingServiceServer, ctx context.Context, in *ReconcileAllRequest) (any, error) {
			return s.ReconcileAll(ctx, in)
		}),
		unary("GetSchedule", func(s LeasingServiceServer, ctx context.Context, in *dto.GetScheduleRequest) (any, error) {
			return s.GetSchedule(ctx, in)
		}),
		unary("GetBalance", func(s LeasingServiceServer, ctx context.Context, in *dto.GetBalanceRequest) (any, error) {
			return s.GetBalance(ctx, in)
		}),
		unary("RecordReminder", func(s LeasingServiceServer, ctx context.Context, in *RecordReminderRequest) (any, error) {
			return s.RecordReminder(ctx, in)
		}),
		unary("ListOverdue", func(s LeasingServiceServer, ctx context.Context, in *ListOverdueRequest) (any, error) {
			return s.ListOverdue(ctx, in)
		}),
	},
	Streams: []grpclib.StreamDesc{},
}

// unary builds the method descriptor the code generator would emit for one
// unary RPC.
func unary[Req any](
	method string,
	call func(LeasingServiceServer, context.Context, *Req) (any, error),
) grpclib.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + method
	return grpclib.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LeasingServiceServer), ctx, in)
			}
			info := &grpclib.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(LeasingServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
