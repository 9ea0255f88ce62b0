package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/leasing/internal/application/dto"
	"github.com/bibbank/leasing/internal/domain/model"
	"github.com/bibbank/leasing/internal/domain/valueobject"
	"github.com/bibbank/leasing/pkg/money"
)

// Row outcomes reported by an import.
const (
	RowRecorded  = "recorded"
	RowDuplicate = "duplicate"
	RowRejected  = "rejected"
)

// Reasons a row is rejected before it reaches the engine.
const (
	ReasonMissingAgreement = "missing agreement reference"
	ReasonInvalidAmount    = "invalid amount"
	ReasonInvalidDate      = "invalid payment date"
	ReasonNotCaptured      = "payment not captured"
	ReasonUnknownStatus    = "unknown payment status"
)

var importDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02.01.2006",
}

// ImportPaymentsUseCase converts raw rows from a bulk import into payment
// facts, then reconciles every touched agreement once.
type ImportPaymentsUseCase struct {
	rc     *Reconciliation
	record *RecordPaymentUseCase
}

// NewImportPaymentsUseCase wires dependencies.
func NewImportPaymentsUseCase(rc *Reconciliation) *ImportPaymentsUseCase {
	return &ImportPaymentsUseCase{rc: rc, record: NewRecordPaymentUseCase(rc)}
}

// Execute processes every row. A bad row is reported and never aborts the
// batch. Re-importing the same source and rows records nothing new.
func (uc *ImportPaymentsUseCase) Execute(
	ctx context.Context,
	req dto.ImportPaymentsRequest,
) (dto.ImportPaymentsResponse, error) {
	var (
		resp    dto.ImportPaymentsResponse
		report  model.ReconciliationReport
		touched = map[string]struct{}{}
	)

	for i, row := range req.Rows {
		if err := ctx.Err(); err != nil {
			return dto.ImportPaymentsResponse{}, fmt.Errorf("import payments: %w", err)
		}
		ref := strings.TrimSpace(row.RowRef)
		if ref == "" {
			ref = "row-" + strconv.Itoa(i+1)
		}
		result := dto.RowResult{RowRef: ref}

		paymentReq, reason := toRecordRequest(req.Source, ref, row)
		if reason != "" {
			result.Outcome, result.Reason = RowRejected, reason
			report.Skip(ref, reason)
			resp.Rejected++
			resp.Rows = append(resp.Rows, result)
			continue
		}

		recorded, err := uc.record.Execute(ctx, paymentReq)
		switch {
		case err == nil && recorded.Duplicate:
			result.Outcome, result.PaymentID = RowDuplicate, recorded.Payment.ID
			resp.Duplicates++
			touched[paymentReq.AgreementID] = struct{}{}
		case err == nil:
			result.Outcome, result.PaymentID = RowRecorded, recorded.Payment.ID
			resp.Recorded++
			touched[paymentReq.AgreementID] = struct{}{}
		default:
			result.Outcome, result.Reason = RowRejected, rowReason(err)
			report.Skip(ref, result.Reason)
			resp.Rejected++
		}
		resp.Rows = append(resp.Rows, result)
	}

	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		out, err := uc.rc.Reconcile(ctx, id, time.Time{})
		if err != nil {
			report.Fail(id, err.Error())
			continue
		}
		report.Merge(out.Report)
	}

	resp.Report = toReportResponse(report, len(ids))
	resp.Summary = resp.Report.Summary
	uc.rc.logger.Info("payments imported",
		"source", req.Source,
		"rows", len(req.Rows),
		"recorded", resp.Recorded,
		"duplicates", resp.Duplicates,
		"rejected", resp.Rejected,
		"summary", resp.Summary,
	)
	return resp, nil
}

// toRecordRequest validates a raw row. A non-empty reason rejects it.
func toRecordRequest(source, rowRef string, row dto.PaymentRow) (dto.RecordPaymentRequest, string) {
	agreementID := strings.TrimSpace(row.AgreementID)
	if agreementID == "" {
		return dto.RecordPaymentRequest{}, ReasonMissingAgreement
	}
	amount, err := money.Parse(row.Amount)
	if err != nil {
		return dto.RecordPaymentRequest{}, ReasonInvalidAmount
	}
	if amount.IsNegative() {
		return dto.RecordPaymentRequest{}, (&model.NegativeAmountError{Amount: amount}).Error()
	}
	if !amount.GreaterThan(decimal.Zero) {
		return dto.RecordPaymentRequest{}, ReasonInvalidAmount
	}
	date, ok := parseRowDate(row.Date)
	if !ok {
		return dto.RecordPaymentRequest{}, ReasonInvalidDate
	}
	status, reason := rowStatus(row.Status)
	if reason != "" {
		return dto.RecordPaymentRequest{}, reason
	}

	externalRef := strings.TrimSpace(row.ExternalRef)
	if externalRef == "" {
		externalRef = rowRef
	}
	if source = strings.TrimSpace(source); source != "" {
		externalRef = source + ":" + externalRef
	}

	return dto.RecordPaymentRequest{
		AgreementID: agreementID,
		Amount:      amount,
		PaymentDate: date,
		Method:      row.Method,
		Description: row.Description,
		ExternalRef: externalRef,
		Status:      status,
		Defer:       true,
	}, ""
}

func parseRowDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// rowStatus maps an upstream capture status onto a fact status. Captured
// rows enter as pending; reconciliation completes them.
func rowStatus(raw string) (string, string) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "pending", "completed", "paid", "succeeded", "captured":
		return valueobject.FactStatusPending.String(), ""
	case "refunded":
		return valueobject.FactStatusRefunded.String(), ""
	case "failed", "cancelled", "canceled", "declined":
		return "", ReasonNotCaptured
	default:
		return "", ReasonUnknownStatus
	}
}

// rowReason drops use-case wrapping so reports group by cause.
func rowReason(err error) string {
	var (
		unknown *model.UnknownAgreementError
		invalid *model.InvalidInputError
	)
	switch {
	case errors.As(err, &unknown):
		return unknown.Error()
	case errors.As(err, &invalid):
		return invalid.Error()
	}
	return err.Error()
}
