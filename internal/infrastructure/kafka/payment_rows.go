package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/bibbank/leasing/internal/application/dto"
	pkgkafka "github.com/bibbank/leasing/pkg/kafka"
)

// PaymentImporter is the bulk import entry point.
type PaymentImporter interface {
	Execute(ctx context.Context, req dto.ImportPaymentsRequest) (dto.ImportPaymentsResponse, error)
}

// PaymentRowsHandler turns messages from the payment-rows topic into bulk
// imports. A message carries either one dto.ImportPaymentsRequest batch or a
// single dto.PaymentRow; the "source" header names the batch when the body
// does not.
type PaymentRowsHandler struct {
	importer PaymentImporter
	logger   *slog.Logger
}

// NewPaymentRowsHandler wires dependencies.
func NewPaymentRowsHandler(importer PaymentImporter, logger *slog.Logger) *PaymentRowsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentRowsHandler{importer: importer, logger: logger}
}

// Handle implements pkg/kafka.Handler. Undecodable messages are logged and
// acknowledged; only import errors leave the message for redelivery.
func (h *PaymentRowsHandler) Handle(ctx context.Context, msg pkgkafka.Message) error {
	req, ok := h.decode(msg)
	if !ok {
		return nil
	}
	if len(req.Rows) == 0 {
		return nil
	}

	resp, err := h.importer.Execute(ctx, req)
	if err != nil {
		return err
	}
	h.logger.InfoContext(ctx, "payment rows consumed",
		"source", req.Source,
		"rows", len(req.Rows),
		"recorded", resp.Recorded,
		"duplicates", resp.Duplicates,
		"rejected", resp.Rejected,
	)
	return nil
}

func (h *PaymentRowsHandler) decode(msg pkgkafka.Message) (dto.ImportPaymentsRequest, bool) {
	var batch dto.ImportPaymentsRequest
	if err := json.Unmarshal(msg.Value, &batch); err == nil && len(batch.Rows) > 0 {
		if batch.Source == "" {
			batch.Source = msg.Headers["source"]
		}
		return batch, true
	}

	var row dto.PaymentRow
	if err := json.Unmarshal(msg.Value, &row); err != nil {
		h.logger.Warn("discarding undecodable payment row message",
			"key", string(msg.Key),
			"error", err,
		)
		return dto.ImportPaymentsRequest{}, false
	}
	if row.RowRef == "" {
		row.RowRef = string(msg.Key)
	}
	return dto.ImportPaymentsRequest{Source: msg.Headers["source"], Rows: []dto.PaymentRow{row}}, true
}
