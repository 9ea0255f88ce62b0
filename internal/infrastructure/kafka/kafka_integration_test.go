//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/leasing/internal/application/dto"
	"github.com/bibbank/leasing/internal/application/usecase"
	"github.com/bibbank/leasing/internal/infrastructure/kafka"
	"github.com/bibbank/leasing/internal/infrastructure/persistence/memory"
	pkgkafka "github.com/bibbank/leasing/pkg/kafka"
	"github.com/bibbank/leasing/pkg/testutil"
)

const (
	eventsTopic   = "leasing-events-it"
	paymentsTopic = "leasing-payment-rows-it"
)

func TestPaymentRowsRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	broker := testutil.NewKafkaContainer(ctx, t)
	cfg := pkgkafka.Config{Brokers: broker.Brokers, ClientID: "leasing-it", ConsumerGroup: "leasing-it"}

	producer, err := pkgkafka.NewProducer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = producer.Close() })

	rc := usecase.NewReconciliation(memory.NewStore(time.Second), kafka.NewEventPublisher(producer, eventsTopic, logger),
		usecase.WithLogger(logger),
		usecase.WithClock(func() time.Time { return time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC) }),
	)
	grace := 0
	_, err = usecase.NewCreateAgreementUseCase(rc, 0).Execute(ctx, dto.CreateAgreementRequest{
		AgreementID:     "agr-it",
		Type:            "short_term",
		BillingPeriod:   "monthly",
		RecurringAmount: decimal.NewFromInt(500),
		TermMonths:      2,
		GracePeriodDays: &grace,
		StartDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	row, err := json.Marshal(dto.PaymentRow{AgreementID: "agr-it", Amount: "500.00", Date: "2024-01-01"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return producer.Publish(ctx, paymentsTopic, pkgkafka.Message{
			Key:     []byte("row-1"),
			Value:   row,
			Headers: map[string]string{"source": "bank-feed"},
		}) == nil
	}, 30*time.Second, time.Second, "payment row never published")

	consumer, err := pkgkafka.NewConsumer(cfg, paymentsTopic, kafka.NewPaymentRowsHandler(usecase.NewImportPaymentsUseCase(rc), logger).Handle, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = consumer.Close() })

	consumeCtx, stopConsumer := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = consumer.Start(consumeCtx)
	}()
	t.Cleanup(func() { stopConsumer(); wg.Wait() })

	balances := usecase.NewGetBalanceUseCase(rc)
	require.Eventually(t, func() bool {
		b, err := balances.Execute(ctx, dto.GetBalanceRequest{AgreementID: "agr-it"})
		return err == nil && b.RemainingAmount.Equal(decimal.NewFromInt(500))
	}, time.Minute, 500*time.Millisecond, "imported payment never reconciled")

	var (
		mu    sync.Mutex
		types []string
	)
	events, err := pkgkafka.NewConsumer(pkgkafka.Config{Brokers: broker.Brokers, ConsumerGroup: "leasing-it-events"}, eventsTopic,
		func(_ context.Context, msg pkgkafka.Message) error {
			mu.Lock()
			defer mu.Unlock()
			types = append(types, msg.Headers["event_type"])
			return nil
		}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = events.Close() })
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = events.Start(consumeCtx)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(types) >= 2
	}, time.Minute, 500*time.Millisecond, "domain events missing on %s", eventsTopic)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, types, "leasing.agreement.created")
}
