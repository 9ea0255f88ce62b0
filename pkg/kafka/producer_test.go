package kafka

import (
	"context"
	"io"
	"log/slog"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"localhost:9092", "localhost:9093"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost:9092", "localhost:9093"}, p.brokers)
	assert.Nil(t, p.transport, "plain config should use kafka-go default transport")
	assert.Empty(t, p.writers)
}

func TestNewProducer_SASLPlain(t *testing.T) {
	p, err := NewProducer(Config{
		Brokers:      []string{"kafka:9092"},
		ClientID:     "leasingd",
		SASLEnabled:  true,
		SASLUsername: "svc",
		SASLPassword: "secret",
	})
	require.NoError(t, err)
	require.NotNil(t, p.transport)

	assert.Equal(t, "leasingd", p.transport.ClientID)
	mech, ok := p.transport.SASL.(plain.Mechanism)
	require.True(t, ok)
	assert.Equal(t, "svc", mech.Username)
}

func TestNewProducer_UnsupportedSASL(t *testing.T) {
	_, err := NewProducer(Config{
		Brokers:       []string{"kafka:9092"},
		SASLEnabled:   true,
		SASLMechanism: "GSSAPI",
	})
	require.Error(t, err)
}

func TestProducerWriterPerTopic(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)

	w1 := p.writer("leasing-events")
	w2 := p.writer("leasing-events")
	w3 := p.writer("leasing-payments")

	assert.Same(t, w1, w2)
	assert.NotSame(t, w1, w3)
	assert.IsType(t, &kafkago.Hash{}, w1.Balancer)

	require.NoError(t, p.Close())
	assert.Empty(t, p.writers)
}

func TestPublish_NoMessagesIsNoop(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), "leasing-events"))
	assert.Empty(t, p.writers)
}

func TestMessageHeadersRoundTrip(t *testing.T) {
	in := []Message{{
		Key:     []byte("agr-1"),
		Value:   []byte(`{"amount":"100.00"}`),
		Headers: map[string]string{"event-type": "leasing.payment.recorded"},
	}}

	km := toKafkaMessages(in)
	require.Len(t, km, 1)
	out := fromKafkaMessage(km[0])

	assert.Equal(t, in[0].Key, out.Key)
	assert.Equal(t, in[0].Value, out.Value)
	assert.Equal(t, "leasing.payment.recorded", out.Headers["event-type"])
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "no brokers", cfg: Config{}, wantErr: true},
		{name: "plain", cfg: Config{Brokers: []string{"k:9092"}}},
		{name: "sasl without user", cfg: Config{Brokers: []string{"k:9092"}, SASLEnabled: true}, wantErr: true},
		{name: "sasl scram", cfg: Config{Brokers: []string{"k:9092"}, SASLEnabled: true, SASLMechanism: "SCRAM-SHA-512", SASLUsername: "u"}},
		{name: "sasl unknown", cfg: Config{Brokers: []string{"k:9092"}, SASLEnabled: true, SASLMechanism: "X", SASLUsername: "u"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewConsumer_RequiresGroup(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewConsumer(Config{Brokers: []string{"k:9092"}}, "leasing-payments", nil, logger)
	require.Error(t, err)
}
