package grpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"

	"github.com/bibbank/leasing/internal/application/dto"
)

func TestJSONCodec_Registered(t *testing.T) {
	codec := encoding.GetCodec(CodecName)
	require.NotNil(t, codec)
	assert.Equal(t, CodecName, codec.Name())
}

func TestJSONCodec_Unmarshal(t *testing.T) {
	codec := jsonCodec{}

	t.Run("known fields decode", func(t *testing.T) {
		var req RecordPaymentRequest
		require.NoError(t, codec.Unmarshal([]byte(`{"agreement_id":"agr-1","amount":"250.00","payment_date":"2024-01-01"}`), &req))
		assert.Equal(t, "agr-1", req.AgreementID)
		assert.Equal(t, "250.00", req.Amount)
	})

	t.Run("misspelled field is rejected", func(t *testing.T) {
		var req RecordPaymentRequest
		err := codec.Unmarshal([]byte(`{"agreement_id":"agr-1","amout":"250.00"}`), &req)
		assert.ErrorContains(t, err, "amout")
	})

	t.Run("trailing data is rejected", func(t *testing.T) {
		var req dto.GetScheduleRequest
		err := codec.Unmarshal([]byte(`{"agreement_id":"agr-1"}{"agreement_id":"agr-2"}`), &req)
		assert.ErrorContains(t, err, "trailing data")
	})

	t.Run("empty message leaves defaults", func(t *testing.T) {
		var req ReconcileAllRequest
		require.NoError(t, codec.Unmarshal(nil, &req))
		assert.Empty(t, req.AsOf)
	})
}

func TestJSONCodec_MarshalRoundTrip(t *testing.T) {
	codec := jsonCodec{}
	data, err := codec.Marshal(&ReconcileRequest{AgreementID: "agr-1", AsOf: "2024-02-01"})
	require.NoError(t, err)

	var back ReconcileRequest
	require.NoError(t, codec.Unmarshal(data, &back))
	assert.Equal(t, ReconcileRequest{AgreementID: "agr-1", AsOf: "2024-02-01"}, back)
}
