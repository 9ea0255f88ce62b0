package observability

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetrics_ExposesEngineCounters(t *testing.T) {
	provider, handler, err := InitMetrics(MetricsConfig{ServiceName: "leasingd", Registry: prometheus.NewRegistry()})
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := NewEngineMetrics(provider.Meter("leasing"))
	require.NoError(t, err)

	m.RecordReconciliation(context.Background(), "agreement", 3, 1, 0, 20*time.Millisecond)
	m.RecordConflict(context.Background())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)

	out := string(body)
	assert.True(t, strings.Contains(out, "leasing_payment_facts_applied_total"), "applied counter missing:\n%s", out)
	assert.True(t, strings.Contains(out, "leasing_reconciliation_conflicts_total"), "conflicts counter missing:\n%s", out)
}

func TestEngineMetrics_NilIsNoop(t *testing.T) {
	var m *EngineMetrics
	assert.NotPanics(t, func() {
		m.RecordReconciliation(context.Background(), "all", 1, 1, 1, time.Second)
		m.RecordConflict(context.Background())
	})
}
