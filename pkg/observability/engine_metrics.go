package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EngineMetrics records reconciliation outcomes. A nil *EngineMetrics is a
// valid no-op recorder.
type EngineMetrics struct {
	runs      metric.Int64Counter
	applied   metric.Int64Counter
	skipped   metric.Int64Counter
	failed    metric.Int64Counter
	conflicts metric.Int64Counter
	duration  metric.Float64Histogram
}

// NewEngineMetrics creates the engine instruments on meter.
func NewEngineMetrics(meter metric.Meter) (*EngineMetrics, error) {
	m := &EngineMetrics{}
	var err error

	if m.runs, err = meter.Int64Counter("leasing_reconciliation_runs_total",
		metric.WithDescription("Reconciliation runs by scope")); err != nil {
		return nil, fmt.Errorf("observability: runs counter: %w", err)
	}
	if m.applied, err = meter.Int64Counter("leasing_payment_facts_applied_total",
		metric.WithDescription("Payment facts applied to a schedule")); err != nil {
		return nil, fmt.Errorf("observability: applied counter: %w", err)
	}
	if m.skipped, err = meter.Int64Counter("leasing_payment_facts_skipped_total",
		metric.WithDescription("Payment facts skipped during reconciliation")); err != nil {
		return nil, fmt.Errorf("observability: skipped counter: %w", err)
	}
	if m.failed, err = meter.Int64Counter("leasing_reconciliation_failures_total",
		metric.WithDescription("Facts or agreements that failed reconciliation")); err != nil {
		return nil, fmt.Errorf("observability: failed counter: %w", err)
	}
	if m.conflicts, err = meter.Int64Counter("leasing_reconciliation_conflicts_total",
		metric.WithDescription("Per-agreement write contention events")); err != nil {
		return nil, fmt.Errorf("observability: conflicts counter: %w", err)
	}
	if m.duration, err = meter.Float64Histogram("leasing_reconciliation_duration_seconds",
		metric.WithDescription("Reconciliation wall time"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("observability: duration histogram: %w", err)
	}
	return m, nil
}

// RecordReconciliation records one reconciliation run.
func (m *EngineMetrics) RecordReconciliation(ctx context.Context, scope string, applied, skipped, failed int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("scope", scope))
	m.runs.Add(ctx, 1, attrs)
	m.applied.Add(ctx, int64(applied), attrs)
	m.skipped.Add(ctx, int64(skipped), attrs)
	m.failed.Add(ctx, int64(failed), attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordConflict records a per-agreement contention event.
func (m *EngineMetrics) RecordConflict(ctx context.Context) {
	if m == nil {
		return
	}
	m.conflicts.Add(ctx, 1)
}
