package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RunMetrics holds the instruments emitted once per save/restore run.
// All methods are no-ops when telemetry is disabled (noop meter provider).
type RunMetrics struct {
	entityDuration metric.Float64Histogram
	recordsTotal   metric.Int64Counter
	failuresTotal  metric.Int64Counter
}

// NewRunMetrics builds the run instruments on the global meter.
func NewRunMetrics() (*RunMetrics, error) {
	m := Meter("")

	dur, err := m.Float64Histogram("ghvault.entity.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Wall time spent processing one entity"))
	if err != nil {
		return nil, err
	}
	records, err := m.Int64Counter("ghvault.records.persisted",
		metric.WithDescription("Records persisted or created per entity"))
	if err != nil {
		return nil, err
	}
	failures, err := m.Int64Counter("ghvault.entity.failures",
		metric.WithDescription("Entities that finished in failure"))
	if err != nil {
		return nil, err
	}
	return &RunMetrics{entityDuration: dur, recordsTotal: records, failuresTotal: failures}, nil
}

// RecordEntity reports one entity result.
func (rm *RunMetrics) RecordEntity(ctx context.Context, mode, entity string, seconds float64, persisted int, failed bool) {
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("entity", entity),
	)
	rm.entityDuration.Record(ctx, seconds, attrs)
	rm.recordsTotal.Add(ctx, int64(persisted), attrs)
	if failed {
		rm.failuresTotal.Add(ctx, 1, attrs)
	}
}
