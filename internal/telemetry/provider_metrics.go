package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const providerMeterName = "github.com/topicrelay/topicrelay/internal/telemetry"

// ProviderMetrics holds metrics for push provider calls.
type ProviderMetrics struct {
	callDuration metric.Float64Histogram
	callTotal    metric.Int64Counter
}

// NewProviderMetrics creates metrics for monitoring push provider calls
// on the global meter provider.
func NewProviderMetrics() (*ProviderMetrics, error) {
	return NewProviderMetricsWithMeter(otel.Meter(providerMeterName))
}

// NewProviderMetricsWithMeter creates provider metrics on the given meter.
func NewProviderMetricsWithMeter(meter metric.Meter) (*ProviderMetrics, error) {
	callDuration, err := meter.Float64Histogram(
		"push.provider.call.duration",
		metric.WithDescription("Duration of push provider calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	callTotal, err := meter.Int64Counter(
		"push.provider.call.total",
		metric.WithDescription("Total number of push provider calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		callDuration: callDuration,
		callTotal:    callTotal,
	}, nil
}

// RecordCall records one provider call. A nil receiver is a no-op.
func (m *ProviderMetrics) RecordCall(ctx context.Context, provider, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
		attribute.Bool("error", err != nil),
	}

	// Detach from request cancellation so late calls are still recorded.
	ctx = context.WithoutCancel(ctx)
	m.callDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.callTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}
