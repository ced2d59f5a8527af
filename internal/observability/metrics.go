package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/instrumentation"
)

const (
	meterName                 = "pajucara/quotes"
	carrierDurationInstrument = "pajucara.carrier.duration"
)

func carrierScope() instrumentation.Scope {
	return instrumentation.Scope{Name: meterName}
}

// Carrier call outcomes.
const (
	OutcomeQuoted  = "quoted"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomePanic   = "panic"
)

type carrierInstruments struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
	quotes   metric.Int64Counter
}

var (
	instrumentsOnce sync.Once
	instruments     carrierInstruments
)

// The global meter provider delegates to the SDK provider once it is installed,
// so instruments created before SetupTelemetry still export.
func carrierMetrics() carrierInstruments {
	instrumentsOnce.Do(func() {
		meter := otel.Meter(meterName)
		instruments.calls, _ = meter.Int64Counter("pajucara.carrier.calls",
			metric.WithDescription("Carrier quote calls by outcome."))
		instruments.duration, _ = meter.Float64Histogram(carrierDurationInstrument,
			metric.WithDescription("Carrier quote call latency."),
			metric.WithUnit("ms"))
		instruments.quotes, _ = meter.Int64Counter("pajucara.carrier.quotes",
			metric.WithDescription("Usable quotes returned by carriers."))
	})
	return instruments
}

// RecordCarrierCall records one carrier call outcome.
func RecordCarrierCall(ctx context.Context, carrier, outcome string, elapsed time.Duration, quotes int) {
	m := carrierMetrics()
	attrs := metric.WithAttributes(
		attribute.String("carrier", carrier),
		attribute.String("outcome", outcome),
	)
	if m.calls != nil {
		m.calls.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	}
	if m.quotes != nil && quotes > 0 {
		m.quotes.Add(ctx, int64(quotes), metric.WithAttributes(attribute.String("carrier", carrier)))
	}
}
