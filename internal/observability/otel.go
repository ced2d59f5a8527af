package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// TelemetryConfig drives trace and carrier metric export for the quote server.
type TelemetryConfig struct {
	Enabled           bool
	Environment       string
	QuoteMode         string
	OTLPEndpoint      string
	OTLPTraceHeaders  map[string]string
	OTLPMetricHeaders map[string]string
	ServiceName       string
	ServiceVer        string
	SamplingRatio     float64
	MetricsConsole    bool
	MetricInterval    time.Duration
	// CarrierTimeout caps the carrier latency histogram so calls cut off by the
	// per-carrier deadline land in the last finite bucket.
	CarrierTimeout time.Duration
}

type shutdownFunc func(context.Context) error

// SetupTelemetry installs the global tracer and meter providers used by the
// webhook middleware and the carrier fan-out. With telemetry disabled the
// globals stay no-op and RecordCarrierCall drops its measurements.
func SetupTelemetry(ctx context.Context, log *slog.Logger, cfg TelemetryConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	res, err := quoteResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}

	var shutdowns []shutdownFunc
	tracerProvider, err := newTracerProvider(ctx, cfg, res)
	if err != nil {
		return nil, err
	}
	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
		shutdowns = append(shutdowns, tracerProvider.Shutdown)
	}

	readers, err := carrierMetricReaders(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if len(readers) > 0 {
		meterProvider := newCarrierMeterProvider(res, cfg.CarrierTimeout, readers...)
		otel.SetMeterProvider(meterProvider)
		shutdowns = append(shutdowns, meterProvider.Shutdown)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info("Telemetry enabled",
		"service", cfg.ServiceName,
		"mode", cfg.QuoteMode,
		"traces", tracerProvider != nil,
		"metric_readers", len(readers),
		"metric_interval", cfg.MetricInterval,
	)

	return func(shutdownCtx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](shutdownCtx))
		}
		return errors.Join(errs...)
	}, nil
}

func quoteResource(ctx context.Context, cfg TelemetryConfig) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVer),
	}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironmentName(cfg.Environment))
	}
	if cfg.QuoteMode != "" {
		attrs = append(attrs, attribute.String("pajucara.quote_mode", cfg.QuoteMode))
	}
	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(attrs...),
	)
}

// newTracerProvider returns nil when no trace exporter is configured.
func newTracerProvider(ctx context.Context, cfg TelemetryConfig, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	if cfg.OTLPEndpoint == "" && len(cfg.OTLPTraceHeaders) == 0 {
		return nil, nil
	}
	var options []otlptracehttp.Option
	if cfg.OTLPEndpoint != "" {
		options = append(options, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
	}
	if len(cfg.OTLPTraceHeaders) > 0 {
		options = append(options, otlptracehttp.WithHeaders(cfg.OTLPTraceHeaders))
	}
	exporter, err := otlptracehttp.New(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("create otlp trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithSampler(configuredSampler(cfg.SamplingRatio)),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

func carrierMetricReaders(ctx context.Context, cfg TelemetryConfig) ([]sdkmetric.Reader, error) {
	interval := cfg.MetricInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	var readers []sdkmetric.Reader
	if cfg.OTLPEndpoint != "" {
		options := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(cfg.OTLPEndpoint)}
		if len(cfg.OTLPMetricHeaders) > 0 {
			options = append(options, otlpmetrichttp.WithHeaders(cfg.OTLPMetricHeaders))
		}
		exporter, err := otlpmetrichttp.New(ctx, options...)
		if err != nil {
			return nil, fmt.Errorf("create otlp metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
	}
	if cfg.MetricsConsole {
		exporter, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
	}
	return readers, nil
}

func newCarrierMeterProvider(res *resource.Resource, carrierTimeout time.Duration, readers ...sdkmetric.Reader) *sdkmetric.MeterProvider {
	options := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithView(carrierDurationView(carrierTimeout)),
	}
	for _, reader := range readers {
		options = append(options, sdkmetric.WithReader(reader))
	}
	return sdkmetric.NewMeterProvider(options...)
}

// carrierDurationView replaces the SDK default buckets, which stop at 10s and
// are too coarse below 100ms, with a ladder that ends at the carrier timeout.
func carrierDurationView(carrierTimeout time.Duration) sdkmetric.View {
	return sdkmetric.NewView(
		sdkmetric.Instrument{Name: carrierDurationInstrument, Scope: carrierScope()},
		sdkmetric.Stream{
			Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
				Boundaries: carrierDurationBuckets(carrierTimeout),
			},
		},
	)
}

var baseDurationBuckets = []float64{25, 50, 100, 250, 500, 1000, 2000, 4000}

func carrierDurationBuckets(carrierTimeout time.Duration) []float64 {
	limit := float64(carrierTimeout.Milliseconds())
	if limit <= 0 {
		return append([]float64(nil), baseDurationBuckets...)
	}
	buckets := make([]float64, 0, len(baseDurationBuckets)+1)
	for _, bound := range baseDurationBuckets {
		if bound >= limit {
			break
		}
		buckets = append(buckets, bound)
	}
	return append(buckets, limit)
}

// NewOutboundClient returns the HTTP client used for carrier calls. When traced
// is set the transport emits client spans and propagates trace context.
func NewOutboundClient(timeout time.Duration, traced bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 8
	client := &http.Client{Timeout: timeout, Transport: transport}
	if traced {
		client.Transport = otelhttp.NewTransport(transport,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "carrier " + r.Method + " " + r.URL.Host
			}),
		)
	}
	return client
}

func configuredSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}
