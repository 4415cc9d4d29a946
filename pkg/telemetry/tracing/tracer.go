package tracing

import (
	"context"
	"fmt"
	"net/http"

	"mercator-hq/enricher/pkg/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc/credentials/insecure"
)

const instrumentationName = "mercator-hq/enricher"

// Tracer starts one server span per exchange and carries W3C trace context
// across the proxy hop.
type Tracer struct {
	tracer     trace.Tracer
	provider   *sdktrace.TracerProvider
	propagator propagation.TextMapPropagator
	enabled    bool
}

// New creates a Tracer from cfg. When tracing is disabled the tracer is a
// noop that still forwards incoming trace context untouched.
//
// An enabled tracer exports over OTLP/gRPC, registers itself as the global
// provider and must be shut down before exit:
//
//	defer tracer.Shutdown(context.Background())
func New(cfg config.TracingConfig, version string) (*Tracer, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}

	exporter, err := newOTLPExporter(cfg)
	if err != nil {
		return nil, err
	}

	t, err := newTracer(cfg, version, sdktrace.WithBatcher(exporter))
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(t.provider)
	otel.SetTextMapPropagator(t.propagator)
	return t, nil
}

// NewWithExporter creates an enabled Tracer that exports synchronously to
// exporter. It does not touch the global provider.
func NewWithExporter(cfg config.TracingConfig, version string, exporter sdktrace.SpanExporter) (*Tracer, error) {
	return newTracer(cfg, version, sdktrace.WithSyncer(exporter))
}

// Noop returns a tracer that records nothing.
func Noop() *Tracer {
	return &Tracer{
		tracer:     noop.NewTracerProvider().Tracer(instrumentationName),
		propagator: newPropagator(),
	}
}

func newTracer(cfg config.TracingConfig, version string, export sdktrace.TracerProviderOption) (*Tracer, error) {
	sampler, err := createSampler(cfg.Sampler, cfg.SampleRatio)
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = config.DefaultTracingServiceName
	}
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		export,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	return &Tracer{
		tracer:     provider.Tracer(instrumentationName),
		provider:   provider,
		propagator: newPropagator(),
		enabled:    true,
	}, nil
}

func newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

// newOTLPExporter does not block on the collector connection; spans queue
// in the batcher until it is reachable.
func newOTLPExporter(cfg config.TracingConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlptracegrpc.WithTimeout(cfg.Timeout))
	}

	exporter, err := otlptrace.New(context.Background(), otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return exporter, nil
}

// StartExchange continues the trace carried by r, if any, and starts the
// server span of one exchange.
func (t *Tracer) StartExchange(ctx context.Context, r *http.Request, exchangeID string) (context.Context, trace.Span) {
	ctx = t.propagator.Extract(ctx, propagation.HeaderCarrier(r.Header))

	attrs := []attribute.KeyValue{
		semconv.HTTPMethodKey.String(r.Method),
		attribute.String(AttrPath, r.URL.Path),
		attribute.String(AttrExchangeID, exchangeID),
	}
	if id := r.Header.Get("X-Request-ID"); id != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, id))
	}

	return t.tracer.Start(ctx, "exchange "+r.Method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
}

// Inject writes the trace context of ctx into headers, replacing any
// traceparent the client sent.
func (t *Tracer) Inject(ctx context.Context, headers http.Header) {
	t.propagator.Inject(ctx, propagation.HeaderCarrier(headers))
}

// Shutdown flushes pending spans. It is a no-op for a disabled tracer.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// Enabled reports whether spans are recorded.
func (t *Tracer) Enabled() bool {
	return t.enabled
}

// TraceID returns the trace ID in ctx, or "" without a valid span.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
