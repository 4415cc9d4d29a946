// Package tracing records each exchange as an OpenTelemetry server span.
//
// # Spans
//
// The proxy starts one span per exchange, named "exchange <METHOD>". It
// carries the exchange ID, the request ID and the path, and gets the
// upstream status code when the response arrives. Engine reports become
// span events:
//
//   - headers_applied: direction and number of header changes
//   - body_finalized: direction, outcome, bytes in and out
//   - buffer_released: direction and bytes held
//
// # Trace Context Propagation
//
// Incoming traceparent and baggage headers (W3C Trace Context) parent the
// exchange span. The request forwarded upstream carries the exchange span as
// its parent:
//
//	traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//
// # Sampling
//
// Samplers are parent-based. Without a sampled parent the configured
// strategy decides:
//   - always: every exchange
//   - never: none
//   - ratio: sample_ratio of trace IDs
//
// # Configuration
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: localhost:4317
//	    insecure: true
//	    sampler: ratio
//	    sample_ratio: 0.1
//
// Spans are exported over OTLP/gRPC:
//
//	tracer, err := tracing.New(cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
package tracing
