// Package telemetry groups the enricher's observability packages.
//
// # Components
//
//   - logging: slog setup and exchange-scoped loggers
//   - metrics: Prometheus collector for exchanges, engine outcomes and HTTP
//     requests, plus a scheduled summary reporter
//   - tracing: OpenTelemetry span per exchange with W3C trace context
//   - health: liveness, readiness and version endpoints
//
// # Wiring
//
// The run command builds each component from the telemetry section of the
// configuration:
//
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
//	  metrics:
//	    enabled: true
//	    path: /metrics
//	  tracing:
//	    enabled: true
//	    endpoint: localhost:4317
//
// The metrics collector and the tracing span observer both receive the
// engine's exchange reports.
package telemetry
