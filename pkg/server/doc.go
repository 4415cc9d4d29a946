// Package server ties the proxy handler, probes and metrics endpoint together
// behind one listener and manages its lifecycle.
//
// # Routes
//
//   - GET /health: liveness probe
//   - GET /ready: readiness probe (config, rules, upstream)
//   - GET /version: build information
//   - GET telemetry.metrics.path: Prometheus metrics, when enabled
//   - everything else: the enricher proxy
//
// The probe and metrics paths shadow upstream routes of the same name. Move
// the probes with telemetry.health.path_prefix and the metrics endpoint with
// telemetry.metrics.path when the upstream serves them.
//
// # Middleware Chain
//
// Requests pass through, outermost first: Recovery, RequestID, Logging,
// Timeout. The request ID is assigned before the proxy sees the request, so
// body rules can copy it.
//
// # Graceful Shutdown
//
// Start returns after cancelling its context or calling Stop. The listener
// stops accepting connections and in-flight exchanges get
// proxy.shutdown_timeout to finish.
//
//	srv := server.NewServer(cfg, server.Options{Proxy: handler, Collector: collector})
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// # TLS
//
//	proxy:
//	  tls:
//	    enabled: true
//	    cert_file: "/path/to/cert.pem"
//	    key_file: "/path/to/key.pem"
//	    min_version: "1.3"
//
// The certificate is served through the security/tls reloader, so renewed
// files are picked up every reload_interval while the server runs.
package server
