// Package metrics provides Prometheus metrics for the enricher.
//
// # Metrics
//
//   - enricher_exchanges_total: exchanges started
//   - enricher_body_transforms_total{direction,outcome}: finalized bodies by
//     outcome (transformed, pass_through, non_object)
//   - enricher_header_rules_applied_total{direction}: header rules that
//     changed a header set
//   - enricher_aborted_buffers_total{direction}: bodies dropped before end of
//     stream
//   - enricher_body_size_bytes{direction,stage}: body sizes before (in) and
//     after (out) transformation
//   - enricher_http_requests_total{method,code}: requests served
//   - enricher_http_request_duration_seconds{method}: request latency
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	ex := exchange.New(host, rules, exchange.WithObserver(collector))
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// A Reporter logs a summary of the counters on a cron schedule.
package metrics
