// Package config loads, validates and holds the enricher configuration.
//
// Configuration comes from a YAML file with environment variable overrides:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("enricher.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention ENRICHER_SECTION_FIELD:
//
//   - ENRICHER_PROXY_UPSTREAM_URL overrides proxy.upstream_url
//   - ENRICHER_PROXY_CHUNK_SIZE overrides proxy.chunk_size
//   - ENRICHER_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//   - ENRICHER_TELEMETRY_TRACING_ENDPOINT overrides telemetry.tracing.endpoint
//
// Values are applied in this order, later overriding earlier: defaults, the
// YAML file, environment variables. Validation runs last and fails fast.
//
// # Rules
//
// The rules section declares header and body rules per direction. Each entry
// names an op and the fields that op needs; unknown ops and unknown function
// names fail validation. An empty rules section selects the built-in rule set.
//
//	rules:
//	  watch: true
//	  request_headers:
//	    - op: add
//	      name: X-Custom-Header
//	      value: processed-by-wasm
//	    - op: rewrite
//	      name: user-agent
//	      func: prefix
//	      arg: Transformed-
//	  response_body:
//	    - op: insert
//	      key: version
//	      value: v1.0.0
//	    - op: derive_count
//	      from: items
//	      into: total_count
//
// # TLS and Tracing
//
// TLS settings are only validated when proxy.tls.enabled is set, tracing
// settings only when telemetry.tracing.enabled is set:
//
//	proxy:
//	  tls:
//	    enabled: true
//	    cert_file: /etc/enricher/cert.pem
//	    key_file: /etc/enricher/key.pem
//	    min_version: "1.3"
//	    client_ca_file: /etc/enricher/clients.pem
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: localhost:4317
//	    sampler: ratio
//	    sample_ratio: 0.1
//	  health:
//	    path_prefix: /_enricher
//
// # Store
//
// A Store holds the live configuration behind an atomic pointer. Reload
// replaces it only when the new file loads and validates; listeners
// registered with OnChange then see the new snapshot. FileWatcher drives
// Reload from filesystem events when rules.watch is set.
package config
