package config

import "time"

// Config is the root configuration structure for the enricher.
type Config struct {
	// Proxy contains the listener and upstream settings of the HTTP host.
	Proxy ProxyConfig `yaml:"proxy"`

	// Rules declares the header and body rules for both directions. When
	// every list is empty the built-in rule set is used.
	Rules RulesConfig `yaml:"rules"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ProxyConfig contains configuration for the HTTP proxy server.
type ProxyConfig struct {
	// ListenAddress is the address and port for the proxy to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// UpstreamURL is the origin every exchange is forwarded to.
	// Example: "http://127.0.0.1:9000"
	// Required.
	UpstreamURL string `yaml:"upstream_url"`

	// ChunkSize is the number of bytes handed to the engine per body event.
	// Default: 32768
	ChunkSize int `yaml:"chunk_size"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. Zero means no timeout.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// TLS terminates TLS on the listener. Requests then report :scheme as
	// "https" to header rules.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains listener TLS settings.
type TLSConfig struct {
	// Enabled controls whether TLS is enabled.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the PEM certificate chain.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM private key.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the lowest TLS version accepted.
	// Options: "1.2", "1.3"
	// Default: "1.2"
	MinVersion string `yaml:"min_version"`

	// CipherSuites restricts the TLS 1.2 cipher suites by name. Empty uses
	// Go's defaults.
	CipherSuites []string `yaml:"cipher_suites"`

	// ReloadInterval is how often the certificate files are checked for
	// changes. Zero disables reloading.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`

	// ClientCAFile enables client certificate verification against the CAs
	// in this PEM file.
	ClientCAFile string `yaml:"client_ca_file"`

	// ClientAuth controls client certificates when ClientCAFile is set.
	// Options: "require", "request", "verify_if_given"
	// Default: "require"
	ClientAuth string `yaml:"client_auth"`
}

// RulesConfig declares the rule lists of a rule set.
type RulesConfig struct {
	// Watch reloads the rules when the configuration file changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// WatchDebounce is the quiet period after a file event before reloading.
	// Default: 100ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	RequestHeaders  []HeaderRuleSpec `yaml:"request_headers"`
	ResponseHeaders []HeaderRuleSpec `yaml:"response_headers"`
	RequestBody     []BodyRuleSpec   `yaml:"request_body"`
	ResponseBody    []BodyRuleSpec   `yaml:"response_body"`
}

// Empty reports whether no rule is declared in any list.
func (r RulesConfig) Empty() bool {
	return len(r.RequestHeaders) == 0 && len(r.ResponseHeaders) == 0 &&
		len(r.RequestBody) == 0 && len(r.ResponseBody) == 0
}

// HeaderRuleSpec declares one header rule. Which fields apply depends on Op:
//
//	add          name, value
//	add_computed name, func
//	remove       name
//	rewrite      name, func, arg
//	rewrite_if   name, value, new_value
//	echo_if      source, target, scope
//	add_if       guard, name, value, scope
type HeaderRuleSpec struct {
	Op       string `yaml:"op"`
	Name     string `yaml:"name"`
	Value    string `yaml:"value"`
	NewValue string `yaml:"new_value"`
	Source   string `yaml:"source"`
	Target   string `yaml:"target"`
	Guard    string `yaml:"guard"`
	Func     string `yaml:"func"`
	Arg      string `yaml:"arg"`

	// Scope is "same" (default) or "request".
	Scope string `yaml:"scope"`
}

// BodyRuleSpec declares one JSON body rule. Which fields apply depends on Op:
//
//	insert          key, value
//	insert_computed key, func, header
//	rewrite         key, func, arg
//	flag            source, func, arg, flag, flag_value
//	remove          keys
//	derive_count    from, into
type BodyRuleSpec struct {
	Op        string   `yaml:"op"`
	Key       string   `yaml:"key"`
	Value     any      `yaml:"value"`
	Func      string   `yaml:"func"`
	Arg       string   `yaml:"arg"`
	Header    string   `yaml:"header"`
	Source    string   `yaml:"source"`
	Flag      string   `yaml:"flag"`
	FlagValue any      `yaml:"flag_value"`
	Keys      []string `yaml:"keys"`
	From      string   `yaml:"from"`
	Into      string   `yaml:"into"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains probe endpoint configuration.
	Health HealthConfig `yaml:"health"`
}

// HealthConfig places the probe endpoints. They are answered by the enricher
// itself, so an upstream route with the same path is unreachable through it.
type HealthConfig struct {
	// PathPrefix is prepended to /health, /ready and /version.
	// Default: "" (served at the root)
	// Example: "/_enricher"
	PathPrefix string `yaml:"path_prefix"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "enricher"
	Namespace string `yaml:"namespace"`

	// BodySizeBuckets defines histogram buckets for body sizes (bytes).
	// Default: [64, 256, 1024, 4096, 16384, 65536, 262144, 1048576]
	BodySizeBuckets []float64 `yaml:"body_size_buckets"`

	// ReportSchedule is a cron spec for logging a metrics summary.
	// Empty disables the report.
	// Example: "@every 1m"
	ReportSchedule string `yaml:"report_schedule"`
}

// TracingConfig contains distributed tracing configuration. Each exchange
// becomes one server span, exported over OTLP/gRPC.
type TracingConfig struct {
	// Enabled controls whether spans are recorded and exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP/gRPC collector address.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export call.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// ServiceName is the service.name resource attribute.
	// Default: "enricher"
	ServiceName string `yaml:"service_name"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of new traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`
}
