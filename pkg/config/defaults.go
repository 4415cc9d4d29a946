package config

import "time"

// Default values for configuration fields.
const (
	// Proxy defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultChunkSize       = 32 * 1024
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// TLS defaults
	DefaultTLSMinVersion     = "1.2"
	DefaultTLSReloadInterval = 5 * time.Minute
	DefaultTLSClientAuth     = "require"

	// Rules defaults
	DefaultRulesWatch         = false
	DefaultRulesWatchDebounce = 100 * time.Millisecond

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "enricher"

	// Tracing defaults
	DefaultTracingTimeout     = 10 * time.Second
	DefaultTracingServiceName = "enricher"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
)

// DefaultBodySizeBuckets are the histogram buckets for body sizes in bytes.
var DefaultBodySizeBuckets = []float64{64, 256, 1024, 4096, 16384, 65536, 262144, 1048576}

// NewDefault returns a configuration holding only default values. Its
// upstream URL is empty, so it does not validate until one is set.
func NewDefault() *Config {
	cfg := &Config{}
	presetBoolDefaults(cfg)
	ApplyDefaults(cfg)
	return cfg
}

// presetBoolDefaults sets fields whose zero value is meaningful, such as
// booleans that default to true. It runs before YAML decoding so an explicit
// false or 0 in the file is kept.
func presetBoolDefaults(cfg *Config) {
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Proxy.TLS.ReloadInterval = DefaultTLSReloadInterval
	cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Proxy defaults
	if cfg.Proxy.ListenAddress == "" {
		cfg.Proxy.ListenAddress = DefaultListenAddress
	}
	if cfg.Proxy.ChunkSize == 0 {
		cfg.Proxy.ChunkSize = DefaultChunkSize
	}
	if cfg.Proxy.ReadTimeout == 0 {
		cfg.Proxy.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Proxy.WriteTimeout == 0 {
		cfg.Proxy.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Proxy.IdleTimeout == 0 {
		cfg.Proxy.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Proxy.ShutdownTimeout == 0 {
		cfg.Proxy.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Proxy.MaxHeaderBytes == 0 {
		cfg.Proxy.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	if cfg.Proxy.TLS.MinVersion == "" {
		cfg.Proxy.TLS.MinVersion = DefaultTLSMinVersion
	}
	if cfg.Proxy.TLS.ClientCAFile != "" && cfg.Proxy.TLS.ClientAuth == "" {
		cfg.Proxy.TLS.ClientAuth = DefaultTLSClientAuth
	}

	// Rules defaults
	if cfg.Rules.WatchDebounce == 0 {
		cfg.Rules.WatchDebounce = DefaultRulesWatchDebounce
	}
	for i := range cfg.Rules.RequestHeaders {
		applyHeaderRuleDefaults(&cfg.Rules.RequestHeaders[i])
	}
	for i := range cfg.Rules.ResponseHeaders {
		applyHeaderRuleDefaults(&cfg.Rules.ResponseHeaders[i])
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.BodySizeBuckets) == 0 {
		cfg.Telemetry.Metrics.BodySizeBuckets = append([]float64(nil), DefaultBodySizeBuckets...)
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
}

func applyHeaderRuleDefaults(spec *HeaderRuleSpec) {
	if spec.Scope == "" {
		spec.Scope = ScopeSame
	}
}
