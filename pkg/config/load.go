package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "ENRICHER_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides
// for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Override adjusts a loaded configuration before it is validated. Command
// line flags are applied this way so they outrank both the file and the
// environment.
type Override func(*Config)

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention ENRICHER_SECTION_FIELD (e.g., ENRICHER_PROXY_UPSTREAM_URL) and
// always take precedence over the file.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Apply overrides, in order
// 5. Validate final configuration
func LoadConfigWithEnvOverrides(path string, overrides ...Override) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	applyEnvOverrides(cfg)
	for _, override := range overrides {
		override(cfg)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// parse decodes YAML into a Config with defaults applied. An empty document
// yields the defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{}
	presetBoolDefaults(cfg)

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Proxy overrides
	if val := os.Getenv(EnvPrefix + "PROXY_LISTEN_ADDRESS"); val != "" {
		cfg.Proxy.ListenAddress = val
	}
	if val := os.Getenv(EnvPrefix + "PROXY_UPSTREAM_URL"); val != "" {
		cfg.Proxy.UpstreamURL = val
	}
	if val := os.Getenv(EnvPrefix + "PROXY_CHUNK_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Proxy.ChunkSize = i
		}
	}
	if val := os.Getenv(EnvPrefix + "PROXY_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Proxy.ReadTimeout = d
		}
	}
	if val := os.Getenv(EnvPrefix + "PROXY_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Proxy.WriteTimeout = d
		}
	}
	if val := os.Getenv(EnvPrefix + "PROXY_IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Proxy.IdleTimeout = d
		}
	}
	if val := os.Getenv(EnvPrefix + "PROXY_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Proxy.ShutdownTimeout = d
		}
	}
	if val := os.Getenv(EnvPrefix + "PROXY_MAX_HEADER_BYTES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Proxy.MaxHeaderBytes = i
		}
	}

	if val := os.Getenv(EnvPrefix + "PROXY_TLS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Proxy.TLS.Enabled = b
		}
	}
	if val := os.Getenv(EnvPrefix + "PROXY_TLS_CERT_FILE"); val != "" {
		cfg.Proxy.TLS.CertFile = val
	}
	if val := os.Getenv(EnvPrefix + "PROXY_TLS_KEY_FILE"); val != "" {
		cfg.Proxy.TLS.KeyFile = val
	}
	if val := os.Getenv(EnvPrefix + "PROXY_TLS_CLIENT_CA_FILE"); val != "" {
		cfg.Proxy.TLS.ClientCAFile = val
		if cfg.Proxy.TLS.ClientAuth == "" {
			cfg.Proxy.TLS.ClientAuth = DefaultTLSClientAuth
		}
	}

	// Rules overrides
	if val := os.Getenv(EnvPrefix + "RULES_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Rules.Watch = b
		}
	}

	// Telemetry overrides
	if val := os.Getenv(EnvPrefix + "TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv(EnvPrefix + "TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv(EnvPrefix + "TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv(EnvPrefix + "TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
	if val := os.Getenv(EnvPrefix + "TELEMETRY_METRICS_REPORT_SCHEDULE"); val != "" {
		cfg.Telemetry.Metrics.ReportSchedule = val
	}
	if val := os.Getenv(EnvPrefix + "TELEMETRY_HEALTH_PATH_PREFIX"); val != "" {
		cfg.Telemetry.Health.PathPrefix = val
	}
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}
