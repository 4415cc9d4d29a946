package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "proxy.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, ValidateRules(&cfg.Rules)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// validateProxy validates proxy configuration.
func validateProxy(cfg *ProxyConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "proxy.listen_address",
			Message: "listen address is required",
		})
	}

	if cfg.UpstreamURL == "" {
		errs = append(errs, FieldError{
			Field:   "proxy.upstream_url",
			Message: "upstream URL is required",
		})
	} else if u, err := url.Parse(cfg.UpstreamURL); err != nil {
		errs = append(errs, FieldError{
			Field:   "proxy.upstream_url",
			Message: fmt.Sprintf("invalid URL format: %v", err),
		})
	} else if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "proxy.upstream_url",
			Message: fmt.Sprintf("upstream URL %q must be an absolute http or https URL", cfg.UpstreamURL),
		})
	}

	if cfg.ChunkSize <= 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.chunk_size",
			Message: "chunk size must be positive",
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}

	if cfg.TLS.Enabled {
		errs = append(errs, validateTLS(&cfg.TLS)...)
	}

	return errs
}

func validateTLS(cfg *TLSConfig) []FieldError {
	var errs []FieldError

	errs = append(errs, required("proxy.tls", "cert_file", cfg.CertFile)...)
	errs = append(errs, required("proxy.tls", "key_file", cfg.KeyFile)...)

	if cfg.MinVersion != "1.2" && cfg.MinVersion != "1.3" {
		errs = append(errs, FieldError{
			Field:   "proxy.tls.min_version",
			Message: fmt.Sprintf("invalid TLS version %q: must be '1.2' or '1.3'", cfg.MinVersion),
		})
	}
	if cfg.ReloadInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.tls.reload_interval",
			Message: "reload interval must be non-negative",
		})
	}
	if cfg.ClientCAFile != "" {
		switch cfg.ClientAuth {
		case "require", "request", "verify_if_given":
		default:
			errs = append(errs, FieldError{
				Field:   "proxy.tls.client_auth",
				Message: fmt.Sprintf("invalid client auth %q: must be 'require', 'request', or 'verify_if_given'", cfg.ClientAuth),
			})
		}
	}

	return errs
}

// ValidateRules checks every rule spec for a known op, the fields that op
// needs, and known function names. It is exported so rule files can be
// checked without a full configuration.
func ValidateRules(cfg *RulesConfig) []FieldError {
	var errs []FieldError

	if cfg.WatchDebounce < 0 {
		errs = append(errs, FieldError{
			Field:   "rules.watch_debounce",
			Message: "watch debounce must be non-negative",
		})
	}

	for i, spec := range cfg.RequestHeaders {
		errs = append(errs, validateHeaderRule(fmt.Sprintf("rules.request_headers[%d]", i), spec)...)
	}
	for i, spec := range cfg.ResponseHeaders {
		errs = append(errs, validateHeaderRule(fmt.Sprintf("rules.response_headers[%d]", i), spec)...)
	}
	for i, spec := range cfg.RequestBody {
		errs = append(errs, validateBodyRule(fmt.Sprintf("rules.request_body[%d]", i), spec)...)
	}
	for i, spec := range cfg.ResponseBody {
		errs = append(errs, validateBodyRule(fmt.Sprintf("rules.response_body[%d]", i), spec)...)
	}

	return errs
}

func required(prefix, field, value string) []FieldError {
	if value != "" {
		return nil
	}
	return []FieldError{{
		Field:   prefix + "." + field,
		Message: field + " is required",
	}}
}

func knownFunc(prefix, name string, known map[string]bool) []FieldError {
	if name == "" {
		return []FieldError{{Field: prefix + ".func", Message: "func is required"}}
	}
	if !known[name] {
		return []FieldError{{
			Field:   prefix + ".func",
			Message: fmt.Sprintf("unknown function %q", name),
		}}
	}
	return nil
}

func validateHeaderRule(prefix string, spec HeaderRuleSpec) []FieldError {
	var errs []FieldError

	switch spec.Op {
	case HeaderOpAdd:
		errs = append(errs, required(prefix, "name", spec.Name)...)
	case HeaderOpAddComputed:
		errs = append(errs, required(prefix, "name", spec.Name)...)
		errs = append(errs, knownFunc(prefix, spec.Func, headerComputedFuncs)...)
	case HeaderOpRemove:
		errs = append(errs, required(prefix, "name", spec.Name)...)
	case HeaderOpRewrite:
		errs = append(errs, required(prefix, "name", spec.Name)...)
		errs = append(errs, knownFunc(prefix, spec.Func, headerRewriteFuncs)...)
	case HeaderOpRewriteIf:
		errs = append(errs, required(prefix, "name", spec.Name)...)
	case HeaderOpEchoIf:
		errs = append(errs, required(prefix, "source", spec.Source)...)
		errs = append(errs, required(prefix, "target", spec.Target)...)
	case HeaderOpAddIf:
		errs = append(errs, required(prefix, "guard", spec.Guard)...)
		errs = append(errs, required(prefix, "name", spec.Name)...)
	case "":
		return []FieldError{{Field: prefix + ".op", Message: "op is required"}}
	default:
		return []FieldError{{Field: prefix + ".op", Message: fmt.Sprintf("unknown header op %q", spec.Op)}}
	}

	if spec.Scope != "" && spec.Scope != ScopeSame && spec.Scope != ScopeRequest {
		errs = append(errs, FieldError{
			Field:   prefix + ".scope",
			Message: fmt.Sprintf("invalid scope %q: must be 'same' or 'request'", spec.Scope),
		})
	}

	return errs
}

func validateBodyRule(prefix string, spec BodyRuleSpec) []FieldError {
	var errs []FieldError

	switch spec.Op {
	case BodyOpInsert:
		errs = append(errs, required(prefix, "key", spec.Key)...)
	case BodyOpInsertComputed:
		errs = append(errs, required(prefix, "key", spec.Key)...)
		errs = append(errs, knownFunc(prefix, spec.Func, bodyComputedFuncs)...)
		if spec.Func == FuncRequestHeader {
			errs = append(errs, required(prefix, "header", spec.Header)...)
		}
	case BodyOpRewrite:
		errs = append(errs, required(prefix, "key", spec.Key)...)
		errs = append(errs, knownFunc(prefix, spec.Func, bodyRewriteFuncs)...)
	case BodyOpFlag:
		errs = append(errs, required(prefix, "source", spec.Source)...)
		errs = append(errs, required(prefix, "flag", spec.Flag)...)
		errs = append(errs, knownFunc(prefix, spec.Func, bodyPredicateFuncs)...)
		if spec.Func == FuncContains {
			errs = append(errs, required(prefix, "arg", spec.Arg)...)
		}
	case BodyOpRemove:
		if len(spec.Keys) == 0 {
			errs = append(errs, FieldError{Field: prefix + ".keys", Message: "at least one key is required"})
		}
	case BodyOpDeriveCount:
		errs = append(errs, required(prefix, "from", spec.From)...)
		errs = append(errs, required(prefix, "into", spec.Into)...)
	case "":
		errs = append(errs, FieldError{Field: prefix + ".op", Message: "op is required"})
	default:
		errs = append(errs, FieldError{Field: prefix + ".op", Message: fmt.Sprintf("unknown body op %q", spec.Op)})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with '/' when metrics are enabled",
		})
	}

	for i := 1; i < len(cfg.Metrics.BodySizeBuckets); i++ {
		if cfg.Metrics.BodySizeBuckets[i] <= cfg.Metrics.BodySizeBuckets[i-1] {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.body_size_buckets",
				Message: "buckets must be strictly increasing",
			})
			break
		}
	}

	if cfg.Metrics.ReportSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Metrics.ReportSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.report_schedule",
				Message: fmt.Sprintf("invalid cron schedule: %v", err),
			})
		}
	}

	if cfg.Tracing.Enabled {
		errs = append(errs, validateTracing(&cfg.Tracing)...)
	}

	if p := cfg.Health.PathPrefix; p != "" && (!strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/")) {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.path_prefix",
			Message: fmt.Sprintf("invalid path prefix %q: must start with '/' and not end with '/'", p),
		})
	}

	return errs
}

func validateTracing(cfg *TracingConfig) []FieldError {
	var errs []FieldError

	errs = append(errs, required("telemetry.tracing", "endpoint", cfg.Endpoint)...)

	switch cfg.Sampler {
	case "always", "never":
	case "ratio":
		if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sample_ratio",
				Message: fmt.Sprintf("sample ratio must be between 0.0 and 1.0, got %g", cfg.SampleRatio),
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Sampler),
		})
	}

	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.timeout",
			Message: "timeout must be non-negative",
		})
	}

	return errs
}
