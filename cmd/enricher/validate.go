package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"mercator-hq/enricher/pkg/cli"
	"mercator-hq/enricher/pkg/config"
	securitytls "mercator-hq/enricher/pkg/security/tls"
	"mercator-hq/enricher/pkg/transform/ruleset"
)

var validateFlags struct {
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file and its rules",
	Long: `Load a configuration file, apply defaults and environment overrides,
validate every field and build the rule sets it declares. When TLS is
enabled the key pair and client CA are loaded too.

Every problem is reported, not just the first one.

Examples:
  # Validate the default config file
  enricher validate

  # Validate a specific file with JSON output
  enricher validate --config /etc/enricher/config.yaml --format json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

// validationReport is the result of the validate command.
type validationReport struct {
	File   string         `json:"file"`
	Valid  bool           `json:"valid"`
	Errors []fieldProblem `json:"errors,omitempty"`
	Rules  *ruleCounts    `json:"rules,omitempty"`
}

type fieldProblem struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type ruleCounts struct {
	Builtin         bool `json:"builtin"`
	RequestHeaders  int  `json:"request_headers"`
	ResponseHeaders int  `json:"response_headers"`
	RequestBody     int  `json:"request_body"`
	ResponseBody    int  `json:"response_body"`
}

func (r validationReport) String() string {
	var b strings.Builder
	if !r.Valid {
		fmt.Fprintf(&b, "✗ %s is invalid\n", r.File)
		for _, e := range r.Errors {
			if e.Field != "" {
				fmt.Fprintf(&b, "  - %s: %s\n", e.Field, e.Message)
			} else {
				fmt.Fprintf(&b, "  - %s\n", e.Message)
			}
		}
		return strings.TrimRight(b.String(), "\n")
	}

	fmt.Fprintf(&b, "✓ %s is valid\n", r.File)
	source := "configured"
	if r.Rules.Builtin {
		source = "built-in"
	}
	fmt.Fprintf(&b, "Rules (%s):\n", source)
	fmt.Fprintf(&b, "  request headers:  %d\n", r.Rules.RequestHeaders)
	fmt.Fprintf(&b, "  response headers: %d\n", r.Rules.ResponseHeaders)
	fmt.Fprintf(&b, "  request body:     %d\n", r.Rules.RequestBody)
	fmt.Fprintf(&b, "  response body:    %d", r.Rules.ResponseBody)
	return b.String()
}

func validateConfig(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(validateFlags.format)
	if err != nil {
		return err
	}

	report := checkConfig(cfgFile)
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, report); err != nil {
		return cli.NewCommandError("validate", err)
	}

	if !report.Valid {
		return cli.NewConfigError("", fmt.Sprintf("%s failed validation with %d error(s)", report.File, len(report.Errors)))
	}
	return nil
}

// checkConfig loads path and builds its rules, collecting every problem.
func checkConfig(path string) validationReport {
	report := validationReport{File: path}

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		for _, ce := range cli.ConfigErrors(err) {
			report.Errors = append(report.Errors, fieldProblem{Field: ce.Field, Message: ce.Message})
		}
		return report
	}

	if cfg.Proxy.TLS.Enabled {
		if _, _, err := securitytls.NewServerConfig(cfg.Proxy.TLS, slog.New(slog.DiscardHandler)); err != nil {
			report.Errors = append(report.Errors, fieldProblem{Field: "proxy.tls", Message: err.Error()})
			return report
		}
	}

	set, err := ruleset.Build(cfg.Rules)
	if err != nil {
		report.Errors = append(report.Errors, fieldProblem{Message: err.Error()})
		return report
	}

	report.Valid = true
	report.Rules = &ruleCounts{
		Builtin:         cfg.Rules.Empty(),
		RequestHeaders:  len(set.RequestHeaders),
		ResponseHeaders: len(set.ResponseHeaders),
		RequestBody:     len(set.RequestBody),
		ResponseBody:    len(set.ResponseBody),
	}
	return report
}
