package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"mercator-hq/enricher/pkg/cli"
	"mercator-hq/enricher/pkg/config"
	"mercator-hq/enricher/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "enricher",
	Short: "Enricher - header and JSON body rewriting proxy",
	Long: `Enricher sits between clients and an upstream service and rewrites the
traffic passing through it:
  - Header rules add, remove and rewrite request and response headers
  - Body rules insert, rewrite, flag, remove and derive fields of JSON objects
  - Bodies are buffered to end of stream and forwarded with a corrected Content-Length
  - Bodies that are not JSON pass through unchanged

Rules come from the configuration file, or a built-in set when none are declared.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// newLogger builds the process logger from the logging section. --verbose
// forces debug level.
func newLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	lc := logging.FromConfig(cfg)
	if verbose {
		lc.Level = "debug"
	}
	return logging.New(lc)
}
