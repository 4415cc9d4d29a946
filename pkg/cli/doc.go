/*
Package cli provides command-line helpers shared by the enricher command.

Output Formatting:

Commands that report results accept --format text|json:

	format, err := cli.ParseFormat(flags.format)
	if err != nil {
		return err
	}
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, report); err != nil {
		return err
	}

Errors:

ConfigError and CommandError distinguish bad configuration from a failing
command. ExitCode maps them to the process exit status, and ConfigErrors
splits a config.ValidationError into one ConfigError per field.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

SIGHUP is delivered separately through ReloadSignals so a running proxy can
re-read its configuration file.
*/
package cli
