package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"mercator-hq/enricher/pkg/cli"
	"mercator-hq/enricher/pkg/telemetry/health"
)

var (
	// Version is the semantic version (set by build flags)
	Version = "0.1.0"
	// GitCommit is the git commit hash (set by build flags)
	GitCommit = "unknown"
	// BuildDate is the build timestamp (set by build flags)
	BuildDate = "unknown"
)

var versionFlags struct {
	format string
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print detailed version information including Git commit and build date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(versionFlags.format)
		if err != nil {
			return err
		}
		return cli.NewFormatter(format).FormatTo(os.Stdout, currentVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVar(&versionFlags.format, "format", "text", "output format: text, json")
}

// versionReport is what the version command prints.
type versionReport struct {
	health.VersionInfo
	Platform string `json:"platform"`
}

func currentVersion() versionReport {
	return versionReport{
		VersionInfo: versionInfo(),
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// versionInfo is also served on /version.
func versionInfo() health.VersionInfo {
	return health.VersionInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
		GoVersion: runtime.Version(),
	}
}

func (v versionReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Enricher %s\n", v.Version)
	fmt.Fprintf(&b, "Git Commit: %s\n", v.Commit)
	fmt.Fprintf(&b, "Build Date: %s\n", v.BuildTime)
	fmt.Fprintf(&b, "Go Version: %s\n", v.GoVersion)
	fmt.Fprintf(&b, "OS/Arch: %s", v.Platform)
	return b.String()
}
