// Package main is the entry point for the hostprobe CLI.
//
// hostprobe sends a number of sequential GET requests to every given host,
// concurrently across hosts, and prints per-host outcome counts and latency.
//
// Usage:
//
//	hostprobe -H https://example.com,https://example.org -C 5
//	hostprobe -F hosts.txt -O report.txt
//	hostprobe -c hostprobe.yaml --format json
//	hostprobe -F hosts.txt -C 20 --listen :9090
//	hostprobe validate -c hostprobe.yaml
//	hostprobe version
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// newRootCmd builds the command tree. Every call returns fresh flag state.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hostprobe",
		Short: "Measure availability and latency of HTTP endpoints",
		Long: `hostprobe measures the availability and latency of HTTP endpoints.

Every host gets --count sequential GET requests; up to --workers hosts are
probed at the same time. Each response is classified as Success (status
below 400), Failed (400-599) or Error (no response), and the report shows
the counts and min/max/average latency per host.

Settings are layered: defaults < config file < HOSTPROBE_* environment
variables < flags. For example HOSTPROBE_COUNT=5 or HOSTPROBE_RUN_TIMEOUT=1m.

Examples:
  hostprobe -H https://example.com,https://example.org -C 5
  hostprobe -F hosts.txt -O report.txt --chart latency.png
  hostprobe -c hostprobe.yaml --format json
  hostprobe -F hosts.txt -C 20 --listen :9090`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runProbe,
	}

	addProbeFlags(root)
	root.AddCommand(newValidateCmd(), newVersionCmd())
	return root
}

// newVersionCmd prints version information.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of this hostprobe binary.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "hostprobe %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}

// newLogger creates a JSON logger for CLI use.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}
