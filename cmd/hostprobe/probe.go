package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jpalmerr/hostprobe"
	"github.com/jpalmerr/hostprobe/config"
	"github.com/jpalmerr/hostprobe/internal/report"
	"github.com/jpalmerr/hostprobe/internal/server"
)

const envPrefix = "HOSTPROBE"

// settings is the fully layered configuration of one probe run.
type settings struct {
	hosts       []string
	count       int
	workers     int
	timeout     time.Duration
	runTimeout  time.Duration
	userAgent   string
	output      string
	format      string
	chart       string
	metricsFile string
	listen      string
	verbose     bool
}

func addProbeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("hosts", "H", "", "comma-separated list of URLs to probe")
	flags.StringP("file", "F", "", "file with URLs, one per line or comma-separated")
	flags.StringP("output", "O", "", "write the report to this file instead of stdout")
	flags.IntP("count", "C", hostprobe.DefaultSampleCount, "number of sequential requests per host")
	flags.IntP("workers", "w", hostprobe.DefaultWorkerLimit, "number of hosts probed concurrently")
	flags.DurationP("timeout", "t", hostprobe.DefaultTimeout, "per-request timeout")
	flags.Duration("run-timeout", 0, "deadline for the whole run (0 = none)")
	flags.String("user-agent", "", "User-Agent header sent with every request")
	flags.String("format", report.FormatText, "report format: text or json")
	flags.String("chart", "", "also render an average latency bar chart to this PNG file")
	flags.String("metrics-file", "", "also write Prometheus metrics to this file")
	flags.String("listen", "", "serve live results and metrics on this address while probing, e.g. :9090")
	flags.StringP("config", "c", "", "path to YAML config file")
	flags.BoolP("verbose", "v", false, "enable debug logging")
}

// loadSettings layers defaults, the config file, HOSTPROBE_* environment
// variables and flags, then collects hosts from every source.
func loadSettings(cmd *cobra.Command) (*settings, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	var cfg *config.Config
	if path := v.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if err := v.MergeConfigMap(loaded.Settings()); err != nil {
			return nil, fmt.Errorf("failed to apply config: %w", err)
		}
		cfg = loaded
	}

	hosts, err := collectHosts(v.GetString("hosts"), v.GetString("file"), cfg)
	if err != nil {
		return nil, err
	}

	s := &settings{
		hosts:       hosts,
		count:       v.GetInt("count"),
		workers:     v.GetInt("workers"),
		timeout:     v.GetDuration("timeout"),
		runTimeout:  v.GetDuration("run-timeout"),
		userAgent:   v.GetString("user-agent"),
		output:      v.GetString("output"),
		format:      v.GetString("format"),
		chart:       v.GetString("chart"),
		metricsFile: v.GetString("metrics-file"),
		listen:      v.GetString("listen"),
		verbose:     v.GetBool("verbose"),
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// collectHosts merges hosts from the flag list, the hosts file and the config
// file, in that order, dropping duplicates.
func collectHosts(list, file string, cfg *config.Config) ([]string, error) {
	fromList, err := config.ParseHostList(list)
	if err != nil {
		return nil, err
	}

	var fromFile []string
	if file != "" {
		fromFile, err = config.ReadHostsFile(file)
		if err != nil {
			return nil, err
		}
	}

	var fromConfig []string
	if cfg != nil {
		fromConfig, err = config.BuildTargets(cfg)
		if err != nil {
			return nil, err
		}
	}

	hosts := config.MergeHosts(fromList, fromFile, fromConfig)
	if len(hosts) == 0 {
		return nil, config.ErrNoHosts
	}
	return hosts, nil
}

func (s *settings) validate() error {
	if s.count < 1 {
		return fmt.Errorf("invalid count %d: must be at least 1", s.count)
	}
	if s.workers < 1 || s.workers > hostprobe.MaxWorkerLimit {
		return fmt.Errorf("invalid workers %d: must be between 1 and %d", s.workers, hostprobe.MaxWorkerLimit)
	}
	if s.timeout <= 0 {
		return fmt.Errorf("invalid timeout %s: must be positive", s.timeout)
	}
	if s.runTimeout < 0 {
		return fmt.Errorf("invalid run timeout %s: cannot be negative", s.runTimeout)
	}
	if s.format != report.FormatText && s.format != report.FormatJSON {
		return fmt.Errorf("invalid format %q: must be %q or %q", s.format, report.FormatText, report.FormatJSON)
	}
	return nil
}

// options translates settings into SDK options.
func (s *settings) options() []hostprobe.Option {
	opts := []hostprobe.Option{
		hostprobe.WithTargets(s.hosts...),
		hostprobe.WithSampleCount(s.count),
		hostprobe.WithWorkerLimit(s.workers),
		hostprobe.WithTimeout(s.timeout),
		hostprobe.WithRunTimeout(s.runTimeout),
	}
	if s.userAgent != "" {
		opts = append(opts, hostprobe.WithUserAgent(s.userAgent))
	}
	if s.metricsFile != "" {
		opts = append(opts, hostprobe.WithMetricsFile(s.metricsFile))
	}
	return opts
}

func runProbe(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), s.verbose)
	logger.Debug("settings loaded",
		"hosts", len(s.hosts),
		"count", s.count,
		"workers", s.workers,
		"timeout", s.timeout.String(),
	)

	// cancel on SIGINT/SIGTERM; hosts not yet started are reported as skipped
	ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := append(s.options(), hostprobe.WithLogger(logger))
	if s.verbose {
		opts = append(opts, hostprobe.WithAttemptCallback(func(a hostprobe.Attempt) {
			attrs := []any{"target", a.Target, "classification", a.Classification}
			if a.Timed {
				attrs = append(attrs, "latency", a.Latency.String())
			}
			if a.Err != nil {
				attrs = append(attrs, "error", a.Err)
			}
			logger.Debug("attempt finished", attrs...)
		}))
	}

	var live *server.Server
	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	if s.listen != "" {
		reg := prometheus.NewRegistry()
		live = server.NewServer(s.listen, len(s.hosts), reg, logger)
		if err := live.Start(serverCtx); err != nil {
			return err
		}
		logger.Info("serving live results", "addr", live.Addr())
		opts = append(opts,
			hostprobe.WithMetricsRegistry(reg),
			hostprobe.WithSummaryCallback(live.Record),
		)
	}

	runner, err := hostprobe.New(opts...)
	if err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	results, runErr := runner.Run(ctx)

	if live != nil {
		stopServer()
		<-live.Done()
	}

	if err := writeReport(cmd.OutOrStdout(), s, results); err != nil {
		return err
	}
	if s.chart != "" {
		if err := report.WriteChartFile(s.chart, results); err != nil {
			return err
		}
		logger.Debug("chart written", "path", s.chart)
	}

	return runErr
}

// writeReport writes the report to the output file, or to stdout when no
// file is configured.
func writeReport(stdout io.Writer, s *settings, results hostprobe.ResultSet) error {
	if s.output == "" {
		return report.Write(stdout, s.format, results)
	}

	file, err := os.Create(s.output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := report.Write(file, s.format, results); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}

// contextOrBackground guards against commands executed without a context.
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
