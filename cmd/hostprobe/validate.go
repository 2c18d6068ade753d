package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/hostprobe/config"
)

// newValidateCmd validates a config file without probing anything.
func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a config file",
		Long: `Validate a hostprobe configuration file without sending any requests.

This command checks the YAML against the config schema, expands environment
variables, validates every host URL and expands grids. It's useful for CI/CD
pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  hostprobe validate -c hostprobe.yaml
  hostprobe validate --config /etc/hostprobe/hostprobe.yaml`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runValidate,
	}

	cmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	targets, err := config.BuildTargets(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	direct := len(cfg.Hosts)
	fromGrids := len(targets) - direct
	unique := len(config.MergeHosts(targets))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Hosts:   %d direct + %d from grids = %d total (%d unique)\n",
		direct, fromGrids, len(targets), unique)
	if cfg.Count != 0 {
		fmt.Fprintf(out, "  Count:   %d\n", cfg.Count)
	}
	if cfg.Workers != 0 {
		fmt.Fprintf(out, "  Workers: %d\n", cfg.Workers)
	}
	if cfg.Timeout != nil {
		fmt.Fprintf(out, "  Timeout: %s\n", cfg.Timeout.Duration())
	}

	return nil
}
