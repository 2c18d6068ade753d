package config

import (
	"fmt"

	"github.com/jpalmerr/hostprobe"
)

// BuildTargets returns the hosts listed in the configuration followed by the
// expansion of every grid, in file order.
//
// Grid URLs are validated like any other host.
func BuildTargets(cfg *Config) ([]string, error) {
	targets := make([]string, 0, len(cfg.Hosts))
	targets = append(targets, cfg.Hosts...)

	for i, gc := range cfg.Grids {
		expanded, err := buildGridTargets(gc)
		if err != nil {
			return nil, fmt.Errorf("grids[%d] (%s): %w", i, gc.Name, err)
		}
		targets = append(targets, expanded...)
	}

	return targets, nil
}

// buildGridTargets expands a GridConfig into URLs via cartesian product.
func buildGridTargets(gc GridConfig) ([]string, error) {
	opts := []hostprobe.GridOption{
		hostprobe.WithURLTemplate(gc.URLTemplate),
		hostprobe.WithDimensions(gc.Dimensions),
	}
	if gc.Raw {
		opts = append(opts, hostprobe.WithRawDimensionValues())
	}

	targets, err := hostprobe.NewTargetGrid(opts...)
	if err != nil {
		return nil, err
	}

	for _, target := range targets {
		if err := ValidateURL(target); err != nil {
			return nil, fmt.Errorf("%w: %w", errInvalidGridTarget, err)
		}
	}
	return targets, nil
}
