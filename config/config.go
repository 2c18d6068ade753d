// Package config provides configuration parsing for the hostprobe command.
//
// Settings come from a YAML file, host lists given on the command line and
// host files. This package parses and validates all three; layering them with
// environment variables and flags is left to the command.
//
// Example configuration:
//
//	count: 5
//	workers: 10
//	timeout: 3s
//	format: json
//
//	hosts:
//	  - https://example.com
//	  - https://${API_HOST:-api.example.com}/health
//
//	grids:
//	  - name: regions
//	    url_template: "https://{{.region}}.example.com/health"
//	    dimensions:
//	      region: [us, eu, ap]
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/hostprobe"
	"github.com/jpalmerr/hostprobe/internal/report"
)

// Config is the root configuration structure.
//
// It maps directly to the YAML configuration file structure. Zero values mean
// "not set" so that the command can fall back to environment variables, flags
// and defaults. Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Hosts are the URLs to probe.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Hosts []string `yaml:"hosts"`

	// Count is the number of sequential requests per host.
	Count int `yaml:"count"`

	// Workers is the number of hosts probed concurrently.
	Workers int `yaml:"workers"`

	// Timeout is the per-request timeout, e.g. "5s" or "500ms".
	// Nil when the file does not set it.
	Timeout *Duration `yaml:"timeout"`

	// RunTimeout bounds the whole run. Hosts not started in time are skipped.
	// An explicit zero disables the deadline; nil leaves it to lower layers.
	RunTimeout *Duration `yaml:"run_timeout"`

	// UserAgent is sent with every request.
	UserAgent string `yaml:"user_agent"`

	// Output is the report file. Empty means stdout.
	Output string `yaml:"output"`

	// Format is the report format: "text" or "json".
	Format string `yaml:"format"`

	// Chart is an optional PNG file for the latency chart.
	Chart string `yaml:"chart"`

	// MetricsFile is an optional Prometheus textfile.
	MetricsFile string `yaml:"metrics_file"`

	// Listen is an optional address for the live results server.
	Listen string `yaml:"listen"`

	// Grids defines host grids that expand via cartesian product.
	Grids []GridConfig `yaml:"grids"`
}

// GridConfig defines a host grid that expands via cartesian product.
//
// For example, with dimensions {env: [prod, staging], svc: [api, web]},
// the grid expands to 4 URLs: prod/api, prod/web, staging/api, staging/web.
type GridConfig struct {
	// Name identifies the grid in error messages.
	Name string `yaml:"name"`

	// URLTemplate is a Go template for generating URLs.
	// Dimension keys are available as template variables: {{.env}}, {{.svc}}
	// Supports environment variable substitution in the template.
	URLTemplate string `yaml:"url_template"`

	// Dimensions maps dimension names to their possible values.
	Dimensions map[string][]string `yaml:"dimensions"`

	// Raw inserts dimension values verbatim instead of query-escaping them.
	Raw bool `yaml:"raw"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Returns an error if the file cannot be read, does not match the schema or
// fails validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// The document is checked against the embedded JSON schema first, then
// environment variables are expanded in hosts and URL templates and the
// result is validated.
func Parse(data []byte) (*Config, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	for i, host := range c.Hosts {
		expanded, err := expandEnvVars(host)
		if err != nil {
			return fmt.Errorf("hosts[%d]: %w", i, err)
		}
		if err := ValidateURL(expanded); err != nil {
			return fmt.Errorf("hosts[%d]: %w", i, err)
		}
		c.Hosts[i] = expanded
	}

	if c.Count < 0 {
		return fmt.Errorf("count must be at least 1, got %d", c.Count)
	}
	if c.Workers < 0 || c.Workers > hostprobe.MaxWorkerLimit {
		return fmt.Errorf("workers must be between 1 and %d, got %d", hostprobe.MaxWorkerLimit, c.Workers)
	}
	if c.Timeout != nil && c.Timeout.Duration() <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout.Duration())
	}
	if c.RunTimeout != nil && c.RunTimeout.Duration() < 0 {
		return fmt.Errorf("run_timeout cannot be negative, got %s", c.RunTimeout.Duration())
	}
	if c.Format != "" && c.Format != report.FormatText && c.Format != report.FormatJSON {
		return fmt.Errorf("format must be %q or %q, got %q", report.FormatText, report.FormatJSON, c.Format)
	}

	for i := range c.Grids {
		g := &c.Grids[i]

		if g.Name == "" {
			return fmt.Errorf("grids[%d]: name is required", i)
		}

		if g.URLTemplate == "" {
			return fmt.Errorf("grids[%d] (%s): url_template is required", i, g.Name)
		}
		expanded, err := expandEnvVars(g.URLTemplate)
		if err != nil {
			return fmt.Errorf("grids[%d] (%s): url_template: %w", i, g.Name, err)
		}
		g.URLTemplate = expanded

		if _, err := template.New("").Parse(g.URLTemplate); err != nil {
			return fmt.Errorf("grids[%d] (%s): invalid url_template: %w", i, g.Name, err)
		}

		if len(g.Dimensions) == 0 {
			return fmt.Errorf("grids[%d] (%s): at least one dimension is required", i, g.Name)
		}
		for dimName, dimValues := range g.Dimensions {
			if len(dimValues) == 0 {
				return fmt.Errorf("grids[%d] (%s): dimension %q has no values", i, g.Name, dimName)
			}
			seen := make(map[string]struct{}, len(dimValues))
			for _, v := range dimValues {
				if _, exists := seen[v]; exists {
					return fmt.Errorf("grids[%d] (%s): dimension %q has duplicate value %q", i, g.Name, dimName, v)
				}
				seen[v] = struct{}{}
			}
		}
	}

	return nil
}

// Settings returns the scalar settings that are set in the file, keyed by
// their flag names. Unset fields are omitted so lower layers show through.
func (c *Config) Settings() map[string]any {
	settings := make(map[string]any)

	if c.Count != 0 {
		settings["count"] = c.Count
	}
	if c.Workers != 0 {
		settings["workers"] = c.Workers
	}
	if c.Timeout != nil {
		settings["timeout"] = c.Timeout.Duration().String()
	}
	if c.RunTimeout != nil {
		settings["run-timeout"] = c.RunTimeout.Duration().String()
	}
	if c.UserAgent != "" {
		settings["user-agent"] = c.UserAgent
	}
	if c.Output != "" {
		settings["output"] = c.Output
	}
	if c.Format != "" {
		settings["format"] = c.Format
	}
	if c.Chart != "" {
		settings["chart"] = c.Chart
	}
	if c.MetricsFile != "" {
		settings["metrics-file"] = c.MetricsFile
	}
	if c.Listen != "" {
		settings["listen"] = c.Listen
	}

	return settings
}

// ErrNoHosts is returned when no source yields a host.
var ErrNoHosts = errors.New("no hosts given: use -H/--hosts, -F/--file or a config file")
