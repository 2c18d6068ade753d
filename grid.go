package hostprobe

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
	"text/template"
)

// NewTargetGrid creates multiple targets from a URL template and dimensions
// using cartesian product expansion.
//
// The URL template uses Go's text/template syntax. Dimension values are
// query-escaped before interpolation unless [WithRawDimensionValues] is given.
// Missing template keys cause an error (fail-fast).
//
// Targets are returned in a deterministic order: dimension keys are iterated
// alphabetically and values keep their given order.
//
// Example:
//
//	targets, err := NewTargetGrid(
//	    WithURLTemplate("https://{{.region}}.example.com/health"),
//	    WithDimensions(map[string][]string{
//	        "region": {"us-east", "eu-west"},
//	    }),
//	)
//	// Returns 2 targets, usable with WithTargets(targets...)
func NewTargetGrid(opts ...GridOption) ([]string, error) {
	cfg := &gridConfig{escape: true}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.urlTemplate == "" {
		return nil, errors.New("URL template required")
	}
	if len(cfg.dimensions) == 0 {
		return nil, errors.New("at least one dimension required")
	}

	// parse template with missingkey=error for fail-fast behaviour
	tmpl, err := template.New("url").Option("missingkey=error").Parse(cfg.urlTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid URL template: %w", err)
	}

	var targets []string
	err = expand(cfg.dimensions, func(p point) error {
		var buf strings.Builder
		if err := tmpl.Execute(&buf, p.data(cfg.escape)); err != nil {
			return fmt.Errorf("template execution failed for %s: %w", p, err)
		}
		targets = append(targets, buf.String())
		return nil
	})
	if err != nil {
		return nil, err
	}

	return targets, nil
}

// binding assigns one value to a dimension key.
type binding struct {
	key, value string
}

// point is one combination of dimension values, ordered by key.
type point []binding

// data returns the template data for p, query-escaping values when escape
// is set.
func (p point) data(escape bool) map[string]string {
	m := make(map[string]string, len(p))
	for _, b := range p {
		if escape {
			m[b.key] = url.QueryEscape(b.value)
		} else {
			m[b.key] = b.value
		}
	}
	return m
}

// String renders p as "k1=v1,k2=v2" with raw values.
func (p point) String() string {
	parts := make([]string, len(p))
	for i, b := range p {
		parts[i] = b.key + "=" + b.value
	}
	return strings.Join(parts, ",")
}

// expand calls visit for every combination of dims. Keys are walked
// alphabetically, values in their given order, and the last key varies
// fastest. A dimension without values yields no combinations. The point
// passed to visit is reused between calls.
func expand(dims map[string][]string, visit func(point) error) error {
	keys := slices.Sorted(maps.Keys(dims))
	current := make(point, len(keys))

	var walk func(depth int) error
	walk = func(depth int) error {
		if depth == len(keys) {
			return visit(current)
		}
		key := keys[depth]
		for _, v := range dims[key] {
			current[depth] = binding{key: key, value: v}
			if err := walk(depth + 1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(0)
}
