package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/wcatz/dashboard-generator/internal/errors"
)

var bracedRef = regexp.MustCompile(`\$\{(\w+)\}`)

// ResolveRef replaces every ${name} with the constant of that name, else the
// selector of that name. Unknown names are left verbatim.
func (c *Config) ResolveRef(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return bracedRef.ReplaceAllStringFunc(s, func(match string) string {
		name := bracedRef.FindStringSubmatch(match)[1]
		if v, ok := c.Constants[name]; ok {
			return v
		}
		if v, ok := c.Selectors[name]; ok {
			return v
		}
		return match
	})
}

// ResolveColor turns "$name" into the active palette's color, or into the
// bare name when the palette has no such entry. Other strings are returned
// unchanged.
func (c *Config) ResolveColor(s string) string {
	name, ok := strings.CutPrefix(s, "$")
	if !ok {
		return s
	}
	if hex, ok := c.palette()[name]; ok {
		return hex
	}
	return name
}

func (c *Config) palette() map[string]string {
	return c.Palettes[c.ActivePalette]
}

// ResolveThresholds resolves a panel's thresholds value. A "$name" reference
// must exist in the threshold library. Inline steps have their colors
// resolved. Any other value yields nil so the caller can fall back to a
// single default step. The first returned step always has a nil value.
func (c *Config) ResolveThresholds(ref *ThresholdRef) ([]ThresholdStep, error) {
	if ref == nil {
		return nil, nil
	}

	var steps []ThresholdStep
	switch {
	case len(ref.Steps) > 0:
		steps = ref.Steps
	case strings.HasPrefix(ref.Name, "$"):
		name := ref.Name[1:]
		set, ok := c.Thresholds[name]
		if !ok {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("Threshold set '%s' is not defined", name),
				"Add it under thresholds: or fix the reference")
		}
		steps = set
	default:
		return nil, nil
	}

	if len(steps) == 0 {
		return nil, nil
	}

	resolved := make([]ThresholdStep, len(steps))
	for i, step := range steps {
		resolved[i] = ThresholdStep{Color: c.ResolveColor(step.Color), Value: step.Value}
	}
	resolved[0].Value = nil
	return resolved, nil
}

// Datasource looks up a declared datasource by name.
func (c *Config) Datasource(name string) (Datasource, error) {
	ds, ok := c.Datasources[name]
	if !ok {
		return Datasource{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("Datasource '%s' is not defined", name),
			"Declare it under datasources: in "+c.displayPath())
	}
	return ds, nil
}

// DefaultDatasourceName is the datasource marked is_default, else the first
// declared one. Empty when no datasources exist.
func (c *Config) DefaultDatasourceName() string {
	for _, name := range c.datasourceNames() {
		if c.Datasources[name].IsDefault {
			return name
		}
	}
	if names := c.datasourceNames(); len(names) > 0 {
		return names[0]
	}
	return ""
}

// DefaultDatasource returns the default datasource reference. With no
// datasources declared it falls back to prometheus/prometheus.
func (c *Config) DefaultDatasource() DatasourceRef {
	if name := c.DefaultDatasourceName(); name != "" {
		return c.Datasources[name].Ref()
	}
	return DatasourceRef{Type: "prometheus", UID: "prometheus"}
}

// DatasourceRef resolves name to a reference, or the default when name is empty.
func (c *Config) DatasourceRef(name string) (DatasourceRef, error) {
	if name == "" {
		return c.DefaultDatasource(), nil
	}
	ds, err := c.Datasource(name)
	if err != nil {
		return DatasourceRef{}, err
	}
	return ds.Ref(), nil
}

// DatasourceURL returns the query URL for a datasource. The --prometheus-url
// override replaces the default datasource's URL.
func (c *Config) DatasourceURL(name string) string {
	if c.prometheusURL != "" && name == c.DefaultDatasourceName() {
		return c.prometheusURL
	}
	return c.Datasources[name].URL
}

// DatasourceURLs maps every declared datasource with a URL to that URL.
func (c *Config) DatasourceURLs() map[string]string {
	urls := make(map[string]string, len(c.Datasources))
	for _, name := range c.datasourceNames() {
		if u := c.DatasourceURL(name); u != "" {
			urls[name] = u
		}
	}
	return urls
}

// VariableDef looks up a variable definition by name.
func (c *Config) VariableDef(name string) (VariableDef, error) {
	v, ok := c.Variables[name]
	if !ok {
		return VariableDef{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("Variable '%s' is not defined", name),
			"Declare it under variables: in "+c.displayPath())
	}
	return v, nil
}

// SelectDashboards returns the dashboards to build, in order. Without a profile
// that is the declaration order of the dashboards mapping; with one it is
// the profile's list.
func (c *Config) SelectDashboards(profile string) ([]NamedDashboard, error) {
	names := c.dashboardNames()
	if profile != "" {
		p, ok := c.Profiles[profile]
		if !ok {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("Profile '%s' is not defined", profile),
				"Pick one of the names under profiles:, or drop --profile")
		}
		names = p.Dashboards
	}

	out := make([]NamedDashboard, 0, len(names))
	for _, name := range names {
		d, ok := c.Dashboards[name]
		if !ok {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("Profile '%s' lists unknown dashboard '%s'", profile, name),
				"Remove it from the profile or declare the dashboard")
		}
		out = append(out, NamedDashboard{Name: name, DashboardSpec: d})
	}
	return out, nil
}

func (c *Config) datasourceNames() []string {
	return orderedKeys(c.datasourceOrder, c.Datasources)
}

func (c *Config) dashboardNames() []string {
	return orderedKeys(c.dashboardOrder, c.Dashboards)
}

func (c *Config) displayPath() string {
	if c.Path == "" {
		return DefaultConfigFile
	}
	return c.Path
}

// orderedKeys returns the recorded document order, falling back to sorted
// keys for configs built in code rather than parsed.
func orderedKeys[V any](order []string, m map[string]V) []string {
	if len(order) == len(m) {
		return order
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
