package config

import (
	"fmt"
	"strings"

	"github.com/wcatz/dashboard-generator/internal/errors"
)

// Validate checks the cross references inside a config: names that one part
// of the document expects another part to declare. Panel-type problems are
// caught later, when the panel is actually built.
func Validate(cfg *Config) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if cfg.ActivePalette != "" {
		if _, ok := cfg.Palettes[cfg.ActivePalette]; !ok {
			add("active_palette '%s' is not one of the declared palettes", cfg.ActivePalette)
		}
	}

	var defaults []string
	for _, name := range cfg.datasourceNames() {
		if cfg.Datasources[name].IsDefault {
			defaults = append(defaults, name)
		}
	}
	if len(defaults) > 1 {
		add("more than one datasource has is_default: %s", strings.Join(defaults, ", "))
	}

	for _, name := range cfg.Discovery.Sources {
		if _, ok := cfg.Datasources[name]; !ok {
			add("discovery source '%s' is not a declared datasource", name)
		}
	}

	for _, pname := range sortedNames(cfg.Profiles) {
		for _, d := range cfg.Profiles[pname].Dashboards {
			if _, ok := cfg.Dashboards[d]; !ok {
				add("profile '%s' lists unknown dashboard '%s'", pname, d)
			}
		}
	}

	for _, vname := range sortedNames(cfg.Variables) {
		if ds := cfg.Variables[vname].Datasource; ds != "" {
			if _, ok := cfg.Datasources[ds]; !ok {
				add("variable '%s' uses unknown datasource '%s'", vname, ds)
			}
		}
	}

	for _, dname := range cfg.dashboardNames() {
		d := cfg.Dashboards[dname]
		for _, v := range d.Variables {
			if _, ok := cfg.Variables[v]; !ok {
				add("dashboard '%s' uses undefined variable '%s'", dname, v)
			}
		}
		for _, s := range d.Sections {
			for _, p := range s.Panels {
				where := fmt.Sprintf("dashboard '%s', panel '%s'", dname, p.Title)
				validatePanel(cfg, p, where, add)
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New(errors.ErrConfig,
		fmt.Sprintf("Config has %d problem(s):\n  - %s", len(problems), strings.Join(problems, "\n  - ")),
		"Fix the references above in "+cfg.displayPath())
}

func validatePanel(cfg *Config, p PanelSpec, where string, add func(string, ...any)) {
	if p.Type == "" {
		add("%s: missing type", where)
	}
	if p.Datasource != "" {
		if _, ok := cfg.Datasources[p.Datasource]; !ok {
			add("%s: unknown datasource '%s'", where, p.Datasource)
		}
	}
	for _, t := range p.Targets {
		if t.Datasource == "" {
			continue
		}
		if _, ok := cfg.Datasources[t.Datasource]; !ok {
			add("%s: target uses unknown datasource '%s'", where, t.Datasource)
		}
	}
	for _, ds := range p.Datasources {
		if _, ok := cfg.Datasources[ds]; !ok {
			add("%s: comparison uses unknown datasource '%s'", where, ds)
		}
	}
	if p.Thresholds != nil && strings.HasPrefix(p.Thresholds.Name, "$") {
		if _, ok := cfg.Thresholds[p.Thresholds.Name[1:]]; !ok {
			add("%s: undefined threshold set '%s'", where, p.Thresholds.Name[1:])
		}
	}
	if (p.X == nil) != (p.Y == nil) {
		add("%s: x and y must be set together", where)
	}
}

func sortedNames[V any](m map[string]V) []string {
	return orderedKeys(nil, m)
}
