// Package panel turns declarative panel specs into Grafana panel documents.
package panel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wcatz/dashboard-generator/internal/config"
	"github.com/wcatz/dashboard-generator/internal/errors"
)

// DefaultLegend is the legend format used when a query doesn't set one.
const DefaultLegend = "{{instance}}"

type size struct{ w, h int }

var defaultSizes = map[string]size{
	"stat":           {3, 4},
	"gauge":          {3, 4},
	"timeseries":     {12, 7},
	"bargauge":       {6, 5},
	"heatmap":        {12, 8},
	"histogram":      {12, 7},
	"table":          {24, 8},
	"piechart":       {6, 6},
	"state-timeline": {12, 5},
	"status-history": {12, 5},
	"text":           {24, 3},
	"logs":           {24, 8},
	"row":            {24, 1},
	"comparison":     {12, 8},
}

var fallbackSize = size{6, 4}

// DefaultSize returns the (width, height) a panel type gets when its spec
// doesn't size it.
func DefaultSize(panelType string) (w, h int) {
	s, ok := defaultSizes[panelType]
	if !ok {
		s = fallbackSize
	}
	return s.w, s.h
}

// Size returns the spec's explicit size, filling gaps from the type default.
func Size(spec config.PanelSpec) (w, h int) {
	w, h = DefaultSize(spec.Type)
	if spec.Width > 0 {
		w = spec.Width
	}
	if spec.Height > 0 {
		h = spec.Height
	}
	return w, h
}

// builder fills in the type-specific parts of a panel whose common fields
// are already set.
type builder func(f *Factory, spec config.PanelSpec, p *Panel) error

var builders = map[string]builder{
	"stat":           (*Factory).stat,
	"gauge":          (*Factory).gauge,
	"timeseries":     (*Factory).timeseries,
	"bargauge":       (*Factory).bargauge,
	"heatmap":        (*Factory).heatmap,
	"histogram":      (*Factory).histogram,
	"table":          (*Factory).table,
	"piechart":       (*Factory).piechart,
	"state-timeline": (*Factory).stateTimeline,
	"status-history": (*Factory).statusHistory,
	"text":           (*Factory).text,
	"logs":           (*Factory).logs,
}

// Types lists every panel type Build accepts, sorted.
func Types() []string {
	types := make([]string, 0, len(builders)+1)
	for t := range builders {
		types = append(types, t)
	}
	types = append(types, "comparison")
	sort.Strings(types)
	return types
}

// Factory builds panels against one config, drawing IDs from a shared allocator.
type Factory struct {
	cfg *config.Config
	ids *IDAllocator
}

// NewFactory creates a Factory.
func NewFactory(cfg *config.Config, ids *IDAllocator) *Factory {
	return &Factory{cfg: cfg, ids: ids}
}

// Build creates the panel described by spec at (x, y).
func (f *Factory) Build(spec config.PanelSpec, x, y int) (*Panel, error) {
	if spec.Type == "comparison" {
		return f.comparison(spec, x, y)
	}

	build, ok := builders[spec.Type]
	if !ok {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown panel type '%s'", spec.Type),
			"Use one of: "+strings.Join(Types(), ", "))
	}

	ds, err := f.cfg.DatasourceRef(spec.Datasource)
	if err != nil {
		return nil, err
	}

	w, h := Size(spec)
	p := &Panel{
		Datasource:    &ds,
		Description:   spec.Description,
		GridPos:       GridPos{H: h, W: w, X: x, Y: y},
		PluginVersion: PluginVersion,
		Title:         spec.Title,
		Transparent:   transparent(spec),
		Type:          spec.Type,
	}

	if spec.Type != "text" {
		if p.Targets, err = f.targets(spec, ds); err != nil {
			return nil, err
		}
	}

	if err := build(f, spec, p); err != nil {
		return nil, err
	}

	p.ID = f.ids.Next()
	return p, nil
}

// Row creates a row header at y and gives it the next ID. Panels of a
// collapsed row are appended to the returned Row by the caller.
func (f *Factory) Row(section config.Section, y int) *Row {
	w, h := DefaultSize("row")
	r := &Row{
		Collapsed: section.Collapsed,
		GridPos:   GridPos{H: h, W: w, X: 0, Y: y},
		ID:        f.ids.Next(),
		Panels:    []*Panel{},
		Title:     section.Title,
		Type:      "row",
	}
	if section.Repeat != "" {
		r.Repeat = section.Repeat
		r.RepeatDirection = "h"
	}
	return r
}

// targets builds the query list: the query shorthand first, then the
// targets list, with refIds assigned in that order.
func (f *Factory) targets(spec config.PanelSpec, ds config.DatasourceRef) ([]Target, error) {
	var out []Target

	if spec.Query != "" {
		out = append(out, f.target(spec.Query, spec.Legend, refID(len(out)), ds))
	}

	for _, t := range spec.Targets {
		tds := ds
		if t.Datasource != "" {
			var err error
			if tds, err = f.cfg.DatasourceRef(t.Datasource); err != nil {
				return nil, err
			}
		}
		out = append(out, f.target(t.Expr, t.Legend, refID(len(out)), tds))
	}

	return out, nil
}

func (f *Factory) target(expr, legend, ref string, ds config.DatasourceRef) Target {
	if legend == "" {
		legend = DefaultLegend
	}
	return Target{
		Datasource:   ds,
		EditorMode:   "code",
		Expr:         f.cfg.ResolveRef(expr),
		LegendFormat: legend,
		Range:        true,
		RefID:        ref,
	}
}

// refID maps 0, 1, ... 25, 26 to A, B, ... Z, AA.
func refID(i int) string {
	s := ""
	for i >= 0 {
		s = string(rune('A'+i%26)) + s
		i = i/26 - 1
	}
	return s
}

// thresholds resolves the spec's threshold steps, falling back to a single
// base step in the spec's color or the default green.
func (f *Factory) thresholds(spec config.PanelSpec) (Thresholds, error) {
	steps, err := f.cfg.ResolveThresholds(spec.Thresholds)
	if err != nil {
		return Thresholds{}, err
	}
	if len(steps) == 0 {
		steps = []config.ThresholdStep{{Color: f.baseColor(spec)}}
	}
	return Thresholds{Mode: "absolute", Steps: steps}, nil
}

func (f *Factory) baseColor(spec config.PanelSpec) string {
	if spec.Color != "" {
		return f.cfg.ResolveColor(spec.Color)
	}
	return config.DefaultPaletteColor
}

// defaults assembles the fieldConfig.defaults shared by most types.
func (f *Factory) defaults(spec config.PanelSpec, colorMode, unit string) (FieldDefaults, error) {
	th, err := f.thresholds(spec)
	if err != nil {
		return FieldDefaults{}, err
	}
	if spec.Unit != "" {
		unit = spec.Unit
	}
	return FieldDefaults{
		Color:      ColorMode{Mode: colorMode},
		Mappings:   orEmpty(spec.ValueMappings),
		Thresholds: th,
		Unit:       unit,
		Links:      orEmpty(spec.DataLinks),
	}, nil
}

func transparent(spec config.PanelSpec) bool {
	if spec.Transparent == nil {
		return true
	}
	return *spec.Transparent
}

func orEmpty(l []any) []any {
	if l == nil {
		return []any{}
	}
	return l
}

func number(v float64) *float64 {
	return &v
}
