package panel

import (
	"fmt"
	"strings"

	"github.com/wcatz/dashboard-generator/internal/config"
	"github.com/wcatz/dashboard-generator/internal/errors"
)

func hideFrom() map[string]any {
	return map[string]any{"legend": false, "tooltip": false, "viz": false}
}

func multiTooltip() map[string]any {
	return map[string]any{"mode": "multi", "sort": "desc"}
}

func reduceOptions(o config.Options) map[string]any {
	return map[string]any{
		"calcs":  o.Strings("calcs", []string{"lastNotNull"}),
		"fields": "",
		"values": false,
	}
}

func (f *Factory) fieldConfig(spec config.PanelSpec, d FieldDefaults) *FieldConfig {
	return &FieldConfig{Defaults: d, Overrides: orEmpty(spec.Overrides)}
}

func (f *Factory) stat(spec config.PanelSpec, p *Panel) error {
	o := spec.Options
	d, err := f.defaults(spec, "thresholds", "none")
	if err != nil {
		return err
	}
	// An explicit color wins over a single-step threshold set.
	if spec.Color != "" && len(d.Thresholds.Steps) == 1 {
		d.Thresholds.Steps = []config.ThresholdStep{{Color: f.cfg.ResolveColor(spec.Color)}}
	}
	p.FieldConfig = f.fieldConfig(spec, d)
	p.Options = map[string]any{
		"colorMode":         o.String("color_mode", "background"),
		"graphMode":         o.String("graph_mode", "none"),
		"justifyMode":       "center",
		"orientation":       "auto",
		"reduceOptions":     reduceOptions(o),
		"showPercentChange": false,
		"textMode":          o.String("text_mode", "value_and_name"),
		"wideLayout":        true,
	}
	return nil
}

func (f *Factory) gauge(spec config.PanelSpec, p *Panel) error {
	o := spec.Options
	d, err := f.defaults(spec, "thresholds", "percent")
	if err != nil {
		return err
	}
	d.Max = number(o.Float("max", 100))
	d.Min = number(o.Float("min", 0))
	p.FieldConfig = f.fieldConfig(spec, d)
	p.Options = map[string]any{
		"minVizHeight":         75,
		"minVizWidth":          75,
		"orientation":          "auto",
		"reduceOptions":        reduceOptions(o),
		"showThresholdLabels":  o.Bool("show_threshold_labels", false),
		"showThresholdMarkers": o.Bool("show_threshold_markers", true),
		"sizing":               "auto",
	}
	return nil
}

// lineCustom is the custom block shared by timeseries and comparison panels.
func lineCustom(o config.Options) map[string]any {
	return map[string]any{
		"axisBorderShow":    false,
		"axisCenteredZero":  false,
		"axisColorMode":     "text",
		"axisLabel":         o.String("axis_label", ""),
		"axisPlacement":     "auto",
		"barAlignment":      0,
		"barWidthFactor":    0.6,
		"drawStyle":         o.String("draw_style", "line"),
		"fillOpacity":       o.Int("fill_opacity", 8),
		"gradientMode":      "scheme",
		"hideFrom":          hideFrom(),
		"insertNulls":       false,
		"lineInterpolation": o.String("line_interpolation", "smooth"),
		"lineWidth":         o.Int("line_width", 1),
		"pointSize":         5,
		"scaleDistribution": map[string]any{"type": "linear"},
		"showPoints":        "never",
		"spanNulls":         false,
		"stacking":          map[string]any{"group": "A", "mode": o.String("stack", "none")},
		"thresholdsStyle":   map[string]any{"mode": "off"},
	}
}

func (f *Factory) timeseries(spec config.PanelSpec, p *Panel) error {
	o := spec.Options
	d, err := f.defaults(spec, o.String("color_mode", "palette-classic-by-name"), "short")
	if err != nil {
		return err
	}
	d.Custom = lineCustom(o)
	p.FieldConfig = f.fieldConfig(spec, d)
	p.Options = map[string]any{
		"legend": map[string]any{
			"calcs":       o.Strings("legend_calcs", nil),
			"displayMode": o.String("legend_mode", "list"),
			"placement":   o.String("legend_placement", "bottom"),
			"showLegend":  o.Bool("show_legend", true),
		},
		"tooltip": multiTooltip(),
	}
	return nil
}

func (f *Factory) bargauge(spec config.PanelSpec, p *Panel) error {
	o := spec.Options
	d, err := f.defaults(spec, "thresholds", "percent")
	if err != nil {
		return err
	}
	d.Max = number(o.Float("max", 100))
	d.Min = number(o.Float("min", 0))
	p.FieldConfig = f.fieldConfig(spec, d)
	p.Options = map[string]any{
		"displayMode":   o.String("display_mode", "gradient"),
		"maxVizHeight":  300,
		"minVizHeight":  16,
		"minVizWidth":   8,
		"namePlacement": "auto",
		"orientation":   o.String("orientation", "horizontal"),
		"reduceOptions": reduceOptions(o),
		"showUnfilled":  true,
		"sizing":        "auto",
		"valueMode":     "color",
	}
	return nil
}

func (f *Factory) heatmap(spec config.PanelSpec, p *Panel) error {
	o := spec.Options
	unit := spec.Unit
	if unit == "" {
		unit = "short"
	}
	p.FieldConfig = f.fieldConfig(spec, FieldDefaults{
		Color: ColorMode{Mode: "continuous-GrYlRd"},
		Custom: map[string]any{
			"fillOpacity": 80,
			"hideFrom":    hideFrom(),
			"lineWidth":   1,
		},
		Mappings: []any{},
		Thresholds: Thresholds{
			Mode:  "absolute",
			Steps: []config.ThresholdStep{{Color: "green"}},
		},
		Unit: unit,
	})
	p.Options = map[string]any{
		"calculate":  o.Bool("calculate", false),
		"cellGap":    o.Int("cell_gap", 2),
		"cellValues": map[string]any{"decimals": o.Int("decimals", 0)},
		"color": map[string]any{
			"exponent": 0.5,
			"fill":     "dark-blue",
			"min":      0,
			"mode":     "scheme",
			"reverse":  false,
			"scale":    o.String("color_scale", "exponential"),
			"scheme":   o.String("color_scheme", "Spectral"),
			"steps":    128,
		},
		"exemplars":    map[string]any{"color": "rgba(153,204,255,0.7)"},
		"filterValues": map[string]any{"le": 1e-9},
		"legend":       map[string]any{"show": true},
		"rowsFrame":    map[string]any{"layout": "auto"},
		"tooltip":      map[string]any{"show": true, "yHistogram": false},
		"yAxis": map[string]any{
			"axisPlacement": "left",
			"reverse":       false,
			"unit":          o.String("y_unit", "short"),
		},
	}
	return nil
}

func (f *Factory) histogram(spec config.PanelSpec, p *Panel) error {
	o := spec.Options
	d, err := f.defaults(spec, o.String("color_mode", "palette-classic-by-name"), "short")
	if err != nil {
		return err
	}
	fill := o.Int("fill_opacity", 80)
	d.Custom = map[string]any{
		"fillOpacity":  fill,
		"gradientMode": "none",
		"hideFrom":     hideFrom(),
		"lineWidth":    1,
	}
	d.Mappings = []any{}
	d.Links = nil
	p.FieldConfig = f.fieldConfig(spec, d)
	p.Options = map[string]any{
		"bucketCount":  o.Int("bucket_count", 30),
		"combine":      o.Bool("combine", false),
		"fillOpacity":  fill,
		"gradientMode": "none",
		"legend": map[string]any{
			"calcs":       []string{},
			"displayMode": "list",
			"placement":   "bottom",
			"showLegend":  true,
		},
		"tooltip": multiTooltip(),
	}
	return nil
}

func (f *Factory) table(spec config.PanelSpec, p *Panel) error {
	o := spec.Options
	d, err := f.defaults(spec, "thresholds", "short")
	if err != nil {
		return err
	}
	d.Custom = map[string]any{
		"align":       "auto",
		"cellOptions": map[string]any{"type": "auto"},
		"filterable":  o.Bool("filterable", true),
		"inspect":     true,
	}
	p.FieldConfig = f.fieldConfig(spec, d)
	p.Options = map[string]any{
		"cellHeight": "sm",
		"footer": map[string]any{
			"countRows":        false,
			"enablePagination": o.Bool("pagination", false),
			"fields":           "",
			"reducer":          []string{"sum"},
			"show":             false,
		},
		"showHeader": true,
		"sortBy":     o.List("sort_by"),
	}
	p.Transformations = o.List("transformations")
	return nil
}

func (f *Factory) piechart(spec config.PanelSpec, p *Panel) error {
	o := spec.Options
	d, err := f.defaults(spec, o.String("color_mode", "palette-classic-by-name"), "short")
	if err != nil {
		return err
	}
	d.Links = nil
	p.FieldConfig = f.fieldConfig(spec, d)
	p.Options = map[string]any{
		"displayLabels": o.Strings("display_labels", []string{"percent"}),
		"legend": map[string]any{
			"calcs":       o.Strings("legend_calcs", nil),
			"displayMode": o.String("legend_mode", "list"),
			"placement":   o.String("legend_placement", "right"),
			"showLegend":  true,
		},
		"pieType":       o.String("pie_type", "donut"),
		"reduceOptions": reduceOptions(o),
		"tooltip":       multiTooltip(),
	}
	return nil
}

// stateDefaults is the fieldConfig shared by state-timeline and status-history.
func (f *Factory) stateDefaults(spec config.PanelSpec, lineWidth int) (FieldDefaults, error) {
	d, err := f.defaults(spec, "thresholds", "short")
	if err != nil {
		return FieldDefaults{}, err
	}
	d.Custom = map[string]any{
		"fillOpacity": spec.Options.Int("fill_opacity", 70),
		"hideFrom":    hideFrom(),
		"lineWidth":   lineWidth,
	}
	d.Links = nil
	return d, nil
}

func stateLegend() map[string]any {
	return map[string]any{"displayMode": "list", "placement": "bottom", "showLegend": true}
}

func (f *Factory) stateTimeline(spec config.PanelSpec, p *Panel) error {
	o := spec.Options
	d, err := f.stateDefaults(spec, 0)
	if err != nil {
		return err
	}
	p.FieldConfig = f.fieldConfig(spec, d)
	p.Options = map[string]any{
		"alignValue":  "center",
		"legend":      stateLegend(),
		"mergeValues": o.Bool("merge_values", true),
		"rowHeight":   o.Float("row_height", 0.9),
		"showValue":   o.String("show_value", "auto"),
		"tooltip":     multiTooltip(),
	}
	return nil
}

func (f *Factory) statusHistory(spec config.PanelSpec, p *Panel) error {
	o := spec.Options
	d, err := f.stateDefaults(spec, 1)
	if err != nil {
		return err
	}
	p.FieldConfig = f.fieldConfig(spec, d)
	p.Options = map[string]any{
		"colWidth":  0.9,
		"legend":    stateLegend(),
		"rowHeight": o.Float("row_height", 0.9),
		"showValue": o.String("show_value", "auto"),
		"tooltip":   multiTooltip(),
	}
	return nil
}

func (f *Factory) text(spec config.PanelSpec, p *Panel) error {
	o := spec.Options
	p.Options = map[string]any{
		"code": map[string]any{
			"language":        "plaintext",
			"showLineNumbers": false,
			"showMiniMap":     false,
		},
		"content": o.String("content", ""),
		"mode":    o.String("mode", "markdown"),
	}
	return nil
}

func (f *Factory) logs(spec config.PanelSpec, p *Panel) error {
	o := spec.Options
	p.Options = map[string]any{
		"dedupStrategy":      o.String("dedup", "none"),
		"enableLogDetails":   true,
		"prettifyLogMessage": o.Bool("prettify", false),
		"showCommonLabels":   o.Bool("show_common_labels", false),
		"showLabels":         o.Bool("show_labels", false),
		"showTime":           o.Bool("show_time", true),
		"sortOrder":          o.String("sort_order", "Descending"),
		"wrapLogMessage":     o.Bool("wrap", true),
	}
	return nil
}

// CounterQuery is the expression used to graph a counter.
func CounterQuery(metric string) string {
	return fmt.Sprintf("rate(%s[5m])", metric)
}

// comparison overlays one metric from several datasources on a single
// timeseries panel, one target per datasource.
func (f *Factory) comparison(spec config.PanelSpec, x, y int) (*Panel, error) {
	if len(spec.Datasources) < 2 {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Comparison panel '%s' needs at least 2 datasources, got %d", spec.Title, len(spec.Datasources)),
			"List them under datasources: on the panel")
	}

	metric := spec.Metric
	if metric == "" {
		metric = "up"
	}
	metricType := spec.MetricType
	if metricType == "" {
		metricType = "gauge"
	}
	expr := metric
	if metricType == "counter" {
		expr = CounterQuery(metric)
	}

	targets := make([]Target, 0, len(spec.Datasources))
	for i, name := range spec.Datasources {
		ds, err := f.cfg.Datasource(name)
		if err != nil {
			return nil, err
		}
		legend := spec.Legend
		if legend == "" {
			legend = name + ": " + DefaultLegend
		}
		if !strings.Contains(legend, name) {
			legend = name + ": " + legend
		}
		targets = append(targets, f.target(expr, legend, refID(i), ds.Ref()))
	}

	title := spec.Title
	if title == "" {
		title = metric + " comparison"
	}
	description := spec.Description
	if description == "" {
		description = "comparison: " + metric
	}
	unit := spec.Unit
	if unit == "" {
		unit = "short"
	}

	w, h := Size(spec)
	mixed := MixedDatasource
	return &Panel{
		Datasource:  &mixed,
		Description: description,
		FieldConfig: &FieldConfig{
			Defaults: FieldDefaults{
				Color:    ColorMode{Mode: "palette-classic-by-name"},
				Custom:   lineCustom(nil),
				Mappings: []any{},
				Thresholds: Thresholds{
					Mode:  "absolute",
					Steps: []config.ThresholdStep{{Color: config.DefaultPaletteColor}},
				},
				Unit: unit,
			},
			Overrides: []any{},
		},
		GridPos: GridPos{H: h, W: w, X: x, Y: y},
		ID:      f.ids.Next(),
		Options: map[string]any{
			"legend": map[string]any{
				"calcs":       []string{},
				"displayMode": "list",
				"placement":   "bottom",
				"showLegend":  true,
			},
			"tooltip": multiTooltip(),
		},
		PluginVersion: PluginVersion,
		Targets:       targets,
		Title:         title,
		Transparent:   transparent(spec),
		Type:          "timeseries",
	}, nil
}
