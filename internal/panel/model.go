package panel

import "github.com/wcatz/dashboard-generator/internal/config"

// PluginVersion is stamped on every generated panel.
const PluginVersion = "11.2.0"

// MixedDatasource is the marker Grafana uses for panels whose targets query
// different datasources.
var MixedDatasource = config.DatasourceRef{Type: "datasource", UID: "-- Mixed --"}

// Element is anything that can sit in a dashboard's top-level panel list.
type Element interface {
	PanelID() int
	Position() GridPos
	PanelType() string
}

// GridPos is a panel's rectangle on the dashboard grid.
type GridPos struct {
	H int `json:"h"`
	W int `json:"w"`
	X int `json:"x"`
	Y int `json:"y"`
}

// Target is one query of a panel.
type Target struct {
	Datasource   config.DatasourceRef `json:"datasource"`
	EditorMode   string               `json:"editorMode"`
	Expr         string               `json:"expr"`
	LegendFormat string               `json:"legendFormat"`
	Range        bool                 `json:"range"`
	RefID        string               `json:"refId"`
}

// ColorMode selects how Grafana colors a field.
type ColorMode struct {
	Mode string `json:"mode"`
}

// Thresholds is the field-level threshold block.
type Thresholds struct {
	Mode  string                 `json:"mode"`
	Steps []config.ThresholdStep `json:"steps"`
}

// FieldDefaults is fieldConfig.defaults. Custom holds the per-visualization
// block and is omitted for types that have none.
type FieldDefaults struct {
	Color      ColorMode      `json:"color"`
	Custom     map[string]any `json:"custom,omitempty"`
	Mappings   []any          `json:"mappings"`
	Max        *float64       `json:"max,omitempty"`
	Min        *float64       `json:"min,omitempty"`
	Thresholds Thresholds     `json:"thresholds"`
	Unit       string         `json:"unit"`
	Links      []any          `json:"links,omitempty"`
}

// FieldConfig is a panel's fieldConfig block.
type FieldConfig struct {
	Defaults  FieldDefaults `json:"defaults"`
	Overrides []any         `json:"overrides"`
}

// Panel is a fully resolved visualization panel.
type Panel struct {
	Datasource      *config.DatasourceRef `json:"datasource,omitempty"`
	Description     string                `json:"description"`
	FieldConfig     *FieldConfig          `json:"fieldConfig,omitempty"`
	GridPos         GridPos               `json:"gridPos"`
	ID              int                   `json:"id"`
	Options         map[string]any        `json:"options"`
	PluginVersion   string                `json:"pluginVersion"`
	Targets         []Target              `json:"targets,omitempty"`
	Title           string                `json:"title"`
	Transformations []any                 `json:"transformations,omitempty"`
	Transparent     bool                  `json:"transparent"`
	Type            string                `json:"type"`
}

func (p *Panel) PanelID() int      { return p.ID }
func (p *Panel) Position() GridPos { return p.GridPos }
func (p *Panel) PanelType() string { return p.Type }

// Row is a row header. Collapsed rows carry their panels inside Panels.
type Row struct {
	Collapsed       bool     `json:"collapsed"`
	GridPos         GridPos  `json:"gridPos"`
	ID              int      `json:"id"`
	Panels          []*Panel `json:"panels"`
	Title           string   `json:"title"`
	Type            string   `json:"type"`
	Repeat          string   `json:"repeat,omitempty"`
	RepeatDirection string   `json:"repeatDirection,omitempty"`
}

func (r *Row) PanelID() int      { return r.ID }
func (r *Row) Position() GridPos { return r.GridPos }
func (r *Row) PanelType() string { return r.Type }

// Count returns the number of elements including panels nested in rows.
func Count(elems []Element) int {
	n := 0
	for _, e := range elems {
		n++
		if r, ok := e.(*Row); ok {
			n += len(r.Panels)
		}
	}
	return n
}
