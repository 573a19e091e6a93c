package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DefaultPaletteColor is used for the single threshold step a panel gets
// when it declares neither thresholds nor a color.
const DefaultPaletteColor = "#73BF69"

// Config represents a complete dashboards.yaml document. It is treated as
// read-only once Load returns.
type Config struct {
	Generator     Generator                    `yaml:"generator"`
	Datasources   map[string]Datasource        `yaml:"datasources"`
	Palettes      map[string]map[string]string `yaml:"palettes"`
	ActivePalette string                       `yaml:"active_palette"`
	Thresholds    map[string][]ThresholdStep   `yaml:"thresholds"`
	Selectors     map[string]string            `yaml:"selectors"`
	Constants     map[string]string            `yaml:"constants"`
	Variables     map[string]VariableDef       `yaml:"variables"`
	Dashboards    map[string]DashboardSpec     `yaml:"dashboards"`
	Profiles      map[string]Profile           `yaml:"profiles"`
	Discovery     DiscoveryConfig              `yaml:"discovery"`

	// Path is the file the config was read from, empty for LoadBytes.
	Path string `yaml:"-"`

	datasourceOrder []string
	dashboardOrder  []string
	prometheusURL   string
}

// Generator holds the dashboard-wide defaults applied to every artifact.
type Generator struct {
	SchemaVersion int               `yaml:"schema_version"`
	OutputDir     string            `yaml:"output_dir"`
	Refresh       string            `yaml:"refresh"`
	TimeRange     map[string]string `yaml:"time_range"`
	Timezone      string            `yaml:"timezone"`

	// Pointers so an explicit false/0 can be told apart from "not set".
	Editable     *bool `yaml:"editable"`
	LiveNow      *bool `yaml:"live_now"`
	GraphTooltip *int  `yaml:"graph_tooltip"`
}

// Datasource describes one metrics backend panels can query.
type Datasource struct {
	Type      string `yaml:"type"`
	UID       string `yaml:"uid"`
	URL       string `yaml:"url"`
	IsDefault bool   `yaml:"is_default"`
}

// Ref is the reference embedded into panels, targets and variables.
func (d Datasource) Ref() DatasourceRef {
	return DatasourceRef{Type: d.Type, UID: d.UID}
}

// DatasourceRef is how Grafana points at a datasource from inside a dashboard.
type DatasourceRef struct {
	Type string `json:"type"`
	UID  string `json:"uid"`
}

// ThresholdStep is one step of a threshold set. A nil Value marks the base step.
type ThresholdStep struct {
	Color string   `yaml:"color" json:"color"`
	Value *float64 `yaml:"value" json:"value"`
}

// ThresholdRef is what a panel's thresholds key holds: either a "$name"
// reference into the threshold library or an inline list of steps.
type ThresholdRef struct {
	Name  string
	Steps []ThresholdStep
}

// UnmarshalYAML accepts a scalar reference or a sequence of steps.
func (t *ThresholdRef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		t.Name = node.Value
		return nil
	case yaml.SequenceNode:
		return node.Decode(&t.Steps)
	default:
		return fmt.Errorf("line %d: thresholds must be a $name reference or a list of steps", node.Line)
	}
}

// VariableDef is a reusable template variable definition.
type VariableDef struct {
	// Type is one of query (default), custom, interval, datasource.
	Type       string `yaml:"type"`
	Datasource string `yaml:"datasource"`
	Query      string `yaml:"query"`
	Multi      bool   `yaml:"multi"`
	IncludeAll bool   `yaml:"include_all"`
	Refresh    int    `yaml:"refresh"`
	Sort       int    `yaml:"sort"`
	Label      string `yaml:"label"`
	Hide       int    `yaml:"hide"`
	Regex      string `yaml:"regex"`
	AllValue   string `yaml:"all_value"`

	// Values feeds custom and interval variables.
	Values string `yaml:"values"`
	// DSType filters datasource variables, prometheus when empty.
	DSType    string `yaml:"ds_type"`
	Auto      bool   `yaml:"auto"`
	AutoCount int    `yaml:"auto_count"`
	AutoMin   string `yaml:"auto_min"`

	Default VariableDefault `yaml:"default"`
}

// VariableDefault is the value selected when include_all is off.
type VariableDefault struct {
	Text  string `yaml:"text"`
	Value string `yaml:"value"`
}

// DashboardSpec declares one generated dashboard.
type DashboardSpec struct {
	UID         string    `yaml:"uid"`
	Title       string    `yaml:"title"`
	Filename    string    `yaml:"filename"`
	Tags        []string  `yaml:"tags"`
	Icon        string    `yaml:"icon"`
	Description string    `yaml:"description"`
	Variables   []string  `yaml:"variables"`
	Sections    []Section `yaml:"sections"`
}

// NamedDashboard pairs a dashboard with its key in the dashboards mapping.
type NamedDashboard struct {
	Name string
	DashboardSpec
}

// Section is a group of panels rendered under one row header.
type Section struct {
	Title     string      `yaml:"title"`
	Collapsed bool        `yaml:"collapsed"`
	Repeat    string      `yaml:"repeat"`
	Panels    []PanelSpec `yaml:"panels"`
}

// Profile is a named, ordered subset of dashboards.
type Profile struct {
	Dashboards []string `yaml:"dashboards"`
}

// DiscoveryConfig controls metric discovery during generate.
type DiscoveryConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Sources         []string `yaml:"sources"`
	IncludePatterns []string `yaml:"include_patterns"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
}

// PanelSpec is the declarative description of one panel. Keys shared by
// every panel type are typed fields; everything else lands in Options and is
// read by the type-specific builder.
type PanelSpec struct {
	Type        string `yaml:"type"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Datasource  string `yaml:"datasource"`

	// Zero Width/Height means "use the type's default size".
	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
	X      *int `yaml:"x"`
	Y      *int `yaml:"y"`

	Query   string       `yaml:"query"`
	Legend  string       `yaml:"legend"`
	Targets []TargetSpec `yaml:"targets"`

	Unit          string        `yaml:"unit"`
	Color         string        `yaml:"color"`
	Thresholds    *ThresholdRef `yaml:"thresholds"`
	ValueMappings []any         `yaml:"value_mappings"`
	Overrides     []any         `yaml:"overrides"`
	DataLinks     []any         `yaml:"data_links"`
	Transparent   *bool         `yaml:"transparent"`

	// Comparison panels.
	Datasources []string `yaml:"datasources"`
	Metric      string   `yaml:"metric"`
	MetricType  string   `yaml:"metric_type"`

	Options Options `yaml:",inline"`
}

// HasPosition reports whether the spec pins itself to explicit coordinates.
func (p PanelSpec) HasPosition() bool {
	return p.X != nil && p.Y != nil
}

// TargetSpec is one entry of a panel's targets list.
type TargetSpec struct {
	Expr       string `yaml:"expr"`
	Legend     string `yaml:"legend"`
	Datasource string `yaml:"datasource"`
}
