package dashboard

import (
	"github.com/wcatz/dashboard-generator/internal/config"
	"github.com/wcatz/dashboard-generator/internal/panel"
)

// Dashboard is one generated Grafana dashboard document.
type Dashboard struct {
	Annotations          Annotations     `json:"annotations"`
	Description          string          `json:"description"`
	Editable             bool            `json:"editable"`
	FiscalYearStartMonth int             `json:"fiscalYearStartMonth"`
	GraphTooltip         int             `json:"graphTooltip"`
	ID                   *int            `json:"id"`
	Links                []Link          `json:"links"`
	LiveNow              bool            `json:"liveNow"`
	Panels               []panel.Element `json:"panels"`
	Refresh              string          `json:"refresh"`
	SchemaVersion        int             `json:"schemaVersion"`
	Tags                 []string        `json:"tags"`
	Templating           Templating      `json:"templating"`
	Time                 TimeRange       `json:"time"`
	Timepicker           Timepicker      `json:"timepicker"`
	Timezone             string          `json:"timezone"`
	Title                string          `json:"title"`
	UID                  string          `json:"uid"`
	Version              int             `json:"version"`
}

// PanelCount counts every panel including row headers and rows' nested panels.
func (d *Dashboard) PanelCount() int {
	return panel.Count(d.Panels)
}

// Annotations is the dashboard's annotation list.
type Annotations struct {
	List []Annotation `json:"list"`
}

// Annotation is a single annotation query.
type Annotation struct {
	BuiltIn    int                  `json:"builtIn"`
	Datasource config.DatasourceRef `json:"datasource"`
	Enable     bool                 `json:"enable"`
	Hide       bool                 `json:"hide"`
	IconColor  string               `json:"iconColor"`
	Name       string               `json:"name"`
	Type       string               `json:"type"`
}

// builtInAnnotation is the "Annotations & Alerts" entry Grafana adds to every dashboard.
func builtInAnnotation() Annotation {
	return Annotation{
		BuiltIn:    1,
		Datasource: config.DatasourceRef{Type: "grafana", UID: "-- Grafana --"},
		Enable:     true,
		Hide:       true,
		IconColor:  "rgba(0, 211, 255, 1)",
		Name:       "Annotations & Alerts",
		Type:       "dashboard",
	}
}

// Link is a dashboard-level navigation link.
type Link struct {
	Title       string `json:"title"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Icon        string `json:"icon"`
	TargetBlank bool   `json:"targetBlank"`
	KeepTime    bool   `json:"keepTime"`
	IncludeVars bool   `json:"includeVars"`
	Tooltip     string `json:"tooltip"`
}

// Templating holds the dashboard's template variables.
type Templating struct {
	List []Variable `json:"list"`
}

// Variable is a template variable. Datasource and Definition are only set
// for query variables; the Auto* fields only for interval variables.
type Variable struct {
	AllValue    string                `json:"allValue,omitempty"`
	Auto        *bool                 `json:"auto,omitempty"`
	AutoCount   *int                  `json:"auto_count,omitempty"`
	AutoMin     string                `json:"auto_min,omitempty"`
	Current     Current               `json:"current"`
	Datasource  *config.DatasourceRef `json:"datasource,omitempty"`
	Definition  *string               `json:"definition,omitempty"`
	Hide        int                   `json:"hide"`
	IncludeAll  bool                  `json:"includeAll"`
	Label       string                `json:"label"`
	Multi       bool                  `json:"multi"`
	Name        string                `json:"name"`
	Options     []any                 `json:"options"`
	Query       any                   `json:"query"`
	Refresh     int                   `json:"refresh"`
	Regex       string                `json:"regex"`
	SkipURLSync bool                  `json:"skipUrlSync"`
	Sort        int                   `json:"sort"`
	Type        string                `json:"type"`
}

// Current is a variable's selected value.
type Current struct {
	Selected bool   `json:"selected"`
	Text     string `json:"text"`
	Value    string `json:"value"`
}

// VariableQuery is the query object of a query variable.
type VariableQuery struct {
	Query string `json:"query"`
	RefID string `json:"refId"`
}

// TimeRange is the default time window.
type TimeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Timepicker lists the refresh intervals offered in the UI.
type Timepicker struct {
	RefreshIntervals []string `json:"refresh_intervals"`
}
