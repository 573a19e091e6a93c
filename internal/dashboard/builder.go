// Package dashboard assembles complete dashboard documents from a config:
// variables, sections, navigation links and generator defaults.
package dashboard

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/wcatz/dashboard-generator/internal/config"
	"github.com/wcatz/dashboard-generator/internal/errors"
	"github.com/wcatz/dashboard-generator/internal/layout"
	"github.com/wcatz/dashboard-generator/internal/panel"
)

// Fallbacks for generator settings the config leaves out.
const (
	DefaultRefresh       = "30s"
	DefaultSchemaVersion = 39
	DefaultTimeFrom      = "now-30m"
	DefaultTimeTo        = "now"
	DefaultGraphTooltip  = 1
	DefaultIcon          = "apps"
	DefaultIntervals     = "1m,5m,15m,30m,1h,6h,12h,1d"
)

var refreshIntervals = []string{"5s", "10s", "30s", "1m", "5m", "15m", "30m"}

// uidNamespace seeds the UIDs of dashboards that don't declare one.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/wcatz/dashboard-generator"))

// UID returns the dashboard's declared uid, or a stable one derived from its name.
func UID(d config.NamedDashboard) string {
	if d.UID != "" {
		return d.UID
	}
	return uuid.NewSHA1(uidNamespace, []byte(d.Name)).String()
}

// Builder builds dashboards one at a time. Each Build starts from fresh ID
// and layout state, so a Builder can be reused for every dashboard of a run
// but not shared between goroutines.
type Builder struct {
	cfg     *config.Config
	ids     *panel.IDAllocator
	factory *panel.Factory
	layout  *layout.Engine
}

// NewBuilder creates a Builder for cfg.
func NewBuilder(cfg *config.Config) *Builder {
	ids := &panel.IDAllocator{}
	return &Builder{
		cfg:     cfg,
		ids:     ids,
		factory: panel.NewFactory(cfg, ids),
		layout:  layout.New(),
	}
}

// NavigationLinks returns one link per dashboard so every dashboard of the
// run can reach every other one.
func (b *Builder) NavigationLinks(all []config.NamedDashboard) []Link {
	links := make([]Link, 0, len(all))
	for _, d := range all {
		icon := d.Icon
		if icon == "" {
			icon = DefaultIcon
		}
		links = append(links, Link{
			Title:       d.Title,
			Type:        "link",
			URL:         "/d/" + UID(d),
			Icon:        icon,
			TargetBlank: false,
			KeepTime:    true,
			IncludeVars: true,
			Tooltip:     d.Description,
		})
	}
	return links
}

// Variable resolves the named variable definition into a template variable.
func (b *Builder) Variable(name string) (Variable, error) {
	def, err := b.cfg.VariableDef(name)
	if err != nil {
		return Variable{}, err
	}

	v := Variable{
		AllValue:    def.AllValue,
		Hide:        def.Hide,
		IncludeAll:  def.IncludeAll,
		Label:       def.Label,
		Multi:       def.Multi,
		Name:        name,
		Options:     []any{},
		Refresh:     def.Refresh,
		Regex:       def.Regex,
		SkipURLSync: false,
		Sort:        def.Sort,
		Type:        def.Type,
	}
	if v.Type == "" {
		v.Type = "query"
	}
	if v.Label == "" {
		v.Label = name
	}
	if v.Refresh == 0 {
		v.Refresh = 2
	}
	if v.Sort == 0 {
		v.Sort = 1
	}

	if def.IncludeAll {
		v.Current = Current{Selected: true, Text: "All", Value: "$__all"}
	} else {
		v.Current = Current{Selected: true, Text: def.Default.Text, Value: def.Default.Value}
	}

	switch v.Type {
	case "custom":
		v.Query = def.Values
	case "datasource":
		dsType := def.DSType
		if dsType == "" {
			dsType = "prometheus"
		}
		v.Query = dsType
	case "interval":
		values := def.Values
		if values == "" {
			values = DefaultIntervals
		}
		autoCount := def.AutoCount
		if autoCount == 0 {
			autoCount = 10
		}
		autoMin := def.AutoMin
		if autoMin == "" {
			autoMin = "10s"
		}
		v.Query = values
		v.Auto = &def.Auto
		v.AutoCount = &autoCount
		v.AutoMin = autoMin
	default:
		ds, err := b.cfg.DatasourceRef(def.Datasource)
		if err != nil {
			return Variable{}, errors.Prefix(err, fmt.Sprintf("variable '%s'", name))
		}
		query := b.cfg.ResolveRef(def.Query)
		v.Datasource = &ds
		v.Definition = &query
		v.Query = VariableQuery{Query: query, RefID: "StandardVariableQuery"}
	}

	return v, nil
}

// Section builds one section: a row header followed by its panels. Open
// sections flow through the dashboard's layout. Collapsed sections nest
// their panels inside the row, laid out on a grid of their own.
func (b *Builder) Section(s config.Section) ([]panel.Element, error) {
	row := b.factory.Row(s, b.layout.AddRow())

	if s.Collapsed {
		inner := layout.New(layout.WithGridWidth(b.layout.GridWidth()))
		for _, spec := range s.Panels {
			p, err := b.place(spec, inner, s.Title)
			if err != nil {
				return nil, err
			}
			row.Panels = append(row.Panels, p)
		}
		return []panel.Element{row}, nil
	}

	elems := []panel.Element{row}
	for _, spec := range s.Panels {
		p, err := b.place(spec, b.layout, s.Title)
		if err != nil {
			return nil, err
		}
		elems = append(elems, p)
	}
	b.layout.FinishSection()
	return elems, nil
}

// place positions and builds one panel. Specs with explicit x and y skip
// the layout engine.
func (b *Builder) place(spec config.PanelSpec, eng *layout.Engine, section string) (*panel.Panel, error) {
	var x, y int
	if spec.HasPosition() {
		x, y = *spec.X, *spec.Y
	} else {
		x, y = eng.Place(panel.Size(spec))
	}

	p, err := b.factory.Build(spec, x, y)
	if err != nil {
		return nil, errors.Prefix(err, fmt.Sprintf("section '%s', panel '%s'", section, spec.Title))
	}
	return p, nil
}

// Build assembles the dashboard d. Discovered sections are appended after
// the declared ones.
func (b *Builder) Build(d config.NamedDashboard, links []Link, discovered []config.Section) (*Dashboard, error) {
	b.ids.Reset()
	b.layout.Reset()

	vars := make([]Variable, 0, len(d.Variables))
	for _, name := range d.Variables {
		v, err := b.Variable(name)
		if err != nil {
			return nil, errors.Prefix(err, fmt.Sprintf("dashboard '%s'", d.Name))
		}
		vars = append(vars, v)
	}

	elems := []panel.Element{}
	sections := make([]config.Section, 0, len(d.Sections)+len(discovered))
	sections = append(sections, d.Sections...)
	sections = append(sections, discovered...)
	for _, s := range sections {
		built, err := b.Section(s)
		if err != nil {
			return nil, errors.Prefix(err, fmt.Sprintf("dashboard '%s'", d.Name))
		}
		elems = append(elems, built...)
	}

	gen := b.cfg.Generator
	dash := &Dashboard{
		Annotations:          Annotations{List: []Annotation{builtInAnnotation()}},
		Description:          d.Description,
		Editable:             boolOr(gen.Editable, true),
		FiscalYearStartMonth: 0,
		GraphTooltip:         intOr(gen.GraphTooltip, DefaultGraphTooltip),
		Links:                links,
		LiveNow:              boolOr(gen.LiveNow, true),
		Panels:               elems,
		Refresh:              stringOr(gen.Refresh, DefaultRefresh),
		SchemaVersion:        gen.SchemaVersion,
		Tags:                 d.Tags,
		Templating:           Templating{List: vars},
		Time: TimeRange{
			From: stringOr(gen.TimeRange["from"], DefaultTimeFrom),
			To:   stringOr(gen.TimeRange["to"], DefaultTimeTo),
		},
		Timepicker: Timepicker{RefreshIntervals: refreshIntervals},
		Timezone:   gen.Timezone,
		Title:      d.Title,
		UID:        UID(d),
		Version:    1,
	}
	if dash.SchemaVersion == 0 {
		dash.SchemaVersion = DefaultSchemaVersion
	}
	if dash.Links == nil {
		dash.Links = []Link{}
	}
	if dash.Tags == nil {
		dash.Tags = []string{}
	}
	return dash, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
