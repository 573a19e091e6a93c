package discovery

import (
	"context"
	"fmt"

	"github.com/wcatz/dashboard-generator/internal/config"
	"gopkg.in/yaml.v3"
)

// Report is the outcome of discovering one or two datasources. Single-source
// reports fill Groups; two-source reports fill Comparison. Sections holds the
// dashboard sections suggested either way.
type Report struct {
	Sources    []string         `json:"sources"`
	Groups     []Group          `json:"groups,omitempty"`
	Comparison *Categories      `json:"comparison,omitempty"`
	Sections   []config.Section `json:"-"`
}

// Total counts the metrics the report covers for source i.
func (r *Report) Total(i int) int {
	if r.Comparison != nil {
		switch i {
		case 0:
			return len(r.Comparison.Shared) + len(r.Comparison.OnlyA)
		case 1:
			return len(r.Comparison.Shared) + len(r.Comparison.OnlyB)
		}
		return 0
	}
	if i != 0 {
		return 0
	}
	n := 0
	for _, g := range r.Groups {
		n += len(g.Metrics)
	}
	return n
}

// Report discovers sources and suggests sections for them. One source yields
// a section per name prefix. Two sources yield a section of comparison panels
// for the shared metrics followed by a section per exclusive side. Any other
// number of sources yields an empty report.
func (d *Discovery) Report(ctx context.Context, sources, include, exclude []string) (*Report, error) {
	filter, err := NewFilter(include, exclude)
	if err != nil {
		return nil, err
	}

	r := &Report{Sources: sources}
	switch len(sources) {
	case 1:
		ds := sources[0]
		names := d.FetchMetrics(ctx, ds)
		meta := d.FetchMetadata(ctx, ds)

		metrics := make([]Metric, 0, len(names))
		for _, name := range names.Sorted() {
			if filter.Match(name) {
				metrics = append(metrics, Metric{Name: name, MetricInfo: lookupMeta(name, meta, nil)})
			}
		}
		r.Groups = GroupByPrefix(metrics)
		for _, g := range r.Groups {
			r.Sections = append(r.Sections, config.Section{
				Title:  g.Prefix,
				Panels: suggestPanels(g.Metrics, ds),
			})
		}

	case 2:
		a, b := sources[0], sources[1]
		cats, err := d.Categorize(ctx, a, b)
		if err != nil {
			return nil, err
		}
		cats.Shared = filter.Metrics(cats.Shared)
		cats.OnlyA = filter.Metrics(cats.OnlyA)
		cats.OnlyB = filter.Metrics(cats.OnlyB)
		r.Comparison = &cats

		if len(cats.Shared) > 0 {
			panels := make([]config.PanelSpec, 0, len(cats.Shared))
			for _, m := range cats.Shared {
				panels = append(panels, config.PanelSpec{
					Type:        "comparison",
					Title:       m.Name,
					Metric:      m.Name,
					MetricType:  m.Type,
					Datasources: []string{a, b},
				})
			}
			r.Sections = append(r.Sections, config.Section{Title: "shared metrics", Panels: panels})
		}
		if len(cats.OnlyA) > 0 {
			r.Sections = append(r.Sections, config.Section{Title: a + " only", Panels: suggestPanels(cats.OnlyA, a)})
		}
		if len(cats.OnlyB) > 0 {
			r.Sections = append(r.Sections, config.Section{Title: b + " only", Panels: suggestPanels(cats.OnlyB, b)})
		}
	}
	return r, nil
}

func suggestPanels(metrics []Metric, ds string) []config.PanelSpec {
	panels := make([]config.PanelSpec, 0, len(metrics))
	for _, m := range metrics {
		panels = append(panels, config.PanelSpec{
			Type:       SuggestPanelType(m.Type),
			Title:      m.Name,
			Query:      SuggestQuery(m.Name, m.Type),
			Datasource: ds,
		})
	}
	return panels
}

// GenerateSections returns the sections Report suggests for sources.
func (d *Discovery) GenerateSections(ctx context.Context, sources, include, exclude []string) ([]config.Section, error) {
	r, err := d.Report(ctx, sources, include, exclude)
	if err != nil {
		return nil, err
	}
	return r.Sections, nil
}

type snippetDoc struct {
	Dashboards map[string]snippetDashboard `yaml:"dashboards"`
}

type snippetDashboard struct {
	UID       string           `yaml:"uid"`
	Title     string           `yaml:"title"`
	Filename  string           `yaml:"filename"`
	Tags      []string         `yaml:"tags,flow"`
	Variables []string         `yaml:"variables,flow"`
	Sections  []snippetSection `yaml:"sections"`
}

type snippetSection struct {
	Title  string         `yaml:"title"`
	Panels []snippetPanel `yaml:"panels"`
}

type snippetPanel struct {
	Type        string   `yaml:"type"`
	Title       string   `yaml:"title"`
	Query       string   `yaml:"query,omitempty"`
	Datasource  string   `yaml:"datasource,omitempty"`
	Metric      string   `yaml:"metric,omitempty"`
	MetricType  string   `yaml:"metric_type,omitempty"`
	Datasources []string `yaml:"datasources,omitempty,flow"`
}

// Snippet renders the suggested sections as a dashboards: block that can be
// pasted into a config file. Empty reports render nothing.
func (r *Report) Snippet() ([]byte, error) {
	var key string
	dash := snippetDashboard{Variables: []string{}}
	switch {
	case r.Comparison != nil:
		key = "comparison"
		dash.UID = "metric-comparison"
		dash.Title = "metric comparison"
		dash.Filename = "metric-comparison.json"
		dash.Tags = []string{"comparison"}
	case len(r.Sources) == 1:
		ds := r.Sources[0]
		key = "discovered"
		dash.UID = "discovered-" + ds
		dash.Title = fmt.Sprintf("discovered metrics (%s)", ds)
		dash.Filename = "discovered-" + ds + ".json"
		dash.Tags = []string{"discovered"}
	default:
		return nil, nil
	}

	for _, s := range r.Sections {
		ss := snippetSection{Title: s.Title}
		for _, p := range s.Panels {
			ss.Panels = append(ss.Panels, snippetPanel{
				Type:        p.Type,
				Title:       p.Title,
				Query:       p.Query,
				Datasource:  p.Datasource,
				Metric:      p.Metric,
				MetricType:  p.MetricType,
				Datasources: p.Datasources,
			})
		}
		dash.Sections = append(dash.Sections, ss)
	}

	return yaml.Marshal(snippetDoc{Dashboards: map[string]snippetDashboard{key: dash}})
}
