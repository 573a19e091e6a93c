package discovery

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/wcatz/dashboard-generator/internal/errors"
	"github.com/wcatz/dashboard-generator/internal/panel"
)

// Filter keeps metric names that match an include glob and no exclude glob.
type Filter struct {
	include []glob.Glob
	exclude []glob.Glob
}

// NewFilter compiles the patterns. An empty include list means "*".
func NewFilter(include, exclude []string) (*Filter, error) {
	if len(include) == 0 {
		include = []string{"*"}
	}
	f := &Filter{}
	var err error
	if f.include, err = compileAll(include); err != nil {
		return nil, err
	}
	if f.exclude, err = compileAll(exclude); err != nil {
		return nil, err
	}
	return f, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Invalid metric pattern '%s'", p),
				"Patterns use shell glob syntax: node_*, *_total, process_[rv]*")
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Match reports whether name passes the filter.
func (f *Filter) Match(name string) bool {
	return matchAny(f.include, name) && !matchAny(f.exclude, name)
}

func matchAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Metrics returns the metrics that pass the filter, preserving order.
func (f *Filter) Metrics(metrics []Metric) []Metric {
	out := make([]Metric, 0, len(metrics))
	for _, m := range metrics {
		if f.Match(m.Name) {
			out = append(out, m)
		}
	}
	return out
}

// FilterMetrics returns the names that match at least one include glob and
// no exclude glob, preserving order.
func FilterMetrics(names, include, exclude []string) ([]string, error) {
	f, err := NewFilter(include, exclude)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if f.Match(n) {
			out = append(out, n)
		}
	}
	return out, nil
}

// Group is a set of metrics sharing a name prefix.
type Group struct {
	Prefix  string   `json:"prefix"`
	Metrics []Metric `json:"metrics"`
}

// Prefix is the first two underscore-separated tokens of name, or the whole
// name when it has no underscore.
func Prefix(name string) string {
	parts := strings.SplitN(name, "_", 3)
	if len(parts) < 2 {
		return parts[0]
	}
	return parts[0] + "_" + parts[1]
}

// GroupByPrefix clusters metrics by Prefix. Groups are sorted by prefix and
// metrics within a group by name.
func GroupByPrefix(metrics []Metric) []Group {
	byPrefix := make(map[string][]Metric)
	for _, m := range metrics {
		p := Prefix(m.Name)
		byPrefix[p] = append(byPrefix[p], m)
	}

	groups := make([]Group, 0, len(byPrefix))
	for p, ms := range byPrefix {
		sort.Slice(ms, func(i, j int) bool { return ms[i].Name < ms[j].Name })
		groups = append(groups, Group{Prefix: p, Metrics: ms})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Prefix < groups[j].Prefix })
	return groups
}

var panelForType = map[string]string{
	"counter":   "timeseries",
	"gauge":     "stat",
	"histogram": "heatmap",
	"summary":   "timeseries",
	Untyped:     "timeseries",
}

// SuggestPanelType maps a metric type to the panel type that shows it best.
func SuggestPanelType(metricType string) string {
	if t, ok := panelForType[metricType]; ok {
		return t
	}
	return "timeseries"
}

// SuggestQuery returns the expression to graph metric: counters are rated,
// everything else is queried as is.
func SuggestQuery(metric, metricType string) string {
	if metricType == "counter" {
		return panel.CounterQuery(metric)
	}
	return metric
}
