package discovery

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcatz/dashboard-generator/internal/config"
	"github.com/wcatz/dashboard-generator/internal/logger"
)

// fakeClient serves canned metric universes and counts calls per endpoint.
type fakeClient struct {
	names map[string][]string
	meta  map[string]map[string]MetricInfo
	fail  map[string]bool
	delay time.Duration

	mu    sync.Mutex
	calls map[string]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		names: map[string][]string{},
		meta:  map[string]map[string]MetricInfo{},
		fail:  map[string]bool{},
		calls: map[string]int{},
	}
}

func (f *fakeClient) record(kind, ds string) error {
	f.mu.Lock()
	f.calls[kind+":"+ds]++
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail[ds] {
		return fmt.Errorf("connection refused")
	}
	return nil
}

func (f *fakeClient) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeClient) MetricNames(ctx context.Context, ds string) ([]string, error) {
	if err := f.record("metrics", ds); err != nil {
		return nil, err
	}
	return f.names[ds], nil
}

func (f *fakeClient) Metadata(ctx context.Context, ds string) (map[string]MetricInfo, error) {
	if err := f.record("metadata", ds); err != nil {
		return nil, err
	}
	return f.meta[ds], nil
}

func (f *fakeClient) LabelValues(ctx context.Context, ds, label string) ([]string, error) {
	if err := f.record("label", ds); err != nil {
		return nil, err
	}
	return []string{"a", "b"}, nil
}

// blockingClient never answers until its context ends.
type blockingClient struct{}

func (blockingClient) MetricNames(ctx context.Context, ds string) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingClient) Metadata(ctx context.Context, ds string) (map[string]MetricInfo, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingClient) LabelValues(ctx context.Context, ds, label string) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func twoSourceClient() *fakeClient {
	c := newFakeClient()
	c.names["prom"] = []string{"up", "node_load1", "prom_only_total"}
	c.names["mimir"] = []string{"up", "node_load1", "mimir_ingester_total"}
	c.meta["prom"] = map[string]MetricInfo{
		"up":              {Type: "gauge", Help: "target up"},
		"prom_only_total": {Type: "counter"},
	}
	c.meta["mimir"] = map[string]MetricInfo{
		"up":                   {Type: "counter", Help: "mimir says counter"},
		"node_load1":           {Type: "gauge", Help: "1m load"},
		"mimir_ingester_total": {Type: "counter"},
	}
	return c
}

func TestFetchMetrics_Caches(t *testing.T) {
	c := newFakeClient()
	c.names["prom"] = []string{"up", "node_load1"}
	d := New(c, WithLogger(logger.Noop()))

	first := d.FetchMetrics(context.Background(), "prom")
	second := d.FetchMetrics(context.Background(), "prom")

	assert.Equal(t, []string{"node_load1", "up"}, first.Sorted())
	assert.Equal(t, first, second)
	assert.Equal(t, 1, c.count("metrics:prom"))
}

func TestFetch_FailureDegradesToEmpty(t *testing.T) {
	c := newFakeClient()
	c.fail["prom"] = true
	log := logger.NewBufferLogger()
	d := New(c, WithLogger(log))

	assert.Empty(t, d.FetchMetrics(context.Background(), "prom"))
	assert.Empty(t, d.FetchMetadata(context.Background(), "prom"))
	assert.Empty(t, d.FetchLabelValues(context.Background(), "prom", "job"))
	assert.True(t, log.HasLevel("warn"))

	d.FetchMetrics(context.Background(), "prom")
	assert.Equal(t, 1, c.count("metrics:prom"), "failures are cached for the run")
}

func TestFetch_TimeoutDegradesToEmpty(t *testing.T) {
	log := logger.NewBufferLogger()
	d := New(blockingClient{}, WithLogger(log), WithTimeout(20*time.Millisecond))

	start := time.Now()
	names := d.FetchMetrics(context.Background(), "slow")

	assert.Empty(t, names)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, log.HasLevel("warn"))
}

func TestFetchLabelValues(t *testing.T) {
	c := newFakeClient()
	d := New(c, WithLogger(logger.Noop()))

	assert.Equal(t, []string{"a", "b"}, d.FetchLabelValues(context.Background(), "prom", "job"))
	d.FetchLabelValues(context.Background(), "prom", "job")
	assert.Equal(t, 1, c.count("label:prom"))
}

func TestCategorize(t *testing.T) {
	d := New(twoSourceClient(), WithLogger(logger.Noop()))

	cats, err := d.Categorize(context.Background(), "prom", "mimir")
	require.NoError(t, err)

	assert.Equal(t, []Metric{
		{Name: "node_load1", MetricInfo: MetricInfo{Type: "gauge", Help: "1m load"}},
		{Name: "up", MetricInfo: MetricInfo{Type: "gauge", Help: "target up"}},
	}, cats.Shared, "shared prefers the first datasource's metadata, then the second's")
	assert.Equal(t, []Metric{{Name: "prom_only_total", MetricInfo: MetricInfo{Type: "counter"}}}, cats.OnlyA)
	assert.Equal(t, []Metric{{Name: "mimir_ingester_total", MetricInfo: MetricInfo{Type: "counter"}}}, cats.OnlyB)
}

func TestCategorize_MissingMetadataIsUntyped(t *testing.T) {
	c := newFakeClient()
	c.names["a"] = []string{"x_total"}
	c.names["b"] = []string{"y_total"}
	d := New(c, WithLogger(logger.Noop()))

	cats, err := d.Categorize(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, Untyped, cats.OnlyA[0].Type)
	assert.Equal(t, Untyped, cats.OnlyB[0].Type)
	assert.Empty(t, cats.Shared)
}

func TestCategorize_ExclusiveFallsBackToOtherMetadata(t *testing.T) {
	c := newFakeClient()
	c.names["a"] = []string{"only_a_total"}
	c.names["b"] = []string{"only_b_total"}
	c.meta["a"] = map[string]MetricInfo{"only_b_total": {Type: "counter"}}
	c.meta["b"] = map[string]MetricInfo{"only_a_total": {Type: "counter"}}
	d := New(c, WithLogger(logger.Noop()))

	cats, err := d.Categorize(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, []Metric{{Name: "only_a_total", MetricInfo: MetricInfo{Type: "counter"}}}, cats.OnlyA)
	assert.Equal(t, []Metric{{Name: "only_b_total", MetricInfo: MetricInfo{Type: "counter"}}}, cats.OnlyB)
	assert.Equal(t, "rate(only_a_total[5m])", SuggestQuery(cats.OnlyA[0].Name, cats.OnlyA[0].Type))
}

func TestCategorize_PartitionsUnion(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
	}{
		{name: "both empty"},
		{name: "a empty", b: []string{"up", "node_load1"}},
		{name: "b empty", a: []string{"up", "node_load1"}},
		{name: "identical", a: []string{"up", "node_load1"}, b: []string{"node_load1", "up"}},
		{name: "disjoint", a: []string{"a_total", "a_bytes"}, b: []string{"b_total"}},
		{name: "overlapping", a: []string{"up", "a_total", "shared_seconds"}, b: []string{"shared_seconds", "up", "b_total"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newFakeClient()
			c.names["a"] = tt.a
			c.names["b"] = tt.b
			d := New(c, WithLogger(logger.Noop()))

			cats, err := d.Categorize(context.Background(), "a", "b")
			require.NoError(t, err)

			seen := map[string]int{}
			for _, group := range [][]Metric{cats.Shared, cats.OnlyA, cats.OnlyB} {
				for _, m := range group {
					seen[m.Name]++
				}
			}
			union := map[string]int{}
			for _, n := range append(append([]string{}, tt.a...), tt.b...) {
				union[n] = 1
			}
			for name, n := range seen {
				assert.Equal(t, 1, n, "%s appears in more than one category", name)
			}
			assert.Equal(t, union, seen)
		})
	}
}

func TestCategorize_SameDatasourceFetchesOnce(t *testing.T) {
	c := twoSourceClient()
	c.delay = 20 * time.Millisecond
	d := New(c, WithLogger(logger.Noop()))

	cats, err := d.Categorize(context.Background(), "prom", "prom")
	require.NoError(t, err)

	assert.Len(t, cats.Shared, 3)
	assert.Empty(t, cats.OnlyA)
	assert.Empty(t, cats.OnlyB)
	assert.Equal(t, 1, c.count("metrics:prom"))
	assert.Equal(t, 1, c.count("metadata:prom"))
}

func TestCategorize_CancelledContext(t *testing.T) {
	d := New(blockingClient{}, WithLogger(logger.Noop()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Categorize(ctx, "a", "b")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReport_SingleSource(t *testing.T) {
	c := newFakeClient()
	c.names["prom"] = []string{"node_cpu_seconds_total", "node_load1", "up", "go_gc_duration_seconds"}
	c.meta["prom"] = map[string]MetricInfo{
		"node_cpu_seconds_total": {Type: "counter"},
		"node_load1":             {Type: "gauge"},
		"go_gc_duration_seconds": {Type: "summary"},
	}
	d := New(c, WithLogger(logger.Noop()))

	r, err := d.Report(context.Background(), []string{"prom"}, nil, []string{"go_*", "up"})
	require.NoError(t, err)

	require.Len(t, r.Groups, 2)
	assert.Equal(t, "node_cpu", r.Groups[0].Prefix)
	assert.Equal(t, "node_load1", r.Groups[1].Prefix)
	assert.Equal(t, 2, r.Total(0))
	assert.Nil(t, r.Comparison)

	require.Len(t, r.Sections, 2)
	assert.Equal(t, config.PanelSpec{
		Type:       "timeseries",
		Title:      "node_cpu_seconds_total",
		Query:      "rate(node_cpu_seconds_total[5m])",
		Datasource: "prom",
	}, r.Sections[0].Panels[0])
	assert.Equal(t, "stat", r.Sections[1].Panels[0].Type)
}

func TestReport_UnprefixedNamesGroupAlone(t *testing.T) {
	c := newFakeClient()
	c.names["prom"] = []string{"up"}
	d := New(c, WithLogger(logger.Noop()))

	sections, err := d.GenerateSections(context.Background(), []string{"prom"}, nil, nil)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "up", sections[0].Title)
	assert.Equal(t, "timeseries", sections[0].Panels[0].Type, "untyped metrics graph as timeseries")
}

func TestReport_TwoSources(t *testing.T) {
	d := New(twoSourceClient(), WithLogger(logger.Noop()))

	r, err := d.Report(context.Background(), []string{"prom", "mimir"}, nil, []string{"node_*"})
	require.NoError(t, err)

	require.NotNil(t, r.Comparison)
	assert.Equal(t, 2, r.Total(0))
	assert.Equal(t, 2, r.Total(1))

	require.Len(t, r.Sections, 3)
	assert.Equal(t, "shared metrics", r.Sections[0].Title)
	assert.Equal(t, config.PanelSpec{
		Type:        "comparison",
		Title:       "up",
		Metric:      "up",
		MetricType:  "gauge",
		Datasources: []string{"prom", "mimir"},
	}, r.Sections[0].Panels[0])
	assert.Equal(t, "prom only", r.Sections[1].Title)
	assert.Equal(t, "rate(prom_only_total[5m])", r.Sections[1].Panels[0].Query)
	assert.Equal(t, "prom", r.Sections[1].Panels[0].Datasource)
	assert.Equal(t, "mimir only", r.Sections[2].Title)
	assert.Equal(t, "mimir", r.Sections[2].Panels[0].Datasource)
}

func TestReport_EmptySideHasNoSection(t *testing.T) {
	c := newFakeClient()
	c.names["a"] = []string{"up"}
	c.names["b"] = []string{"up"}
	d := New(c, WithLogger(logger.Noop()))

	sections, err := d.GenerateSections(context.Background(), []string{"a", "b"}, nil, nil)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "shared metrics", sections[0].Title)
}

func TestReport_UnsupportedSourceCount(t *testing.T) {
	c := newFakeClient()
	d := New(c, WithLogger(logger.Noop()))

	for _, sources := range [][]string{nil, {"a", "b", "c"}} {
		r, err := d.Report(context.Background(), sources, nil, nil)
		require.NoError(t, err)
		assert.Empty(t, r.Sections)
		assert.Empty(t, r.Groups)
		assert.Nil(t, r.Comparison)

		snippet, err := r.Snippet()
		require.NoError(t, err)
		assert.Empty(t, snippet)
	}
	assert.Empty(t, c.calls, "nothing is fetched")
}

func TestReport_InvalidPattern(t *testing.T) {
	d := New(newFakeClient(), WithLogger(logger.Noop()))

	_, err := d.Report(context.Background(), []string{"prom"}, []string{"node_[a"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node_[a")
}

func TestSnippet_LoadsAsConfig(t *testing.T) {
	d := New(twoSourceClient(), WithLogger(logger.Noop()))
	r, err := d.Report(context.Background(), []string{"prom", "mimir"}, nil, nil)
	require.NoError(t, err)

	snippet, err := r.Snippet()
	require.NoError(t, err)

	cfg, err := config.LoadBytes(snippet)
	require.NoError(t, err)
	dash, ok := cfg.Dashboards["comparison"]
	require.True(t, ok)
	assert.Equal(t, "metric-comparison", dash.UID)
	assert.Equal(t, []string{"comparison"}, dash.Tags)
	require.Len(t, dash.Sections, 3)
	assert.Equal(t, r.Sections[0].Panels[0].Datasources, dash.Sections[0].Panels[0].Datasources)
	assert.Equal(t, r.Sections[1].Panels[0].Query, dash.Sections[1].Panels[0].Query)
}

func TestSnippet_SingleSource(t *testing.T) {
	c := newFakeClient()
	c.names["prom"] = []string{"up"}
	d := New(c, WithLogger(logger.Noop()))
	r, err := d.Report(context.Background(), []string{"prom"}, nil, nil)
	require.NoError(t, err)

	snippet, err := r.Snippet()
	require.NoError(t, err)
	assert.Contains(t, string(snippet), "discovered:")
	assert.Contains(t, string(snippet), "uid: discovered-prom")
	assert.Contains(t, string(snippet), "filename: discovered-prom.json")
	assert.Contains(t, string(snippet), "tags: [discovered]")
}
