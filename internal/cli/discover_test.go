package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcatz/dashboard-generator/internal/config"
	"github.com/wcatz/dashboard-generator/internal/discovery"
)

// fakeProm serves a fixed metric list and metadata.
func fakeProm(t *testing.T, names string, metadata string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/label/__name__/values", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"status":"success","data":%s}`, names)
	})
	mux.HandleFunc("/api/v1/metadata", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"status":"success","data":%s}`, metadata)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func discoverConfig(promA, promB string) string {
	return fmt.Sprintf(`
datasources:
  prom: {type: prometheus, uid: prom, url: %q, is_default: true}
  thanos: {type: prometheus, uid: thanos, url: %q}
discovery:
  exclude_patterns: ["go_*"]
dashboards:
  d:
    title: D
`, promA, promB)
}

const promMetadata = `{
	"node_cpu_seconds_total":[{"type":"counter","help":"","unit":""}],
	"node_load1":[{"type":"gauge","help":"","unit":""}]
}`

func TestDiscoverCommand_SingleSource(t *testing.T) {
	srv := fakeProm(t, `["node_cpu_seconds_total","node_load1","go_goroutines"]`, promMetadata)
	path := writeFile(t, "dashboards.yaml", discoverConfig(srv.URL, srv.URL))

	out, _, err := executeCommand(t, "discover", "--config", path)
	require.NoError(t, err)

	assert.Contains(t, out, "prom: 2 metrics in 2 groups")
	assert.Contains(t, out, "node_cpu_seconds_total")
	assert.NotContains(t, out, "go_goroutines")
	assert.Contains(t, out, "Suggested config")
	assert.Contains(t, out, "discovered-prom")
}

func TestDiscoverCommand_TwoSourcesJSON(t *testing.T) {
	a := fakeProm(t, `["node_load1","up","only_a_metric"]`, promMetadata)
	b := fakeProm(t, `["node_load1","up","only_b_metric"]`, promMetadata)
	path := writeFile(t, "dashboards.yaml", discoverConfig(a.URL, b.URL))

	out, _, err := executeCommand(t, "discover", "prom", "thanos", "--config", path, "--json", "--exclude", "up")
	require.NoError(t, err)

	var env struct {
		Success bool `json:"success"`
		Data    struct {
			Sources    []string              `json:"sources"`
			Comparison *discovery.Categories `json:"comparison"`
			Snippet    string                `json:"snippet"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.True(t, env.Success)
	assert.Equal(t, []string{"prom", "thanos"}, env.Data.Sources)
	require.NotNil(t, env.Data.Comparison)
	require.Len(t, env.Data.Comparison.Shared, 1)
	assert.Equal(t, "node_load1", env.Data.Comparison.Shared[0].Name)
	require.Len(t, env.Data.Comparison.OnlyA, 1)
	assert.Equal(t, "only_a_metric", env.Data.Comparison.OnlyA[0].Name)
	require.Len(t, env.Data.Comparison.OnlyB, 1)

	cfg, err := config.LoadBytes([]byte(env.Data.Snippet))
	require.NoError(t, err)
	d, ok := cfg.Dashboards["comparison"]
	require.True(t, ok)
	assert.Equal(t, "shared metrics", d.Sections[0].Title)
}

func TestRenderDiscovery_Comparison(t *testing.T) {
	r := &discovery.Report{
		Sources: []string{"prom", "mimir"},
		Comparison: &discovery.Categories{
			Shared: []discovery.Metric{{Name: "up", MetricInfo: discovery.MetricInfo{Type: "gauge"}}},
			OnlyA:  []discovery.Metric{{Name: "prom_only_total", MetricInfo: discovery.MetricInfo{Type: "counter"}}},
			OnlyB:  []discovery.Metric{},
		},
	}

	var buf bytes.Buffer
	renderDiscovery(&buf, r, nil)
	out := buf.String()

	assert.Contains(t, out, "Shared metrics (1)")
	assert.Contains(t, out, "Only in prom (1)")
	assert.Contains(t, out, "prom_only_total")
	assert.Contains(t, out, "counter")
	assert.Contains(t, out, "Only in mimir (0)")
	assert.Contains(t, out, "(none)")
	assert.Contains(t, out, "nothing to suggest")
}

func TestDiscoverCommand_UnreachableDegrades(t *testing.T) {
	path := writeFile(t, "dashboards.yaml", discoverConfig("http://127.0.0.1:1", "http://127.0.0.1:1"))

	out, stderr, err := executeCommand(t, "discover", "--config", path, "--timeout", "2s")
	require.NoError(t, err)
	assert.Contains(t, out, "prom: 0 metrics in 0 groups")
	assert.Contains(t, out, "nothing to suggest")
	assert.Contains(t, stderr, "WARN")
}

func TestDiscoverCommand_BadTimeout(t *testing.T) {
	path := writeFile(t, "dashboards.yaml", discoverConfig("http://a", "http://b"))

	_, _, err := executeCommand(t, "discover", "--config", path, "--timeout", "soon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid timeout")
}

func TestDiscoverCommand_TooManyArgs(t *testing.T) {
	_, _, err := executeCommand(t, "discover", "a", "b", "c")
	require.Error(t, err)
}

func TestDiscoverSources(t *testing.T) {
	cfg, err := config.LoadBytes([]byte(discoverConfig("http://a", "http://b")))
	require.NoError(t, err)

	assert.Equal(t, []string{"thanos"}, discoverSources(cfg, []string{"thanos"}))
	assert.Equal(t, []string{"prom"}, discoverSources(cfg, nil))

	cfg.Discovery.Sources = []string{"prom", "thanos"}
	assert.Equal(t, []string{"prom", "thanos"}, discoverSources(cfg, nil))
}
