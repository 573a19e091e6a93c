package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcatz/dashboard-generator/internal/errors"
)

const sampleConfig = `
generator:
  schema_version: 39
  output_dir: out
  refresh: 1m
datasources:
  mimir:
    type: prometheus
    uid: mimir-uid
    url: http://mimir:9009/prometheus
  prom:
    type: prometheus
    uid: prom-uid
    url: http://prom:9090
    is_default: true
palettes:
  dark:
    good: "#73BF69"
    bad: "#F2495C"
active_palette: dark
thresholds:
  cpu_levels:
    - value: 5
      color: $good
    - value: 80
      color: $bad
selectors:
  job: job="node"
constants:
  interval: 5m
variables:
  instance:
    query: label_values(up{${job}}, instance)
    include_all: true
dashboards:
  zeta:
    uid: zeta
    title: Zeta
    variables: [instance]
    sections:
      - title: overview
        panels:
          - type: stat
            title: Up
            query: up{${job}}
            thresholds: $cpu_levels
            color_mode: value
            calcs: [mean, max]
  alpha:
    uid: alpha
    title: Alpha
profiles:
  minimal:
    dashboards: [alpha]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dashboards.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, 39, cfg.Generator.SchemaVersion)
	assert.Len(t, cfg.Datasources, 2)
	assert.Equal(t, "dark", cfg.ActivePalette)

	panel := cfg.Dashboards["zeta"].Sections[0].Panels[0]
	assert.Equal(t, "stat", panel.Type)
	require.NotNil(t, panel.Thresholds)
	assert.Equal(t, "$cpu_levels", panel.Thresholds.Name)
	assert.Equal(t, "value", panel.Options.String("color_mode", "background"))
	assert.Equal(t, []string{"mean", "max"}, panel.Options.Strings("calcs", nil))
	assert.NotContains(t, panel.Options, "type", "typed keys stay out of Options")
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "Config file not found")
}

func TestLoadBytes_Invalid(t *testing.T) {
	_, err := LoadBytes([]byte("dashboards: [unclosed"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestLoadBytes_Empty(t *testing.T) {
	cfg, err := LoadBytes(nil)
	require.NoError(t, err)
	assert.Equal(t, DatasourceRef{Type: "prometheus", UID: "prometheus"}, cfg.DefaultDatasource())
}

func TestInlineThresholds(t *testing.T) {
	cfg, err := LoadBytes([]byte(`
dashboards:
  d:
    sections:
      - panels:
          - type: gauge
            thresholds:
              - value: null
                color: green
              - value: 90
                color: red
`))
	require.NoError(t, err)

	ref := cfg.Dashboards["d"].Sections[0].Panels[0].Thresholds
	require.NotNil(t, ref)
	require.Len(t, ref.Steps, 2)
	assert.Nil(t, ref.Steps[0].Value)
	require.NotNil(t, ref.Steps[1].Value)
	assert.Equal(t, 90.0, *ref.Steps[1].Value)
}

func TestSelectDashboards_Order(t *testing.T) {
	cfg, err := LoadBytes([]byte(sampleConfig))
	require.NoError(t, err)

	all, err := cfg.SelectDashboards("")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "zeta", all[0].Name, "declaration order, not alphabetical")
	assert.Equal(t, "alpha", all[1].Name)

	minimal, err := cfg.SelectDashboards("minimal")
	require.NoError(t, err)
	require.Len(t, minimal, 1)
	assert.Equal(t, "Alpha", minimal[0].Title)

	_, err = cfg.SelectDashboards("nope")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "nope")
}

func TestOutputDir(t *testing.T) {
	cfg := &Config{Path: "/etc/dashgen/dashboards.yaml", Generator: Generator{OutputDir: "out"}}
	assert.Equal(t, "/tmp/x", cfg.OutputDir("/tmp/x"))
	assert.Equal(t, filepath.Join("/etc/dashgen", "out"), cfg.OutputDir(""))

	cfg.Generator.OutputDir = "/abs"
	assert.Equal(t, "/abs", cfg.OutputDir(""))

	assert.Equal(t, ".", (&Config{}).OutputDir(""))
}

func TestValidate(t *testing.T) {
	t.Run("sample config is valid", func(t *testing.T) {
		cfg, err := LoadBytes([]byte(sampleConfig))
		require.NoError(t, err)
		assert.NoError(t, Validate(cfg))
	})

	t.Run("reports every broken reference", func(t *testing.T) {
		cfg, err := LoadBytes([]byte(`
active_palette: missing
datasources:
  a: {type: prometheus, uid: a, is_default: true}
  b: {type: prometheus, uid: b, is_default: true}
discovery:
  sources: [ghost]
profiles:
  p:
    dashboards: [nope]
dashboards:
  d:
    variables: [undefined_var]
    sections:
      - panels:
          - type: stat
            title: cpu
            datasource: loki
            thresholds: $missing_set
            x: 3
`))
		require.NoError(t, err)

		err = Validate(cfg)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
		msg := err.Error()
		for _, want := range []string{
			"active_palette 'missing'",
			"more than one datasource has is_default: a, b",
			"discovery source 'ghost'",
			"profile 'p' lists unknown dashboard 'nope'",
			"undefined variable 'undefined_var'",
			"unknown datasource 'loki'",
			"undefined threshold set 'missing_set'",
			"x and y must be set together",
		} {
			assert.Contains(t, msg, want)
		}
	})
}
