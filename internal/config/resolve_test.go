package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcatz/dashboard-generator/internal/errors"
)

func ptr[T any](v T) *T { return &v }

func resolverConfig() *Config {
	return &Config{
		Palettes: map[string]map[string]string{
			"dark": {"good": "#73BF69", "bad": "#F2495C"},
		},
		ActivePalette: "dark",
		Thresholds: map[string][]ThresholdStep{
			"cpu_levels": {
				{Color: "$good", Value: ptr(0.0)},
				{Color: "$bad", Value: ptr(90.0)},
			},
			"empty": {},
		},
		Constants: map[string]string{"window": "5m", "job": "constant-wins"},
		Selectors: map[string]string{"job": `job="node"`, "env": `env="prod"`},
		Datasources: map[string]Datasource{
			"a": {Type: "prometheus", UID: "a-uid", URL: "http://a:9090"},
			"b": {Type: "prometheus", UID: "b-uid", URL: "http://b:9090", IsDefault: true},
		},
		Variables: map[string]VariableDef{"instance": {Query: "label_values(instance)"}},
	}
}

func TestResolveRef(t *testing.T) {
	cfg := resolverConfig()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "constant", in: "rate(x[${window}])", want: "rate(x[5m])"},
		{name: "constant before selector", in: "up{${job}}", want: "up{constant-wins}"},
		{name: "selector", in: "up{${env}}", want: `up{env="prod"}`},
		{name: "several", in: "${env} ${window}", want: `env="prod" 5m`},
		{name: "unknown passes through", in: "up{${nope}}", want: "up{${nope}}"},
		{name: "no references", in: "up", want: "up"},
		{name: "bare dollar untouched", in: "$window", want: "$window"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.ResolveRef(tt.in))
		})
	}
}

func TestResolveColor(t *testing.T) {
	cfg := resolverConfig()

	assert.Equal(t, "#73BF69", cfg.ResolveColor("$good"))
	assert.Equal(t, "missing", cfg.ResolveColor("$missing"))
	assert.Equal(t, "red", cfg.ResolveColor("red"))
	assert.Equal(t, "", cfg.ResolveColor(""))

	cfg.ActivePalette = "light"
	assert.Equal(t, "good", cfg.ResolveColor("$good"), "inactive palette entries are not used")
}

func TestResolveThresholds(t *testing.T) {
	cfg := resolverConfig()

	t.Run("named set", func(t *testing.T) {
		steps, err := cfg.ResolveThresholds(&ThresholdRef{Name: "$cpu_levels"})
		require.NoError(t, err)
		require.Len(t, steps, 2)
		assert.Equal(t, "#73BF69", steps[0].Color)
		assert.Nil(t, steps[0].Value, "first step is always the base step")
		assert.Equal(t, "#F2495C", steps[1].Color)
		assert.Equal(t, 90.0, *steps[1].Value)

		assert.NotNil(t, cfg.Thresholds["cpu_levels"][0].Value, "library is not mutated")
	})

	t.Run("undefined set fails", func(t *testing.T) {
		_, err := cfg.ResolveThresholds(&ThresholdRef{Name: "$nope"})
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
		assert.Contains(t, err.Error(), "nope")
	})

	t.Run("inline steps resolve colors", func(t *testing.T) {
		steps, err := cfg.ResolveThresholds(&ThresholdRef{Steps: []ThresholdStep{{Color: "$good"}, {Color: "blue", Value: ptr(3.0)}}})
		require.NoError(t, err)
		require.Len(t, steps, 2)
		assert.Equal(t, "#73BF69", steps[0].Color)
		assert.Equal(t, "blue", steps[1].Color)
	})

	t.Run("other values pass through as nil", func(t *testing.T) {
		for _, ref := range []*ThresholdRef{nil, {Name: "cpu_levels"}, {Name: "$empty"}} {
			steps, err := cfg.ResolveThresholds(ref)
			assert.NoError(t, err)
			assert.Nil(t, steps)
		}
	})
}

func TestDatasources(t *testing.T) {
	cfg := resolverConfig()

	ds, err := cfg.Datasource("a")
	require.NoError(t, err)
	assert.Equal(t, "a-uid", ds.UID)

	_, err = cfg.Datasource("loki")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loki")

	assert.Equal(t, "b", cfg.DefaultDatasourceName())
	assert.Equal(t, DatasourceRef{Type: "prometheus", UID: "b-uid"}, cfg.DefaultDatasource())

	ref, err := cfg.DatasourceRef("")
	require.NoError(t, err)
	assert.Equal(t, "b-uid", ref.UID)
}

func TestDefaultDatasource_FirstDeclared(t *testing.T) {
	cfg, err := LoadBytes([]byte(`
datasources:
  zulu: {type: prometheus, uid: z}
  alpha: {type: prometheus, uid: a}
`))
	require.NoError(t, err)
	assert.Equal(t, "zulu", cfg.DefaultDatasourceName())
}

func TestDatasourceURL_Override(t *testing.T) {
	cfg := resolverConfig()
	WithPrometheusURL("http://override:9090")(cfg)

	assert.Equal(t, "http://override:9090", cfg.DatasourceURL("b"))
	assert.Equal(t, "http://a:9090", cfg.DatasourceURL("a"))
	assert.Equal(t, map[string]string{"a": "http://a:9090", "b": "http://override:9090"}, cfg.DatasourceURLs())
}

func TestVariableDef(t *testing.T) {
	cfg := resolverConfig()

	v, err := cfg.VariableDef("instance")
	require.NoError(t, err)
	assert.Equal(t, "label_values(instance)", v.Query)

	_, err = cfg.VariableDef("cluster")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestOptions(t *testing.T) {
	o := Options{
		"fill":   20,
		"ratio":  0.5,
		"stack":  "normal",
		"show":   false,
		"calcs":  []any{"mean", 3, "max"},
		"sortBy": []any{map[string]any{"displayName": "x"}},
	}

	assert.Equal(t, 20, o.Int("fill", 8))
	assert.Equal(t, 8, o.Int("missing", 8))
	assert.Equal(t, 0.5, o.Float("ratio", 0.9))
	assert.Equal(t, 20.0, o.Float("fill", 0))
	assert.Equal(t, "normal", o.String("stack", "none"))
	assert.Equal(t, "none", o.String("fill", "none"), "wrong type falls back")
	assert.False(t, o.Bool("show", true))
	assert.Equal(t, []string{"mean", "max"}, o.Strings("calcs", nil))
	assert.Equal(t, []string{"lastNotNull"}, o.Strings("missing", []string{"lastNotNull"}))
	assert.Equal(t, []string{}, o.Strings("missing", nil))
	assert.Len(t, o.List("sortBy"), 1)
	assert.Equal(t, []any{}, o.List("missing"))
}
