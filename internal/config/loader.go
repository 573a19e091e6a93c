package config

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/wcatz/dashboard-generator/internal/errors"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config path used when --config is not given.
const DefaultConfigFile = "dashboards.yaml"

// LoadOption tweaks how a config is loaded.
type LoadOption func(*Config)

// WithPrometheusURL overrides the URL of the default datasource. Empty
// values are ignored so the flag can be passed through unconditionally.
func WithPrometheusURL(url string) LoadOption {
	return func(c *Config) {
		c.prometheusURL = url
	}
}

// Load reads config from the specified path.
func Load(path string, opts ...LoadOption) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found: "+path,
				"Run 'dashgen init' to create one, or point at it with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is readable")
	}

	cfg, err := LoadBytes(data, opts...)
	if err != nil {
		return nil, err
	}
	cfg.Path = path
	return cfg, nil
}

// LoadBytes parses a config document held in memory.
func LoadBytes(data []byte, opts ...LoadOption) (*Config, error) {
	cfg := &Config{}

	var root yaml.Node
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to parse config file",
				"Check the YAML syntax")
		}
		if err := root.Decode(cfg); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file has the wrong shape",
				"Compare the failing key against the example from 'dashgen init'")
		}
	}

	doc := documentMapping(&root)
	cfg.datasourceOrder = mappingKeys(findMapValue(doc, "datasources"))
	cfg.dashboardOrder = mappingKeys(findMapValue(doc, "dashboards"))

	for _, opt := range opts {
		opt(cfg)
	}
	return cfg, nil
}

// OutputDir resolves where artifacts go: the explicit override, else
// generator.output_dir, else the current directory. Relative paths from the
// config file are anchored at the file's directory.
func (c *Config) OutputDir(override string) string {
	if override != "" {
		return override
	}
	dir := c.Generator.OutputDir
	if dir == "" {
		return "."
	}
	if filepath.IsAbs(dir) || c.Path == "" {
		return dir
	}
	return filepath.Join(filepath.Dir(c.Path), dir)
}

func documentMapping(root *yaml.Node) *yaml.Node {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil
	}
	if root.Content[0].Kind != yaml.MappingNode {
		return nil
	}
	return root.Content[0]
}

// findMapValue finds a value in a mapping node by key name.
func findMapValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i < len(node.Content)-1; i += 2 {
		keyNode := node.Content[i]
		if keyNode.Kind == yaml.ScalarNode && keyNode.Value == key {
			return node.Content[i+1]
		}
	}

	return nil
}

// mappingKeys lists the keys of a mapping node in document order.
func mappingKeys(node *yaml.Node) []string {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(node.Content)/2)
	for i := 0; i < len(node.Content)-1; i += 2 {
		keys = append(keys, node.Content[i].Value)
	}
	return keys
}
