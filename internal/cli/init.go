package cli

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/wcatz/dashboard-generator/internal/errors"
	"github.com/wcatz/dashboard-generator/internal/ui"
	"gopkg.in/yaml.v3"
)

// Defaults used by init when nothing else is given.
const (
	DefaultDatasourceName = "prometheus"
	DefaultPrometheusURL  = "http://localhost:9090"
	DefaultOutputDir      = "dashboards"
)

var (
	initForce          bool
	initNonInteractive bool
	initDatasource     string
	initOutputDir      string
	initDiscovery      bool
)

// initCmd writes a starter config
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter dashboards.yaml",
	Long: `Create a starter config with one Prometheus datasource, an instance
variable and an overview dashboard.

Runs an interactive form when stdin is a terminal. Use --non-interactive
(or pipe stdin) to take the flag values as they are.

Examples:
  dashgen init
  dashgen init --non-interactive --prometheus-url http://prom:9090
  dashgen init --config monitoring/dashboards.yaml --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		promURL := viper.GetString("prometheus-url")
		if promURL == "" {
			promURL = DefaultPrometheusURL
		}
		return Init(InitOptions{
			Path:           viper.GetString("config"),
			Datasource:     initDatasource,
			PrometheusURL:  promURL,
			OutputDir:      initOutputDir,
			Discovery:      initDiscovery,
			Overwrite:      initForce,
			NonInteractive: initNonInteractive || !ui.IsTerminal(os.Stdin),
		}, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config")
	initCmd.Flags().BoolVar(&initNonInteractive, "non-interactive", false, "skip prompts and use flag values")
	initCmd.Flags().StringVar(&initDatasource, "datasource", DefaultDatasourceName, "name of the Prometheus datasource")
	initCmd.Flags().StringVar(&initOutputDir, "output-dir", DefaultOutputDir, "generator.output_dir of the new config")
	initCmd.Flags().BoolVar(&initDiscovery, "discovery", false, "enable metric discovery during generate")
}

// InitOptions holds options for the init command.
type InitOptions struct {
	Path           string
	Datasource     string
	PrometheusURL  string
	OutputDir      string
	Discovery      bool
	Overwrite      bool // Overwrite existing config without asking
	NonInteractive bool // Skip prompts, use the values above
}

// Init creates a new config file at opts.Path.
func Init(opts InitOptions, w io.Writer) error {
	if _, err := os.Stat(opts.Path); err == nil && !opts.Overwrite {
		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", opts.Path),
				"Use --force to overwrite")
		}

		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", opts.Path)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Fprintln(w, "Cancelled.")
			return nil
		}
	}

	if !opts.NonInteractive {
		if err := promptInit(&opts); err != nil {
			return err
		}
	}
	if err := validateInitOptions(opts); err != nil {
		return err
	}

	data, err := starterConfig(opts)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to generate config",
			"This shouldn't happen - please report this bug")
	}

	if err := os.WriteFile(opts.Path, data, 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to write config file: %s", opts.Path),
			"Check directory permissions")
	}

	fmt.Fprintf(w, "%s Created %s\n\n", ui.SymbolSuccess, opts.Path)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintln(w, "  dashgen validate   - Check the config")
	fmt.Fprintln(w, "  dashgen discover   - See which metrics your Prometheus has")
	fmt.Fprintln(w, "  dashgen generate   - Write dashboard JSON")
	return nil
}

func promptInit(opts *InitOptions) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Datasource name").
				Description("How panels refer to your Prometheus").
				Placeholder(DefaultDatasourceName).
				Value(&opts.Datasource).
				Validate(validateName),
			huh.NewInput().
				Title("Prometheus URL").
				Description("Used by discovery; Grafana keeps its own datasource settings").
				Placeholder(DefaultPrometheusURL).
				Value(&opts.PrometheusURL).
				Validate(validateURL),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Output directory").
				Description("Where generated JSON files go, relative to the config").
				Placeholder(DefaultOutputDir).
				Value(&opts.OutputDir),
			huh.NewConfirm().
				Title("Append discovered metrics to every dashboard?").
				Value(&opts.Discovery),
		),
	)

	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --non-interactive flag")
	}
	return nil
}

func validateName(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("a name is required")
	}
	if strings.ContainsAny(s, " \t\n") {
		return fmt.Errorf("name cannot contain whitespace")
	}
	return nil
}

func validateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("enter a full URL like %s", DefaultPrometheusURL)
	}
	return nil
}

func validateInitOptions(opts InitOptions) error {
	if err := validateName(opts.Datasource); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Invalid datasource name '%s'", opts.Datasource),
			"Use a single word such as prometheus")
	}
	if err := validateURL(opts.PrometheusURL); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Invalid Prometheus URL '%s'", opts.PrometheusURL),
			"Pass --prometheus-url with a scheme and host")
	}
	return nil
}

// The starter document mirrors the config layout with only the keys a new
// user needs, in the order they read best.
type starterDoc struct {
	Generator   starterGenerator             `yaml:"generator"`
	Datasources map[string]starterDatasource `yaml:"datasources"`
	Variables   map[string]starterVariable   `yaml:"variables"`
	Dashboards  map[string]starterDashboard  `yaml:"dashboards"`
	Discovery   starterDiscovery             `yaml:"discovery"`
}

type starterGenerator struct {
	SchemaVersion int               `yaml:"schema_version"`
	OutputDir     string            `yaml:"output_dir"`
	Refresh       string            `yaml:"refresh"`
	TimeRange     map[string]string `yaml:"time_range"`
}

type starterDatasource struct {
	Type      string `yaml:"type"`
	UID       string `yaml:"uid"`
	URL       string `yaml:"url"`
	IsDefault bool   `yaml:"is_default"`
}

type starterVariable struct {
	Query      string `yaml:"query"`
	Label      string `yaml:"label"`
	Multi      bool   `yaml:"multi"`
	IncludeAll bool   `yaml:"include_all"`
}

type starterDashboard struct {
	UID       string           `yaml:"uid"`
	Title     string           `yaml:"title"`
	Tags      []string         `yaml:"tags,flow"`
	Variables []string         `yaml:"variables,flow"`
	Sections  []starterSection `yaml:"sections"`
}

type starterSection struct {
	Title  string         `yaml:"title"`
	Panels []starterPanel `yaml:"panels"`
}

type starterPanel struct {
	Type   string `yaml:"type"`
	Title  string `yaml:"title"`
	Query  string `yaml:"query"`
	Legend string `yaml:"legend,omitempty"`
	Unit   string `yaml:"unit,omitempty"`
	Width  int    `yaml:"width,omitempty"`
}

type starterDiscovery struct {
	Enabled         bool     `yaml:"enabled"`
	Sources         []string `yaml:"sources,flow"`
	ExcludePatterns []string `yaml:"exclude_patterns,flow"`
}

// starterConfig renders the starter config for opts.
func starterConfig(opts InitOptions) ([]byte, error) {
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	ds := strings.TrimSpace(opts.Datasource)

	doc := starterDoc{
		Generator: starterGenerator{
			SchemaVersion: 39,
			OutputDir:     outputDir,
			Refresh:       "30s",
			TimeRange:     map[string]string{"from": "now-6h", "to": "now"},
		},
		Datasources: map[string]starterDatasource{
			ds: {Type: "prometheus", UID: ds, URL: strings.TrimSpace(opts.PrometheusURL), IsDefault: true},
		},
		Variables: map[string]starterVariable{
			"instance": {Query: "label_values(up, instance)", Label: "Instance", Multi: true, IncludeAll: true},
		},
		Dashboards: map[string]starterDashboard{
			"overview": {
				UID:       "overview",
				Title:     "Overview",
				Tags:      []string{"dashgen"},
				Variables: []string{"instance"},
				Sections: []starterSection{{
					Title: "targets",
					Panels: []starterPanel{
						{Type: "stat", Title: "Targets up", Query: `sum(up{instance=~"$instance"})`, Width: 6},
						{
							Type:   "timeseries",
							Title:  "Scrape duration",
							Query:  `scrape_duration_seconds{instance=~"$instance"}`,
							Legend: "{{instance}}",
							Unit:   "s",
							Width:  18,
						},
					},
				}},
			},
		},
		Discovery: starterDiscovery{
			Enabled:         opts.Discovery,
			Sources:         []string{ds},
			ExcludePatterns: []string{"go_*", "process_*", "promhttp_*"},
		},
	}

	var buf bytes.Buffer
	buf.WriteString("# dashgen configuration\n")
	buf.WriteString("# Run 'dashgen generate' to write dashboards, 'dashgen push' to upload them.\n\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
