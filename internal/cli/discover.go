package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wcatz/dashboard-generator/internal/config"
	"github.com/wcatz/dashboard-generator/internal/discovery"
	"github.com/wcatz/dashboard-generator/internal/ui"
)

var (
	discoverInclude []string
	discoverExclude []string
	discoverTimeout string
)

// discoverCmd inspects live datasources and suggests config
var discoverCmd = &cobra.Command{
	Use:   "discover [datasource] [datasource]",
	Short: "List metrics from Prometheus and suggest dashboard sections",
	Long: `Query one or two Prometheus datasources for their metrics and print a
YAML snippet you can paste under dashboards:.

With one datasource, metrics are grouped by name prefix. With two, they are
split into shared metrics (rendered as comparison panels) and metrics only
one side has.

Datasources default to discovery.sources, else the default datasource.
Patterns default to discovery.include_patterns and exclude_patterns.

Examples:
  dashgen discover
  dashgen discover prom --exclude 'go_*' --exclude 'process_*'
  dashgen discover prom thanos --json`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return discoverCommand(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	discoverCmd.Flags().StringSliceVar(&discoverInclude, "include", nil, "only keep metrics matching these globs")
	discoverCmd.Flags().StringSliceVar(&discoverExclude, "exclude", nil, "drop metrics matching these globs")
	discoverCmd.Flags().StringVar(&discoverTimeout, "timeout", "", "per-request timeout (default 30s)")
}

type discoverOutput struct {
	*discovery.Report
	Snippet string `json:"snippet,omitempty"`
}

func discoverCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	timeout, err := ParseTimeout(discoverTimeout)
	if err != nil {
		return err
	}

	sources := discoverSources(cfg, args)
	include, exclude := discoverInclude, discoverExclude
	if len(include) == 0 {
		include = cfg.Discovery.IncludePatterns
	}
	if len(exclude) == 0 {
		exclude = cfg.Discovery.ExcludePatterns
	}

	disc := discovery.New(discovery.NewPromClient(cfg.DatasourceURLs()),
		discovery.WithLogger(newLogger(cmd)),
		discovery.WithTimeout(timeout),
	)

	out := cmd.OutOrStdout()
	var spinner *ui.Spinner
	if !machineMode {
		fmt.Fprint(out, ui.RenderHeader(formatVersion(version), cfg.Path))
		spinner = ui.NewSpinnerTo(cmd.ErrOrStderr(), "Discovering metrics from "+strings.Join(sources, ", "))
		spinner.Start()
	}

	report, err := disc.Report(cmd.Context(), sources, include, exclude)
	if err != nil {
		if spinner != nil {
			spinner.Fail()
		}
		return err
	}
	if spinner != nil {
		spinner.Success()
	}

	snippet, err := report.Snippet()
	if err != nil {
		return err
	}

	if machineMode {
		return WriteJSONSuccess(out, discoverOutput{Report: report, Snippet: string(snippet)})
	}
	renderDiscovery(out, report, snippet)
	return nil
}

// discoverSources picks the datasources to inspect: arguments, else
// discovery.sources, else the default datasource.
func discoverSources(cfg *config.Config, args []string) []string {
	if len(args) > 0 {
		return args
	}
	if len(cfg.Discovery.Sources) > 0 {
		return cfg.Discovery.Sources
	}
	if name := cfg.DefaultDatasourceName(); name != "" {
		return []string{name}
	}
	return nil
}

func renderDiscovery(w io.Writer, r *discovery.Report, snippet []byte) {
	fmt.Fprintln(w)
	switch {
	case r.Comparison != nil:
		a, b := r.Sources[0], r.Sources[1]
		renderMetrics(w, fmt.Sprintf("Shared metrics (%d)", len(r.Comparison.Shared)), r.Comparison.Shared)
		renderMetrics(w, fmt.Sprintf("Only in %s (%d)", a, len(r.Comparison.OnlyA)), r.Comparison.OnlyA)
		renderMetrics(w, fmt.Sprintf("Only in %s (%d)", b, len(r.Comparison.OnlyB)), r.Comparison.OnlyB)
	case len(r.Sources) == 1:
		fmt.Fprint(w, ui.Section(fmt.Sprintf("%s: %d metrics in %d groups", r.Sources[0], r.Total(0), len(r.Groups))))
		rows := make([][]string, 0, r.Total(0))
		for _, g := range r.Groups {
			for _, m := range g.Metrics {
				rows = append(rows, []string{g.Prefix, m.Name, m.Type, discovery.SuggestPanelType(m.Type)})
			}
		}
		fmt.Fprint(w, ui.RenderTable([]ui.TableColumn{
			{Title: "GROUP"}, {Title: "METRIC"}, {Title: "TYPE"}, {Title: "PANEL"},
		}, rows))
		fmt.Fprintln(w)
	default:
		fmt.Fprintln(w, ui.WarningStyle().Render(fmt.Sprintf(
			"%s Discovery works on one or two datasources, got %d", ui.SymbolWarning, len(r.Sources))))
		return
	}

	if len(snippet) == 0 || len(r.Sections) == 0 {
		fmt.Fprintln(w, ui.MutedStyle().Render("No metrics matched, nothing to suggest."))
		return
	}
	fmt.Fprint(w, ui.Section("Suggested config"))
	fmt.Fprint(w, string(snippet))
}

func renderMetrics(w io.Writer, title string, metrics []discovery.Metric) {
	fmt.Fprint(w, ui.Section(title))
	if len(metrics) == 0 {
		fmt.Fprintln(w, ui.MutedStyle().Render("(none)"))
		fmt.Fprintln(w)
		return
	}
	rows := make([][]string, 0, len(metrics))
	for _, m := range metrics {
		rows = append(rows, []string{m.Name, m.Type})
	}
	fmt.Fprint(w, ui.RenderTable([]ui.TableColumn{{Title: "METRIC"}, {Title: "TYPE"}}, rows))
	fmt.Fprintln(w)
}
