package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/wcatz/dashboard-generator/internal/errors"
	"github.com/wcatz/dashboard-generator/internal/generate"
	"github.com/wcatz/dashboard-generator/internal/publish"
	"github.com/wcatz/dashboard-generator/internal/ui"
)

var (
	generateFlags OutputFlags
	pushFlags     OutputFlags
	pushFolderID  int
)

// generateCmd writes dashboard JSON files
var generateCmd = &cobra.Command{
	Use:     "generate",
	Aliases: []string{"gen"},
	Short:   "Write dashboard JSON files",
	Long: `Build every dashboard in the config and write one JSON file per dashboard.

Files land in --output-dir, else generator.output_dir, else the config's
directory. A dashboard that fails to build is reported and the rest are
still written.

Examples:
  dashgen generate
  dashgen generate --profile minimal
  dashgen generate --dry-run --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return generateCommand(cmd, generateFlags, nil)
	},
}

// pushCmd writes dashboards and uploads them to Grafana
var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Write dashboards and upload them to Grafana",
	Long: `Generate dashboards like 'dashgen generate' and upload each one to Grafana,
overwriting the dashboard with the same UID.

Credentials come from flags or the environment:
  DASHGEN_GRAFANA_URL, DASHGEN_GRAFANA_TOKEN,
  DASHGEN_GRAFANA_USER, DASHGEN_GRAFANA_PASS

Examples:
  dashgen push --grafana-url https://grafana.example.com --grafana-token $TOKEN
  DASHGEN_GRAFANA_URL=http://localhost:3000 dashgen push --profile minimal`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, err := newPublisher()
		if err != nil {
			return err
		}
		return generateCommand(cmd, pushFlags, pub)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	AddOutputFlags(generateCmd, &generateFlags)

	rootCmd.AddCommand(pushCmd)
	AddOutputFlags(pushCmd, &pushFlags)
	pushCmd.Flags().String("grafana-url", "", "Grafana base URL")
	pushCmd.Flags().String("grafana-token", "", "Grafana API token or service account token")
	pushCmd.Flags().String("grafana-user", "", "Grafana user for basic auth")
	pushCmd.Flags().String("grafana-pass", "", "Grafana password for basic auth")
	pushCmd.Flags().IntVar(&pushFolderID, "folder-id", 0, "Grafana folder to file dashboards into")
	bindFlags(pushCmd.Flags(), "grafana-url", "grafana-token", "grafana-user", "grafana-pass")
}

// newPublisher builds a Grafana publisher from flags and DASHGEN_ variables.
func newPublisher() (publish.Publisher, error) {
	url := viper.GetString("grafana-url")
	if url == "" {
		return nil, errors.New(errors.ErrPublish,
			"No Grafana URL configured",
			"Pass --grafana-url or set DASHGEN_GRAFANA_URL")
	}
	auth := publish.Auth{
		Token:    viper.GetString("grafana-token"),
		User:     viper.GetString("grafana-user"),
		Password: viper.GetString("grafana-pass"),
	}
	return publish.NewGrafanaPublisher(url, auth, publish.WithFolderID(pushFolderID))
}

// generateCommand runs the pipeline and reports the result. A nil pub
// only writes files.
func generateCommand(cmd *cobra.Command, flags OutputFlags, pub publish.Publisher) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := checkProfile(cfg, flags.Profile); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !machineMode {
		fmt.Fprint(out, ui.RenderHeader(formatVersion(version), cfg.Path))
	}

	report, runErr := generate.Run(cmd.Context(), cfg, generate.Options{
		Profile:   flags.Profile,
		OutputDir: flags.OutputDir,
		DryRun:    flags.DryRun,
		Publisher: pub,
		Logger:    newLogger(cmd),
	})
	if report == nil {
		return runErr
	}

	if machineMode {
		if err := WriteJSONResult(out, report, runErr); err != nil {
			return err
		}
		if runErr != nil {
			return &reportedError{err: runErr}
		}
		return nil
	}

	renderReport(out, report)
	return runErr
}

func renderReport(w io.Writer, report *generate.Report) {
	columns := []ui.TableColumn{
		{Title: "DASHBOARD"},
		{Title: "FILE"},
		{Title: "PANELS"},
		{Title: "SIZE"},
		{Title: "STATUS"},
	}
	rows := make([]table.Row, 0, len(report.Dashboards))
	published := 0
	for _, d := range report.Dashboards {
		if d.Publish != nil {
			published++
		}
		rows = append(rows, table.Row{
			d.Name,
			d.Artifact.Path,
			strconv.Itoa(d.Artifact.Panels),
			d.Artifact.Size(),
			dashboardStatus(d, report.DryRun),
		})
	}

	fmt.Fprintln(w, ui.NewTable(columns, rows).View())
	fmt.Fprintln(w)
	if report.DiscoverySections > 0 {
		fmt.Fprintln(w, ui.MutedStyle().Render(fmt.Sprintf("%s %d discovered sections appended to each dashboard",
			ui.SymbolArrow, report.DiscoverySections)))
	}
	fmt.Fprint(w, ui.RenderRunSummary(ui.RunSummary{
		Dashboards:    len(report.Dashboards),
		Failed:        report.WriteFailed(),
		PublishFailed: report.PublishFailed(),
		Panels:        report.TotalPanels(),
		Bytes:         report.TotalBytes(),
		Published:     published,
		DryRun:        report.DryRun,
		OutputDir:     report.OutputDir,
	}))
}

// dashboardStatus is the STATUS cell for one dashboard.
func dashboardStatus(d generate.DashboardResult, dryRun bool) string {
	switch {
	case d.Error != "":
		return ui.SymbolFail + " failed"
	case d.PublishError != "":
		return ui.SymbolFail + " publish failed"
	case d.Publish != nil && d.Publish.Version > 0:
		return fmt.Sprintf("%s published v%d", ui.SymbolSuccess, d.Publish.Version)
	case d.Publish != nil:
		return ui.SymbolSuccess + " published"
	case d.Artifact.Oversize:
		return ui.SymbolWarning + " oversize"
	case dryRun:
		return ui.SymbolSkipped + " dry run"
	default:
		return ui.SymbolSuccess + " written"
	}
}
