package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	"github.com/spf13/cobra"
	"github.com/wcatz/dashboard-generator/internal/config"
	"github.com/wcatz/dashboard-generator/internal/dashboard"
	"github.com/wcatz/dashboard-generator/internal/errors"
	"github.com/wcatz/dashboard-generator/internal/ui"
)

var validateProfile string

// validateCmd checks the config without writing anything
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the config and build every dashboard in memory",
	Long: `Load the config, check its cross references and build every dashboard
without writing files or contacting any server. Discovery is skipped.

Examples:
  dashgen validate
  dashgen validate --config prod.yaml --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateCommand(cmd)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVarP(&validateProfile, "profile", "p", "", "only build the dashboards of this profile")
}

// ValidateResult is the outcome for one dashboard.
type ValidateResult struct {
	Name   string `json:"name"`
	Panels int    `json:"panels"`
	Error  string `json:"error,omitempty"`
}

// ValidateOutput is the --json payload of validate.
type ValidateOutput struct {
	Config     string           `json:"config"`
	Dashboards []ValidateResult `json:"dashboards"`
}

func validateCommand(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := checkProfile(cfg, validateProfile); err != nil {
		return err
	}

	results, buildErr := validateDashboards(cfg, validateProfile)
	if buildErr != nil && results == nil {
		return buildErr
	}

	out := cmd.OutOrStdout()
	if machineMode {
		if err := WriteJSONResult(out, ValidateOutput{Config: cfg.Path, Dashboards: results}, buildErr); err != nil {
			return err
		}
		if buildErr != nil {
			return &reportedError{err: buildErr}
		}
		return nil
	}

	fmt.Fprint(out, ui.RenderHeader(formatVersion(version), cfg.Path))
	rows := make([]table.Row, 0, len(results))
	for _, r := range results {
		status := ui.SymbolSuccess + " ok"
		if r.Error != "" {
			status = ui.SymbolFail + " invalid"
		}
		rows = append(rows, table.Row{r.Name, strconv.Itoa(r.Panels), status})
	}
	fmt.Fprintln(out, ui.NewTable([]ui.TableColumn{
		{Title: "DASHBOARD"}, {Title: "PANELS"}, {Title: "STATUS"},
	}, rows).View())
	fmt.Fprintln(out)

	if buildErr != nil {
		return buildErr
	}
	fmt.Fprintln(out, ui.SuccessStyle().Render(fmt.Sprintf("%s %s is valid", ui.SymbolSuccess, cfg.Path)))
	return nil
}

// validateDashboards builds every selected dashboard and collects the
// failures. The returned slice is nil only when selection itself failed.
func validateDashboards(cfg *config.Config, profile string) ([]ValidateResult, error) {
	all, err := cfg.SelectDashboards(profile)
	if err != nil {
		return nil, err
	}

	builder := dashboard.NewBuilder(cfg)
	links := builder.NavigationLinks(all)
	results := make([]ValidateResult, 0, len(all))
	var errs []error
	for _, d := range all {
		r := ValidateResult{Name: d.Name}
		dash, err := builder.Build(d, links, nil)
		if err != nil {
			r.Error = errors.Message(err)
			errs = append(errs, err)
		} else {
			r.Panels = dash.PanelCount()
		}
		results = append(results, r)
	}
	return results, errors.Join(errs...)
}
