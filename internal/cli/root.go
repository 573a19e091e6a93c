package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/wcatz/dashboard-generator/internal/config"
	"github.com/wcatz/dashboard-generator/internal/errors"
	"github.com/wcatz/dashboard-generator/internal/logger"
	"github.com/wcatz/dashboard-generator/internal/ui"
	"github.com/wcatz/dashboard-generator/internal/util"
)

// EnvPrefix is prepended to every setting read from the environment, so
// --grafana-token can also come from DASHGEN_GRAFANA_TOKEN.
const EnvPrefix = "DASHGEN"

var (
	cfgFile       string
	verbose       bool
	noColor       bool
	prometheusURL string
)

var rootCmd = &cobra.Command{
	Use:   "dashgen",
	Short: "Generate Grafana dashboards from a YAML config",
	Long: `dashgen turns a declarative YAML config into Grafana dashboard JSON.

Panels, variables and thresholds are declared once and reused across
dashboards. Grid positions, panel IDs and navigation links are computed
for you, and metric discovery can suggest sections from a live Prometheus.

Examples:
  dashgen init
  dashgen generate
  dashgen generate --profile minimal --dry-run
  dashgen push --grafana-url https://grafana.example.com
  dashgen discover prom thanos`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || machineMode || os.Getenv("NO_COLOR") != "" {
			ui.DisableColors()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", config.DefaultConfigFile, "config file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "print debug output")
	pf.BoolVar(&noColor, "no-color", false, "disable colored output")
	pf.BoolVar(&machineMode, "json", false, "print machine-readable JSON")
	pf.StringVar(&prometheusURL, "prometheus-url", "", "override the URL of the default datasource")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	bindFlags(pf, "config", "prometheus-url")
}

// bindFlags ties flags to viper keys of the same name so the environment
// can supply them.
func bindFlags(fs *pflag.FlagSet, names ...string) {
	for _, name := range names {
		_ = viper.BindPFlag(name, fs.Lookup(name))
	}
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(handleError(err, os.Stdout, os.Stderr))
	}
}

// reportedError marks an error whose details were already printed, usually
// inside a --json envelope next to the run's data.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// handleError prints err the way the current output mode expects and
// returns the process exit code.
func handleError(err error, stdout, stderr io.Writer) int {
	var reported *reportedError
	if errors.As(err, &reported) {
		return 1
	}
	if machineMode {
		_ = WriteJSONFromError(stdout, err)
		return 1
	}

	if isUnknownCommandError(err) {
		fmt.Fprintln(stderr, ui.ErrorStyle().Render(ui.SymbolFail+" "+err.Error()))
		if name := extractUnknownCommand(err); name != "" {
			if similar := util.SuggestSimilar(name, commandNames(), 2); len(similar) > 0 {
				fmt.Fprintf(stderr, "\n  Did you mean: %s?\n", strings.Join(similar, ", "))
			}
		}
		fmt.Fprintln(stderr, "\n  Run 'dashgen --help' to see the available commands.")
		return 2
	}

	fmt.Fprint(stderr, renderError(err))
	return 1
}

// renderError formats err with the ✗ layout. Joined errors from a run are
// rendered one after the other.
func renderError(err error) string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		parts := make([]string, 0, len(joined.Unwrap()))
		for _, e := range joined.Unwrap() {
			parts = append(parts, renderError(e))
		}
		return strings.Join(parts, "\n")
	}

	if _, ok := err.(*errors.Error); ok {
		return ui.ErrorStyle().Render(err.Error()) + "\n"
	}
	return ui.ErrorStyle().Render(ui.SymbolFail+" "+err.Error()) + "\n"
}

// isUnknownCommandError checks if the error is cobra's unknown command or flag error.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag")
}

// extractUnknownCommand pulls the command name out of cobra's
// `unknown command "foo" for "dashgen"` message.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start == -1 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end == -1 {
		return ""
	}
	return msg[start+1 : start+1+end]
}

// commandNames lists the visible subcommands and their aliases.
func commandNames() []string {
	var names []string
	for _, c := range rootCmd.Commands() {
		if c.Hidden {
			continue
		}
		names = append(names, c.Name())
		names = append(names, c.Aliases...)
	}
	return names
}

// loadConfig reads the config named by --config or DASHGEN_CONFIG.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetString("config"),
		config.WithPrometheusURL(viper.GetString("prometheus-url")))
}

// newLogger returns a logger writing to the command's stderr.
func newLogger(cmd *cobra.Command) logger.Logger {
	l := logger.NewWriterLogger("", cmd.ErrOrStderr())
	logger.SetVerbose(l, verbose)
	return l
}
