package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/wcatz/dashboard-generator/internal/config"
	"github.com/wcatz/dashboard-generator/internal/errors"
	"github.com/wcatz/dashboard-generator/internal/util"
)

// OutputFlags holds the flags shared by generate and push.
type OutputFlags struct {
	Profile   string
	OutputDir string
	DryRun    bool
}

// AddOutputFlags registers --profile, --output-dir and --dry-run on a command.
func AddOutputFlags(cmd *cobra.Command, flags *OutputFlags) {
	cmd.Flags().StringVarP(&flags.Profile, "profile", "p", "", "only build the dashboards of this profile")
	cmd.Flags().StringVarP(&flags.OutputDir, "output-dir", "o", "", "write dashboards here instead of generator.output_dir")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "build everything but write and publish nothing")
}

// ParseTimeout parses a timeout flag into a duration.
// Returns zero duration if the flag is empty.
func ParseTimeout(flag string) (time.Duration, error) {
	if flag == "" {
		return 0, nil
	}

	duration, err := time.ParseDuration(flag)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid timeout", flag),
			"Try something like 5s, 2m, or 500ms.")
	}
	if duration <= 0 {
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("Timeout must be positive, got %s", flag),
			"Try something like 5s, 2m, or 500ms.")
	}
	return duration, nil
}

// checkProfile fails early on an unknown --profile, suggesting close names.
func checkProfile(cfg *config.Config, profile string) error {
	if profile == "" {
		return nil
	}
	if _, ok := cfg.Profiles[profile]; ok {
		return nil
	}

	names := make([]string, 0, len(cfg.Profiles))
	for name := range cfg.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	suggestion := "Available profiles: " + util.JoinOrNone(names)
	if similar := util.SuggestSimilar(profile, names, 2); len(similar) > 0 {
		suggestion = fmt.Sprintf("Did you mean: %s? %s", strings.Join(similar, ", "), suggestion)
	}
	return errors.New(errors.ErrConfig,
		fmt.Sprintf("Profile '%s' is not defined", profile),
		suggestion)
}
