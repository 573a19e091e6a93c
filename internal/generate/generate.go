// Package generate runs the whole pipeline for a config: select dashboards,
// discover metrics, build, write and optionally publish.
package generate

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/wcatz/dashboard-generator/internal/config"
	"github.com/wcatz/dashboard-generator/internal/dashboard"
	"github.com/wcatz/dashboard-generator/internal/discovery"
	"github.com/wcatz/dashboard-generator/internal/errors"
	"github.com/wcatz/dashboard-generator/internal/logger"
	"github.com/wcatz/dashboard-generator/internal/output"
	"github.com/wcatz/dashboard-generator/internal/publish"
)

// Options controls a run.
type Options struct {
	// Profile limits the run to the profile's dashboards. Empty means all.
	Profile string
	// OutputDir overrides the config's output directory.
	OutputDir string
	// DryRun builds and measures everything but writes and publishes nothing.
	DryRun bool

	Fs        afero.Fs
	Publisher publish.Publisher
	// Discovery replaces the Prometheus-backed discovery built from the config.
	Discovery *discovery.Discovery
	Logger    logger.Logger
}

// DashboardResult is the outcome for one dashboard. Error is set when the
// dashboard could not be built or written; PublishError when only the upload
// failed.
type DashboardResult struct {
	Name         string               `json:"name"`
	Title        string               `json:"title"`
	UID          string               `json:"uid"`
	Artifact     output.Artifact      `json:"artifact"`
	Publish      *publish.Result      `json:"publish,omitempty"`
	PublishError string               `json:"publish_error,omitempty"`
	Error        string               `json:"error,omitempty"`
	Dashboard    *dashboard.Dashboard `json:"-"`
}

// OK reports whether the dashboard was built, written and, if requested, published.
func (r DashboardResult) OK() bool {
	return r.Error == "" && r.PublishError == ""
}

// Report summarizes a run.
type Report struct {
	OutputDir         string            `json:"output_dir"`
	DryRun            bool              `json:"dry_run"`
	DiscoverySections int               `json:"discovery_sections"`
	Dashboards        []DashboardResult `json:"dashboards"`
}

// TotalBytes sums the artifact sizes.
func (r *Report) TotalBytes() int {
	n := 0
	for _, d := range r.Dashboards {
		n += d.Artifact.Bytes
	}
	return n
}

// TotalPanels sums the panel counts, rows and nested panels included.
func (r *Report) TotalPanels() int {
	n := 0
	for _, d := range r.Dashboards {
		n += d.Artifact.Panels
	}
	return n
}

// Failed counts dashboards that did not fully succeed.
func (r *Report) Failed() int {
	n := 0
	for _, d := range r.Dashboards {
		if !d.OK() {
			n++
		}
	}
	return n
}

// WriteFailed counts dashboards that could not be built or written.
func (r *Report) WriteFailed() int {
	n := 0
	for _, d := range r.Dashboards {
		if d.Error != "" {
			n++
		}
	}
	return n
}

// PublishFailed counts dashboards that were written but not published.
func (r *Report) PublishFailed() int {
	n := 0
	for _, d := range r.Dashboards {
		if d.Error == "" && d.PublishError != "" {
			n++
		}
	}
	return n
}

// Filename is where dashboard d is written: its filename setting, else <name>.json.
func Filename(d config.NamedDashboard) string {
	if d.Filename != "" {
		return d.Filename
	}
	return d.Name + ".json"
}

// Run generates every selected dashboard in declared order. A dashboard that
// fails to build, write or publish is recorded and the run moves on; the
// returned error joins all of those failures. Errors that stop the run
// before any dashboard is built (unknown profile, bad discovery patterns)
// are returned with a nil report.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*Report, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	all, err := cfg.SelectDashboards(opts.Profile)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, errors.New(errors.ErrConfig,
			"No dashboards defined in config",
			"Add at least one entry under dashboards: or run 'dashgen init'")
	}

	sections, err := discoverySections(ctx, cfg, opts, log)
	if err != nil {
		return nil, err
	}

	writer := output.NewWriter(fs, cfg.OutputDir(opts.OutputDir), output.WithDryRun(opts.DryRun))
	builder := dashboard.NewBuilder(cfg)
	links := builder.NavigationLinks(all)

	report := &Report{
		OutputDir:         writer.Dir(),
		DryRun:            opts.DryRun,
		DiscoverySections: len(sections),
		Dashboards:        make([]DashboardResult, 0, len(all)),
	}

	var errs []error
	for _, d := range all {
		res, err := runOne(ctx, builder, writer, d, links, sections, opts, log)
		if err != nil {
			errs = append(errs, err)
		}
		report.Dashboards = append(report.Dashboards, res)
	}
	return report, errors.Join(errs...)
}

func runOne(
	ctx context.Context,
	builder *dashboard.Builder,
	writer *output.Writer,
	d config.NamedDashboard,
	links []dashboard.Link,
	sections []config.Section,
	opts Options,
	log logger.Logger,
) (DashboardResult, error) {
	res := DashboardResult{Name: d.Name, Title: d.Title, UID: dashboard.UID(d)}

	dash, err := builder.Build(d, links, sections)
	if err != nil {
		log.Error("%s: %s", d.Name, errors.Message(err))
		res.Error = errors.Message(err)
		return res, err
	}
	res.Dashboard = dash

	res.Artifact, err = writer.Write(Filename(d), dash)
	if err != nil {
		log.Error("%s: %s", d.Name, errors.Message(err))
		res.Error = errors.Message(err)
		return res, errors.Prefix(err, fmt.Sprintf("dashboard '%s'", d.Name))
	}
	if res.Artifact.Oversize {
		log.Warn("%s is %s, above the %d byte import limit", res.Artifact.Path, res.Artifact.Size(), output.OversizeBytes)
	}
	log.Debug("%s: %s, %d panels", res.Artifact.Path, res.Artifact.Size(), res.Artifact.Panels)

	if opts.Publisher == nil || opts.DryRun {
		return res, nil
	}

	data, err := output.Encode(dash)
	if err != nil {
		res.PublishError = errors.Message(err)
		return res, err
	}
	pub, err := opts.Publisher.Publish(ctx, data)
	if err != nil {
		log.Error("publishing %s: %s", d.Name, errors.Message(err))
		res.PublishError = errors.Message(err)
		return res, errors.Prefix(err, fmt.Sprintf("dashboard '%s'", d.Name))
	}
	res.Publish = &pub
	return res, nil
}

// discoverySections runs discovery once per run when the config enables it.
// The same sections are appended to every dashboard.
func discoverySections(ctx context.Context, cfg *config.Config, opts Options, log logger.Logger) ([]config.Section, error) {
	dc := cfg.Discovery
	if !dc.Enabled || len(dc.Sources) == 0 {
		return nil, nil
	}
	disc := opts.Discovery
	if disc == nil {
		disc = discovery.New(discovery.NewPromClient(cfg.DatasourceURLs()), discovery.WithLogger(log))
	}
	return disc.GenerateSections(ctx, dc.Sources, dc.IncludePatterns, dc.ExcludePatterns)
}
