package ui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// RunSummary holds the totals shown after a generate or push run. Failed
// counts dashboards that were never written; PublishFailed counts written
// dashboards whose upload failed.
type RunSummary struct {
	Dashboards    int
	Failed        int
	PublishFailed int
	Panels        int
	Bytes         int
	Published     int
	DryRun        bool
	OutputDir     string
}

// RenderRunSummary formats the closing line of a run, e.g.
// "✓ 3 dashboards, 42 panels, 180 kB written to out".
func RenderRunSummary(s RunSummary) string {
	var sb strings.Builder

	ok := s.Dashboards - s.Failed
	line := fmt.Sprintf("%s, %s panels, %s",
		plural(ok, "dashboard"),
		humanize.Comma(int64(s.Panels)),
		humanize.Bytes(uint64(s.Bytes)),
	)
	switch {
	case s.DryRun:
		line += " (dry run, nothing written)"
	case s.OutputDir != "":
		line += " written to " + s.OutputDir
	}

	if s.Failed == 0 && s.PublishFailed == 0 {
		sb.WriteString(SuccessStyle().Render(SymbolSuccess + " " + line))
	} else {
		sb.WriteString(WarningStyle().Render(SymbolWarning + " " + line))
	}
	sb.WriteString("\n")

	if s.Published > 0 {
		sb.WriteString(SuccessStyle().Render(fmt.Sprintf("%s %s published", SymbolSuccess, plural(s.Published, "dashboard"))))
		sb.WriteString("\n")
	}
	if s.Failed > 0 {
		sb.WriteString(ErrorStyle().Render(fmt.Sprintf("%s %s failed", SymbolFail, plural(s.Failed, "dashboard"))))
		sb.WriteString("\n")
	}
	if s.PublishFailed > 0 {
		sb.WriteString(ErrorStyle().Render(fmt.Sprintf("%s %s failed to publish", SymbolFail, plural(s.PublishFailed, "dashboard"))))
		sb.WriteString("\n")
	}
	return sb.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return humanize.Comma(int64(n)) + " " + word + "s"
}
