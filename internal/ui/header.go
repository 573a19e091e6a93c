package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HeaderWidth is the width of the divider under the header.
const HeaderWidth = 50

// RenderHeader renders the "dashgen <version>" banner with an optional
// subtitle, usually the config file in use.
func RenderHeader(version, subtitle string) string {
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().Foreground(ColorNeonPink).Bold(true).Render("dashgen"))
	b.WriteString(" ")
	b.WriteString(lipgloss.NewStyle().Foreground(ColorNeonCyan).Render(version))
	b.WriteString("\n")
	if subtitle != "" {
		b.WriteString(MutedStyle().Render(subtitle))
		b.WriteString("\n")
	}
	b.WriteString(lipgloss.NewStyle().Foreground(ColorGlassEdge).Render(strings.Repeat("━", HeaderWidth)))
	b.WriteString("\n")
	return b.String()
}
