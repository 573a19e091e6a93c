package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Accent colors, used for headers and the spinner gradient.
const (
	ColorNeonPink   lipgloss.Color = "#FF2E97"
	ColorNeonCyan   lipgloss.Color = "#00F0FF"
	ColorNeonPurple lipgloss.Color = "#B84DFF"
	ColorNeonGreen  lipgloss.Color = "#39FF6A"
	ColorNeonOrange lipgloss.Color = "#FF8A3D"
	ColorNeonAmber  lipgloss.Color = "#FFC23D"
	ColorDeepVoid   lipgloss.Color = "#0B0B14"
	ColorGlassEdge  lipgloss.Color = "#3A3A55"
)

// Semantic colors for status indication
const (
	ColorSuccess lipgloss.Color = "#39FF6A"
	ColorError   lipgloss.Color = "#FF4D6D"
	ColorWarning lipgloss.Color = "#FFC23D"
	ColorInfo    lipgloss.Color = "#00F0FF"
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "#E6E6F0"
	ColorSecondary lipgloss.Color = "#8A8AFF"
	ColorMuted     lipgloss.Color = "#6C6C80"
)

// GradientColors cycle through the spinner frames.
var GradientColors = []lipgloss.Color{ColorNeonPink, ColorNeonPurple, ColorNeonCyan, ColorNeonGreen}

func SuccessStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorSuccess) }
func ErrorStyle() lipgloss.Style   { return lipgloss.NewStyle().Foreground(ColorError) }
func WarningStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorWarning) }
func InfoStyle() lipgloss.Style    { return lipgloss.NewStyle().Foreground(ColorInfo) }
func MutedStyle() lipgloss.Style   { return lipgloss.NewStyle().Foreground(ColorMuted) }

// DisableColors switches lipgloss to plain ASCII output (--no-color, NO_COLOR).
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// PrintWarning writes a styled warning line to stderr.
func PrintWarning(msg string) {
	fmt.Fprintln(os.Stderr, WarningStyle().Render(SymbolWarning+" "+msg))
}
