package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a table column with name and width. A zero width
// sizes the column to its widest cell.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a non-interactive Bubbles table with the CLI's styling.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		width := c.Width
		if width == 0 {
			width = columnWidth(c.Title, rows, i)
		}
		cols[i] = table.Column{Title: c.Title, Width: width}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.Foreground(ColorPrimary)
	// Nothing is focused, so the selected row must look like any other.
	s.Selected = s.Cell
	t.SetStyles(s)
	return t
}

func columnWidth(title string, rows []table.Row, i int) int {
	w := lipgloss.Width(title)
	for _, r := range rows {
		if i < len(r) {
			if cw := lipgloss.Width(r[i]); cw > w {
				w = cw
			}
		}
	}
	return w
}

// RenderTable renders rows as a table string for plain CLI output. It
// returns "" when there are no rows.
func RenderTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}
	return NewTable(columns, tableRows).View() + "\n"
}

// Section renders a bold heading followed by an underline of the same width.
func Section(title string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(ColorNeonCyan).Render(title) + "\n" +
		MutedStyle().Render(strings.Repeat("─", lipgloss.Width(title))) + "\n"
}
