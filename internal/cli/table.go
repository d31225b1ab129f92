package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderTable renders rows as a simple aligned table with a styled
// header. Rows shorter than the header are padded with empty cells.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	for i, h := range headers {
		b.WriteString(TableHeaderStyle.Width(widths[i] + 2).Render(h))
	}
	b.WriteString("\n")

	for _, row := range rows {
		for i := range headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(TableCellStyle.Width(widths[i] + 2).Render(cell))
		}
		b.WriteString("\n")
	}

	return b.String()
}
