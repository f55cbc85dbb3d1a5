package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table is a plain column table, used for network and robot listings
type Table struct {
	Columns []string
	Rows    [][]string
	// Active is the index of the row to highlight, or -1 for none
	Active int
}

// NewTable creates a table with the given column headings
func NewTable(columns ...string) *Table {
	return &Table{Columns: columns, Active: -1}
}

// AddRow appends a row. Missing cells render empty.
func (t *Table) AddRow(cells ...string) *Table {
	t.Rows = append(t.Rows, cells)
	return t
}

// Render returns the table with a heading line
func (t *Table) Render() string {
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = lipgloss.Width(c)
	}
	for _, row := range t.Rows {
		for i := range widths {
			if i < len(row) && lipgloss.Width(row[i]) > widths[i] {
				widths[i] = lipgloss.Width(row[i])
			}
		}
	}

	lines := []string{"  " + TableHeaderStyle.Render(t.join(t.Columns, widths))}
	for i, row := range t.Rows {
		marker := "  "
		style := TableCellStyle
		if i == t.Active {
			marker = ActiveMarker + " "
			style = TableActiveStyle
		}
		lines = append(lines, style.Render(marker+t.join(row, widths)))
	}
	return strings.Join(lines, "\n")
}

func (t *Table) join(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		parts[i] = cell + strings.Repeat(" ", w-lipgloss.Width(cell))
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}

// String implements fmt.Stringer
func (t *Table) String() string {
	return t.Render()
}
