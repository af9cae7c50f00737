package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// CallSummary is printed after the call screen exits.
type CallSummary struct {
	Status   string
	Room     string
	Role     string
	Duration string
	Messages int
}

func CallSummaryView(summary CallSummary) string {
	headers := []string{"Metric", "Value"}
	rows := [][]string{
		{"Status", summary.Status},
		{"Room", summary.Room},
		{"Role", summary.Role},
		{"Call Duration", summary.Duration},
		{"Chat Messages", fmt.Sprintf("%d", summary.Messages)},
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

// RenderCallSummary outputs the summary table directly to stdout.
func RenderCallSummary(summary CallSummary) {
	fmt.Println(CallSummaryView(summary))
}

// ConfigRow is one resolved configuration entry.
type ConfigRow struct {
	Key   string
	Value string
}

// RenderConfigTable prints the resolved configuration.
func RenderConfigTable(rows []ConfigRow) {
	cells := make([][]string, len(rows))
	for i, r := range rows {
		v := r.Value
		if v == "" {
			v = MutedStyle.Render("(not set)")
		}
		cells[i] = []string{r.Key, v}
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Setting", "Value").
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	fmt.Println(tbl.Render())
}
