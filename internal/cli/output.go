package cli

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// PrintJSON renders any value as indented JSON on stdout.
func PrintJSON(data any) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data to JSON: %w", err)
	}
	fmt.Println(string(b))
	return nil
}

// PrintTable renders a titled table on stdout.
func PrintTable(title string, headers []string, rows [][]string) {
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.ASCIIBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			return cellStyle
		}).
		Headers(headers...)

	for _, row := range rows {
		t.Row(row...)
	}

	if title != "" {
		fmt.Println(title)
	}
	fmt.Println(t)
}
