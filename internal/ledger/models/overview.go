package models

import (
	"fmt"
	"slices"
)

const (
	headerRow    = 1
	firstDataRow = 2
)

// BuildOverview turns raw sheet values into overview rows. Headers come from
// the second row and data from the third onwards; rows with an empty first
// cell are skipped, as are empty cells and excluded columns.
func BuildOverview(values [][]string) []OverviewRow {
	var headers []string
	if len(values) > headerRow {
		headers = values[headerRow]
	}
	if len(values) <= firstDataRow {
		return nil
	}

	var rows []OverviewRow
	for _, raw := range values[firstDataRow:] {
		if len(raw) == 0 || raw[0] == "" {
			continue
		}
		row := OverviewRow{Title: raw[0]}
		for col := 1; col < len(raw); col++ {
			if raw[col] == "" {
				continue
			}
			header := fmt.Sprintf("Column %d", col+1)
			if col < len(headers) {
				header = headers[col]
			}
			if slices.Contains(ExcludedHeaders, header) {
				continue
			}
			row.Fields = append(row.Fields, Field{Header: header, Value: raw[col]})
		}
		rows = append(rows, row)
	}
	return rows
}

// FillFigures copies values into a fresh copy of figures, in order. Missing
// or empty values read as "0".
func FillFigures(figures []Figure, values []string) []Figure {
	out := slices.Clone(figures)
	for i := range out {
		out[i].Value = "0"
		if i < len(values) && values[i] != "" {
			out[i].Value = values[i]
		}
	}
	return out
}

// Cells lists the cell references of figures.
func Cells(figures []Figure) []string {
	cells := make([]string, len(figures))
	for i, f := range figures {
		cells[i] = f.Cell
	}
	return cells
}
