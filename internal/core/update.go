package core

import (
	"fmt"
	"strings"
)

// ApplyRow writes the correction values of one row into spreadsheet row row.
//
// Only mapped columns are considered. A blank correction value never clears a
// cell, and a cell is written only when its trimmed content differs from the
// trimmed correction value. Returns the number of cells actually written.
func ApplyRow(grid Grid, row int, values []string, mapping ColumnMapping) (int, error) {
	if row < 1 || row > grid.MaxRow() {
		return 0, fmt.Errorf("%w: row %d outside 1..%d", ErrStructuralMismatch, row, grid.MaxRow())
	}

	written := 0
	for _, ci := range mapping.Indexes() {
		if ci >= len(values) {
			continue
		}
		next := strings.TrimSpace(values[ci])
		if next == "" {
			continue
		}
		col := mapping[ci]
		if strings.TrimSpace(grid.Cell(row, col)) == next {
			continue
		}
		if err := grid.SetCell(row, col, next); err != nil {
			return written, fmt.Errorf("set cell (%d,%d): %w", row, col, err)
		}
		written++
	}
	return written, nil
}
