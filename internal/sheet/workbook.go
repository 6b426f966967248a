// Package sheet loads, edits and saves xlsx workbooks for the reconciliation
// engine. A Workbook exposes the active worksheet as a 1-indexed cell grid.
package sheet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrOutOfRange is returned when a write targets a cell outside the grid.
var ErrOutOfRange = errors.New("cell out of range")

// Workbook is an opened xlsx file. Reads are served from a row cache built
// at open time; writes go to both the cache and the underlying file.
//
// A Workbook is not safe for concurrent use.
type Workbook struct {
	file   *excelize.File
	sheet  string
	rows   [][]string
	maxCol int
	path   string
}

// Open loads the workbook at path and selects its active sheet.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}

	name := f.GetSheetName(f.GetActiveSheetIndex())
	if name == "" {
		if list := f.GetSheetList(); len(list) > 0 {
			name = list[0]
		}
	}
	if name == "" {
		_ = f.Close()
		return nil, fmt.Errorf("open workbook %s: no worksheet", path)
	}

	rows, err := f.GetRows(name)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}

	wb := &Workbook{file: f, sheet: name, rows: rows, path: path}
	for _, r := range rows {
		if len(r) > wb.maxCol {
			wb.maxCol = len(r)
		}
	}
	return wb, nil
}

// SheetName returns the name of the worksheet being edited.
func (w *Workbook) SheetName() string {
	return w.sheet
}

// Path returns the file the workbook was opened from.
func (w *Workbook) Path() string {
	return w.path
}

// MaxRow returns the last row that holds any value.
func (w *Workbook) MaxRow() int {
	return len(w.rows)
}

// MaxColumn returns the widest populated column.
func (w *Workbook) MaxColumn() int {
	return w.maxCol
}

// Cell returns the displayed value at (row, col), or "" outside the data.
func (w *Workbook) Cell(row, col int) string {
	if row < 1 || row > len(w.rows) {
		return ""
	}
	r := w.rows[row-1]
	if col < 1 || col > len(r) {
		return ""
	}
	return r[col-1]
}

// SetCell overwrites the value at (row, col). Cells that currently hold a
// number stay numeric when value parses as one.
func (w *Workbook) SetCell(row, col int, value string) error {
	if row < 1 || row > len(w.rows) || col < 1 || col > w.maxCol {
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfRange, row, col)
	}

	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}

	if n, ok := w.numeric(ref, row, col, value); ok {
		err = w.file.SetCellValue(w.sheet, ref, n)
	} else {
		err = w.file.SetCellStr(w.sheet, ref, value)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", ref, err)
	}

	r := w.rows[row-1]
	for len(r) < col {
		r = append(r, "")
	}
	r[col-1] = value
	w.rows[row-1] = r
	return nil
}

// numeric reports whether value should be stored as a number in ref.
func (w *Workbook) numeric(ref string, row, col int, value string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, false
	}

	typ, err := w.file.GetCellType(w.sheet, ref)
	if err != nil {
		return 0, false
	}
	switch typ {
	case excelize.CellTypeNumber:
		return n, true
	case excelize.CellTypeUnset:
		// Plain numeric cells carry no type attribute.
		old := strings.TrimSpace(w.Cell(row, col))
		if old == "" {
			return 0, false
		}
		if _, err := strconv.ParseFloat(old, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// SaveAs writes the workbook to path, leaving the source file untouched.
func (w *Workbook) SaveAs(path string) error {
	if err := w.file.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// Close releases the workbook's temporary resources.
func (w *Workbook) Close() error {
	return w.file.Close()
}
