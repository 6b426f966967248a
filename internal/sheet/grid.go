package sheet

import "fmt"

// MemoryGrid is an in-memory worksheet. It backs previews and tests.
type MemoryGrid struct {
	rows   [][]string
	maxCol int
	writes int
}

// NewMemoryGrid copies rows into a new grid. rows[0] is row 1.
func NewMemoryGrid(rows [][]string) *MemoryGrid {
	g := &MemoryGrid{rows: make([][]string, len(rows))}
	for i, r := range rows {
		g.rows[i] = append([]string(nil), r...)
		if len(r) > g.maxCol {
			g.maxCol = len(r)
		}
	}
	return g
}

// NewMemoryGridFrom snapshots another grid, e.g. a Workbook, so that a dry
// run can edit the copy.
func NewMemoryGridFrom(src interface {
	MaxRow() int
	MaxColumn() int
	Cell(row, col int) string
}) *MemoryGrid {
	rows := make([][]string, src.MaxRow())
	for r := range rows {
		row := make([]string, src.MaxColumn())
		for c := range row {
			row[c] = src.Cell(r+1, c+1)
		}
		rows[r] = row
	}
	return NewMemoryGrid(rows)
}

func (g *MemoryGrid) MaxRow() int    { return len(g.rows) }
func (g *MemoryGrid) MaxColumn() int { return g.maxCol }

func (g *MemoryGrid) Cell(row, col int) string {
	if row < 1 || row > len(g.rows) {
		return ""
	}
	r := g.rows[row-1]
	if col < 1 || col > len(r) {
		return ""
	}
	return r[col-1]
}

func (g *MemoryGrid) SetCell(row, col int, value string) error {
	if row < 1 || row > len(g.rows) || col < 1 || col > g.maxCol {
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfRange, row, col)
	}
	r := g.rows[row-1]
	for len(r) < col {
		r = append(r, "")
	}
	r[col-1] = value
	g.rows[row-1] = r
	g.writes++
	return nil
}

// Writes returns how many SetCell calls succeeded.
func (g *MemoryGrid) Writes() int {
	return g.writes
}

// Row returns a copy of row (1-based), padded to MaxColumn.
func (g *MemoryGrid) Row(row int) []string {
	out := make([]string, g.maxCol)
	for c := range out {
		out[c] = g.Cell(row, c+1)
	}
	return out
}
