package core

import "strings"

// minHeaderCells is the fewest non-empty cells a row needs to be a header candidate.
const minHeaderCells = 3

// Early-exit bar: a row this convincing ends the scan immediately.
const (
	confidentKeywordHits = 3
	confidentCells       = 5
)

// LocateHeader scans the first scanLimit rows of grid for the row most likely
// to hold column labels. Each candidate scores keywordHits*10 + nonEmptyCells;
// the best score wins and ties keep the earliest row. A row with at least three
// keyword hits and five cells is returned at once, whatever scored before it.
// ok is false when no row has at least three non-empty cells.
func LocateHeader(grid Grid, scanLimit int, vocab Vocabulary) (loc HeaderLocation, ok bool) {
	last := scanLimit
	if maxRow := grid.MaxRow(); maxRow < last {
		last = maxRow
	}
	maxCol := grid.MaxColumn()

	bestScore := -1
	for row := 1; row <= last; row++ {
		cols := make(map[int]string)
		for col := 1; col <= maxCol; col++ {
			if v := strings.TrimSpace(grid.Cell(row, col)); v != "" {
				cols[col] = v
			}
		}
		if len(cols) < minHeaderCells {
			continue
		}

		hits := 0
		for _, label := range cols {
			if vocab.matches(label) {
				hits++
			}
		}

		if hits >= confidentKeywordHits && len(cols) >= confidentCells {
			return HeaderLocation{Row: row, Columns: cols}, true
		}

		score := hits*10 + len(cols)
		if score > bestScore {
			bestScore = score
			loc = HeaderLocation{Row: row, Columns: cols}
			ok = true
		}
	}

	return loc, ok
}

// FirstRowHeader builds a header location from row 1 regardless of content.
// It backs the HeaderFallbackFirstRow policy.
func FirstRowHeader(grid Grid) (HeaderLocation, bool) {
	cols := make(map[int]string)
	for col := 1; col <= grid.MaxColumn(); col++ {
		if v := strings.TrimSpace(grid.Cell(1, col)); v != "" {
			cols[col] = v
		}
	}
	if len(cols) == 0 {
		return HeaderLocation{}, false
	}
	return HeaderLocation{Row: 1, Columns: cols}, true
}

// matches reports whether label equals, or is more than KeywordSimilarity
// similar to, any vocabulary keyword.
func (v Vocabulary) matches(label string) bool {
	for _, kw := range v {
		if label == kw {
			return true
		}
	}
	for _, kw := range v {
		if Similarity(label, kw) > KeywordSimilarity {
			return true
		}
	}
	return false
}
