package core

// rowmatch.go locates the spreadsheet row a correction row should update.
//
// Two strategies share the RowMatcher interface:
//
//   - VotingMatcher compares every mapped column and accepts the first row,
//     in pointer order, where enough columns agree.
//   - KeyMatcher looks the row up by a normalized unique key.
//
// A miss is reported through RowMatchOutcome, never as an error.

import (
	"golang.org/x/text/cases"
)

// RowMatcher finds the target row for one correction row.
type RowMatcher interface {
	Find(row []string, grid Grid) RowMatchOutcome
}

// VotingMatcher implements multi-column voting with a search pointer.
//
// Correction rows usually arrive in spreadsheet order, so the search starts
// at the last matched row and only wraps around to the prefix on a miss. The
// first row that clears the threshold wins; results can therefore depend on
// the order in which correction rows are processed.
//
// A VotingMatcher is bound to one table and is not safe for concurrent use.
type VotingMatcher struct {
	mapping    ColumnMapping
	headerRow  int
	threshold  int
	wraparound bool
	pointer    int
}

// NewVotingMatcher creates a matcher whose pointer starts just below headerRow.
func NewVotingMatcher(mapping ColumnMapping, headerRow, threshold int, wraparound bool) *VotingMatcher {
	if threshold <= 0 {
		threshold = DefaultRowMatchThreshold
	}
	return &VotingMatcher{
		mapping:    mapping,
		headerRow:  headerRow,
		threshold:  threshold,
		wraparound: wraparound,
		pointer:    headerRow + 1,
	}
}

// Pointer returns the row the next search starts from.
func (m *VotingMatcher) Pointer() int {
	return m.pointer
}

// Find scans pointer..MaxRow, then headerRow+1..pointer-1 when wraparound is
// enabled, returning the first row with at least threshold agreeing columns.
func (m *VotingMatcher) Find(row []string, grid Grid) RowMatchOutcome {
	c := folder()
	want := make(map[int]string, len(m.mapping))
	for _, ci := range m.mapping.Indexes() {
		if ci >= len(row) {
			continue
		}
		if v := normalizeValue(c, row[ci]); v != "" {
			want[m.mapping[ci]] = v
		}
	}
	if len(want) < m.threshold {
		return RowMatchOutcome{}
	}

	start := m.pointer
	if start <= m.headerRow {
		start = m.headerRow + 1
	}
	maxRow := grid.MaxRow()

	if out, ok := m.scan(c, want, grid, start, maxRow); ok {
		return out
	}
	if m.wraparound {
		if out, ok := m.scan(c, want, grid, m.headerRow+1, start-1); ok {
			return out
		}
	}
	return RowMatchOutcome{}
}

// scan checks rows from..to inclusive and moves the pointer on a hit.
func (m *VotingMatcher) scan(c cases.Caser, want map[int]string, grid Grid, from, to int) (RowMatchOutcome, bool) {
	for r := from; r <= to; r++ {
		agree := 0
		for col, v := range want {
			if normalizeValue(c, grid.Cell(r, col)) == v {
				agree++
			}
		}
		if agree >= m.threshold {
			m.pointer = r
			return RowMatchOutcome{Matched: true, Row: r, MatchedColumns: agree}, true
		}
	}
	return RowMatchOutcome{}, false
}

// DuplicateKey records a key seen on more than one spreadsheet row.
type DuplicateKey struct {
	Key       string
	FirstRow  int
	IgnoredAt int
}

// KeyMatcher resolves correction rows through a unique key column.
type KeyMatcher struct {
	index      map[string]int
	keyIndex   int // key position in the correction row
	duplicates []DuplicateKey
}

// NewKeyMatcher indexes keyCol of every row below headerRow. The first row
// carrying a key wins; later duplicates are recorded and ignored. keyIndex is
// the key's position within correction rows.
func NewKeyMatcher(grid Grid, headerRow, keyCol, keyIndex int) *KeyMatcher {
	m := &KeyMatcher{
		index:    make(map[string]int),
		keyIndex: keyIndex,
	}
	for r := headerRow + 1; r <= grid.MaxRow(); r++ {
		k := NormalizeKey(grid.Cell(r, keyCol))
		if k == "" {
			continue
		}
		if first, dup := m.index[k]; dup {
			m.duplicates = append(m.duplicates, DuplicateKey{Key: k, FirstRow: first, IgnoredAt: r})
			continue
		}
		m.index[k] = r
	}
	return m
}

// Len returns the number of distinct keys indexed.
func (m *KeyMatcher) Len() int {
	return len(m.index)
}

// Duplicates returns the keys that appeared more than once, in row order.
func (m *KeyMatcher) Duplicates() []DuplicateKey {
	return m.duplicates
}

// Key returns the normalized key of a correction row, or "" if it has none.
func (m *KeyMatcher) Key(row []string) string {
	if m.keyIndex < 0 || m.keyIndex >= len(row) {
		return ""
	}
	return NormalizeKey(row[m.keyIndex])
}

// Find looks the row's key up in the index.
func (m *KeyMatcher) Find(row []string, _ Grid) RowMatchOutcome {
	k := m.Key(row)
	if k == "" {
		return RowMatchOutcome{}
	}
	r, ok := m.index[k]
	if !ok {
		return RowMatchOutcome{}
	}
	return RowMatchOutcome{Matched: true, Row: r, MatchedColumns: 1}
}
