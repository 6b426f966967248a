package core

import (
	"sort"
	"strings"
)

// ColumnMapping maps a correction column (0-based index into the table
// headers) to a spreadsheet column (1-based). Unmapped correction columns are
// absent.
type ColumnMapping map[int]int

// MatchRate is the share of n correction columns that found a target.
func (m ColumnMapping) MatchRate(n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(len(m)) / float64(n)
}

// Indexes returns the mapped correction indexes in ascending order so that
// iteration over a mapping is deterministic.
func (m ColumnMapping) Indexes() []int {
	idx := make([]int, 0, len(m))
	for k := range m {
		idx = append(idx, k)
	}
	sort.Ints(idx)
	return idx
}

// MatchKind records which pass produced a column match.
type MatchKind string

const (
	MatchExact     MatchKind = "exact"
	MatchSubstring MatchKind = "substring"
	MatchFuzzy     MatchKind = "fuzzy"
)

// ColumnMatch describes one accepted correction -> spreadsheet pairing.
type ColumnMatch struct {
	Correction int
	Column     int
	Kind       MatchKind
	Ratio      float64 // similarity for fuzzy matches, 1 otherwise
}

// MapColumns pairs each correction header with a spreadsheet header using,
// in order, exact equality, containment in either direction, and similarity
// strictly above fuzzy. The first pass that succeeds wins. A spreadsheet
// column is claimed by at most one correction column; later headers that
// resolve to a claimed column stay unmapped.
func MapColumns(correction []string, header HeaderLocation, fuzzy float64) ColumnMapping {
	mapping, _, _ := mapColumnsDetailed(correction, header, fuzzy)
	return mapping
}

// mapColumnsDetailed is MapColumns plus the per-column match details used
// for logging. collisions holds the matches dropped because their target
// column was already claimed.
func mapColumnsDetailed(correction []string, header HeaderLocation, fuzzy float64) (mapping ColumnMapping, matches, collisions []ColumnMatch) {
	labels := header.Labels()
	mapping = make(ColumnMapping, len(correction))
	claimed := make(map[int]bool, len(correction))

	for i, raw := range correction {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		m, ok := matchColumn(name, labels, fuzzy)
		if !ok {
			continue
		}
		m.Correction = i
		if claimed[m.Column] {
			collisions = append(collisions, m)
			continue
		}
		claimed[m.Column] = true
		mapping[i] = m.Column
		matches = append(matches, m)
	}

	return mapping, matches, collisions
}

// matchColumn runs the three passes for a single correction header.
func matchColumn(name string, labels []HeaderColumn, fuzzy float64) (ColumnMatch, bool) {
	for _, l := range labels {
		if l.Label == name {
			return ColumnMatch{Column: l.Index, Kind: MatchExact, Ratio: 1}, true
		}
	}

	for _, l := range labels {
		if strings.Contains(l.Label, name) || strings.Contains(name, l.Label) {
			return ColumnMatch{Column: l.Index, Kind: MatchSubstring, Ratio: 1}, true
		}
	}

	best, bestRatio := 0, fuzzy
	for _, l := range labels {
		if r := Similarity(name, l.Label); r > bestRatio {
			best, bestRatio = l.Index, r
		}
	}
	if best > 0 {
		return ColumnMatch{Column: best, Kind: MatchFuzzy, Ratio: bestRatio}, true
	}

	return ColumnMatch{}, false
}
