package core

// extract.go pulls pipe-delimited tables out of free-form correction text.
//
// A line belongs to a table when it contains the '|' delimiter. Consecutive
// table lines form one raw table. For each raw table the first line is the
// header, the second (markdown separator) is dropped unread, and the rest are
// data rows normalized to the header width.

import (
	"strings"
)

const columnDelimiter = "|"

// truncationMarkers flag an illustrative excerpt rather than a full correction set.
var truncationMarkers = []string{"...", "…"}

// Table is one correction table parsed from the payload.
type Table struct {
	Caption   string     `json:"caption,omitempty"` // nearest non-table line before the table, if any
	Headers   []string   `json:"headers"`           // trimmed, non-empty header labels
	Rows      [][]string `json:"rows"`              // each row has exactly len(Headers) values
	KeyColumn int        `json:"key_column"`        // index of the key column in Headers, -1 if absent
}

// HasKey reports whether the table carries the unique key column.
func (t Table) HasKey() bool {
	return t.KeyColumn >= 0
}

// Record returns row i keyed by header label. Duplicate labels keep the last value.
func (t Table) Record(i int) map[string]string {
	if i < 0 || i >= len(t.Rows) {
		return nil
	}
	rec := make(map[string]string, len(t.Headers))
	for c, h := range t.Headers {
		rec[h] = t.Rows[i][c]
	}
	return rec
}

// ExtractTables finds and parses every table in text. keyColumn names the
// unique-key header; tables carrying it are dropped entirely when any row
// contains a truncation marker. Returns nil for empty input.
func ExtractTables(text, keyColumn string) []Table {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	// Payloads relayed through JSON or argv often arrive double-escaped.
	if strings.Contains(text, `\n`) {
		text = strings.ReplaceAll(text, `\n`, "\n")
	}

	var (
		tables  []Table
		current []string
		caption string
		lastTxt string
	)

	flush := func() {
		if len(current) == 0 {
			return
		}
		if t, ok := parseTable(current, keyColumn); ok {
			t.Caption = caption
			tables = append(tables, t)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.Contains(line, columnDelimiter) {
			if len(current) == 0 {
				caption = lastTxt
			}
			current = append(current, line)
			continue
		}
		flush()
		if s := strings.TrimSpace(line); s != "" {
			lastTxt = s
		}
	}
	flush()

	return tables
}

// parseTable converts the raw lines of one table. ok is false when the lines
// do not form a usable table.
func parseTable(raw []string, keyColumn string) (Table, bool) {
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if s := strings.TrimSpace(l); s != "" {
			lines = append(lines, s)
		}
	}
	if len(lines) < 2 {
		return Table{}, false
	}

	var headers []string
	for _, h := range splitCells(lines[0]) {
		if h != "" {
			headers = append(headers, h)
		}
	}
	if len(headers) == 0 {
		return Table{}, false
	}

	t := Table{Headers: headers, KeyColumn: -1}
	keyName := compactLabel(keyColumn)
	if keyName != "" {
		for i, h := range headers {
			if compactLabel(h) == keyName {
				t.KeyColumn = i
				break
			}
		}
	}

	truncated := false
	for _, line := range lines[2:] {
		cells := trimArtifacts(splitCells(line))
		if allEmpty(cells) {
			continue
		}
		if hasTruncationMarker(cells) {
			truncated = true
		}
		t.Rows = append(t.Rows, fitWidth(cells, len(headers)))
	}

	if truncated && t.HasKey() {
		return Table{}, false
	}
	return t, true
}

// splitCells splits a table line on the delimiter and trims every field.
func splitCells(line string) []string {
	parts := strings.Split(line, columnDelimiter)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// trimArtifacts drops the empty fields produced by a leading or trailing delimiter.
func trimArtifacts(cells []string) []string {
	if len(cells) > 0 && cells[0] == "" {
		cells = cells[1:]
	}
	if len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}

// fitWidth pads or truncates cells to exactly n values.
func fitWidth(cells []string, n int) []string {
	out := make([]string, n)
	copy(out, cells)
	return out
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func hasTruncationMarker(cells []string) bool {
	for _, c := range cells {
		for _, m := range truncationMarkers {
			if strings.Contains(c, m) {
				return true
			}
		}
	}
	return false
}
