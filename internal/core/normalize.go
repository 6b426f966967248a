package core

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

// folder performs Unicode case folding for value comparison.
func folder() cases.Caser {
	return cases.Fold()
}

// NormalizeKey converts a key cell to its canonical lookup form:
// full-width characters are folded, surrounding whitespace trimmed, and
// all-digit values lose their leading zeros (a bare "0" stays "0").
// Empty input normalizes to "", which callers treat as absent.
//
// NormalizeKey is idempotent.
func NormalizeKey(v string) string {
	s := strings.TrimSpace(width.Fold.String(v))
	if s == "" {
		return ""
	}
	if isASCIIDigits(s) {
		s = strings.TrimLeft(s, "0")
		if s == "" {
			s = "0"
		}
	}
	return s
}

// isASCIIDigits reports whether s is non-empty and contains only 0-9.
func isASCIIDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// normalizeValue prepares a cell value for voting comparison: whitespace runs
// collapse to one space, the ends are trimmed and case is folded.
func normalizeValue(c cases.Caser, v string) string {
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return ""
	}
	return c.String(strings.Join(fields, " "))
}

// ValuesEqual reports whether two cell values are the same for row matching
// purposes (case-insensitive, whitespace-insensitive).
func ValuesEqual(a, b string) bool {
	c := folder()
	return normalizeValue(c, a) == normalizeValue(c, b)
}

// compactLabel removes every space, including the ideographic space, so that
// "序 号" and "序号" compare equal.
func compactLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	return strings.ReplaceAll(s, "　", "")
}
