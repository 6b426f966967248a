package core

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Similarity returns the character-sequence similarity ratio of a and b in
// [0, 1], computed as 2*M/T over runes where M is the number of matched runes
// found by the longest-common-block decomposition and T the total length.
// Two empty strings are fully similar.
func Similarity(a, b string) float64 {
	ra, rb := splitRunes(a), splitRunes(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	return difflib.NewMatcher(ra, rb).Ratio()
}

// splitRunes turns s into one element per rune for the sequence matcher.
func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
