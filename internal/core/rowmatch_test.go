package core

import (
	"testing"

	"github.com/JonMunkholm/sheetpatch/internal/sheet"
)

// votingGrid has a duplicate of row 2 at row 5 to expose search order.
func votingGrid() *sheet.MemoryGrid {
	return sheet.NewMemoryGrid([][]string{
		{"名称", "品牌", "型号", "数量"},
		{"A", "X", "m1", "1"},
		{"B", "Y", "m2", "2"},
		{"C", "Z", "m3", "3"},
		{"A", "X", "m1", "9"},
	})
}

// correction columns: 名称, 品牌, 数量
var votingMapping = ColumnMapping{0: 1, 1: 2, 2: 4}

func TestVotingMatcher_PointerAndWraparound(t *testing.T) {
	g := votingGrid()
	m := NewVotingMatcher(votingMapping, 1, 2, true)

	steps := []struct {
		row     []string
		wantRow int
		wantCnt int
	}{
		{[]string{"C", "Z", "100"}, 4, 2},
		// Forward from the pointer finds the later duplicate first.
		{[]string{"A", "X", "5"}, 5, 2},
		// Miss ahead of the pointer, found by wraparound.
		{[]string{"B", "Y", "2"}, 3, 3},
	}

	for i, s := range steps {
		got := m.Find(s.row, g)
		if !got.Matched {
			t.Fatalf("step %d: no match", i)
		}
		if got.Row != s.wantRow || got.MatchedColumns != s.wantCnt {
			t.Errorf("step %d: got row %d (%d cols), want row %d (%d cols)",
				i, got.Row, got.MatchedColumns, s.wantRow, s.wantCnt)
		}
		if m.Pointer() != s.wantRow {
			t.Errorf("step %d: pointer = %d, want %d", i, m.Pointer(), s.wantRow)
		}
	}
}

func TestVotingMatcher_NoWraparound(t *testing.T) {
	g := votingGrid()
	m := NewVotingMatcher(votingMapping, 1, 2, false)

	if got := m.Find([]string{"C", "Z", ""}, g); got.Row != 4 {
		t.Fatalf("first find row = %d, want 4", got.Row)
	}
	if got := m.Find([]string{"B", "Y", ""}, g); got.Matched {
		t.Errorf("row behind the pointer matched without wraparound: %+v", got)
	}
}

func TestVotingMatcher_Threshold(t *testing.T) {
	g := votingGrid()

	tests := []struct {
		name      string
		row       []string
		threshold int
		want      bool
	}{
		{"one column below threshold", []string{"B", "nope", ""}, 2, false},
		{"blank values do not vote", []string{"C", "", ""}, 2, false},
		{"threshold of one", []string{"C", "", ""}, 1, true},
		{"all three agree", []string{"B", "Y", "2"}, 3, true},
		{"whitespace and case ignored", []string{"  b ", "y", ""}, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewVotingMatcher(votingMapping, 1, tt.threshold, true)
			if got := m.Find(tt.row, g); got.Matched != tt.want {
				t.Errorf("Matched = %v, want %v", got.Matched, tt.want)
			}
		})
	}
}

func TestVotingMatcher_CountsAllAgreeingColumns(t *testing.T) {
	g := sheet.NewMemoryGrid([][]string{
		{"序号", "名称", "数量"},
		{"1", "产品A", "10"},
	})
	m := NewVotingMatcher(ColumnMapping{0: 1, 1: 2, 2: 3}, 1, 2, true)

	got := m.Find([]string{"1", "产品A", "10"}, g)
	if !got.Matched || got.MatchedColumns != 3 {
		t.Errorf("Find() = %+v, want matched with 3 columns", got)
	}
}

func TestKeyMatcher(t *testing.T) {
	g := sheet.NewMemoryGrid([][]string{
		{"序号", "名称"},
		{"12", "产品A"},
		{"3", "产品B"},
		{"03", "产品B-dup"},
		{"", "无序号"},
	})
	m := NewKeyMatcher(g, 1, 1, 0)

	if got := m.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}

	dups := m.Duplicates()
	if len(dups) != 1 || dups[0].Key != "3" || dups[0].FirstRow != 3 || dups[0].IgnoredAt != 4 {
		t.Errorf("Duplicates = %+v", dups)
	}

	tests := []struct {
		key     string
		wantRow int
		want    bool
	}{
		{"012", 2, true},
		{"12", 2, true},
		{"3", 3, true},
		{"99", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got := m.Find([]string{tt.key, "x"}, g)
		if got.Matched != tt.want || got.Row != tt.wantRow {
			t.Errorf("Find(%q) = %+v, want row %d matched=%v", tt.key, got, tt.wantRow, tt.want)
		}
	}
}

func TestRowMatcher_Interface(t *testing.T) {
	var _ RowMatcher = (*VotingMatcher)(nil)
	var _ RowMatcher = (*KeyMatcher)(nil)
}
