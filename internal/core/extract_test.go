package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractTables(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Table
	}{
		{
			name: "empty input",
			text: "   \n\n",
			want: nil,
		},
		{
			name: "single table with caption",
			text: "以下是修改：\n| 序号 | 名称 | 数量 |\n|---|---|---|\n| 1 | 产品A | 10 |\n| 2 | 产品B | 5 |\n",
			want: []Table{{
				Caption:   "以下是修改：",
				Headers:   []string{"序号", "名称", "数量"},
				Rows:      [][]string{{"1", "产品A", "10"}, {"2", "产品B", "5"}},
				KeyColumn: 0,
			}},
		},
		{
			name: "escaped newlines",
			text: `| 名称 | 品牌 |\n|---|---|\n| 产品A | 华为 |`,
			want: []Table{{
				Headers:   []string{"名称", "品牌"},
				Rows:      [][]string{{"产品A", "华为"}},
				KeyColumn: -1,
			}},
		},
		{
			name: "short rows padded and long rows truncated",
			text: "| a | b | c |\n|-|-|-|\n| 1 |\n| 1 | 2 | 3 | 4 |",
			want: []Table{{
				Headers:   []string{"a", "b", "c"},
				Rows:      [][]string{{"1", "", ""}, {"1", "2", "3"}},
				KeyColumn: -1,
			}},
		},
		{
			name: "all-empty rows dropped",
			text: "| a | b |\n|---|---|\n|   |   |\n| x | y |",
			want: []Table{{
				Headers:   []string{"a", "b"},
				Rows:      [][]string{{"x", "y"}},
				KeyColumn: -1,
			}},
		},
		{
			name: "header only is kept with no rows",
			text: "| a | b |\n|---|---|",
			want: []Table{{
				Headers:   []string{"a", "b"},
				KeyColumn: -1,
			}},
		},
		{
			name: "single line is not a table",
			text: "a | b",
			want: nil,
		},
		{
			name: "truncation marker drops keyed table",
			text: "| 序号 | 名称 |\n|---|---|\n| 1 | 产品A |\n| ... | ... |",
			want: nil,
		},
		{
			name: "truncation marker kept without key column",
			text: "| 名称 | 品牌 |\n|---|---|\n| 产品A | … |",
			want: []Table{{
				Headers:   []string{"名称", "品牌"},
				Rows:      [][]string{{"产品A", "…"}},
				KeyColumn: -1,
			}},
		},
		{
			name: "two tables separated by text",
			text: "表1\n| a | b |\n|-|-|\n| 1 | 2 |\n\n表2\n| c | d |\n|-|-|\n| 3 | 4 |",
			want: []Table{
				{Caption: "表1", Headers: []string{"a", "b"}, Rows: [][]string{{"1", "2"}}, KeyColumn: -1},
				{Caption: "表2", Headers: []string{"c", "d"}, Rows: [][]string{{"3", "4"}}, KeyColumn: -1},
			},
		},
		{
			name: "CRLF line endings",
			text: "| 序 号 | 名称 |\r\n|---|---|\r\n| 1 | 产品A |\r\n",
			want: []Table{{
				Headers:   []string{"序 号", "名称"},
				Rows:      [][]string{{"1", "产品A"}},
				KeyColumn: 0,
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTables(tt.text, DefaultKeyColumn)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ExtractTables() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTable_Record(t *testing.T) {
	tables := ExtractTables("| 序号 | 名称 |\n|---|---|\n| 1 | 产品A |", DefaultKeyColumn)
	if len(tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(tables))
	}

	rec := tables[0].Record(0)
	if rec["序号"] != "1" || rec["名称"] != "产品A" {
		t.Errorf("Record(0) = %v", rec)
	}
	if got := tables[0].Record(5); got != nil {
		t.Errorf("Record(5) = %v, want nil", got)
	}
}
