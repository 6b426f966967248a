package sheet

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// writeWorkbook creates an xlsx file with rows on its default sheet.
func writeWorkbook(t *testing.T, dir string, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	for r, row := range rows {
		for c, v := range row {
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("CoordinatesToCellName: %v", err)
			}
			if err := f.SetCellValue(sheet, ref, v); err != nil {
				t.Fatalf("SetCellValue(%s): %v", ref, err)
			}
		}
	}

	path := filepath.Join(dir, "bom.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

func TestWorkbook_ReadCells(t *testing.T) {
	path := writeWorkbook(t, t.TempDir(), [][]any{
		{"报价单"},
		{"序号", "名称", "品牌", "数量"},
		{1, "产品A", "华为", 10},
		{2, "产品B", "", 5},
	})

	wb, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer wb.Close()

	if got := wb.MaxRow(); got != 4 {
		t.Errorf("MaxRow = %d, want 4", got)
	}
	if got := wb.MaxColumn(); got != 4 {
		t.Errorf("MaxColumn = %d, want 4", got)
	}
	if got := wb.Cell(3, 2); got != "产品A" {
		t.Errorf("Cell(3,2) = %q, want %q", got, "产品A")
	}
	if got := wb.Cell(3, 4); got != "10" {
		t.Errorf("Cell(3,4) = %q, want %q", got, "10")
	}
	if got := wb.Cell(4, 3); got != "" {
		t.Errorf("Cell(4,3) = %q, want empty", got)
	}
	if got := wb.Cell(99, 1); got != "" {
		t.Errorf("Cell(99,1) = %q, want empty", got)
	}
}

func TestWorkbook_UnicodeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkbook(t, dir, [][]any{
		{"序号", "名称", "备注"},
		{1, "旧名称", "old"},
	})

	wb, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	values := map[int]string{
		2: "新名称 🚀 ①",
		3: "Ünïcödé　全角空格",
	}
	for col, v := range values {
		if err := wb.SetCell(2, col, v); err != nil {
			t.Fatalf("SetCell(2,%d): %v", col, err)
		}
	}

	out := filepath.Join(dir, "out.xlsx")
	if err := wb.SaveAs(out); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	wb.Close()

	reopened, err := Open(out)
	if err != nil {
		t.Fatalf("Open saved: %v", err)
	}
	defer reopened.Close()

	for col, want := range values {
		if got := reopened.Cell(2, col); got != want {
			t.Errorf("Cell(2,%d) = %q, want %q", col, got, want)
		}
	}
}

func TestWorkbook_NumericCellsStayNumeric(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkbook(t, dir, [][]any{
		{"序号", "名称", "数量"},
		{1, "产品A", 10},
	})

	wb, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := wb.SetCell(2, 3, "25"); err != nil {
		t.Fatalf("SetCell: %v", err)
	}
	if err := wb.SetCell(2, 2, "42"); err != nil {
		t.Fatalf("SetCell: %v", err)
	}
	out := filepath.Join(dir, "out.xlsx")
	if err := wb.SaveAs(out); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	wb.Close()

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	typ, err := f.GetCellType(sheet, "C2")
	if err != nil {
		t.Fatalf("GetCellType: %v", err)
	}
	if typ == excelize.CellTypeSharedString || typ == excelize.CellTypeInlineString {
		t.Errorf("C2 type = %v, want numeric", typ)
	}

	typ, err = f.GetCellType(sheet, "B2")
	if err != nil {
		t.Fatalf("GetCellType: %v", err)
	}
	if typ != excelize.CellTypeSharedString && typ != excelize.CellTypeInlineString {
		t.Errorf("B2 type = %v, want string", typ)
	}
}

func TestWorkbook_SetCellOutOfRange(t *testing.T) {
	path := writeWorkbook(t, t.TempDir(), [][]any{{"a", "b"}})
	wb, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer wb.Close()

	if err := wb.SetCell(5, 1, "x"); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetCell(5,1) = %v, want ErrOutOfRange", err)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.xlsx"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open missing = %v, want os.ErrNotExist", err)
	}
}

func TestMemoryGrid(t *testing.T) {
	g := NewMemoryGrid([][]string{
		{"序号", "名称"},
		{"1"},
	})

	if g.MaxRow() != 2 || g.MaxColumn() != 2 {
		t.Fatalf("bounds = %dx%d, want 2x2", g.MaxRow(), g.MaxColumn())
	}
	if err := g.SetCell(2, 2, "产品A"); err != nil {
		t.Fatalf("SetCell: %v", err)
	}
	if got := g.Cell(2, 2); got != "产品A" {
		t.Errorf("Cell(2,2) = %q, want %q", got, "产品A")
	}
	if err := g.SetCell(3, 1, "x"); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetCell(3,1) = %v, want ErrOutOfRange", err)
	}
	if got := g.Writes(); got != 1 {
		t.Errorf("Writes = %d, want 1", got)
	}

	cp := NewMemoryGridFrom(g)
	_ = cp.SetCell(1, 1, "changed")
	if got := g.Cell(1, 1); got != "序号" {
		t.Errorf("snapshot write leaked into source: %q", got)
	}
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()

	first, err := OutputPath(dir, "/uploads/报价单.xlsx", DefaultSuffix)
	if err != nil {
		t.Fatalf("OutputPath: %v", err)
	}
	if want := filepath.Join(dir, "报价单(修改后).xlsx"); first != want {
		t.Errorf("first = %q, want %q", first, want)
	}

	if err := os.WriteFile(first, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	second, err := OutputPath(dir, "报价单.xlsx", DefaultSuffix)
	if err != nil {
		t.Fatalf("OutputPath: %v", err)
	}
	if want := filepath.Join(dir, "报价单(修改后)_1.xlsx"); second != want {
		t.Errorf("second = %q, want %q", second, want)
	}

	if err := os.WriteFile(second, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	third, _ := OutputPath(dir, "报价单.xlsx", DefaultSuffix)
	if want := filepath.Join(dir, "报价单(修改后)_2.xlsx"); third != want {
		t.Errorf("third = %q, want %q", third, want)
	}
}
