package table

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if _, err := f.NewSheet(sheet); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestLoadXLSX(t *testing.T) {
	path := writeWorkbook(t, "Revenue", [][]interface{}{
		{"Region", "Amount"},
		{"North", 10},
		{"South", 20.5},
		{"North", 30},
	})

	tbl, err := Load(path, "Revenue")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tbl.Name != "Revenue" {
		t.Errorf("table name = %q, want Revenue", tbl.Name)
	}
	if tbl.NumRows() != 3 || tbl.NumCols() != 2 {
		t.Fatalf("shape = %dx%d, want 3x2", tbl.NumRows(), tbl.NumCols())
	}
	if got := mustColumn(t, tbl, "Amount").Kind; got != KindNumber {
		t.Errorf("Amount kind = %v, want %v", got, KindNumber)
	}
	if got := mustColumn(t, tbl, "Amount").Numbers(); got[1] != 20.5 {
		t.Errorf("Amount[1] = %v, want 20.5", got[1])
	}
}

func TestLoadXLSXMissingSheet(t *testing.T) {
	path := writeWorkbook(t, "Revenue", [][]interface{}{{"A"}})
	_, err := Load(path, "NoSuchSheet")
	if err == nil {
		t.Fatal("expected error for missing sheet, got nil")
	}
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("error type = %T, want *LoadError", err)
	}
	if le.Sheet != "NoSuchSheet" {
		t.Errorf("LoadError.Sheet = %q, want NoSuchSheet", le.Sheet)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.xlsx"), "Revenue")
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("error = %v, want *LoadError", err)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	_, err := Load("report.pdf", "Revenue")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("error = %v, want ErrUnsupported", err)
	}
}

func TestSheetsListsWorkbookSheets(t *testing.T) {
	path := writeWorkbook(t, "Revenue", [][]interface{}{{"A"}})
	names, err := Sheets(path)
	if err != nil {
		t.Fatalf("sheets: %v", err)
	}
	found := false
	for _, n := range names {
		if n == "Revenue" {
			found = true
		}
	}
	if !found {
		t.Fatalf("sheets = %v, want to contain Revenue", names)
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	data := "Region,Amount\nNorth,5\nSouth,15\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	tbl, err := Load(path, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tbl.Name != "sales" {
		t.Errorf("table name = %q, want sales", tbl.Name)
	}
	if tbl.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", tbl.NumRows())
	}
	if got := mustColumn(t, tbl, "Amount").Kind; got != KindNumber {
		t.Errorf("Amount kind = %v, want %v", got, KindNumber)
	}

	// The single logical sheet is named after the file.
	names, err := Sheets(path)
	if err != nil || len(names) != 1 || names[0] != "sales" {
		t.Fatalf("sheets = %v, %v; want [sales]", names, err)
	}
	if _, err := Load(path, "Other"); err == nil {
		t.Fatal("expected error for wrong csv sheet name, got nil")
	}
}

func TestLoadTSVDelimiter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.tsv")
	data := "Region\tAmount\nNorth\t5\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write tsv: %v", err)
	}
	tbl, err := Load(path, "sales")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tbl.NumCols() != 2 {
		t.Fatalf("cols = %d, want 2", tbl.NumCols())
	}
}
