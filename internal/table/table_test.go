package table

import (
	"testing"
)

func mustColumn(t *testing.T, tbl *Table, name string) *Column {
	t.Helper()
	c, ok := tbl.Column(name)
	if !ok {
		t.Fatalf("column %q not found (have %v)", name, tbl.ColumnNames())
	}
	return c
}

func TestNewInfersColumnKinds(t *testing.T) {
	tbl := New("Revenue",
		[]string{"Region", "Amount", "Booked", "Code", "Notes"},
		[][]string{
			{"North", "10", "2024-01-02", "A1", ""},
			{"South", "20.5", "2024-02-03", "7", ""},
			{"North", "", "2024-03-04", "B2", ""},
		})

	want := map[string]Kind{
		"Region": KindText,
		"Amount": KindNumber,
		"Booked": KindTime,
		"Code":   KindText, // mixed text and number stays text
		"Notes":  KindEmpty,
	}
	for name, kind := range want {
		if got := mustColumn(t, tbl, name).Kind; got != kind {
			t.Errorf("column %s kind = %v, want %v", name, got, kind)
		}
	}
	if tbl.NumRows() != 3 || tbl.NumCols() != 5 {
		t.Fatalf("shape = %dx%d, want 3x5", tbl.NumRows(), tbl.NumCols())
	}
}

func TestNewDedupesHeaders(t *testing.T) {
	tbl := New("s", []string{"Amount", "Amount", " ", "Amount"}, nil)
	got := tbl.ColumnNames()
	want := []string{"Amount", "Amount.1", "Unnamed: 2", "Amount.2"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("header[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewPadsShortRows(t *testing.T) {
	tbl := New("s", []string{"A", "B", "C"}, [][]string{{"1"}, {"2", "x"}})
	c := mustColumn(t, tbl, "C")
	if c.Kind != KindEmpty {
		t.Fatalf("padded column kind = %v, want %v", c.Kind, KindEmpty)
	}
	if got := mustColumn(t, tbl, "B").Missing(); got != 1 {
		t.Fatalf("B missing = %d, want 1", got)
	}
}

func TestCanonicalNumberText(t *testing.T) {
	tbl := New("s", []string{"N"}, [][]string{{"5"}, {"5.0"}, {"1,234.5"}})
	c := mustColumn(t, tbl, "N")
	if c.Kind != KindNumber {
		t.Fatalf("kind = %v, want %v", c.Kind, KindNumber)
	}
	if got := c.Cells[0].Text; got != "5" {
		t.Errorf("canonical(5) = %q, want 5", got)
	}
	if got := c.Cells[1].Text; got != "5" {
		t.Errorf("canonical(5.0) = %q, want 5", got)
	}
	if got := c.Cells[2].Text; got != "1234.5" {
		t.Errorf("canonical(1,234.5) = %q, want 1234.5", got)
	}
	if got := c.DistinctValues(); len(got) != 2 {
		t.Errorf("distinct = %v, want 2 values", got)
	}
}

func TestFilterKeepsKindsAndOrder(t *testing.T) {
	tbl := New("s", []string{"Region", "Amount"}, [][]string{
		{"A", "5"}, {"A", "15"}, {"B", "25"},
	})
	out, err := tbl.Filter([]bool{true, false, true})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if out.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", out.NumRows())
	}
	if got := mustColumn(t, out, "Amount").Kind; got != KindNumber {
		t.Errorf("kind after filter = %v, want %v", got, KindNumber)
	}
	if got := out.Row(1); got[0] != "B" || got[1] != "25" {
		t.Errorf("row 1 = %v, want [B 25]", got)
	}
	// original untouched
	if tbl.NumRows() != 3 {
		t.Errorf("source rows = %d, want 3", tbl.NumRows())
	}
}

func TestFilterRejectsShortMask(t *testing.T) {
	tbl := New("s", []string{"A"}, [][]string{{"1"}, {"2"}})
	if _, err := tbl.Filter([]bool{true}); err == nil {
		t.Fatal("expected error for short mask, got nil")
	}
}

func TestCopyIsIndependent(t *testing.T) {
	tbl := New("s", []string{"A"}, [][]string{{"x"}})
	cp := tbl.Copy()
	cp.Columns[0].Cells[0] = TextCell("y")
	if got := tbl.Columns[0].Cells[0].Text; got != "x" {
		t.Fatalf("source cell = %q after copy mutation, want x", got)
	}
}

func TestColumnNumbersSkipMissing(t *testing.T) {
	tbl := New("s", []string{"N"}, [][]string{{"10"}, {""}, {"30"}})
	c := mustColumn(t, tbl, "N")
	got := c.Numbers()
	if len(got) != 2 || got[0] != 10 || got[1] != 30 {
		t.Fatalf("numbers = %v, want [10 30]", got)
	}
	if c.NonMissing() != 2 || c.Missing() != 1 {
		t.Fatalf("nonMissing/missing = %d/%d, want 2/1", c.NonMissing(), c.Missing())
	}
}

func TestParseNumberFormats(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{"-12.5", -12.5, true},
		{"1,234.56", 1234.56, true},
		{"1.234,56", 1234.56, true},
		{"15%", 15, true},
		{"2024-01-02", 0, false},
		{"North", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseNumber(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("parseNumber(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
