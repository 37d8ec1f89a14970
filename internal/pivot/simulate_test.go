package pivot

import (
	"io"
	"log/slog"
	"testing"

	"github.com/KaramelBytes/pivotscribe/internal/table"
)

func testApplier() *Applier {
	return NewApplier(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func salesTable() *table.Table {
	return table.New("Sales",
		[]string{"Region", "Amount"},
		[][]string{
			{"A", "5"},
			{"A", "15"},
			{"B", "25"},
		})
}

// summaryRow returns the metric row of a summary table as name → value.
func summaryRow(t *testing.T, tbl *table.Table, metric string) map[string]float64 {
	t.Helper()
	mc, ok := tbl.Column("Metric")
	if !ok {
		t.Fatalf("summary has no Metric column: %v", tbl.ColumnNames())
	}
	for i := range mc.Cells {
		if mc.Cells[i].Text != metric {
			continue
		}
		out := map[string]float64{}
		for _, name := range []string{"Sum", "Average", "Count", "Min", "Max"} {
			c, ok := tbl.Column(name)
			if !ok {
				t.Fatalf("summary missing column %s", name)
			}
			out[name] = c.Cells[i].Num
		}
		return out
	}
	t.Fatalf("metric %q not found in summary", metric)
	return nil
}

func findTable(t *testing.T, r *Result, name string) *table.Table {
	t.Helper()
	for _, nt := range r.Tables {
		if nt.Name == name {
			return nt.Table
		}
	}
	t.Fatalf("result has no table %q (have %d tables)", name, len(r.Tables))
	return nil
}

func TestApplyEmptyFilterSetReturnsFullTable(t *testing.T) {
	src := salesTable()
	r := testApplier().Apply(src, FilterSet{})
	if r.Empty {
		t.Fatal("result marked empty")
	}
	got := findTable(t, r, "Filtered_Data_Sales")
	if got.NumRows() != src.NumRows() {
		t.Fatalf("rows = %d, want %d", got.NumRows(), src.NumRows())
	}
	for i := 0; i < src.NumRows(); i++ {
		want := src.Row(i)
		have := got.Row(i)
		for c := range want {
			if have[c] != want[c] {
				t.Fatalf("row %d = %v, want %v", i, have, want)
			}
		}
	}
}

func TestApplyFilterNarrowsAndSummarizes(t *testing.T) {
	r := testApplier().Apply(salesTable(), FilterSet{{Field: "Region", Value: "A"}})
	filtered := findTable(t, r, "Filtered_Data_Sales")
	if filtered.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", filtered.NumRows())
	}
	amounts, _ := filtered.Column("Amount")
	got := amounts.Numbers()
	if len(got) != 2 || got[0] != 5 || got[1] != 15 {
		t.Fatalf("amounts = %v, want [5 15]", got)
	}

	summary := findTable(t, r, "Summary_Sales")
	row := summaryRow(t, summary, "Amount")
	for name, want := range map[string]float64{"Sum": 20, "Average": 10, "Count": 2, "Min": 5, "Max": 15} {
		if row[name] != want {
			t.Errorf("%s = %v, want %v", name, row[name], want)
		}
	}
}

func TestApplySummaryValues(t *testing.T) {
	tbl := table.New("S", []string{"N"}, [][]string{{"10"}, {"20"}, {"30"}})
	r := testApplier().Apply(tbl, nil)
	row := summaryRow(t, findTable(t, r, "Summary_S"), "N")
	for name, want := range map[string]float64{"Sum": 60, "Average": 20, "Count": 3, "Min": 10, "Max": 30} {
		if row[name] != want {
			t.Errorf("%s = %v, want %v", name, row[name], want)
		}
	}
}

func TestApplyZeroRowsYieldsEmptyMarker(t *testing.T) {
	r := testApplier().Apply(salesTable(), FilterSet{{Field: "Region", Value: "Z"}})
	if !r.Empty {
		t.Fatal("result not marked empty")
	}
	if len(r.Tables) != 1 {
		t.Fatalf("tables = %d, want exactly 1 marker", len(r.Tables))
	}
	if r.Tables[0].Name != "Empty_Sales" {
		t.Fatalf("marker name = %q, want Empty_Sales", r.Tables[0].Name)
	}
	if r.Tables[0].Table.NumRows() != 0 {
		t.Fatalf("marker rows = %d, want 0", r.Tables[0].Table.NumRows())
	}
}

func TestApplyAdditionalFilterNeverWidens(t *testing.T) {
	tbl := table.New("S",
		[]string{"Region", "Quarter", "Amount"},
		[][]string{
			{"A", "Q1", "1"},
			{"A", "Q2", "2"},
			{"B", "Q1", "3"},
			{"A", "Q1", "4"},
		})
	a := testApplier()
	base := a.Apply(tbl, FilterSet{{Field: "Region", Value: "A"}})
	narrowed := a.Apply(tbl, FilterSet{{Field: "Region", Value: "A"}, {Field: "Quarter", Value: "Q1"}})
	baseRows := findTable(t, base, "Filtered_Data_S").NumRows()
	narrowRows := findTable(t, narrowed, "Filtered_Data_S").NumRows()
	if narrowRows > baseRows {
		t.Fatalf("narrowed rows %d > base rows %d", narrowRows, baseRows)
	}
	if baseRows != 3 || narrowRows != 2 {
		t.Fatalf("rows = %d/%d, want 3/2", baseRows, narrowRows)
	}
}

func TestApplySkipsUnresolvableField(t *testing.T) {
	r := testApplier().Apply(salesTable(), FilterSet{
		{Field: "NoSuchField", Value: "x"},
		{Field: "Region", Value: "B"},
	})
	got := findTable(t, r, "Filtered_Data_Sales")
	if got.NumRows() != 1 {
		t.Fatalf("rows = %d, want 1 (unknown field skipped, Region applied)", got.NumRows())
	}
}

func TestApplyInputTableUntouched(t *testing.T) {
	src := salesTable()
	_ = testApplier().Apply(src, FilterSet{{Field: "Region", Value: "A"}})
	if src.NumRows() != 3 {
		t.Fatalf("source rows = %d after Apply, want 3", src.NumRows())
	}
}

func TestApplyNoNumericColumnsNoSummary(t *testing.T) {
	tbl := table.New("S", []string{"Region"}, [][]string{{"A"}, {"B"}})
	r := testApplier().Apply(tbl, nil)
	if len(r.Tables) != 1 {
		t.Fatalf("tables = %d, want 1 (no summary without numeric columns)", len(r.Tables))
	}
}

func TestApplyTrimsComparedValues(t *testing.T) {
	tbl := table.New("S", []string{"Region", "Amount"}, [][]string{
		{" North ", "5"},
		{"South", "7"},
	})
	r := testApplier().Apply(tbl, FilterSet{{Field: "Region", Value: " North"}})
	if got := findTable(t, r, "Filtered_Data_S").NumRows(); got != 1 {
		t.Fatalf("rows = %d, want 1", got)
	}
}

func TestCollectValues(t *testing.T) {
	tbl := table.New("Sales",
		[]string{"Region Name", "Amount"},
		[][]string{
			{"North", "1"},
			{"South", "2"},
			{"North", "3"},
		})
	a := testApplier()
	sv := a.CollectValues(tbl, []string{"region", "Client"})
	if len(sv) != 2 {
		t.Fatalf("fields = %d, want 2", len(sv))
	}
	if sv[0].Field != "region" || len(sv[0].Values) != 2 {
		t.Fatalf("region values = %v, want [North South]", sv[0].Values)
	}
	if len(sv[1].Values) != 0 {
		t.Fatalf("unresolved slicer values = %v, want none", sv[1].Values)
	}
	// Unresolved slicer empties the product, so the sheet yields no combos.
	if got := Combinations(sv); len(got) != 0 {
		t.Fatalf("combos = %d, want 0", len(got))
	}
}
