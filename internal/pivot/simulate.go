package pivot

import (
	"log/slog"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/pivotscribe/internal/table"
)

// Output table names mirror the original pivot outputs.
func FilteredName(sheet string) string { return "Filtered_Data_" + sheet }
func SummaryName(sheet string) string  { return "Summary_" + sheet }
func EmptyName(sheet string) string    { return "Empty_" + sheet }

// NamedTable pairs an output name with its table.
type NamedTable struct {
	Name  string
	Table *table.Table
}

// Result is the ordered output of one simulated pivot: the filtered data
// table plus, when numeric columns survive, a numeric summary table; or a
// single empty-marker table when filtering removed every row.
type Result struct {
	Tables []NamedTable
	// Empty is set when filtering removed all rows and Tables holds only
	// the marker.
	Empty bool
}

// Applier runs pivot simulations and carries the logger used for skip and
// ambiguity diagnostics.
type Applier struct {
	log *slog.Logger
}

func NewApplier(log *slog.Logger) *Applier {
	if log == nil {
		log = slog.Default()
	}
	return &Applier{log: log}
}

// CollectValues resolves each configured slicer against the table and
// extracts its candidate values, in slicer order. An unresolved slicer
// contributes an empty value list, which empties the combination product
// for the sheet; the miss is logged with fuzzy suggestions.
func (a *Applier) CollectValues(t *table.Table, slicers []string) SlicerValues {
	cols := t.ColumnNames()
	sv := make(SlicerValues, 0, len(slicers))
	for _, s := range slicers {
		m, ok := Resolve(cols, s)
		if !ok {
			a.log.Warn("slicer column not found",
				slog.String("sheet", t.Name),
				slog.String("slicer", s),
				slog.String("closest", strings.Join(Suggest(cols, s, 3), ", ")))
			sv = append(sv, FieldValues{Field: s})
			continue
		}
		if m.Ambiguous() {
			a.log.Debug("ambiguous slicer column",
				slog.String("sheet", t.Name),
				slog.String("slicer", s),
				slog.String("picked", m.Column),
				slog.String("alternates", strings.Join(m.Alternates, ", ")))
		}
		sv = append(sv, FieldValues{Field: s, Values: Values(t, m.Column)})
	}
	return sv
}

// Apply simulates pivot filtering: each filter in order is resolved
// against the current (possibly already-narrowed) table and applied as an
// equality mask over canonical trimmed cell strings. Unresolvable fields
// are logged and skipped without narrowing. The input table is never
// mutated. An empty FilterSet returns the full table copy.
func (a *Applier) Apply(t *table.Table, fs FilterSet) *Result {
	work := t.Copy()
	for _, f := range fs {
		m, ok := Resolve(work.ColumnNames(), f.Field)
		if !ok {
			a.log.Warn("filter field not found, skipping filter",
				slog.String("sheet", t.Name),
				slog.String("field", f.Field),
				slog.String("closest", strings.Join(Suggest(work.ColumnNames(), f.Field, 3), ", ")))
			continue
		}
		if m.Ambiguous() {
			a.log.Debug("ambiguous filter field",
				slog.String("sheet", t.Name),
				slog.String("field", f.Field),
				slog.String("picked", m.Column),
				slog.String("alternates", strings.Join(m.Alternates, ", ")))
		}
		col, _ := work.Column(m.Column)
		want := strings.TrimSpace(f.Value)
		keep := make([]bool, work.NumRows())
		for i := range col.Cells {
			cell := col.Cells[i]
			keep[i] = cell.Kind != table.CellMissing && strings.TrimSpace(cell.Text) == want
		}
		narrowed, err := work.Filter(keep)
		if err != nil {
			a.log.Error("filter mask mismatch",
				slog.String("sheet", t.Name),
				slog.String("field", f.Field),
				slog.String("error", err.Error()))
			continue
		}
		work = narrowed
	}

	if work.NumRows() == 0 {
		a.log.Info("no rows after filtering",
			slog.String("sheet", t.Name),
			slog.String("filters", fs.String()))
		return &Result{
			Tables: []NamedTable{{Name: EmptyName(t.Name), Table: work}},
			Empty:  true,
		}
	}

	tables := []NamedTable{{Name: FilteredName(t.Name), Table: work}}
	if summary := a.summarize(work); summary != nil {
		tables = append(tables, NamedTable{Name: SummaryName(t.Name), Table: summary})
	}
	return &Result{Tables: tables}
}

// summarize builds the numeric-summary table: one row per numeric column
// with Sum, Average, Count of non-missing values, Min and Max. Numeric
// columns left with no values are omitted; when none survive, no summary
// is produced.
func (a *Applier) summarize(work *table.Table) *table.Table {
	nums := work.NumericColumns()
	if len(nums) == 0 {
		return nil
	}
	var metrics, sums, avgs, counts, mins, maxs []table.Cell
	for _, col := range nums {
		vals := col.Numbers()
		if len(vals) == 0 {
			a.log.Debug("numeric column empty after filtering, omitted from summary",
				slog.String("sheet", work.Name),
				slog.String("column", col.Name))
			continue
		}
		total, _ := stats.Sum(vals)
		mean, _ := stats.Mean(vals)
		lo, _ := stats.Min(vals)
		hi, _ := stats.Max(vals)
		metrics = append(metrics, table.TextCell(col.Name))
		sums = append(sums, table.NumberCell(total))
		avgs = append(avgs, table.NumberCell(mean))
		counts = append(counts, table.NumberCell(float64(len(vals))))
		mins = append(mins, table.NumberCell(lo))
		maxs = append(maxs, table.NumberCell(hi))
	}
	if len(metrics) == 0 {
		a.log.Debug("all numeric columns empty after filtering, summary omitted",
			slog.String("sheet", work.Name))
		return nil
	}
	return table.NewWithColumns(work.Name, []table.Column{
		{Name: "Metric", Kind: table.KindText, Cells: metrics},
		{Name: "Sum", Kind: table.KindNumber, Cells: sums},
		{Name: "Average", Kind: table.KindNumber, Cells: avgs},
		{Name: "Count", Kind: table.KindNumber, Cells: counts},
		{Name: "Min", Kind: table.KindNumber, Cells: mins},
		{Name: "Max", Kind: table.KindNumber, Cells: maxs},
	})
}
