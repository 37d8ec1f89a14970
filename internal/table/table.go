package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind classifies a column's content. It is fixed when the table is built
// and survives filtering, mirroring how dataframe dtypes behave.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindTime
	// KindEmpty marks a column whose cells are all missing.
	KindEmpty
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindTime:
		return "time"
	case KindEmpty:
		return "empty"
	default:
		return "text"
	}
}

// CellKind classifies a single cell.
type CellKind int

const (
	CellMissing CellKind = iota
	CellNumber
	CellTime
	CellText
)

// Cell is one value in a column. Text holds the canonical string form used
// for slicer value extraction and mask comparison: numbers are re-rendered
// from the parsed value so "5" and "5.0" collapse, text and time cells keep
// the trimmed raw string. Missing cells have empty Text.
type Cell struct {
	Kind CellKind
	Text string
	Num  float64
	When time.Time
}

// TextCell builds a text cell, or a missing cell for blank input.
func TextCell(s string) Cell {
	s = strings.TrimSpace(s)
	if s == "" {
		return Cell{Kind: CellMissing}
	}
	return Cell{Kind: CellText, Text: s}
}

// NumberCell builds a numeric cell with its canonical string form.
func NumberCell(f float64) Cell {
	return Cell{Kind: CellNumber, Text: strconv.FormatFloat(f, 'f', -1, 64), Num: f}
}

// Column is a named, typed sequence of cells.
type Column struct {
	Name  string
	Kind  Kind
	Cells []Cell
}

// NonMissing returns the number of cells that carry a value.
func (c *Column) NonMissing() int {
	n := 0
	for _, cell := range c.Cells {
		if cell.Kind != CellMissing {
			n++
		}
	}
	return n
}

// Missing returns the number of missing cells.
func (c *Column) Missing() int {
	return len(c.Cells) - c.NonMissing()
}

// Numbers returns the non-missing numeric values in row order.
func (c *Column) Numbers() []float64 {
	out := make([]float64, 0, len(c.Cells))
	for _, cell := range c.Cells {
		if cell.Kind == CellNumber {
			out = append(out, cell.Num)
		}
	}
	return out
}

// DistinctValues returns the distinct canonical strings of non-missing
// cells, preserving first-seen order.
func (c *Column) DistinctValues() []string {
	seen := make(map[string]struct{}, len(c.Cells))
	out := make([]string, 0, len(c.Cells))
	for _, cell := range c.Cells {
		if cell.Kind == CellMissing {
			continue
		}
		if _, ok := seen[cell.Text]; ok {
			continue
		}
		seen[cell.Text] = struct{}{}
		out = append(out, cell.Text)
	}
	return out
}

// Table is an ordered sequence of named, typed columns of equal length.
// Tables are treated as read-only after construction; Filter and Copy
// derive new tables instead of mutating in place.
type Table struct {
	Name    string
	Columns []Column
}

// New builds a table from raw string rows, typically a loader's output.
// The header row names the columns; duplicate names get a ".1"/".2" suffix
// and blank names become "Unnamed: <i>". Short rows are padded with missing
// cells. Cell values are inferred as number, then time, then text; a column
// is numeric (or time) only when every non-missing cell agrees.
func New(name string, headers []string, rows [][]string) *Table {
	t := &Table{Name: name, Columns: make([]Column, len(headers))}
	names := dedupeHeaders(headers)
	for i := range t.Columns {
		t.Columns[i].Name = names[i]
		t.Columns[i].Cells = make([]Cell, len(rows))
	}
	for r, row := range rows {
		for c := range t.Columns {
			raw := ""
			if c < len(row) {
				raw = row[c]
			}
			t.Columns[c].Cells[r] = inferCell(raw)
		}
	}
	for i := range t.Columns {
		t.Columns[i].Kind = inferKind(&t.Columns[i])
	}
	return t
}

// NewWithColumns assembles a table from prebuilt columns, which must all
// have the same length. Kinds are taken as given.
func NewWithColumns(name string, cols []Column) *Table {
	return &Table{Name: name, Columns: cols}
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Cells)
}

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.Columns) }

// ColumnNames returns column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i := range t.Columns {
		names[i] = t.Columns[i].Name
	}
	return names
}

// Column returns the named column, if present.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// CellAt returns the cell at (row, col) in table order.
func (t *Table) CellAt(row, col int) Cell {
	return t.Columns[col].Cells[row]
}

// Row returns the canonical strings of one row. Missing cells yield "".
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.Columns))
	for c := range t.Columns {
		out[c] = t.Columns[c].Cells[i].Text
	}
	return out
}

// MissingCells returns the total number of missing cells in the table.
func (t *Table) MissingCells() int {
	n := 0
	for i := range t.Columns {
		n += t.Columns[i].Missing()
	}
	return n
}

// NumericColumns returns the numeric columns in table order.
func (t *Table) NumericColumns() []*Column {
	var out []*Column
	for i := range t.Columns {
		if t.Columns[i].Kind == KindNumber {
			out = append(out, &t.Columns[i])
		}
	}
	return out
}

// TextColumns returns the text columns in table order.
func (t *Table) TextColumns() []*Column {
	var out []*Column
	for i := range t.Columns {
		if t.Columns[i].Kind == KindText {
			out = append(out, &t.Columns[i])
		}
	}
	return out
}

// TimeColumns returns the time columns in table order.
func (t *Table) TimeColumns() []*Column {
	var out []*Column
	for i := range t.Columns {
		if t.Columns[i].Kind == KindTime {
			out = append(out, &t.Columns[i])
		}
	}
	return out
}

// Filter returns a new table holding the rows where keep is true. Column
// names and kinds carry over unchanged. keep must cover every row.
func (t *Table) Filter(keep []bool) (*Table, error) {
	if len(keep) != t.NumRows() {
		return nil, fmt.Errorf("filter mask covers %d rows, table has %d", len(keep), t.NumRows())
	}
	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}
	out := &Table{Name: t.Name, Columns: make([]Column, len(t.Columns))}
	for c := range t.Columns {
		src := &t.Columns[c]
		dst := &out.Columns[c]
		dst.Name = src.Name
		dst.Kind = src.Kind
		dst.Cells = make([]Cell, 0, n)
		for r, k := range keep {
			if k {
				dst.Cells = append(dst.Cells, src.Cells[r])
			}
		}
	}
	return out, nil
}

// Copy returns an independent copy of the table.
func (t *Table) Copy() *Table {
	out := &Table{Name: t.Name, Columns: make([]Column, len(t.Columns))}
	for i := range t.Columns {
		src := &t.Columns[i]
		out.Columns[i] = Column{
			Name:  src.Name,
			Kind:  src.Kind,
			Cells: append([]Cell(nil), src.Cells...),
		}
	}
	return out
}

func dedupeHeaders(headers []string) []string {
	names := make([]string, len(headers))
	used := make(map[string]int, len(headers))
	for i, h := range headers {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, ok := used[name]; ok {
			base := name
			for {
				cand := fmt.Sprintf("%s.%d", base, n)
				if _, clash := used[cand]; !clash {
					used[base] = n + 1
					name = cand
					break
				}
				n++
			}
		}
		used[name] = 1
		names[i] = name
	}
	return names
}

func inferCell(raw string) Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Cell{Kind: CellMissing}
	}
	if f, ok := parseNumber(s); ok {
		return NumberCell(f)
	}
	if ts, ok := parseTimeMaybe(s); ok {
		return Cell{Kind: CellTime, Text: s, When: ts}
	}
	return Cell{Kind: CellText, Text: s}
}

// inferKind types a column from its cells: number or time only when every
// non-missing cell agrees, matching dataframe dtype promotion.
func inferKind(c *Column) Kind {
	var num, tim, txt int
	for _, cell := range c.Cells {
		switch cell.Kind {
		case CellNumber:
			num++
		case CellTime:
			tim++
		case CellText:
			txt++
		}
	}
	nonMissing := num + tim + txt
	switch {
	case nonMissing == 0:
		return KindEmpty
	case txt == 0 && tim == 0 && num > 0:
		return KindNumber
	case txt == 0 && num == 0 && tim > 0:
		return KindTime
	default:
		return KindText
	}
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumber parses a formatted numeric string, auto-detecting decimal and
// thousands separators among ',', '.' and space, and tolerating a percent
// sign. Spreadsheet readers hand back display strings, not raw values.
func parseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	raw = strings.ReplaceAll(raw, "%", "")
	raw = strings.ReplaceAll(raw, " ", " ")
	raw = strings.TrimSpace(raw)
	dec := '.'
	thou := rune(0)
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	switch {
	case cpos >= 0 && dpos >= 0:
		if cpos > dpos {
			dec, thou = ',', '.'
		} else {
			dec, thou = '.', ','
		}
	case cpos >= 0:
		dec = ','
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
