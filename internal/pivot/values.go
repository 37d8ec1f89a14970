package pivot

import (
	"strings"

	"github.com/KaramelBytes/pivotscribe/internal/table"
)

// noiseTerms are aggregate labels that never make sense as slicer values;
// any candidate whose lowercase form contains one is dropped.
var noiseTerms = []string{"total", "grand total", "sum", "average", "avg", "(blank)", "blank"}

// FieldValues pairs a user-declared slicer field with its admissible values.
type FieldValues struct {
	Field  string
	Values []string
}

// SlicerValues holds per-field candidate values in registration order.
type SlicerValues []FieldValues

// Values extracts the cleaned candidate filter values of a column: missing
// cells dropped, canonical strings trimmed, empty strings dropped,
// duplicates removed preserving first-seen order, aggregate-label noise
// removed. A column with nothing admissible yields an empty slice, not an
// error. Numeric columns are valid slicer candidates.
func Values(t *table.Table, column string) []string {
	col, ok := t.Column(column)
	if !ok {
		return nil
	}
	seen := make(map[string]struct{}, len(col.Cells))
	out := make([]string, 0, 16)
	for _, cell := range col.Cells {
		if cell.Kind == table.CellMissing {
			continue
		}
		v := strings.TrimSpace(cell.Text)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		if isNoise(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func isNoise(v string) bool {
	lv := strings.ToLower(v)
	for _, term := range noiseTerms {
		if strings.Contains(lv, term) {
			return true
		}
	}
	return false
}
