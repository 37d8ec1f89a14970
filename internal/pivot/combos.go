package pivot

import (
	"fmt"
	"strings"
)

// Filter is one (field, value) equality constraint.
type Filter struct {
	Field string
	Value string
}

// FilterSet is an ordered sequence of filters, applied in order by the
// simulator. One FilterSet is one cell of the combinatorial slicer grid.
// It is created by Combinations and consumed once.
type FilterSet []Filter

// String renders the set as "Region=North, Quarter=Q1" for logs and
// persisted records. An empty set renders as "none".
func (fs FilterSet) String() string {
	if len(fs) == 0 {
		return "none"
	}
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = fmt.Sprintf("%s=%s", f.Field, f.Value)
	}
	return strings.Join(parts, ", ")
}

// Count returns the size of the Cartesian product without materializing
// it: the product of each field's value count, 1 for no fields.
func Count(sv SlicerValues) int {
	total := 1
	for _, fv := range sv {
		total *= len(fv.Values)
	}
	return total
}

// Combinations expands the full Cartesian product of field values, fields
// in registration order, rightmost field varying fastest. A field with no
// values empties the product; no fields at all yields exactly one empty
// FilterSet.
func Combinations(sv SlicerValues) []FilterSet {
	total := Count(sv)
	if total == 0 {
		return nil
	}
	out := make([]FilterSet, 0, total)
	idx := make([]int, len(sv))
	for {
		fs := make(FilterSet, len(sv))
		for i, fv := range sv {
			fs[i] = Filter{Field: fv.Field, Value: fv.Values[idx[i]]}
		}
		out = append(out, fs)
		i := len(idx) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(sv[i].Values) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			break
		}
	}
	return out
}
