package ai

import (
	"fmt"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/pivotscribe/internal/table"
)

const fallbackTextColLimit = 3

// Fallback produces the deterministic local analysis substituted when the
// external service is unavailable or errors. It never fails.
func Fallback(t *table.Table) string {
	var parts []string
	parts = append(parts, "BASIC DATA ANALYSIS:")
	parts = append(parts, fmt.Sprintf("- Dataset contains %d records across %d fields", t.NumRows(), t.NumCols()))

	if nums := t.NumericColumns(); len(nums) > 0 {
		parts = append(parts, "", "NUMERIC ANALYSIS:")
		for _, col := range nums {
			vals := col.Numbers()
			if len(vals) == 0 {
				parts = append(parts, fmt.Sprintf("- %s: no values", col.Name))
				continue
			}
			total, _ := stats.Sum(vals)
			mean, _ := stats.Mean(vals)
			parts = append(parts, fmt.Sprintf("- %s: Total = %s, Average = %s", col.Name, groupThousands(total), groupThousands(mean)))
		}
	}

	if texts := t.TextColumns(); len(texts) > 0 {
		parts = append(parts, "", "CATEGORICAL ANALYSIS:")
		limit := fallbackTextColLimit
		if limit > len(texts) {
			limit = len(texts)
		}
		for _, col := range texts[:limit] {
			parts = append(parts, fmt.Sprintf("- %s: %d unique values", col.Name, len(col.DistinctValues())))
		}
	}

	if missing := t.MissingCells(); missing > 0 {
		parts = append(parts, "", "DATA QUALITY:")
		parts = append(parts, fmt.Sprintf("- %d missing values detected", missing))
	}

	parts = append(parts, "", "RECOMMENDATION:")
	parts = append(parts, "- Review the data for completeness and accuracy")
	parts = append(parts, "- Consider trends and patterns in the numeric values")

	return strings.Join(parts, "\n")
}

// groupThousands formats a value as 1,234,567.89.
func groupThousands(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	b.WriteString(frac)
	return b.String()
}
