package ai

import (
	"fmt"
	"math"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/pivotscribe/internal/pivot"
	"github.com/KaramelBytes/pivotscribe/internal/table"
)

// SystemPrompt frames every analysis request.
const SystemPrompt = "You are an expert financial analyst with deep experience in corporate financial reporting, variance analysis, and business intelligence. Provide clear, actionable insights."

const (
	promptRowLimit   = 10
	summaryColLimit  = 5
	describeColLimit = 3
)

// Context identifies the slice being analyzed. The dispatcher reproduces
// it in prompts and persisted records without interpreting it.
type Context struct {
	Sheet   string
	Pivot   string
	Filters pivot.FilterSet
	// Ordinal is the 1-based position in the combination sequence of
	// Total combinations.
	Ordinal int
	Total   int
}

// Line renders the context the way it appears in prompts and logs.
func (c Context) Line() string {
	var parts []string
	if c.Sheet != "" {
		parts = append(parts, "Sheet: "+c.Sheet)
	}
	if c.Pivot != "" {
		parts = append(parts, "Pivot Table: "+c.Pivot)
	}
	if len(c.Filters) > 0 {
		parts = append(parts, "Applied Filters: "+c.Filters.String())
	}
	if c.Total > 0 {
		parts = append(parts, fmt.Sprintf("Combination: %d/%d", c.Ordinal, c.Total))
	}
	return strings.Join(parts, " | ")
}

// BuildPrompt renders the analysis request for one slice table: context,
// structured data summary, the first rows as the analyst would see them,
// and the asks.
func BuildPrompt(t *table.Table, actx Context) string {
	var b strings.Builder
	b.WriteString("You are a financial analyst reviewing pivot table data from a spreadsheet report.\n\n")
	if line := actx.Line(); line != "" {
		b.WriteString("Context: " + line + "\n\n")
	}
	b.WriteString("Data Summary:\n")
	b.WriteString(DataSummary(t))
	b.WriteString("\n\nRaw Data (first 10 rows):\n")
	b.WriteString(RenderRows(t, promptRowLimit))
	b.WriteString("\n\nPlease provide a comprehensive financial analysis including:\n\n")
	b.WriteString("1. **Key Insights**: What are the main takeaways from this data?\n")
	b.WriteString("2. **Trends & Patterns**: Identify any notable trends, anomalies, or patterns\n")
	b.WriteString("3. **Financial Metrics**: Comment on important financial indicators present\n")
	b.WriteString("4. **Risk Assessment**: Highlight any potential risks or concerning areas\n")
	b.WriteString("5. **Recommendations**: Suggest actionable next steps or areas for further investigation\n")
	b.WriteString("6. **Data Quality**: Comment on data completeness and reliability\n\n")
	b.WriteString("Focus on actionable insights that would be valuable to management.\n")
	b.WriteString("Keep your analysis concise but thorough.\n")
	return b.String()
}

// DataSummary produces the structured table summary embedded in prompts:
// shape, columns grouped by kind, missing counts, and describe-style stats
// for the first few numeric columns.
func DataSummary(t *table.Table) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Shape: %d rows × %d columns", t.NumRows(), t.NumCols()))

	nums := t.NumericColumns()
	texts := t.TextColumns()
	times := t.TimeColumns()
	if len(nums) > 0 {
		parts = append(parts, fmt.Sprintf("Numeric columns (%d): %s", len(nums), truncatedNames(nums, summaryColLimit)))
	}
	if len(texts) > 0 {
		parts = append(parts, fmt.Sprintf("Text columns (%d): %s", len(texts), truncatedNames(texts, summaryColLimit)))
	}
	if len(times) > 0 {
		parts = append(parts, fmt.Sprintf("Date columns (%d): %s", len(times), truncatedNames(times, len(times))))
	}

	if t.MissingCells() > 0 {
		var missing []string
		for i := range t.Columns {
			if n := t.Columns[i].Missing(); n > 0 {
				missing = append(missing, fmt.Sprintf("%s=%d", t.Columns[i].Name, n))
			}
		}
		parts = append(parts, "Missing data: "+strings.Join(missing, ", "))
	}

	if len(nums) > 0 {
		parts = append(parts, "\nNumeric column summaries:")
		limit := describeColLimit
		if limit > len(nums) {
			limit = len(nums)
		}
		for _, col := range nums[:limit] {
			vals := col.Numbers()
			if len(vals) == 0 {
				continue
			}
			lo, _ := stats.Min(vals)
			hi, _ := stats.Max(vals)
			mean, _ := stats.Mean(vals)
			std, err := stats.StandardDeviationSample(vals)
			if err != nil {
				std = math.NaN()
			}
			parts = append(parts, fmt.Sprintf("  %s: min=%.2f, max=%.2f, mean=%.2f, std=%.2f", col.Name, lo, hi, mean, std))
		}
	}
	return strings.Join(parts, "\n")
}

// RenderRows renders up to n rows as right-aligned columns, the way a
// dataframe prints without its index. Missing cells render as NaN.
func RenderRows(t *table.Table, n int) string {
	rows := t.NumRows()
	if n > 0 && rows > n {
		rows = n
	}
	headers := t.ColumnNames()
	widths := make([]int, len(headers))
	for c, h := range headers {
		widths[c] = len([]rune(h))
	}
	display := make([][]string, rows)
	for r := 0; r < rows; r++ {
		display[r] = make([]string, t.NumCols())
		for c := 0; c < t.NumCols(); c++ {
			cell := t.CellAt(r, c)
			s := cell.Text
			if cell.Kind == table.CellMissing {
				s = "NaN"
			}
			display[r][c] = s
			if w := len([]rune(s)); w > widths[c] {
				widths[c] = w
			}
		}
	}
	var b strings.Builder
	for c, h := range headers {
		if c > 0 {
			b.WriteString("  ")
		}
		writeAligned(&b, h, widths[c])
	}
	for r := 0; r < rows; r++ {
		b.WriteByte('\n')
		for c := range display[r] {
			if c > 0 {
				b.WriteString("  ")
			}
			writeAligned(&b, display[r][c], widths[c])
		}
	}
	return b.String()
}

func writeAligned(b *strings.Builder, s string, width int) {
	for i := len([]rune(s)); i < width; i++ {
		b.WriteByte(' ')
	}
	b.WriteString(s)
}

func truncatedNames(cols []*table.Column, limit int) string {
	names := make([]string, 0, limit)
	for i, c := range cols {
		if i == limit {
			break
		}
		names = append(names, c.Name)
	}
	out := strings.Join(names, ", ")
	if len(cols) > limit {
		out += "..."
	}
	return out
}
