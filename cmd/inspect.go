package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/pivotscribe/internal/pivot"
	"github.com/KaramelBytes/pivotscribe/internal/table"
	"github.com/spf13/cobra"
)

var (
	inspectFile       string
	inspectSheetFlags []string
)

// slicerCandidateMax bounds how many distinct values a column may have and
// still be suggested as a slicer; above it the sweep would explode.
const slicerCandidateMax = 50

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show sheet structure and slicer candidates",
	Long: `Inspect prints each sheet's shape, its columns with inferred kinds, and
the columns whose distinct-value counts make them workable slicers. When
sheets with slicers are configured (or passed via --sheet), slicers that do
not resolve to a column are flagged with close-match suggestions.`,
	Example: `  pivotscribe inspect -f financials.xlsx
  pivotscribe inspect -f financials.xlsx --sheet "Summary=Region,Qtr"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := ensureConfig()

		workbook := strings.TrimSpace(inspectFile)
		if workbook == "" {
			workbook = c.Workbook
		}
		if workbook == "" {
			return fmt.Errorf("no workbook given: pass -f/--file or set 'workbook' in config")
		}

		configured, err := resolveSheets(c, inspectSheetFlags)
		if err != nil {
			return err
		}
		slicersBySheet := map[string][]string{}
		for _, s := range configured {
			slicersBySheet[s.Name] = s.Slicers
		}

		names, err := table.Sheets(workbook)
		if err != nil {
			return err
		}
		for i, name := range names {
			if i > 0 {
				fmt.Println()
			}
			inspectSheet(workbook, name, slicersBySheet[name])
		}
		return nil
	},
}

func inspectSheet(workbook, name string, slicers []string) {
	t, err := table.Load(workbook, name)
	if err != nil {
		fmt.Printf("✗ Sheet %s: %v\n", name, err)
		return
	}
	fmt.Printf("Sheet: %s (%d rows × %d columns)\n", name, t.NumRows(), t.NumCols())
	fmt.Println("  Columns:")
	for _, col := range t.Columns {
		line := fmt.Sprintf("    %-24s %s", col.Name, col.Kind)
		if miss := col.Missing(); miss > 0 {
			line += fmt.Sprintf(" (%d missing)", miss)
		}
		fmt.Println(line)
	}

	var candidates []string
	for i := range t.Columns {
		col := &t.Columns[i]
		distinct := col.DistinctValues()
		if len(distinct) > 1 && len(distinct) <= slicerCandidateMax {
			sample := distinct
			if len(sample) > 3 {
				sample = sample[:3]
			}
			candidates = append(candidates,
				fmt.Sprintf("    %s (%d values: %s)", col.Name, len(distinct), strings.Join(sample, ", ")))
		}
	}
	if len(candidates) > 0 {
		fmt.Println("  Slicer candidates:")
		for _, c := range candidates {
			fmt.Println(c)
		}
	} else {
		fmt.Println("  No slicer candidates (no column with 2-50 distinct values)")
	}

	cols := t.ColumnNames()
	for _, s := range slicers {
		if m, ok := pivot.Resolve(cols, s); ok {
			if m.Column != s {
				fmt.Printf("  ✓ Slicer %q resolves to column %q\n", s, m.Column)
			} else {
				fmt.Printf("  ✓ Slicer %q resolves\n", s)
			}
			continue
		}
		if sugg := pivot.Suggest(cols, s, 3); len(sugg) > 0 {
			fmt.Printf("  ⚠ Slicer %q not found; closest: %s\n", s, strings.Join(sugg, ", "))
		} else {
			fmt.Printf("  ⚠ Slicer %q not found\n", s)
		}
	}
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&inspectFile, "file", "f", "", "workbook to inspect (.xlsx or .csv; default from config)")
	inspectCmd.Flags().StringArrayVar(&inspectSheetFlags, "sheet", nil, "check slicers as \"Name=Slicer1,Slicer2\" (repeatable; default from config)")
}
