package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/pivotscribe/internal/table"
	"github.com/spf13/cobra"
)

var sheetsFile string

var sheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "List the sheet names in a workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := ensureConfig()
		workbook := strings.TrimSpace(sheetsFile)
		if workbook == "" {
			workbook = c.Workbook
		}
		if workbook == "" {
			return fmt.Errorf("no workbook given: pass -f/--file or set 'workbook' in config")
		}
		names, err := table.Sheets(workbook)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("(no sheets)")
			return nil
		}
		for _, n := range names {
			fmt.Println("-", n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sheetsCmd)
	sheetsCmd.Flags().StringVarP(&sheetsFile, "file", "f", "", "workbook to list (.xlsx or .csv; default from config)")
}
