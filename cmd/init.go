package cmd

import (
	"fmt"
	"os"
	"strings"

	cfgpkg "github.com/KaramelBytes/pivotscribe/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	initWorkbook string
	initSheets   []string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter pivotscribe.yaml in the current directory",
	Long: `Init writes a pivotscribe.yaml describing the workbook and the sheets to
sweep. Edit the sheets and slicers to match your workbook (use 'pivotscribe
inspect' to see candidates), then 'pivotscribe run'.`,
	Example: `  pivotscribe init
  pivotscribe init -f financials.xlsx --sheet "Summary=Region,Quarter"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Refuse to overwrite an existing config.
		if _, err := os.Stat(cfgpkg.ProjectFile); err == nil {
			return fmt.Errorf("%s already exists; refusing to overwrite", cfgpkg.ProjectFile)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("stat %s: %w", cfgpkg.ProjectFile, err)
		}

		starter := starterConfig()
		if wb := strings.TrimSpace(initWorkbook); wb != "" {
			starter.Workbook = wb
		}
		if len(initSheets) > 0 {
			starter.Sheets = nil
			for _, f := range initSheets {
				s, err := parseSheetFlag(f)
				if err != nil {
					return err
				}
				starter.Sheets = append(starter.Sheets, cfgpkg.SheetConfig{Name: s.Name, Slicers: s.Slicers})
			}
		}

		b, err := yaml.Marshal(starter)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		if err := os.WriteFile(cfgpkg.ProjectFile, b, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", cfgpkg.ProjectFile, err)
		}
		fmt.Printf("✓ Workbook config initialized: %s\n", cfgpkg.ProjectFile)
		return nil
	},
}

// starterConfig is the template init writes; the sheet entries show the
// shape users edit.
func starterConfig() *cfgpkg.Global {
	return &cfgpkg.Global{
		Workbook: "financials.xlsx",
		Sheets: []cfgpkg.SheetConfig{
			{Name: "Summary", Slicers: []string{"Region", "Quarter"}},
		},
		ResultsDir:       "analysis_results",
		Recorder:         "file",
		DefaultModel:     "openai/gpt-4o",
		DefaultProvider:  "openrouter",
		MaxTokens:        1500,
		Temperature:      0.3,
		ConfirmThreshold: 20,
		Workers:          1,
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVarP(&initWorkbook, "file", "f", "", "workbook path to record in the config")
	initCmd.Flags().StringArrayVar(&initSheets, "sheet", nil, "sheet entry as \"Name=Slicer1,Slicer2\" (repeatable)")
}
