package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/KaramelBytes/pivotscribe/internal/ai"
	cfgpkg "github.com/KaramelBytes/pivotscribe/internal/config"
	"github.com/KaramelBytes/pivotscribe/internal/pipeline"
	"github.com/KaramelBytes/pivotscribe/internal/results"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	runFile        string
	runSheetFlags  []string
	runResultsDir  string
	runRecorder    string
	runModel       string
	runProvider    string
	runOllamaHost  string
	runMaxTokens   int
	runTemp        float64
	runTimeoutSec  int
	runWorkers     int
	runYes         bool
	runMaxCombos   int
	runDryRun      bool
	runBudgetLimit float64
	runQuiet       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sweep slicer combinations across the workbook and analyze each slice",
	Long: `Run expands every combination of the configured slicer values per sheet,
simulates the pivot tables each combination would produce, and sends each
non-empty slice to the AI model for analysis. Each analysis is persisted as
it completes; a run manifest is written at the end.`,
	Example: `  pivotscribe run -f financials.xlsx --sheet "Summary=Region,Quarter"
  pivotscribe run --dry-run
  pivotscribe run --provider ollama --model llama3:latest --workers 4 --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Ensure flags that can carry over between invocations are reset to defaults
		// unless explicitly provided in THIS run. Use Visit to detect set flags in this parse.
		if f := cmd.Flags(); f != nil {
			provided := map[string]bool{}
			f.Visit(func(fl *pflag.Flag) {
				provided[fl.Name] = true
			})
			if !provided["budget-limit"] {
				runBudgetLimit = 0
			}
			if !provided["dry-run"] {
				runDryRun = false
			}
			if !provided["yes"] {
				runYes = false
			}
			if !provided["quiet"] {
				runQuiet = false
			}
			if !provided["file"] {
				runFile = ""
			}
			if !provided["sheet"] {
				runSheetFlags = nil
			}
			if !provided["model"] {
				runModel = ""
			}
			if !provided["temperature"] {
				runTemp = 0
			}
			if !provided["ollama-host"] {
				runOllamaHost = ""
			}
			if !provided["provider"] {
				runProvider = ""
			}
			if !provided["recorder"] {
				runRecorder = ""
			}
			if !provided["results-dir"] {
				runResultsDir = ""
			}
			if !provided["max-tokens"] {
				runMaxTokens = 0
			}
			if !provided["max-combos"] {
				runMaxCombos = 0
			}
			if !provided["workers"] {
				runWorkers = 0
			}
			if !provided["timeout-sec"] {
				runTimeoutSec = 0
			}
		}

		c := ensureConfig()

		workbook := strings.TrimSpace(runFile)
		if workbook == "" {
			workbook = c.Workbook
		}
		if workbook == "" {
			return fmt.Errorf("no workbook given: pass -f/--file or set 'workbook' in config")
		}

		sheets, err := resolveSheets(c, runSheetFlags)
		if err != nil {
			return err
		}
		if len(sheets) == 0 {
			return fmt.Errorf("no sheets configured: pass --sheet \"Name=Slicer1,Slicer2\" or add sheets to %s", cfgpkg.ProjectFile)
		}

		providerName := runProvider
		model := runModel
		maxTokens := runMaxTokens
		if maxTokens <= 0 {
			maxTokens = c.MaxTokens
		}
		temperature := runTemp
		if temperature <= 0 {
			temperature = c.Temperature
		}
		maxCombos := runMaxCombos
		if maxCombos <= 0 {
			maxCombos = c.MaxCombos
		}
		workers := runWorkers
		if workers <= 0 {
			workers = c.Workers
		}

		// Preflight sizing for --dry-run and --budget-limit. Skipped
		// otherwise so sheets load once, in the pipeline.
		if runDryRun || runBudgetLimit > 0 {
			planProvider := strings.ToLower(strings.TrimSpace(providerName))
			if planProvider == "" {
				planProvider = strings.ToLower(c.DefaultProvider)
			}
			planModel := selectModel(c, planProvider, model)
			plan := buildPlan(workbook, sheets, planModel, maxTokens, maxCombos)
			if !runQuiet || runDryRun {
				printPlan(plan, workbook)
			}
			if plan.CostKnown {
				if err := enforceBudget(plan.EstCost, runBudgetLimit); err != nil {
					return err
				}
			} else if runBudgetLimit > 0 {
				return fmt.Errorf("✗ Cannot enforce --budget-limit: model %s has no cost data", plan.Model)
			}
			if runDryRun {
				fmt.Println("--dry-run: no analysis calls made, no results written.")
				return nil
			}
		}

		client, provider, err := buildRuntime(c, runtimeOptions{ProviderFlag: providerName, OllamaHost: runOllamaHost})
		if err != nil {
			return err
		}
		model = selectModel(c, provider, model)

		if provider == ai.ProviderOpenRouter && os.Getenv("OPENROUTER_API_KEY") == "" && c.APIKey == "" {
			fmt.Fprintln(os.Stderr, "⚠ Warning: no OpenRouter API key found; analyses will degrade to the local fallback. Set OPENROUTER_API_KEY or add api_key in config.")
		}

		ctx := context.Background()
		if runTimeoutSec > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(runTimeoutSec)*time.Second)
			defer cancel()
		}

		rec, err := buildRecorder(ctx, c, workbook, runRecorder, runResultsDir)
		if err != nil {
			return err
		}

		analyst := ai.NewAnalyst(client, ai.AnalystConfig{
			Model:       model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		})

		opts := pipeline.Options{
			Workbook:         workbook,
			Sheets:           sheets,
			ConfirmThreshold: c.ConfirmThreshold,
			MaxCombos:        maxCombos,
			Workers:          workers,
		}
		if !runYes {
			opts.Confirm = confirmSweep
		}
		if !runQuiet {
			opts.Progress = func(format string, args ...any) {
				fmt.Printf(format+"\n", args...)
			}
			fmt.Printf("⚙ Analyzing %s with model=%s (run %s)\n", workbook, model, rec.RunID())
		}

		rep, err := pipeline.NewRunner(analyst, rec, opts).Run(ctx)
		if err != nil {
			return err
		}
		return summarizeRun(rep, rec, provider, model)
	},
}

// confirmSweep asks before expanding a large sweep. Anything but y/yes
// skips the sheet.
func confirmSweep(sheet string, combos int) bool {
	fmt.Printf("Sheet %s will process %d combinations. Continue? (y/n): ", sheet, combos)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	ans := strings.ToLower(strings.TrimSpace(line))
	return ans == "y" || ans == "yes"
}

func printPlan(plan *runPlan, workbook string) {
	fmt.Printf("Run plan for %s:\n", workbook)
	for _, sp := range plan.Sheets {
		if sp.Err != nil {
			fmt.Printf("  ✗ %s: failed to load: %v\n", sp.Sheet, sp.Err)
			continue
		}
		fmt.Printf("  %s: %d slicers, %d combinations, %d analysis calls (prompt≈%d tokens)\n",
			sp.Sheet, sp.Slicers, sp.Combos, sp.Calls, sp.PromptTokens)
	}
	fmt.Printf("Total: %d combinations, %d analysis calls\n", plan.Combos, plan.Calls)
	if plan.CostKnown && plan.Calls > 0 {
		fmt.Printf("Estimated max cost with %s: ~$%.4f (%d max completion tokens/call)\n",
			plan.Model, plan.EstCost, plan.MaxTokens)
	} else if plan.Calls > 0 {
		fmt.Printf("⚠ No cost data for model %s; estimate unavailable.\n", plan.Model)
	}
}

func summarizeRun(rep *pipeline.Report, rec results.Recorder, provider, model string) error {
	loadFailures := 0
	var firstLoadErr error
	for _, sr := range rep.Sheets {
		if sr.Err != nil {
			loadFailures++
			if firstLoadErr == nil {
				firstLoadErr = sr.Err
			}
		}
	}
	if loadFailures == len(rep.Sheets) && firstLoadErr != nil {
		return fmt.Errorf("no sheet could be processed: %w", firstLoadErr)
	}

	if runQuiet {
		return nil
	}
	fmt.Println()
	if fr, ok := rec.(*results.FileRecorder); ok {
		fmt.Printf("✓ Batch processing complete: %d analyses saved to %s\n", rep.Analyzed, fr.Dir())
	} else {
		fmt.Printf("✓ Batch processing complete: %d analyses recorded\n", rep.Analyzed)
	}
	if rep.Skipped > 0 {
		fmt.Printf("  %d combinations skipped (no rows after filtering)\n", rep.Skipped)
	}
	for _, sr := range rep.Sheets {
		if sr.Declined {
			fmt.Printf("  sheet %s skipped at confirmation\n", sr.Sheet)
		}
	}
	if rep.Fallbacks > 0 {
		fmt.Printf("⚠ %d analyses used the local fallback\n", rep.Fallbacks)
		if rep.LastDispatchErr != nil {
			fmt.Printf("  cause: %s\n", dispatchHint(rep.LastDispatchErr, provider, model))
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "workbook to analyze (.xlsx or .csv; default from config)")
	runCmd.Flags().StringArrayVar(&runSheetFlags, "sheet", nil, "sheet to sweep as \"Name=Slicer1,Slicer2\" (repeatable; overrides config sheets)")
	runCmd.Flags().StringVar(&runResultsDir, "results-dir", "", "directory for result files (default analysis_results)")
	runCmd.Flags().StringVar(&runRecorder, "recorder", "", "where results go: file|postgres (default file)")
	runCmd.Flags().StringVar(&runModel, "model", "", "override model (default from config)")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "provider: openrouter|ollama (aliases: local, openai, anthropic, google, gemini, meta, llama)")
	runCmd.Flags().StringVar(&runOllamaHost, "ollama-host", "", "override Ollama host (e.g., http://127.0.0.1:11434)")
	runCmd.Flags().IntVar(&runMaxTokens, "max-tokens", 0, "max tokens per analysis response")
	runCmd.Flags().Float64Var(&runTemp, "temperature", 0, "sampling temperature")
	runCmd.Flags().IntVar(&runTimeoutSec, "timeout-sec", 0, "overall run deadline in seconds (0 = none)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "concurrent combination analyses (default 1)")
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "skip the large-sweep confirmation prompt")
	runCmd.Flags().IntVar(&runMaxCombos, "max-combos", 0, "hard cap on combinations per sheet (0 = unlimited)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "print the sweep plan and cost estimate without calling the API")
	runCmd.Flags().Float64Var(&runBudgetLimit, "budget-limit", 0, "fail if estimated max cost (USD) exceeds this budget")
	runCmd.Flags().BoolVar(&runQuiet, "quiet", false, "suppress progress output")
}
