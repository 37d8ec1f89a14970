package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/pivotscribe/internal/ai"
	cfgpkg "github.com/KaramelBytes/pivotscribe/internal/config"
	"github.com/KaramelBytes/pivotscribe/internal/pipeline"
	"github.com/KaramelBytes/pivotscribe/internal/pivot"
	"github.com/KaramelBytes/pivotscribe/internal/results"
	"github.com/KaramelBytes/pivotscribe/internal/table"
	"github.com/KaramelBytes/pivotscribe/internal/utils"
)

type runtimeOptions struct {
	ProviderFlag string
	OllamaHost   string
}

func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	httpTimeout := 60 * time.Second
	retryMax := 3
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if cfg != nil {
		if cfg.HTTPTimeoutSec > 0 {
			httpTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
		}
		if cfg.RetryMaxAttempts > 0 {
			retryMax = cfg.RetryMaxAttempts
		}
		if cfg.RetryBaseDelayMs > 0 {
			baseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
		}
		if cfg.RetryMaxDelayMs > 0 {
			maxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
		}
	}

	providerName := strings.ToLower(strings.TrimSpace(opts.ProviderFlag))
	if providerName == "" && cfg != nil && cfg.DefaultProvider != "" {
		providerName = strings.ToLower(cfg.DefaultProvider)
	}
	if providerName == "" {
		providerName = ai.ProviderOpenRouter
	}

	switch providerName {
	case "local":
		providerName = ai.ProviderOllama
	case "openai", "anthropic", "google", "gemini", "meta", "llama":
		providerName = ai.ProviderOpenRouter
	case "ollama":
		providerName = ai.ProviderOllama
	}

	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" && cfg != nil && cfg.APIKey != "" {
		apiKey = cfg.APIKey
	}

	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		RetryMax:    retryMax,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		APIKey:      apiKey,
	}

	if providerName == ai.ProviderOllama {
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" {
			if v := os.Getenv("PIVOTSCRIBE_OLLAMA_HOST"); v != "" {
				host = v
			}
		}
		if host == "" && cfg != nil && cfg.OllamaHost != "" {
			host = cfg.OllamaHost
		}
		if host == "" {
			host = "http://127.0.0.1:11434"
		}
		rc.Host = host
		if v := os.Getenv("PIVOTSCRIBE_OLLAMA_TIMEOUT_SEC"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				rc.HTTPTimeout = time.Duration(n) * time.Second
			}
		}
		if cfg != nil && cfg.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(cfg.OllamaTimeoutSec) * time.Second
		}
	}

	client, ok := ai.GetRuntime(providerName, rc)
	if !ok {
		return nil, providerName, fmt.Errorf("provider not supported: %s", providerName)
	}
	return client, providerName, nil
}

func selectModel(cfg *cfgpkg.Global, providerName, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg != nil && cfg.DefaultModel != "" {
		return cfg.DefaultModel
	}
	if providerName == ai.ProviderOllama {
		return ai.DefaultOllamaModel
	}
	return ai.DefaultOpenRouterModel
}

func enforceBudget(estCost, limit float64) error {
	if limit > 0 && estCost > 0 && estCost > limit {
		return fmt.Errorf("✗ Estimated cost ~$%.4f exceeds budget limit ~$%.4f", estCost, limit)
	}
	return nil
}

// parseSheetFlag parses one --sheet value of the form
// "Name=Slicer1,Slicer2" (a bare "Name" sweeps no slicers).
func parseSheetFlag(s string) (pipeline.Sheet, error) {
	name, rest, found := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return pipeline.Sheet{}, fmt.Errorf("invalid --sheet %q: expected Name=Slicer1,Slicer2", s)
	}
	sheet := pipeline.Sheet{Name: name}
	if found {
		for _, col := range strings.Split(rest, ",") {
			if col = strings.TrimSpace(col); col != "" {
				sheet.Slicers = append(sheet.Slicers, col)
			}
		}
	}
	return sheet, nil
}

// resolveSheets picks the sheets to sweep: --sheet flags override the
// configured list entirely.
func resolveSheets(cfg *cfgpkg.Global, flags []string) ([]pipeline.Sheet, error) {
	if len(flags) > 0 {
		sheets := make([]pipeline.Sheet, 0, len(flags))
		for _, f := range flags {
			s, err := parseSheetFlag(f)
			if err != nil {
				return nil, err
			}
			sheets = append(sheets, s)
		}
		return sheets, nil
	}
	if cfg == nil {
		return nil, nil
	}
	sheets := make([]pipeline.Sheet, 0, len(cfg.Sheets))
	for _, sc := range cfg.Sheets {
		sheets = append(sheets, pipeline.Sheet{Name: sc.Name, Slicers: sc.Slicers})
	}
	return sheets, nil
}

func buildRecorder(ctx context.Context, cfg *cfgpkg.Global, workbook, recorderFlag, resultsDirFlag string) (results.Recorder, error) {
	name := strings.ToLower(strings.TrimSpace(recorderFlag))
	if name == "" && cfg != nil && cfg.Recorder != "" {
		name = strings.ToLower(cfg.Recorder)
	}
	if name == "" {
		name = "file"
	}
	switch name {
	case "file":
		dir := strings.TrimSpace(resultsDirFlag)
		if dir == "" && cfg != nil && cfg.ResultsDir != "" {
			dir = cfg.ResultsDir
		}
		if dir == "" {
			dir = "analysis_results"
		}
		return results.NewFileRecorder(dir, workbook)
	case "postgres", "postgresql", "pg":
		dsn := ""
		if cfg != nil {
			dsn = cfg.PostgresDSN
		}
		if dsn == "" {
			return nil, fmt.Errorf("recorder postgres requires 'postgres_dsn' in config or PIVOTSCRIBE_POSTGRES_DSN")
		}
		return results.NewPostgresRecorder(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown recorder: %s (use file|postgres)", name)
	}
}

// sheetPlan is the preflight estimate for one sheet.
type sheetPlan struct {
	Sheet        string
	Slicers      int
	Combos       int
	Calls        int
	PromptTokens int
	Err          error
}

// runPlan is the preflight estimate for the whole run, used by --dry-run
// and --budget-limit before any analysis call is made.
type runPlan struct {
	Sheets       []sheetPlan
	Combos       int
	Calls        int
	EstCost      float64
	CostKnown    bool
	Model        string
	MaxTokens    int
	PromptTokens int
}

// buildPlan loads each sheet once and sizes the sweep without dispatching
// anything. Prompt tokens are probed against the unfiltered sheet, so the
// cost estimate errs high.
func buildPlan(workbook string, sheets []pipeline.Sheet, model string, maxTokens, maxCombos int) *runPlan {
	plan := &runPlan{Model: model, MaxTokens: maxTokens, CostKnown: true}
	applier := pivot.NewApplier(nil)
	for _, s := range sheets {
		sp := sheetPlan{Sheet: s.Name, Slicers: len(s.Slicers)}
		t, err := table.Load(workbook, s.Name)
		if err != nil {
			sp.Err = err
			plan.Sheets = append(plan.Sheets, sp)
			continue
		}
		sv := applier.CollectValues(t, s.Slicers)
		sp.Combos = pivot.Count(sv)
		if maxCombos > 0 && sp.Combos > maxCombos {
			sp.Combos = maxCombos
		}
		// Each surviving combination yields a filtered table, plus a
		// summary table when the sheet has numeric columns.
		perCombo := 1
		if len(t.NumericColumns()) > 0 {
			perCombo = 2
		}
		sp.Calls = sp.Combos * perCombo
		probe := ai.BuildPrompt(t, ai.Context{
			Sheet:   s.Name,
			Pivot:   pivot.FilteredName(s.Name),
			Ordinal: 1,
			Total:   sp.Combos,
		})
		sp.PromptTokens = utils.CountTokens(probe)
		if sp.PromptTokens > plan.PromptTokens {
			plan.PromptTokens = sp.PromptTokens
		}
		if cost, ok := ai.EstimateCostUSD(model, sp.PromptTokens, maxTokens); ok {
			plan.EstCost += cost * float64(sp.Calls)
		} else {
			plan.CostKnown = false
		}
		plan.Combos += sp.Combos
		plan.Calls += sp.Calls
		plan.Sheets = append(plan.Sheets, sp)
	}
	return plan
}

// dispatchHint maps a dispatch failure to actionable guidance, mirroring
// the error classes the runtimes produce.
func dispatchHint(err error, providerName, model string) string {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case errors.As(err, &unreach):
		if providerName == ai.ProviderOllama {
			return fmt.Sprintf("Ollama not reachable at %s. Ensure Ollama is running (see https://ollama.com) and host is correct. You can set PIVOTSCRIBE_OLLAMA_HOST or config 'ollama_host'.", unreach.Host)
		}
		return "endpoint unreachable. Check your network and provider settings."
	case errors.As(err, &authErr):
		return "authentication failed: set OPENROUTER_API_KEY or add api_key in config (~/.pivotscribe/config.yaml)"
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Sprintf("rate limited, try again in ~%ds", int(rlErr.RetryAfter.Seconds()))
		}
		return "rate limited by provider, please retry"
	case errors.As(err, &nfErr):
		if providerName == ai.ProviderOllama {
			return fmt.Sprintf("local model not available (%s). Install it with 'ollama pull %s' or choose another model.", model, model)
		}
		return fmt.Sprintf("model not found (%s). Verify the model name.", model)
	case errors.As(err, &brErr):
		return "request invalid. Try reducing --max-tokens or trimming the sheet."
	case errors.As(err, &qErr):
		return "quota/billing issue. Check your provider account."
	case errors.As(err, &sErr):
		return "provider appears unavailable (server error). Please retry later."
	default:
		return err.Error()
	}
}
