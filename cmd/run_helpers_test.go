package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/pivotscribe/internal/ai"
	cfgpkg "github.com/KaramelBytes/pivotscribe/internal/config"
	"github.com/KaramelBytes/pivotscribe/internal/pipeline"
	"github.com/KaramelBytes/pivotscribe/internal/results"
)

func writeSalesCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	data := "Region,Quarter,Revenue\nNorth,Q1,100\nNorth,Q2,150\nSouth,Q1,80\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestBuildRuntimeProviderAliases(t *testing.T) {
	cases := []struct {
		flag string
		cfg  string
		want string
	}{
		{flag: "", cfg: "", want: ai.ProviderOpenRouter},
		{flag: "openrouter", cfg: "", want: ai.ProviderOpenRouter},
		{flag: "openai", cfg: "", want: ai.ProviderOpenRouter},
		{flag: "Anthropic", cfg: "", want: ai.ProviderOpenRouter},
		{flag: "local", cfg: "", want: ai.ProviderOllama},
		{flag: "ollama", cfg: "", want: ai.ProviderOllama},
		{flag: "", cfg: "ollama", want: ai.ProviderOllama},
		{flag: "openrouter", cfg: "ollama", want: ai.ProviderOpenRouter},
	}
	for _, tc := range cases {
		c := &cfgpkg.Global{DefaultProvider: tc.cfg}
		rt, name, err := buildRuntime(c, runtimeOptions{ProviderFlag: tc.flag})
		if err != nil {
			t.Fatalf("buildRuntime(flag=%q cfg=%q): %v", tc.flag, tc.cfg, err)
		}
		if rt == nil {
			t.Fatalf("buildRuntime(flag=%q cfg=%q) returned nil runtime", tc.flag, tc.cfg)
		}
		if name != tc.want {
			t.Errorf("buildRuntime(flag=%q cfg=%q) provider = %q, want %q", tc.flag, tc.cfg, name, tc.want)
		}
	}
}

func TestBuildRuntimeUnknownProvider(t *testing.T) {
	_, _, err := buildRuntime(nil, runtimeOptions{ProviderFlag: "azure"})
	if err == nil || !strings.Contains(err.Error(), "provider not supported") {
		t.Fatalf("expected unsupported provider error, got %v", err)
	}
}

func TestSelectModel(t *testing.T) {
	c := &cfgpkg.Global{DefaultModel: "openai/gpt-4o-mini"}
	if got := selectModel(c, ai.ProviderOpenRouter, "anthropic/claude-sonnet-4"); got != "anthropic/claude-sonnet-4" {
		t.Errorf("explicit model not honored: %q", got)
	}
	if got := selectModel(c, ai.ProviderOpenRouter, ""); got != "openai/gpt-4o-mini" {
		t.Errorf("config default not honored: %q", got)
	}
	if got := selectModel(&cfgpkg.Global{}, ai.ProviderOllama, ""); got != ai.DefaultOllamaModel {
		t.Errorf("ollama default = %q, want %q", got, ai.DefaultOllamaModel)
	}
	if got := selectModel(nil, ai.ProviderOpenRouter, ""); got != ai.DefaultOpenRouterModel {
		t.Errorf("openrouter default = %q, want %q", got, ai.DefaultOpenRouterModel)
	}
}

func TestEnforceBudget(t *testing.T) {
	if err := enforceBudget(0.01, 0); err != nil {
		t.Errorf("zero limit should not enforce: %v", err)
	}
	if err := enforceBudget(0.01, 0.02); err != nil {
		t.Errorf("within budget should pass: %v", err)
	}
	if err := enforceBudget(0.03, 0.02); err == nil {
		t.Error("expected budget error")
	}
}

func TestParseSheetFlag(t *testing.T) {
	s, err := parseSheetFlag("Summary=Region,Quarter")
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "Summary" || len(s.Slicers) != 2 || s.Slicers[0] != "Region" || s.Slicers[1] != "Quarter" {
		t.Errorf("parsed = %+v", s)
	}

	s, err = parseSheetFlag("Raw Data")
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "Raw Data" || len(s.Slicers) != 0 {
		t.Errorf("bare sheet parsed = %+v", s)
	}

	s, err = parseSheetFlag(" Summary = Region , , Quarter ")
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "Summary" || len(s.Slicers) != 2 {
		t.Errorf("trimmed parse = %+v", s)
	}

	if _, err := parseSheetFlag("=Region"); err == nil {
		t.Error("expected error for empty sheet name")
	}
}

func TestResolveSheetsFlagOverridesConfig(t *testing.T) {
	c := &cfgpkg.Global{Sheets: []cfgpkg.SheetConfig{
		{Name: "Summary", Slicers: []string{"Region"}},
		{Name: "Detail", Slicers: []string{"Quarter"}},
	}}

	sheets, err := resolveSheets(c, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(sheets) != 2 || sheets[0].Name != "Summary" || sheets[1].Name != "Detail" {
		t.Errorf("config sheets = %+v", sheets)
	}

	sheets, err = resolveSheets(c, []string{"Other=Product"})
	if err != nil {
		t.Fatal(err)
	}
	if len(sheets) != 1 || sheets[0].Name != "Other" {
		t.Errorf("flag sheets = %+v", sheets)
	}

	if _, err := resolveSheets(c, []string{"=bad"}); err == nil {
		t.Error("expected parse error to propagate")
	}
}

func TestBuildRecorder(t *testing.T) {
	ctx := context.Background()

	if _, err := buildRecorder(ctx, nil, "wb.xlsx", "carrierpigeon", ""); err == nil {
		t.Error("expected unknown recorder error")
	}

	if _, err := buildRecorder(ctx, &cfgpkg.Global{Recorder: "postgres"}, "wb.xlsx", "", ""); err == nil ||
		!strings.Contains(err.Error(), "postgres_dsn") {
		t.Errorf("expected missing DSN error, got %v", err)
	}

	flagDir := filepath.Join(t.TempDir(), "flagdir")
	cfgDir := filepath.Join(t.TempDir(), "cfgdir")
	rec, err := buildRecorder(ctx, &cfgpkg.Global{ResultsDir: cfgDir}, "wb.xlsx", "file", flagDir)
	if err != nil {
		t.Fatal(err)
	}
	fr, ok := rec.(*results.FileRecorder)
	if !ok {
		t.Fatalf("recorder type %T", rec)
	}
	if fr.Dir() != flagDir {
		t.Errorf("flag dir not honored: %q", fr.Dir())
	}

	rec, err = buildRecorder(ctx, &cfgpkg.Global{ResultsDir: cfgDir}, "wb.xlsx", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if fr := rec.(*results.FileRecorder); fr.Dir() != cfgDir {
		t.Errorf("config dir not honored: %q", fr.Dir())
	}
}

func TestBuildPlanSizesSweep(t *testing.T) {
	csv := writeSalesCSV(t)
	sheets := []pipeline.Sheet{{Name: "sales", Slicers: []string{"Region", "Quarter"}}}

	plan := buildPlan(csv, sheets, "openai/gpt-4o", 1500, 0)
	if len(plan.Sheets) != 1 || plan.Sheets[0].Err != nil {
		t.Fatalf("plan sheets = %+v", plan.Sheets)
	}
	// 2 regions × 2 quarters; each combination probes the filtered table
	// and the numeric summary.
	if plan.Combos != 4 {
		t.Errorf("combos = %d, want 4", plan.Combos)
	}
	if plan.Calls != 8 {
		t.Errorf("calls = %d, want 8", plan.Calls)
	}
	if !plan.CostKnown || plan.EstCost <= 0 {
		t.Errorf("cost known=%v est=%f", plan.CostKnown, plan.EstCost)
	}
	if plan.PromptTokens <= 0 {
		t.Errorf("prompt tokens = %d", plan.PromptTokens)
	}

	capped := buildPlan(csv, sheets, "openai/gpt-4o", 1500, 2)
	if capped.Combos != 2 || capped.Calls != 4 {
		t.Errorf("capped combos/calls = %d/%d, want 2/4", capped.Combos, capped.Calls)
	}

	unknown := buildPlan(csv, sheets, "acme/unknown-model", 1500, 0)
	if unknown.CostKnown {
		t.Error("unknown model should not have cost data")
	}

	missing := buildPlan(filepath.Join(t.TempDir(), "nope.csv"), sheets, "openai/gpt-4o", 1500, 0)
	if missing.Sheets[0].Err == nil {
		t.Error("expected load error in plan")
	}
	if missing.Combos != 0 || missing.Calls != 0 {
		t.Errorf("missing workbook sized %d/%d", missing.Combos, missing.Calls)
	}
}

func TestDispatchHint(t *testing.T) {
	wrap := func(err error) error {
		return &ai.DispatchError{Sheet: "Summary", Pivot: "Filtered_Data_Summary", Err: err}
	}

	hint := dispatchHint(wrap(&ai.UnreachableError{Host: "http://127.0.0.1:11434", Err: errors.New("refused")}), ai.ProviderOllama, "llama3:latest")
	if !strings.Contains(hint, "http://127.0.0.1:11434") || !strings.Contains(hint, "Ollama") {
		t.Errorf("unreachable hint = %q", hint)
	}

	hint = dispatchHint(wrap(&ai.AuthError{APIError: &ai.APIError{StatusCode: 401}}), ai.ProviderOpenRouter, "openai/gpt-4o")
	if !strings.Contains(hint, "OPENROUTER_API_KEY") {
		t.Errorf("auth hint = %q", hint)
	}

	hint = dispatchHint(wrap(&ai.ModelNotFoundError{APIError: &ai.APIError{StatusCode: 404}}), ai.ProviderOllama, "llama3:latest")
	if !strings.Contains(hint, "ollama pull llama3:latest") {
		t.Errorf("model hint = %q", hint)
	}

	plain := errors.New("OPENROUTER_API_KEY is missing")
	if hint = dispatchHint(wrap(plain), ai.ProviderOpenRouter, "openai/gpt-4o"); !strings.Contains(hint, "OPENROUTER_API_KEY is missing") {
		t.Errorf("default hint = %q", hint)
	}
}
