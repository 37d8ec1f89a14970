package ai

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/KaramelBytes/pivotscribe/internal/table"
	"github.com/KaramelBytes/pivotscribe/internal/utils"
)

// AnalystConfig tunes prompt dispatch. Zero values fall back to the
// defaults the original report runs used.
type AnalystConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
	// PromptBudget caps prompt size in estimated tokens; 0 derives it
	// from the model's context window.
	PromptBudget int
	Logger       *slog.Logger
}

// Analyst dispatches slice tables to a Runtime for narrative analysis and
// substitutes the deterministic fallback when the call fails.
type Analyst struct {
	runtime      Runtime
	model        string
	maxTokens    int
	temperature  float64
	promptBudget int
	log          *slog.Logger
}

func NewAnalyst(rt Runtime, cfg AnalystConfig) *Analyst {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1500
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.3
	}
	if cfg.PromptBudget <= 0 {
		cfg.PromptBudget = 8000
		if mi, ok := LookupModel(cfg.Model); ok {
			cfg.PromptBudget = mi.ContextTokens - cfg.MaxTokens - 512
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Analyst{
		runtime:      rt,
		model:        cfg.Model,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		promptBudget: cfg.PromptBudget,
		log:          cfg.Logger,
	}
}

// Analyze dispatches one slice table and returns the analysis text. A
// runtime failure or an empty completion surfaces as *DispatchError.
func (a *Analyst) Analyze(ctx context.Context, t *table.Table, actx Context) (string, error) {
	prompt := BuildPrompt(t, actx)
	if tok := utils.CountTokens(prompt); tok > a.promptBudget {
		prompt = utils.TruncateToTokenLimit(prompt, a.promptBudget)
		a.log.Debug("prompt truncated to token budget",
			slog.String("sheet", actx.Sheet),
			slog.String("pivot", actx.Pivot),
			slog.Int("tokens", tok),
			slog.Int("budget", a.promptBudget))
	}
	req := GenerateRequest{
		Model: a.model,
		Messages: []Message{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	}
	resp, err := a.runtime.Generate(ctx, req)
	if err != nil {
		return "", &DispatchError{Sheet: actx.Sheet, Pivot: actx.Pivot, Err: err}
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &DispatchError{Sheet: actx.Sheet, Pivot: actx.Pivot, Err: errors.New("empty completion")}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Outcome is the product of one dispatch: the analysis text plus, when
// the runtime call failed, the fallback flag and the error that forced it.
type Outcome struct {
	Text     string
	Fallback bool
	// Cause is the dispatch error behind a fallback; nil on success.
	Cause error
}

// AnalyzeOrFallback dispatches one slice table and degrades to the local
// fallback on failure. The only error it returns is context cancellation,
// which should stop the batch rather than produce fallback records.
func (a *Analyst) AnalyzeOrFallback(ctx context.Context, t *table.Table, actx Context) (Outcome, error) {
	text, aerr := a.Analyze(ctx, t, actx)
	if aerr == nil {
		return Outcome{Text: text}, nil
	}
	if ctx.Err() != nil {
		return Outcome{}, ctx.Err()
	}
	a.log.Warn("analysis dispatch failed, using fallback",
		slog.String("sheet", actx.Sheet),
		slog.String("pivot", actx.Pivot),
		slog.String("error", aerr.Error()))
	return Outcome{Text: Fallback(t), Fallback: true, Cause: aerr}, nil
}
