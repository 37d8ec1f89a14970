// Package pipeline drives the batch sweep: for each configured sheet it
// collects slicer values, generates filter combinations, simulates the
// pivot per combination, dispatches the surviving tables for analysis,
// and records the output.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/pivotscribe/internal/ai"
	"github.com/KaramelBytes/pivotscribe/internal/pivot"
	"github.com/KaramelBytes/pivotscribe/internal/results"
	"github.com/KaramelBytes/pivotscribe/internal/table"
)

// Analyst is the dispatch surface the runner needs. *ai.Analyst satisfies it.
type Analyst interface {
	AnalyzeOrFallback(ctx context.Context, t *table.Table, actx ai.Context) (ai.Outcome, error)
}

// Sheet names a worksheet and the slicer fields swept on it.
type Sheet struct {
	Name    string
	Slicers []string
}

// Options configure one run.
type Options struct {
	Workbook string
	Sheets   []Sheet
	// ConfirmThreshold is the combination count above which Confirm is
	// consulted; 0 disables confirmation.
	ConfirmThreshold int
	// MaxCombos hard-caps combinations per sheet; 0 means unlimited.
	MaxCombos int
	// Workers > 1 analyzes combinations concurrently.
	Workers int
	// Confirm decides whether a sheet above the threshold still runs.
	// Nil confirms everything.
	Confirm func(sheet string, combos int) bool
	// Progress receives user-facing progress lines; nil silences them.
	Progress func(format string, args ...any)
	Logger   *slog.Logger
}

// SheetReport summarizes one sheet's sweep.
type SheetReport struct {
	Sheet     string
	Combos    int
	Analyzed  int
	Fallbacks int
	Skipped   int
	// Declined is set when the confirmation prompt rejected the sheet.
	Declined bool
	// Err is the sheet's load failure; the run continues past it.
	Err error
	// LastDispatchErr is the most recent cause behind a fallback on this
	// sheet, nil when every dispatch succeeded.
	LastDispatchErr error
}

// Report aggregates the whole run.
type Report struct {
	Sheets    []SheetReport
	Analyzed  int
	Fallbacks int
	Skipped   int
	// LastDispatchErr is the most recent cause behind a fallback, kept so
	// the CLI can explain why analyses degraded.
	LastDispatchErr error
}

// Runner executes sweeps against one workbook.
type Runner struct {
	analyst Analyst
	rec     results.Recorder
	applier *pivot.Applier
	opts    Options
	log     *slog.Logger
}

func NewRunner(analyst Analyst, rec results.Recorder, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Runner{
		analyst: analyst,
		rec:     rec,
		applier: pivot.NewApplier(opts.Logger),
		opts:    opts,
		log:     opts.Logger,
	}
}

// Run sweeps every configured sheet. Sheet-level failures are reported,
// not returned; the only error is context cancellation.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	rep := &Report{}
	r.log.Info("run started",
		slog.String("workbook", r.opts.Workbook),
		slog.String("run_id", r.rec.RunID()),
		slog.Int("sheets", len(r.opts.Sheets)))
	for _, sheet := range r.opts.Sheets {
		sr, err := r.runSheet(ctx, sheet)
		rep.Sheets = append(rep.Sheets, sr)
		rep.Analyzed += sr.Analyzed
		rep.Fallbacks += sr.Fallbacks
		rep.Skipped += sr.Skipped
		if sr.LastDispatchErr != nil {
			rep.LastDispatchErr = sr.LastDispatchErr
		}
		if err != nil {
			return rep, err
		}
	}
	if err := r.rec.Close(ctx); err != nil {
		r.log.Warn("run records not fully persisted", slog.String("error", err.Error()))
	}
	return rep, nil
}

func (r *Runner) runSheet(ctx context.Context, s Sheet) (SheetReport, error) {
	sr := SheetReport{Sheet: s.Name}
	t, err := table.Load(r.opts.Workbook, s.Name)
	if err != nil {
		r.log.Error("sheet load failed",
			slog.String("sheet", s.Name),
			slog.String("error", err.Error()))
		r.progress("✗ Sheet %s failed to load: %v", s.Name, err)
		sr.Err = err
		return sr, nil
	}
	r.progress("Processing sheet: %s using slicers: %v", s.Name, s.Slicers)

	sv := r.applier.CollectValues(t, s.Slicers)
	for _, fv := range sv {
		r.progress("  Values for %q: %d found", fv.Field, len(fv.Values))
	}
	combos := pivot.Combinations(sv)
	if len(combos) == 0 {
		r.log.Warn("no combinations to process", slog.String("sheet", s.Name))
		r.progress("⚠ No combinations to process for sheet %s", s.Name)
		return sr, nil
	}
	if r.opts.MaxCombos > 0 && len(combos) > r.opts.MaxCombos {
		r.log.Warn("combination count capped",
			slog.String("sheet", s.Name),
			slog.Int("combinations", len(combos)),
			slog.Int("cap", r.opts.MaxCombos))
		combos = combos[:r.opts.MaxCombos]
	}
	sr.Combos = len(combos)
	r.progress("  Total combinations to process: %d", len(combos))

	if r.opts.ConfirmThreshold > 0 && len(combos) > r.opts.ConfirmThreshold && r.opts.Confirm != nil {
		if !r.opts.Confirm(s.Name, len(combos)) {
			r.log.Info("sheet skipped at confirmation",
				slog.String("sheet", s.Name),
				slog.Int("combinations", len(combos)))
			r.progress("  Skipping sheet %s", s.Name)
			sr.Declined = true
			return sr, nil
		}
	}

	outs := make([]comboOutcome, len(combos))
	if r.opts.Workers > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.opts.Workers)
		for i, fs := range combos {
			i, fs := i, fs // per-iteration copies; required while building with pre-1.22 loop semantics
			g.Go(func() error {
				out, err := r.runCombo(gctx, t, s.Name, fs, i+1, len(combos))
				outs[i] = out
				return err
			})
		}
		if err := g.Wait(); err != nil {
			sr.fold(outs)
			return sr, err
		}
	} else {
		for i, fs := range combos {
			out, err := r.runCombo(ctx, t, s.Name, fs, i+1, len(combos))
			outs[i] = out
			if err != nil {
				sr.fold(outs)
				return sr, err
			}
		}
	}
	sr.fold(outs)
	return sr, nil
}

type comboOutcome struct {
	analyzed    int
	fallbacks   int
	skipped     int
	dispatchErr error
}

func (sr *SheetReport) fold(outs []comboOutcome) {
	for _, o := range outs {
		sr.Analyzed += o.analyzed
		sr.Fallbacks += o.fallbacks
		sr.Skipped += o.skipped
		if o.dispatchErr != nil {
			sr.LastDispatchErr = o.dispatchErr
		}
	}
}

// runCombo simulates one filter combination and analyzes each produced
// table. The returned error is context cancellation only; dispatch
// failures degrade to fallback text inside the analyst.
func (r *Runner) runCombo(ctx context.Context, t *table.Table, sheet string, fs pivot.FilterSet, ordinal, total int) (comboOutcome, error) {
	var out comboOutcome
	if err := ctx.Err(); err != nil {
		return out, err
	}
	r.progress("  Analyzing combination %d/%d: %s", ordinal, total, fs.String())
	res := r.applier.Apply(t, fs)
	if res.Empty {
		out.skipped = 1
		r.progress("    No rows after filtering - skipping analysis")
		if err := r.rec.RecordSkip(ctx, results.Skip{
			Sheet:     sheet,
			Filters:   fs,
			Ordinal:   ordinal,
			Total:     total,
			Reason:    "no rows after filtering",
			Timestamp: time.Now(),
		}); err != nil {
			r.log.Warn("skip not persisted",
				slog.String("sheet", sheet),
				slog.String("error", err.Error()))
		}
		return out, nil
	}
	for _, nt := range res.Tables {
		r.progress("    Pivot Table: %s - Shape: (%d, %d)", nt.Name, nt.Table.NumRows(), nt.Table.NumCols())
		actx := ai.Context{Sheet: sheet, Pivot: nt.Name, Filters: fs, Ordinal: ordinal, Total: total}
		o, err := r.analyst.AnalyzeOrFallback(ctx, nt.Table, actx)
		if err != nil {
			return out, err
		}
		out.analyzed++
		if o.Fallback {
			out.fallbacks++
			out.dispatchErr = o.Cause
			r.progress("    ⚠ Analysis degraded to local fallback")
		}
		entry := results.Entry{
			Sheet:     sheet,
			Pivot:     nt.Name,
			Filters:   fs,
			Ordinal:   ordinal,
			Total:     total,
			Analysis:  o.Text,
			Fallback:  o.Fallback,
			Rows:      nt.Table.NumRows(),
			Cols:      nt.Table.NumCols(),
			Timestamp: time.Now(),
		}
		if err := r.rec.Record(ctx, entry); err != nil {
			r.log.Warn("analysis not persisted",
				slog.String("sheet", sheet),
				slog.String("pivot", nt.Name),
				slog.String("error", err.Error()))
		}
	}
	return out, nil
}

func (r *Runner) progress(format string, args ...any) {
	if r.opts.Progress != nil {
		r.opts.Progress(format, args...)
	}
}
