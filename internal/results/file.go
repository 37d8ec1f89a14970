package results

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/pivotscribe/internal/utils"
)

// FileRecorder writes one plain-text file per analysis into a results
// directory, then a JSON manifest for the whole run on Close.
type FileRecorder struct {
	dir      string
	workbook string
	runID    string
	started  time.Time

	mu      sync.Mutex
	records []manifestRecord
}

type manifestRecord struct {
	File      string    `json:"file,omitempty"`
	Sheet     string    `json:"sheet"`
	Pivot     string    `json:"pivot,omitempty"`
	Filters   string    `json:"filters"`
	Ordinal   int       `json:"ordinal"`
	Total     int       `json:"total"`
	Fallback  bool      `json:"fallback,omitempty"`
	Skipped   bool      `json:"skipped,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Rows      int       `json:"rows"`
	Cols      int       `json:"cols"`
	Timestamp time.Time `json:"timestamp"`
}

type manifest struct {
	RunID      string           `json:"run_id"`
	Workbook   string           `json:"workbook,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Analyzed   int              `json:"analyzed"`
	Skipped    int              `json:"skipped"`
	Results    []manifestRecord `json:"results"`
}

// NewFileRecorder creates the results directory if needed. The workbook
// path is carried into the run manifest only.
func NewFileRecorder(dir, workbook string) (*FileRecorder, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, &PersistenceError{Op: "create results dir", Err: err}
	}
	return &FileRecorder{
		dir:      dir,
		workbook: workbook,
		runID:    uuid.NewString(),
		started:  time.Now(),
	}, nil
}

func (r *FileRecorder) RunID() string { return r.runID }

// Dir returns the directory results are written into.
func (r *FileRecorder) Dir() string { return r.dir }

// Record writes the analysis as a standalone text file named after the
// sheet, pivot, filters, and timestamp. An existing file with the same
// name gets a numeric suffix rather than being overwritten.
func (r *FileRecorder) Record(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := r.reservePath(resultBaseName(e))
	body := renderResult(e)
	if err := utils.SafeWriteFile(path, []byte(body)); err != nil {
		return &PersistenceError{Op: "write result file", Err: err}
	}
	r.append(manifestRecord{
		File:      filepath.Base(path),
		Sheet:     e.Sheet,
		Pivot:     e.Pivot,
		Filters:   e.Filters.String(),
		Ordinal:   e.Ordinal,
		Total:     e.Total,
		Fallback:  e.Fallback,
		Rows:      e.Rows,
		Cols:      e.Cols,
		Timestamp: e.Timestamp,
	})
	return nil
}

// RecordSkip notes an empty combination in the manifest. No result file is
// written since there is nothing to analyze.
func (r *FileRecorder) RecordSkip(ctx context.Context, s Skip) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.append(manifestRecord{
		Sheet:     s.Sheet,
		Filters:   s.Filters.String(),
		Ordinal:   s.Ordinal,
		Total:     s.Total,
		Skipped:   true,
		Reason:    s.Reason,
		Timestamp: s.Timestamp,
	})
	return nil
}

// Close writes the run manifest.
func (r *FileRecorder) Close(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	m := manifest{
		RunID:      r.runID,
		Workbook:   r.workbook,
		StartedAt:  r.started,
		FinishedAt: time.Now(),
		Results:    r.records,
	}
	r.mu.Unlock()
	for _, rec := range m.Results {
		if rec.Skipped {
			m.Skipped++
		} else {
			m.Analyzed++
		}
	}
	data, err := utils.PrettyJSON(m)
	if err != nil {
		return &PersistenceError{Op: "marshal manifest", Err: err}
	}
	name := fmt.Sprintf("run_%s.json", shortID(r.runID))
	if err := utils.SafeWriteFile(filepath.Join(r.dir, name), data); err != nil {
		return &PersistenceError{Op: "write manifest", Err: err}
	}
	return nil
}

func (r *FileRecorder) append(rec manifestRecord) {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
}

// reservePath picks a non-clashing .txt path for the base name. The check
// and the eventual write are not atomic together, so the reservation runs
// under the recorder lock; concurrent workers in one run cannot race, and
// files from earlier runs only cost a suffix bump.
func (r *FileRecorder) reservePath(base string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	path := filepath.Join(r.dir, base+".txt")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	for idx := 2; ; idx++ {
		cand := filepath.Join(r.dir, fmt.Sprintf("%s__%d.txt", base, idx))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand
		}
	}
}

// resultBaseName builds <sheet>_<pivot>_<field-value pairs>_<timestamp>,
// each part sanitized for the filesystem.
func resultBaseName(e Entry) string {
	parts := []string{utils.SanitizeName(e.Sheet), utils.SanitizeName(e.Pivot)}
	for _, f := range e.Filters {
		parts = append(parts, utils.SanitizeName(f.Field)+"-"+utils.SanitizeName(f.Value))
	}
	parts = append(parts, e.Timestamp.Format("20060102_150405"))
	return strings.Join(parts, "_")
}

func renderResult(e Entry) string {
	var b strings.Builder
	b.WriteString("Analysis Results\n")
	b.WriteString("================\n")
	fmt.Fprintf(&b, "Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "Sheet: %s\n", e.Sheet)
	fmt.Fprintf(&b, "Pivot Table: %s\n", e.Pivot)
	fmt.Fprintf(&b, "Filters Applied: %s\n", e.Filters.String())
	fmt.Fprintf(&b, "Data Shape: %d rows × %d columns\n", e.Rows, e.Cols)
	b.WriteString("\nAnalysis:\n")
	b.WriteString("---------\n")
	b.WriteString(e.Analysis)
	b.WriteString("\n\nEnd of Analysis\n")
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
