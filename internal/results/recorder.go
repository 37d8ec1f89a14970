// Package results persists the output of analysis runs: one record per
// analyzed table plus a run-level manifest. The default recorder writes
// plain-text result files; a Postgres recorder is available for shared
// storage.
package results

import (
	"context"
	"fmt"
	"time"

	"github.com/KaramelBytes/pivotscribe/internal/pivot"
)

// Entry is one completed analysis of a simulated pivot table.
type Entry struct {
	Sheet     string
	Pivot     string
	Filters   pivot.FilterSet
	Ordinal   int // 1-based position of the combination in the sweep
	Total     int // combinations in the sweep
	Analysis  string
	Fallback  bool
	Rows      int
	Cols      int
	Timestamp time.Time
}

// Skip marks a combination whose filtering removed every row. Nothing is
// analyzed; the skip still shows up in the run manifest.
type Skip struct {
	Sheet     string
	Filters   pivot.FilterSet
	Ordinal   int
	Total     int
	Reason    string
	Timestamp time.Time
}

// Recorder persists analysis output for one run. Implementations are safe
// for concurrent use.
type Recorder interface {
	// RunID identifies this run in logs and stored records.
	RunID() string
	Record(ctx context.Context, e Entry) error
	RecordSkip(ctx context.Context, s Skip) error
	// Close flushes run-level state (e.g. the manifest).
	Close(ctx context.Context) error
}

// PersistenceError wraps a storage failure. Callers log it and keep going;
// losing one record must not abort the sweep.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("results: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
