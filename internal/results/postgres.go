package results

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresRecorder stores analysis records in a pivot_analyses table.
// Skips are stored alongside analyses with the skipped flag set, so a
// single query reconstructs the whole run.
type PostgresRecorder struct {
	db    *sqlx.DB
	runID string
}

const pivotAnalysesSchema = `
CREATE TABLE IF NOT EXISTS pivot_analyses (
	id          BIGSERIAL PRIMARY KEY,
	run_id      TEXT NOT NULL,
	sheet       TEXT NOT NULL,
	pivot       TEXT NOT NULL DEFAULT '',
	filters     TEXT NOT NULL,
	ordinal     INTEGER NOT NULL,
	total       INTEGER NOT NULL,
	analysis    TEXT NOT NULL DEFAULT '',
	fallback    BOOLEAN NOT NULL DEFAULT FALSE,
	skipped     BOOLEAN NOT NULL DEFAULT FALSE,
	skip_reason TEXT NOT NULL DEFAULT '',
	row_count   INTEGER NOT NULL DEFAULT 0,
	col_count   INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL
)`

type pivotAnalysisRow struct {
	RunID      string    `db:"run_id"`
	Sheet      string    `db:"sheet"`
	Pivot      string    `db:"pivot"`
	Filters    string    `db:"filters"`
	Ordinal    int       `db:"ordinal"`
	Total      int       `db:"total"`
	Analysis   string    `db:"analysis"`
	Fallback   bool      `db:"fallback"`
	Skipped    bool      `db:"skipped"`
	SkipReason string    `db:"skip_reason"`
	RowCount   int       `db:"row_count"`
	ColCount   int       `db:"col_count"`
	CreatedAt  time.Time `db:"created_at"`
}

const insertPivotAnalysis = `
	INSERT INTO pivot_analyses (
		run_id, sheet, pivot, filters, ordinal, total,
		analysis, fallback, skipped, skip_reason, row_count, col_count, created_at
	) VALUES (
		:run_id, :sheet, :pivot, :filters, :ordinal, :total,
		:analysis, :fallback, :skipped, :skip_reason, :row_count, :col_count, :created_at
	)`

// NewPostgresRecorder connects, verifies the connection, and ensures the
// pivot_analyses table exists.
func NewPostgresRecorder(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, &PersistenceError{Op: "connect postgres", Err: err}
	}
	if _, err := db.ExecContext(ctx, pivotAnalysesSchema); err != nil {
		db.Close()
		return nil, &PersistenceError{Op: "ensure pivot_analyses table", Err: err}
	}
	return &PostgresRecorder{db: db, runID: uuid.NewString()}, nil
}

func (r *PostgresRecorder) RunID() string { return r.runID }

func (r *PostgresRecorder) Record(ctx context.Context, e Entry) error {
	row := pivotAnalysisRow{
		RunID:     r.runID,
		Sheet:     e.Sheet,
		Pivot:     e.Pivot,
		Filters:   e.Filters.String(),
		Ordinal:   e.Ordinal,
		Total:     e.Total,
		Analysis:  e.Analysis,
		Fallback:  e.Fallback,
		RowCount:  e.Rows,
		ColCount:  e.Cols,
		CreatedAt: e.Timestamp,
	}
	if _, err := r.db.NamedExecContext(ctx, insertPivotAnalysis, row); err != nil {
		return &PersistenceError{Op: "insert analysis", Err: err}
	}
	return nil
}

func (r *PostgresRecorder) RecordSkip(ctx context.Context, s Skip) error {
	row := pivotAnalysisRow{
		RunID:      r.runID,
		Sheet:      s.Sheet,
		Filters:    s.Filters.String(),
		Ordinal:    s.Ordinal,
		Total:      s.Total,
		Skipped:    true,
		SkipReason: s.Reason,
		CreatedAt:  s.Timestamp,
	}
	if _, err := r.db.NamedExecContext(ctx, insertPivotAnalysis, row); err != nil {
		return &PersistenceError{Op: "insert skip", Err: err}
	}
	return nil
}

func (r *PostgresRecorder) Close(ctx context.Context) error {
	if err := r.db.Close(); err != nil {
		return &PersistenceError{Op: "close postgres", Err: err}
	}
	return nil
}
