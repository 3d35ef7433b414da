//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package pipeline executes ordered lists of named warehouse steps over a
// single connection.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pgEdge/pgedge-dwh/internal/logging"
)

// DB is satisfied by *pgx.Conn. Steps never open transactions: every
// statement is committed as soon as the server completes it.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Step is a single unit of work. A step either executes SQL or, when Run is
// set, runs custom code against the connection (used for client-side bulk
// loads).
type Step struct {
	// Name identifies the step in logs and errors.
	Name string

	// Table is the table the step writes to.
	Table string

	// SQL is executed when Run is nil.
	SQL string

	// LogSQL is the statement text safe to log. Defaults to SQL.
	LogSQL string

	// Run executes the step and returns the number of rows affected.
	Run func(ctx context.Context, db DB) (int64, error)
}

// StepResult records the outcome of an executed step.
type StepResult struct {
	Name     string
	Table    string
	Rows     int64
	Duration time.Duration
	Err      error
}

// StepError is returned when a step fails. Earlier steps stay committed.
type StepError struct {
	Step  string
	Table string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Runner executes steps sequentially and keeps per-step results for the
// final summary.
type Runner struct {
	db        DB
	results   []StepResult
	startTime time.Time
}

// NewRunner creates a runner bound to one connection.
func NewRunner(db DB) *Runner {
	return &Runner{db: db}
}

// DB returns the connection the runner executes against.
func (r *Runner) DB() DB {
	return r.db
}

// Run executes the steps in order and stops at the first failure.
func (r *Runner) Run(ctx context.Context, steps []Step) error {
	if r.startTime.IsZero() {
		r.startTime = time.Now()
	}

	for _, step := range steps {
		if err := r.runStep(ctx, step); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, step Step) error {
	logSQL := step.LogSQL
	if logSQL == "" {
		logSQL = step.SQL
	}

	logging.Debug().
		Str("step", step.Name).
		Str("table", step.Table).
		Str("sql", logSQL).
		Msg("Executing step")

	start := time.Now()
	rows, err := r.exec(ctx, step)
	elapsed := time.Since(start)

	r.results = append(r.results, StepResult{
		Name:     step.Name,
		Table:    step.Table,
		Rows:     rows,
		Duration: elapsed,
		Err:      err,
	})

	if err != nil {
		logging.Error().
			Err(err).
			Str("step", step.Name).
			Str("table", step.Table).
			Dur("duration", elapsed).
			Msg("Step failed")
		return &StepError{Step: step.Name, Table: step.Table, Err: err}
	}

	logging.Info().
		Str("step", step.Name).
		Str("table", step.Table).
		Int64("rows", rows).
		Dur("duration", elapsed).
		Msg("Step complete")

	return nil
}

func (r *Runner) exec(ctx context.Context, step Step) (int64, error) {
	if step.Run != nil {
		return step.Run(ctx, r.db)
	}
	if step.SQL == "" {
		return 0, errors.New("step has neither SQL nor Run")
	}
	tag, err := r.db.Exec(ctx, step.SQL)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Results returns the results of every step executed so far.
func (r *Runner) Results() []StepResult {
	out := make([]StepResult, len(r.results))
	copy(out, r.results)
	return out
}

// PrintSummary logs a final summary of the executed steps.
func (r *Runner) PrintSummary() {
	var elapsed time.Duration
	if !r.startTime.IsZero() {
		elapsed = time.Since(r.startTime)
	}

	var failed int
	var totalRows int64
	for _, res := range r.results {
		if res.Err != nil {
			failed++
		}
		totalRows += res.Rows
	}

	logging.Info().
		Dur("duration", elapsed).
		Int("steps", len(r.results)).
		Int("failed", failed).
		Int64("rows", totalRows).
		Msg("Final summary")

	for _, res := range r.results {
		event := logging.Info()
		if res.Err != nil {
			event = logging.Error().Err(res.Err)
		}
		event.
			Str("step", res.Name).
			Str("table", res.Table).
			Int64("rows", res.Rows).
			Float64("duration_ms", float64(res.Duration.Nanoseconds())/1e6).
			Msg("Step statistics")
	}
}
