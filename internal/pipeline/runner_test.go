package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeDB records executed statements and fails on a configured one.
type fakeDB struct {
	executed []string
	failOn   string
	tags     map[string]string
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.executed = append(f.executed, sql)
	if sql == f.failOn {
		return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	}
	return pgconn.NewCommandTag(f.tags[sql]), nil
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func (f *fakeDB) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not implemented")
}

func TestRunExecutesInOrder(t *testing.T) {
	db := &fakeDB{tags: map[string]string{
		"INSERT a": "INSERT 0 3",
		"INSERT b": "INSERT 0 2",
	}}
	r := NewRunner(db)

	steps := []Step{
		{Name: "a", Table: "t_a", SQL: "INSERT a"},
		{Name: "b", Table: "t_b", SQL: "INSERT b"},
		{Name: "c", Table: "t_c", SQL: "DROP c"},
	}
	if err := r.Run(context.Background(), steps); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"INSERT a", "INSERT b", "DROP c"}
	if len(db.executed) != len(want) {
		t.Fatalf("executed %d statements, want %d", len(db.executed), len(want))
	}
	for i := range want {
		if db.executed[i] != want[i] {
			t.Errorf("statement %d = %q, want %q", i, db.executed[i], want[i])
		}
	}

	results := r.Results()
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Rows != 3 || results[1].Rows != 2 || results[2].Rows != 0 {
		t.Errorf("unexpected row counts: %+v", results)
	}
	if results[1].Table != "t_b" {
		t.Errorf("result table = %q, want t_b", results[1].Table)
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	db := &fakeDB{failOn: "INSERT users"}
	r := NewRunner(db)

	steps := []Step{
		{Name: "insert_songplays", Table: "fact_songplay", SQL: "INSERT songplays"},
		{Name: "insert_users", Table: "dim_users", SQL: "INSERT users"},
		{Name: "insert_songs", Table: "dim_songs", SQL: "INSERT songs"},
	}
	err := r.Run(context.Background(), steps)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected *StepError, got %T", err)
	}
	if stepErr.Step != "insert_users" || stepErr.Table != "dim_users" {
		t.Errorf("unexpected step error: %+v", stepErr)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		t.Errorf("driver error should stay in the chain, got %v", err)
	}

	if len(db.executed) != 2 {
		t.Errorf("executed %d statements, want 2 (sequence must stop)", len(db.executed))
	}

	results := r.Results()
	if len(results) != 2 || results[1].Err == nil {
		t.Errorf("failed step should be recorded: %+v", results)
	}
}

func TestRunCustomStep(t *testing.T) {
	db := &fakeDB{}
	r := NewRunner(db)

	var called bool
	steps := []Step{{
		Name:  "load_staging_events",
		Table: "staging_events",
		Run: func(ctx context.Context, got DB) (int64, error) {
			called = true
			if got != db {
				t.Error("custom step received a different DB")
			}
			return 42, nil
		},
	}}
	if err := r.Run(context.Background(), steps); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !called {
		t.Fatal("custom step was not called")
	}
	if len(db.executed) != 0 {
		t.Errorf("custom step should not execute SQL, got %v", db.executed)
	}
	if r.Results()[0].Rows != 42 {
		t.Errorf("rows = %d, want 42", r.Results()[0].Rows)
	}
}

func TestRunEmptyStep(t *testing.T) {
	r := NewRunner(&fakeDB{})
	err := r.Run(context.Background(), []Step{{Name: "empty"}})
	if err == nil {
		t.Fatal("expected error for step without SQL or Run")
	}
}

func TestResultsAccumulateAcrossRuns(t *testing.T) {
	r := NewRunner(&fakeDB{})
	ctx := context.Background()

	if err := r.Run(ctx, []Step{{Name: "a", SQL: "A"}}); err != nil {
		t.Fatal(err)
	}
	if err := r.Run(ctx, []Step{{Name: "b", SQL: "B"}, {Name: "c", SQL: "C"}}); err != nil {
		t.Fatal(err)
	}
	if got := len(r.Results()); got != 3 {
		t.Errorf("got %d results, want 3", got)
	}

	// Summary must not panic with mixed results.
	r.PrintSummary()
}

func TestStepErrorMessage(t *testing.T) {
	err := &StepError{Step: "create_dim_time", Err: errors.New("boom")}
	if err.Error() != "step create_dim_time: boom" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
