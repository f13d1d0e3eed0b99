package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/querysmith/querysmith/internal/dbadapter"
	"github.com/querysmith/querysmith/internal/dbregistry"
	"github.com/querysmith/querysmith/internal/schema"
)

type fakeAdapter struct {
	result *dbadapter.Result
	err    error
	closed bool
}

func (f *fakeAdapter) TestConnection(context.Context) error { return nil }

func (f *fakeAdapter) TableSchemas(context.Context) ([]schema.Table, error) { return nil, nil }

func (f *fakeAdapter) ExecuteQuery(context.Context, string) (*dbadapter.Result, error) {
	return f.result, f.err
}

func (f *fakeAdapter) Close() error {
	f.closed = true
	return nil
}

func TestExecutorConvertsResult(t *testing.T) {
	catalog := &stubCatalog{summaries: []dbregistry.Summary{{ID: "db", Type: "sqlite"}}}
	adapter := &fakeAdapter{result: &dbadapter.Result{
		Columns: []string{"id", "name"},
		Rows:    [][]any{{int64(1), "alice"}, {int64(2), "bob"}},
	}}
	e := NewExecutor(catalog)
	e.open = func(string, string) (dbadapter.Adapter, error) { return adapter, nil }

	outcome, err := e.Execute(context.Background(), "db", "SELECT id, name FROM users")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if outcome.RowCount != 2 {
		t.Errorf("row count = %d", outcome.RowCount)
	}
	if len(outcome.Columns) != 2 {
		t.Errorf("columns = %v", outcome.Columns)
	}
	if !adapter.closed {
		t.Error("adapter not closed")
	}
}

func TestExecutorWrapsBackendError(t *testing.T) {
	catalog := &stubCatalog{summaries: []dbregistry.Summary{{ID: "db", Type: "sqlite"}}}
	adapter := &fakeAdapter{err: errors.New("no such table: ghosts")}
	e := NewExecutor(catalog)
	e.open = func(string, string) (dbadapter.Adapter, error) { return adapter, nil }

	_, err := e.Execute(context.Background(), "db", "SELECT * FROM ghosts")
	if err == nil {
		t.Fatal("expected error")
	}
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError, got %T", err)
	}
	if execErr.DatabaseID != "db" {
		t.Errorf("database id = %q", execErr.DatabaseID)
	}
}

func TestExecutorUnknownDatabase(t *testing.T) {
	e := NewExecutor(&stubCatalog{})

	_, err := e.Execute(context.Background(), "missing", "SELECT 1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, dbregistry.ErrNotFound) {
		t.Errorf("expected ErrNotFound in chain, got %v", err)
	}
}
