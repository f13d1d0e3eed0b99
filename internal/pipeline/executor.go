package pipeline

import (
	"context"
	"fmt"

	"github.com/querysmith/querysmith/internal/dbadapter"
)

// ExecutionError carries the backend's error text for a failed statement.
type ExecutionError struct {
	DatabaseID string
	Err        error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("executing query against %s: %v", e.DatabaseID, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Executor runs SQL against a registered database. A fresh adapter is
// opened per call; connections are not pooled across requests.
type Executor struct {
	catalog DatabaseCatalog

	// open is replaced in tests.
	open func(dbType, dsn string) (dbadapter.Adapter, error)
}

// NewExecutor creates an executor resolving connections through the catalog.
func NewExecutor(catalog DatabaseCatalog) *Executor {
	return &Executor{catalog: catalog, open: dbadapter.New}
}

// Execute runs sqlText against the database and returns its outcome.
// Statements that return no rows yield an outcome with empty columns and
// rows.
func (e *Executor) Execute(ctx context.Context, databaseID, sqlText string) (*ExecutionOutcome, error) {
	entry, err := e.catalog.Get(databaseID)
	if err != nil {
		return nil, &ExecutionError{DatabaseID: databaseID, Err: err}
	}

	adapter, err := e.open(entry.Type, entry.DSN)
	if err != nil {
		return nil, &ExecutionError{DatabaseID: databaseID, Err: err}
	}
	defer adapter.Close()

	result, err := adapter.ExecuteQuery(ctx, sqlText)
	if err != nil {
		return nil, &ExecutionError{DatabaseID: databaseID, Err: err}
	}

	return &ExecutionOutcome{
		Columns:  result.Columns,
		Rows:     result.Rows,
		RowCount: len(result.Rows),
	}, nil
}
