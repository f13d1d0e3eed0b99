// Package dbadapter provides per-engine database adapters behind a factory
// keyed by engine type. Supported engines: postgres, mysql, sqlite.
package dbadapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/querysmith/querysmith/internal/schema"
)

// SupportedTypes lists the engine type tags accepted by New.
var SupportedTypes = []string{"postgres", "mysql", "sqlite"}

// Result holds tabular query output. Non-row-returning statements produce a
// Result with empty Columns and Rows.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Adapter is the per-engine database contract: connection checking, schema
// introspection, and query execution.
type Adapter interface {
	// TestConnection verifies the database is reachable.
	TestConnection(ctx context.Context) error

	// TableSchemas returns every table with columns, PK flags, and FK targets.
	TableSchemas(ctx context.Context) ([]schema.Table, error)

	// ExecuteQuery runs arbitrary SQL and returns its result set.
	ExecuteQuery(ctx context.Context, sqlText string) (*Result, error)

	// Close releases the underlying connection pool.
	Close() error
}

// ConnectionError indicates the database could not be reached.
type ConnectionError struct {
	Engine string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s: %v", e.Engine, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// New creates an adapter for the given engine type and DSN.
func New(dbType, dsn string) (Adapter, error) {
	switch strings.ToLower(dbType) {
	case "postgres", "postgresql":
		return newPostgres(dsn)
	case "mysql":
		return newMySQL(dsn)
	case "sqlite", "sqlite3":
		return newSQLite(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type %q, supported: %s", dbType, strings.Join(SupportedTypes, ", "))
	}
}
