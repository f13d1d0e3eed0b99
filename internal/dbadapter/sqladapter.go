package dbadapter

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/querysmith/querysmith/internal/schema"
)

// sqlAdapter provides the database/sql plumbing shared by all engines.
// Engine-specific behavior (introspection queries) is supplied by the
// embedding adapter.
type sqlAdapter struct {
	db     *sql.DB
	engine string
}

func openSQL(driver, engine, dsn string) (sqlAdapter, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return sqlAdapter{}, fmt.Errorf("opening %s connection: %w", engine, err)
	}
	return sqlAdapter{db: db, engine: engine}, nil
}

// TestConnection pings the database with a short round trip.
func (a *sqlAdapter) TestConnection(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return &ConnectionError{Engine: a.engine, Err: err}
	}
	return nil
}

// ExecuteQuery runs sqlText and materializes its result set. Statements that
// return no rows (INSERT, CREATE, ...) yield an empty Result rather than an
// error.
func (a *sqlAdapter) ExecuteQuery(ctx context.Context, sqlText string) (*Result, error) {
	rows, err := a.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}
	if len(cols) == 0 {
		return &Result{Columns: []string{}, Rows: [][]any{}}, nil
	}

	out := &Result{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		for i, v := range values {
			// Drivers hand back []byte for text-ish columns; strings marshal cleaner.
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out.Rows = append(out.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return out, nil
}

// Close closes the connection pool.
func (a *sqlAdapter) Close() error {
	return a.db.Close()
}

// column assembles a schema.Column from introspection fields.
func column(name, dataType string, isPK bool, fkTarget string) schema.Column {
	return schema.Column{
		Name:         name,
		DataType:     dataType,
		IsPrimaryKey: isPK,
		IsForeignKey: fkTarget != "",
		References:   fkTarget,
	}
}
