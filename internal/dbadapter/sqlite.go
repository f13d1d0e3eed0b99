package dbadapter

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/querysmith/querysmith/internal/schema"
)

// sqliteAdapter connects via the pure-Go modernc driver. The DSN is a file
// path, optionally prefixed with sqlite:// or file:.
type sqliteAdapter struct {
	sqlAdapter
}

func newSQLite(dsn string) (*sqliteAdapter, error) {
	path := strings.TrimPrefix(dsn, "sqlite://")
	base, err := openSQL("sqlite", "sqlite", path)
	if err != nil {
		return nil, err
	}
	return &sqliteAdapter{sqlAdapter: base}, nil
}

// TableSchemas lists user tables from sqlite_master and introspects each via
// PRAGMA table_info / foreign_key_list.
func (a *sqliteAdapter) TableSchemas(ctx context.Context) ([]schema.Table, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing sqlite tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating table names: %w", err)
	}

	var tables []schema.Table
	for _, name := range names {
		t, err := a.tableSchema(ctx, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func (a *sqliteAdapter) tableSchema(ctx context.Context, name string) (schema.Table, error) {
	fkTargets, err := a.foreignKeys(ctx, name)
	if err != nil {
		return schema.Table{}, err
	}

	rows, err := a.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", name))
	if err != nil {
		return schema.Table{}, fmt.Errorf("table_info for %s: %w", name, err)
	}
	defer rows.Close()

	t := schema.Table{Name: name}
	for rows.Next() {
		var cid, notNull, pk int
		var colName, colType string
		var dflt any
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			return schema.Table{}, fmt.Errorf("scanning table_info row: %w", err)
		}
		t.Columns = append(t.Columns, column(colName, colType, pk > 0, fkTargets[colName]))
	}
	if err := rows.Err(); err != nil {
		return schema.Table{}, fmt.Errorf("iterating table_info rows: %w", err)
	}

	return t, nil
}

// foreignKeys maps column name to its "table.column" reference target.
func (a *sqliteAdapter) foreignKeys(ctx context.Context, name string) (map[string]string, error) {
	rows, err := a.db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%q)", name))
	if err != nil {
		return nil, fmt.Errorf("foreign_key_list for %s: %w", name, err)
	}
	defer rows.Close()

	targets := map[string]string{}
	for rows.Next() {
		var id, seq int
		var refTable, from string
		var to sql.NullString // NULL when referencing the target's implicit rowid PK
		var onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, fmt.Errorf("scanning foreign_key_list row: %w", err)
		}
		target := refTable
		if to.Valid {
			target += "." + to.String
		}
		targets[from] = target
	}
	return targets, rows.Err()
}
