package dbadapter

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/querysmith/querysmith/internal/schema"
)

// postgresAdapter connects via the pgx stdlib driver. DSNs in either URL
// (postgres://...) or key=value form are accepted by the driver directly.
type postgresAdapter struct {
	sqlAdapter
}

func newPostgres(dsn string) (*postgresAdapter, error) {
	base, err := openSQL("pgx", "postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresAdapter{sqlAdapter: base}, nil
}

// TableSchemas introspects all tables in the public schema, including
// primary-key flags and foreign-key targets.
func (a *postgresAdapter) TableSchemas(ctx context.Context) ([]schema.Table, error) {
	const query = `
		SELECT
			c.table_name,
			c.column_name,
			c.data_type,
			EXISTS (
				SELECT 1
				FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON kcu.constraint_name = tc.constraint_name
					AND kcu.table_schema = tc.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY'
					AND tc.table_schema = c.table_schema
					AND tc.table_name = c.table_name
					AND kcu.column_name = c.column_name
			) AS is_pk,
			COALESCE((
				SELECT ccu.table_name || '.' || ccu.column_name
				FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON kcu.constraint_name = tc.constraint_name
					AND kcu.table_schema = tc.table_schema
				JOIN information_schema.constraint_column_usage ccu
					ON ccu.constraint_name = tc.constraint_name
					AND ccu.table_schema = tc.table_schema
				WHERE tc.constraint_type = 'FOREIGN KEY'
					AND tc.table_schema = c.table_schema
					AND tc.table_name = c.table_name
					AND kcu.column_name = c.column_name
				LIMIT 1
			), '') AS fk_target
		FROM information_schema.columns c
		WHERE c.table_schema = 'public'
		ORDER BY c.table_name, c.ordinal_position`

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying postgres schema: %w", err)
	}
	defer rows.Close()

	var tables []schema.Table
	byName := map[string]int{}

	for rows.Next() {
		var tableName, colName, dataType, fkTarget string
		var isPK bool
		if err := rows.Scan(&tableName, &colName, &dataType, &isPK, &fkTarget); err != nil {
			return nil, fmt.Errorf("scanning postgres schema row: %w", err)
		}

		idx, ok := byName[tableName]
		if !ok {
			tables = append(tables, schema.Table{Name: tableName})
			idx = len(tables) - 1
			byName[tableName] = idx
		}
		tables[idx].Columns = append(tables[idx].Columns, column(colName, dataType, isPK, fkTarget))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating postgres schema rows: %w", err)
	}

	return tables, nil
}
