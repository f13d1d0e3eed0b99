package dbadapter

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/querysmith/querysmith/internal/schema"
)

// mysqlAdapter connects via go-sql-driver/mysql. Both driver-native DSNs
// (user:pass@tcp(host:port)/db) and mysql:// URLs are accepted.
type mysqlAdapter struct {
	sqlAdapter
}

func newMySQL(dsn string) (*mysqlAdapter, error) {
	normalized, err := normalizeMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	base, err := openSQL("mysql", "mysql", normalized)
	if err != nil {
		return nil, err
	}
	return &mysqlAdapter{sqlAdapter: base}, nil
}

// normalizeMySQLDSN converts a mysql:// URL into the driver's DSN format.
// DSNs without the URL scheme pass through untouched.
func normalizeMySQLDSN(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, "mysql://") {
		return dsn, nil
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parsing mysql url: %w", err)
	}

	var b strings.Builder
	if u.User != nil {
		b.WriteString(u.User.Username())
		if pass, ok := u.User.Password(); ok {
			b.WriteString(":")
			b.WriteString(pass)
		}
		b.WriteString("@")
	}
	host := u.Host
	if host == "" {
		host = "localhost:3306"
	}
	fmt.Fprintf(&b, "tcp(%s)", host)
	b.WriteString("/")
	b.WriteString(strings.TrimPrefix(u.Path, "/"))
	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	return b.String(), nil
}

// TableSchemas introspects all tables in the current database.
func (a *mysqlAdapter) TableSchemas(ctx context.Context) ([]schema.Table, error) {
	const query = `
		SELECT
			c.TABLE_NAME,
			c.COLUMN_NAME,
			c.DATA_TYPE,
			c.COLUMN_KEY = 'PRI' AS is_pk,
			COALESCE((
				SELECT CONCAT(kcu.REFERENCED_TABLE_NAME, '.', kcu.REFERENCED_COLUMN_NAME)
				FROM information_schema.KEY_COLUMN_USAGE kcu
				WHERE kcu.TABLE_SCHEMA = c.TABLE_SCHEMA
					AND kcu.TABLE_NAME = c.TABLE_NAME
					AND kcu.COLUMN_NAME = c.COLUMN_NAME
					AND kcu.REFERENCED_TABLE_NAME IS NOT NULL
				LIMIT 1
			), '') AS fk_target
		FROM information_schema.COLUMNS c
		WHERE c.TABLE_SCHEMA = DATABASE()
		ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION`

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying mysql schema: %w", err)
	}
	defer rows.Close()

	var tables []schema.Table
	byName := map[string]int{}

	for rows.Next() {
		var tableName, colName, dataType, fkTarget string
		var isPK bool
		if err := rows.Scan(&tableName, &colName, &dataType, &isPK, &fkTarget); err != nil {
			return nil, fmt.Errorf("scanning mysql schema row: %w", err)
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
		return nil, fmt.Errorf("iterating mysql schema rows: %w", err)
	}

	return tables, nil
}
