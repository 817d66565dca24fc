// Package source reads the tables a run works from: the event query against
// the dealer system, and the alert matrix and users from the warehouse.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "github.com/lib/pq"                  // PostgreSQL driver
	_ "github.com/snowflakedb/gosnowflake" // Snowflake driver

	"github.com/ignite/unitchange-alerts/internal/domain"
	"github.com/ignite/unitchange-alerts/internal/pkg/logger"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Execer runs statements that return no rows.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Open opens and pings a pool for driver ("postgres" or "snowflake").
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}

	// A run is short-lived and sequential; keep the pool small
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach %s: %w", driver, err)
	}
	return db, nil
}

// QueryTable runs query and returns every row. Driver byte slices are
// converted to strings; NULLs stay nil.
func QueryTable(ctx context.Context, q Querier, query string, args ...any) (domain.Table, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Table{}, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return domain.Table{}, fmt.Errorf("failed to read columns: %w", err)
	}

	t := domain.Table{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return domain.Table{}, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		t.Rows = append(t.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return domain.Table{}, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return t, nil
}

// tableName accepts plain and schema-qualified identifiers only.
var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*){0,2}$`)

// LoadTable returns every row of a configured table.
func LoadTable(ctx context.Context, q Querier, table string) (domain.Table, error) {
	if !tableName.MatchString(table) {
		return domain.Table{}, fmt.Errorf("invalid table name %q", table)
	}
	t, err := QueryTable(ctx, q, "SELECT * FROM "+table)
	if err != nil {
		return domain.Table{}, fmt.Errorf("load %s: %w", table, err)
	}
	logger.Debug("table loaded", "table", table, "rows", t.Len())
	return t, nil
}

// ReadScript reads name from dir. A missing .sql extension is added.
func ReadScript(dir, name string) (string, error) {
	if filepath.Ext(name) == "" {
		name += ".sql"
	}
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("read script %s: %w", name, err)
	}
	text := strings.TrimSpace(string(b))
	if text == "" {
		return "", fmt.Errorf("script %s is empty", name)
	}
	return text, nil
}

// RunScript executes a maintenance script as written, in one statement
// batch, and returns the affected row count when the driver reports it.
func RunScript(ctx context.Context, db Execer, name, script string) (int64, error) {
	res, err := db.ExecContext(ctx, script)
	if err != nil {
		return 0, fmt.Errorf("script %s failed: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		n = -1
	}
	logger.Info("script executed", "script", name, "rows_affected", n)
	return n, nil
}
