// Package mysql implements the datasource connector for the MySQL-family
// dialect over database/sql with go-sql-driver.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/quilldata/quill-engine/pkg/adapters/datasource"
)

// Connector holds one handle to an external MySQL database. The underlying
// *sql.DB is pinned to a single connection so the per-request lifecycle
// matches the postgres adapter.
type Connector struct {
	db *sql.DB
}

// New dials the target database described by desc. Connect and auth
// failures surface as ExecutionError.
func New(ctx context.Context, desc datasource.ConnectionDescriptor) (*Connector, error) {
	db, err := sql.Open("mysql", buildDSN(desc))
	if err != nil {
		return nil, datasource.NewExecutionError(fmt.Errorf("open mysql handle: %w", err))
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// sql.Open validates the DSN without dialing; force the dial now so
	// acquisition failures surface here, not in the middle of execution.
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, datasource.NewExecutionError(fmt.Errorf("connect to mysql: %w", err))
	}

	return &Connector{db: db}, nil
}

// newFromDB wraps an existing handle. Used by tests with a mocked driver.
func newFromDB(db *sql.DB) *Connector {
	return &Connector{db: db}
}

// Ping verifies the connection is alive.
func (c *Connector) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return datasource.NewExecutionError(err)
	}
	return nil
}

// Query executes one parameterized statement. The SQL uses ? positional
// markers in value order.
func (c *Connector) Query(ctx context.Context, sqlQuery string, values []any) (*datasource.QueryResult, error) {
	rows, err := c.db.QueryContext(ctx, sqlQuery, values...)
	if err != nil {
		return nil, datasource.NewExecutionError(fmt.Errorf("execute query: %w", err))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, datasource.NewExecutionError(fmt.Errorf("read columns: %w", err))
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, datasource.NewExecutionError(fmt.Errorf("scan row: %w", err))
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			val := values[i]
			// The driver returns text columns as []byte; callers expect
			// flat scalar records.
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			rowMap[col] = val
		}
		resultRows = append(resultRows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, datasource.NewExecutionError(fmt.Errorf("iterate rows: %w", err))
	}

	return &datasource.QueryResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

// Release tears the handle down immediately. Unlike the postgres adapter's
// graceful close there is no session handshake to wait on; the socket is
// closed as soon as the in-flight query finishes.
func (c *Connector) Release() error {
	return c.db.Close()
}

// buildDSN constructs a go-sql-driver DSN: user:pass@tcp(host:port)/db.
func buildDSN(desc datasource.ConnectionDescriptor) string {
	port := desc.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		desc.User, desc.Password, desc.Host, port, desc.Database)
}

// Ensure Connector implements the datasource interface at compile time.
var _ datasource.Connector = (*Connector)(nil)
