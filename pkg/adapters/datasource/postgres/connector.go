// Package postgres implements the datasource connector for the
// Postgres-family dialect using a single pgx connection per request.
package postgres

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/quilldata/quill-engine/pkg/adapters/datasource"
)

// releaseTimeout bounds the graceful close handshake so a wedged target
// cannot hold the cleanup phase open.
const releaseTimeout = 5 * time.Second

// Connector holds one live connection to an external PostgreSQL database.
type Connector struct {
	conn *pgx.Conn
}

// New dials the target database described by desc. Connect and auth
// failures surface as ExecutionError.
func New(ctx context.Context, desc datasource.ConnectionDescriptor) (*Connector, error) {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(desc.User, desc.Password),
		Host:   fmt.Sprintf("%s:%d", desc.Host, desc.Port),
		Path:   "/" + desc.Database,
	}

	conn, err := pgx.Connect(ctx, u.String())
	if err != nil {
		return nil, datasource.NewExecutionError(fmt.Errorf("connect to postgres: %w", err))
	}

	return &Connector{conn: conn}, nil
}

// Ping verifies the connection is alive.
func (c *Connector) Ping(ctx context.Context) error {
	if err := c.conn.Ping(ctx); err != nil {
		return datasource.NewExecutionError(err)
	}
	return nil
}

// Query executes one parameterized statement. The SQL uses $1, $2, ...
// positional markers, which pgx binds natively.
func (c *Connector) Query(ctx context.Context, sqlQuery string, values []any) (*datasource.QueryResult, error) {
	rows, err := c.conn.Query(ctx, sqlQuery, values...)
	if err != nil {
		return nil, datasource.NewExecutionError(fmt.Errorf("execute query: %w", err))
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, datasource.NewExecutionError(fmt.Errorf("read row values: %w", err))
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
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

// Release ends the connection gracefully, letting the server complete the
// session teardown. Bounded by releaseTimeout.
func (c *Connector) Release() error {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	return c.conn.Close(ctx)
}

// Ensure Connector implements the datasource interface at compile time.
var _ datasource.Connector = (*Connector)(nil)
