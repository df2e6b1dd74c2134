// Package datasource dispatches query execution to per-dialect connectors
// for user-registered external databases.
package datasource

import (
	"context"

	"github.com/quilldata/quill-engine/pkg/models"
)

// ConnectionDescriptor carries everything needed to open one external
// connection. It is built immediately before use from a stored connection
// record plus a decrypt step, and discarded after the query completes.
// Never log or persist a descriptor.
type ConnectionDescriptor struct {
	Dialect  models.Dialect
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// Connector is a transient handle to one external database. Connectors are
// never pooled: each execution request opens, uses, and releases its own
// handle, so one misbehaving target database cannot starve other requests.
type Connector interface {
	// Ping verifies the database is reachable with valid credentials.
	Ping(ctx context.Context) error

	// Query executes exactly one parameterized statement and returns rows.
	Query(ctx context.Context, sqlQuery string, values []any) (*QueryResult, error)

	// Release closes the handle. Close semantics are asymmetric across
	// adapters and deliberately so: the postgres connector ends the
	// session gracefully, the mysql connector tears the handle down
	// immediately. Release must run on both success and failure paths.
	Release() error
}

// QueryResult holds the rows from one execution. Rows are flat column
// name to scalar/null records, matching whatever the driver returns.
type QueryResult struct {
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// ExecutionError wraps any environment-caused failure: connect refused,
// auth failure, SQL rejected by the target engine, timeout. It is never
// retried by this layer.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return "query execution failed: " + e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError wraps err as an ExecutionError. Already-wrapped errors
// pass through unchanged.
func NewExecutionError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*ExecutionError); ok {
		return err
	}
	return &ExecutionError{Err: err}
}
