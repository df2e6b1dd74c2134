package models

import "fmt"

// Dialect identifies the SQL engine family of an external connection.
// It determines positional parameter syntax ($1 vs ?) and which datasource
// adapter handles execution.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// ParseDialect validates a stored dialect tag. Unknown tags are rejected
// rather than falling through to a default adapter.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case DialectPostgres, DialectMySQL:
		return Dialect(s), nil
	default:
		return "", fmt.Errorf("unsupported database type: %q", s)
	}
}

func (d Dialect) String() string {
	return string(d)
}
