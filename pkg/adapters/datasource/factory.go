package datasource

import (
	"context"
	"fmt"
)

// Connect resolves the descriptor's dialect to a registered adapter and
// opens a new connection. Unsupported dialects fail fast before any I/O.
func Connect(ctx context.Context, desc ConnectionDescriptor) (Connector, error) {
	factory := GetFactory(desc.Dialect)
	if factory == nil {
		return nil, fmt.Errorf("unsupported database type: %s (not compiled in)", desc.Dialect)
	}
	return factory(ctx, desc)
}
