package datasource

import (
	"context"
	"sync"

	"github.com/quilldata/quill-engine/pkg/models"
)

// ConnectorFactory opens a transient connection for one descriptor.
type ConnectorFactory func(ctx context.Context, desc ConnectionDescriptor) (Connector, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[models.Dialect]ConnectorFactory)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(dialect models.Dialect, factory ConnectorFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[dialect] = factory
}

// GetFactory returns the factory for a dialect, or nil if none is registered.
func GetFactory(dialect models.Dialect) ConnectorFactory {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[dialect]
}

// RegisteredDialects returns the dialects with a compiled-in adapter.
func RegisteredDialects() []models.Dialect {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]models.Dialect, 0, len(registry))
	for dialect := range registry {
		result = append(result, dialect)
	}
	return result
}
