package postgres

import (
	"context"

	"github.com/quilldata/quill-engine/pkg/adapters/datasource"
	"github.com/quilldata/quill-engine/pkg/models"
)

func init() {
	datasource.Register(models.DialectPostgres,
		func(ctx context.Context, desc datasource.ConnectionDescriptor) (datasource.Connector, error) {
			return New(ctx, desc)
		})
}
