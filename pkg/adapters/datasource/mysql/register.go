package mysql

import (
	"context"

	"github.com/quilldata/quill-engine/pkg/adapters/datasource"
	"github.com/quilldata/quill-engine/pkg/models"
)

func init() {
	datasource.Register(models.DialectMySQL,
		func(ctx context.Context, desc datasource.ConnectionDescriptor) (datasource.Connector, error) {
			return New(ctx, desc)
		})
}
