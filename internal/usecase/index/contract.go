package index

import (
	"context"

	domidx "github.com/kailas-cloud/meiligate/internal/domain/index"
	"github.com/kailas-cloud/meiligate/internal/domain/settings"
	"github.com/kailas-cloud/meiligate/internal/domain/task"
)

// Gateway is the slice of the Meilisearch client used for index management.
type Gateway interface {
	CreateIndex(ctx context.Context, uid, primaryKey string) (task.Handle, error)
	GetIndex(ctx context.Context, uid string) (domidx.Info, error)
	ListIndexes(ctx context.Context, offset, limit int64) ([]domidx.Info, int64, error)
	UpdateIndex(ctx context.Context, uid, primaryKey string) (task.Handle, error)
	DeleteIndex(ctx context.Context, uid string) (task.Handle, error)
	IndexStats(ctx context.Context, uid string) (domidx.Stats, error)
	AwaitTask(ctx context.Context, taskUID int64) (task.Task, error)

	GetSettings(ctx context.Context, uid string) (settings.Settings, error)
	UpdateSettings(ctx context.Context, uid string, s settings.Settings) (task.Handle, error)
	ResetAttribute(ctx context.Context, uid string, attr settings.Attribute) (task.Handle, error)
}

// Acquirer leases a Gateway for one call. release must always be called.
type Acquirer func(ctx context.Context) (gw Gateway, release func(), err error)
