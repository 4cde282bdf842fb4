package settings

import (
	"context"

	domset "github.com/kailas-cloud/meiligate/internal/domain/settings"
	"github.com/kailas-cloud/meiligate/internal/domain/task"
)

// Gateway is the slice of the Meilisearch client used for settings bundles.
type Gateway interface {
	GetSettings(ctx context.Context, uid string) (domset.Settings, error)
	UpdateSettings(ctx context.Context, uid string, s domset.Settings) (task.Handle, error)
	ResetSettings(ctx context.Context, uid string) (task.Handle, error)
}

// Acquirer leases a Gateway for one call. release must always be called.
type Acquirer func(ctx context.Context) (gw Gateway, release func(), err error)
