package admin

import (
	"context"
	"encoding/json"

	"github.com/kailas-cloud/meiligate/internal/domain/key"
)

// Gateway is the slice of the Meilisearch client used for instance
// administration.
type Gateway interface {
	Health(ctx context.Context) (string, error)
	Version(ctx context.Context) (json.RawMessage, error)
	Stats(ctx context.Context) (json.RawMessage, error)

	ListKeys(ctx context.Context, q key.ListQuery) (key.Page, error)
	GetKey(ctx context.Context, keyOrUID string) (key.Key, error)
	CreateKey(ctx context.Context, req key.CreateRequest) (key.Key, error)
	UpdateKey(ctx context.Context, keyOrUID string, req key.UpdateRequest) (key.Key, error)
	DeleteKey(ctx context.Context, keyOrUID string) error

	GenerateTenantToken(req key.TenantTokenRequest) (string, error)
}

// Acquirer leases a Gateway for one call. release must always be called.
type Acquirer func(ctx context.Context) (gw Gateway, release func(), err error)
