package search

import (
	"context"

	domsearch "github.com/kailas-cloud/meiligate/internal/domain/search"
)

// Gateway runs searches against Meilisearch.
type Gateway interface {
	Search(ctx context.Context, req domsearch.Request) (domsearch.Results, error)
}

// Acquirer leases a Gateway for one call. release must always be called.
type Acquirer func(ctx context.Context) (gw Gateway, release func(), err error)
