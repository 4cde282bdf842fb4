package health

import "context"

// Pinger checks Meilisearch availability.
type Pinger interface {
	Ping(ctx context.Context) error
}
