package search

import (
	"context"
	"fmt"

	domsearch "github.com/kailas-cloud/meiligate/internal/domain/search"
)

// Service forwards searches. Ranking, pagination and highlighting are left
// to Meilisearch; results come back as returned.
type Service struct {
	acquire Acquirer
}

// New creates a search service.
func New(acquire Acquirer) *Service {
	return &Service{acquire: acquire}
}

// Search validates the request and forwards it.
func (s *Service) Search(ctx context.Context, req domsearch.Request) (domsearch.Results, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	gw, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := gw.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", req.UID, err)
	}
	return res, nil
}
