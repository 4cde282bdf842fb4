package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/meiligate/internal/domain"
	"github.com/kailas-cloud/meiligate/internal/domain/key"
)

// DefaultKeyPageSize is the key listing window used when the caller gives none.
const DefaultKeyPageSize = 20

// Service exposes instance health, version, stats, keys and tenant tokens.
type Service struct {
	acquire Acquirer
	now     func() time.Time
}

// New creates an admin service.
func New(acquire Acquirer) *Service {
	return &Service{acquire: acquire, now: time.Now}
}

// WithClock replaces the clock used to validate token expiry.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Health returns Meilisearch's reported status.
func (s *Service) Health(ctx context.Context) (string, error) {
	gw, release, err := s.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	status, err := gw.Health(ctx)
	if err != nil {
		return "", fmt.Errorf("health: %w", err)
	}
	return status, nil
}

// Version returns the Meilisearch version document.
func (s *Service) Version(ctx context.Context) (json.RawMessage, error) {
	gw, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	v, err := gw.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("version: %w", err)
	}
	return v, nil
}

// Stats returns instance-wide statistics.
func (s *Service) Stats(ctx context.Context) (json.RawMessage, error) {
	gw, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	stats, err := gw.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}

// ListKeys returns one window of API keys.
func (s *Service) ListKeys(ctx context.Context, q key.ListQuery) (key.Page, error) {
	if q.Offset < 0 || q.Limit < 0 {
		return key.Page{}, domain.BadRequest("offset and limit must not be negative")
	}
	if q.Limit == 0 {
		q.Limit = DefaultKeyPageSize
	}

	gw, release, err := s.acquire(ctx)
	if err != nil {
		return key.Page{}, err
	}
	defer release()

	page, err := gw.ListKeys(ctx, q)
	if err != nil {
		return key.Page{}, fmt.Errorf("list keys: %w", err)
	}
	if page.Results == nil {
		page.Results = []key.Key{}
	}
	return page, nil
}

// GetKey returns one key by its secret or uid.
func (s *Service) GetKey(ctx context.Context, keyOrUID string) (key.Key, error) {
	gw, release, err := s.acquire(ctx)
	if err != nil {
		return key.Key{}, err
	}
	defer release()

	k, err := gw.GetKey(ctx, keyOrUID)
	if err != nil {
		return key.Key{}, fmt.Errorf("get key: %w", err)
	}
	return k, nil
}

// CreateKey creates an API key.
func (s *Service) CreateKey(ctx context.Context, req key.CreateRequest) (key.Key, error) {
	if err := req.Validate(); err != nil {
		return key.Key{}, err
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return key.Key{}, domain.BadRequest("expiresAt must be in the future")
	}

	gw, release, err := s.acquire(ctx)
	if err != nil {
		return key.Key{}, err
	}
	defer release()

	k, err := gw.CreateKey(ctx, req)
	if err != nil {
		return key.Key{}, fmt.Errorf("create key: %w", err)
	}
	return k, nil
}

// UpdateKey changes a key's name or description.
func (s *Service) UpdateKey(ctx context.Context, keyOrUID string, req key.UpdateRequest) (key.Key, error) {
	if err := req.Validate(); err != nil {
		return key.Key{}, err
	}

	gw, release, err := s.acquire(ctx)
	if err != nil {
		return key.Key{}, err
	}
	defer release()

	k, err := gw.UpdateKey(ctx, keyOrUID, req)
	if err != nil {
		return key.Key{}, fmt.Errorf("update key: %w", err)
	}
	return k, nil
}

// DeleteKey deletes a key by its secret or uid.
func (s *Service) DeleteKey(ctx context.Context, keyOrUID string) error {
	gw, release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := gw.DeleteKey(ctx, keyOrUID); err != nil {
		return fmt.Errorf("delete key: %w", err)
	}
	return nil
}

// TenantToken validates the request and signs a token from its parent key.
func (s *Service) TenantToken(ctx context.Context, req key.TenantTokenRequest) (key.TenantToken, error) {
	if err := req.Validate(s.now()); err != nil {
		return key.TenantToken{}, err
	}

	gw, release, err := s.acquire(ctx)
	if err != nil {
		return key.TenantToken{}, err
	}
	defer release()

	token, err := gw.GenerateTenantToken(req)
	if err != nil {
		return key.TenantToken{}, fmt.Errorf("tenant token: %w", err)
	}
	return key.TenantToken{TenantToken: token}, nil
}
