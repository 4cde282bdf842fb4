package meili

import (
	"context"
	"encoding/json"
	"time"

	"github.com/meilisearch/meilisearch-go"

	"github.com/kailas-cloud/meiligate/internal/domain"
	"github.com/kailas-cloud/meiligate/internal/domain/key"
	"github.com/kailas-cloud/meiligate/internal/metrics"
)

// Health returns Meilisearch's own health status ("available" when up).
func (c *Client) Health(ctx context.Context) (string, error) {
	var res *meilisearch.Health
	err := c.do(ctx, OpHealth, func() (err error) {
		res, err = c.sm.HealthWithContext(ctx)
		return err
	})
	if err != nil {
		return "", err
	}
	return res.Status, nil
}

// Version returns the server version document verbatim.
func (c *Client) Version(ctx context.Context) (json.RawMessage, error) {
	start := time.Now()
	res, err := c.sm.VersionWithContext(ctx)
	err = translate(ctx, OpVersion, err)
	metrics.ObserveUpstream(OpVersion, start, err)
	if err != nil {
		return nil, err
	}
	return raw(res)
}

// Stats returns the instance-wide statistics verbatim.
func (c *Client) Stats(ctx context.Context) (json.RawMessage, error) {
	start := time.Now()
	res, err := c.sm.GetStatsWithContext(ctx)
	err = translate(ctx, OpStats, err)
	metrics.ObserveUpstream(OpStats, start, err)
	if err != nil {
		return nil, err
	}
	return raw(res)
}

func toKey(k *meilisearch.Key) key.Key {
	out := key.Key{
		UID:         k.UID,
		Key:         k.Key,
		Name:        k.Name,
		Description: k.Description,
		Actions:     k.Actions,
		Indexes:     k.Indexes,
		CreatedAt:   domain.Timestamp{Time: k.CreatedAt.UTC()},
		UpdatedAt:   domain.Timestamp{Time: k.UpdatedAt.UTC()},
	}
	if !k.ExpiresAt.IsZero() {
		out.ExpiresAt = &domain.Timestamp{Time: k.ExpiresAt.UTC()}
	}
	return out
}

// ListKeys fetches one window of API keys.
func (c *Client) ListKeys(ctx context.Context, q key.ListQuery) (key.Page, error) {
	var res *meilisearch.KeysResults
	err := c.do(ctx, OpListKeys, func() (err error) {
		res, err = c.sm.GetKeysWithContext(ctx, &meilisearch.KeysQuery{Offset: q.Offset, Limit: q.Limit})
		return err
	})
	if err != nil {
		return key.Page{}, err
	}

	page := key.Page{
		Results: make([]key.Key, 0, len(res.Results)),
		Offset:  res.Offset,
		Limit:   res.Limit,
		Total:   res.Total,
	}
	for i := range res.Results {
		page.Results = append(page.Results, toKey(&res.Results[i]))
	}
	return page, nil
}

// GetKey fetches a key by its secret or uid.
func (c *Client) GetKey(ctx context.Context, keyOrUID string) (key.Key, error) {
	var res *meilisearch.Key
	err := c.do(ctx, OpGetKey, func() (err error) {
		res, err = c.sm.GetKeyWithContext(ctx, keyOrUID)
		return err
	})
	if err != nil {
		return key.Key{}, err
	}
	return toKey(res), nil
}

// CreateKey creates an API key.
func (c *Client) CreateKey(ctx context.Context, req key.CreateRequest) (key.Key, error) {
	k := &meilisearch.Key{
		UID:         req.UID,
		Name:        req.Name,
		Description: req.Description,
		Actions:     req.Actions,
		Indexes:     req.Indexes,
	}
	if req.ExpiresAt != nil {
		k.ExpiresAt = req.ExpiresAt.UTC()
	}

	var res *meilisearch.Key
	err := c.do(ctx, OpCreateKey, func() (err error) {
		res, err = c.sm.CreateKeyWithContext(ctx, k)
		return err
	})
	if err != nil {
		return key.Key{}, err
	}
	return toKey(res), nil
}

// UpdateKey changes a key's name or description. Fields left nil keep their
// current value.
func (c *Client) UpdateKey(ctx context.Context, keyOrUID string, req key.UpdateRequest) (key.Key, error) {
	current, err := c.GetKey(ctx, keyOrUID)
	if err != nil {
		return key.Key{}, err
	}
	k := &meilisearch.Key{Name: current.Name, Description: current.Description}
	if req.Name != nil {
		k.Name = *req.Name
	}
	if req.Description != nil {
		k.Description = *req.Description
	}

	var res *meilisearch.Key
	err = c.do(ctx, OpUpdateKey, func() (err error) {
		res, err = c.sm.UpdateKeyWithContext(ctx, keyOrUID, k)
		return err
	})
	if err != nil {
		return key.Key{}, err
	}
	return toKey(res), nil
}

// DeleteKey deletes a key by its secret or uid.
func (c *Client) DeleteKey(ctx context.Context, keyOrUID string) error {
	return c.do(ctx, OpDeleteKey, func() error {
		_, err := c.sm.DeleteKeyWithContext(ctx, keyOrUID)
		return err
	})
}

// GenerateTenantToken signs a search token from the request's parent key.
// Signing happens locally; no request reaches Meilisearch.
func (c *Client) GenerateTenantToken(req key.TenantTokenRequest) (string, error) {
	rules, err := req.SearchRules.Claims()
	if err != nil {
		return "", err
	}
	opts := &meilisearch.TenantTokenOptions{APIKey: req.APIKey.Key}
	if req.ExpiresAt != nil {
		opts.ExpiresAt = req.ExpiresAt.UTC()
	}

	start := time.Now()
	token, err := c.sm.GenerateTenantToken(req.APIKey.UID, rules, opts)
	if err != nil {
		err = domain.BadRequest("generate tenant token: %v", err)
	}
	metrics.ObserveUpstream(OpTenantToken, start, err)
	if err != nil {
		return "", err
	}
	return token, nil
}
