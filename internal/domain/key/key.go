// Package key models Meilisearch API keys and tenant token requests.
package key

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/meiligate/internal/domain"
)

// Key is an API key as returned by Meilisearch.
type Key struct {
	UID         string            `json:"uid"`
	Key         string            `json:"key"`
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	Actions     []string          `json:"actions"`
	Indexes     []string          `json:"indexes"`
	ExpiresAt   *domain.Timestamp `json:"expiresAt"`
	CreatedAt   domain.Timestamp  `json:"createdAt"`
	UpdatedAt   domain.Timestamp  `json:"updatedAt"`
}

// Page is one window of keys.
type Page struct {
	Results []Key `json:"results"`
	Offset  int64 `json:"offset"`
	Limit   int64 `json:"limit"`
	Total   int64 `json:"total"`
}

// CreateRequest describes a key to create.
type CreateRequest struct {
	UID         string            `json:"uid,omitempty"`
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	Actions     []string          `json:"actions"`
	Indexes     []string          `json:"indexes"`
	ExpiresAt   *domain.Timestamp `json:"expiresAt"`
}

// Validate checks the fields Meilisearch requires.
func (r *CreateRequest) Validate() error {
	if len(r.Actions) == 0 {
		return domain.BadRequest("actions must not be empty")
	}
	if len(r.Indexes) == 0 {
		return domain.BadRequest("indexes must not be empty")
	}
	if r.UID != "" {
		if _, err := uuid.Parse(r.UID); err != nil {
			return domain.BadRequest("uid must be a UUID: %v", err)
		}
	}
	return nil
}

// UpdateRequest changes a key's mutable fields.
type UpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Validate rejects an update that changes nothing.
func (r *UpdateRequest) Validate() error {
	if r.Name == nil && r.Description == nil {
		return domain.BadRequest("name or description is required")
	}
	return nil
}

// ListQuery selects a window of keys.
type ListQuery struct {
	Offset int64
	Limit  int64
}

// SearchRules restrict what a tenant token may search. Meilisearch accepts
// either a map of index pattern to rule or a list of index patterns.
type SearchRules struct {
	raw any
}

// NewSearchRules wraps a decoded map or list.
func NewSearchRules(v any) SearchRules { return SearchRules{raw: v} }

// UnmarshalJSON keeps the map or list form as decoded.
func (r *SearchRules) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	r.raw = v
	return nil
}

// MarshalJSON writes the rules in their original form.
func (r SearchRules) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.raw)
}

// Claims returns the rules in the map form expected by the token signer.
// The list form becomes a map of index pattern to an empty rule.
func (r SearchRules) Claims() (map[string]any, error) {
	switch v := r.raw.(type) {
	case map[string]any:
		return v, nil
	case []any:
		out := make(map[string]any, len(v))
		for i, item := range v {
			name, ok := item.(string)
			if !ok {
				return nil, domain.BadRequest("searchRules[%d] must be an index name", i)
			}
			out[name] = map[string]any{}
		}
		return out, nil
	case []string:
		out := make(map[string]any, len(v))
		for _, name := range v {
			out[name] = map[string]any{}
		}
		return out, nil
	case nil:
		return nil, domain.BadRequest("searchRules is required")
	default:
		return nil, domain.BadRequest("searchRules must be a map or a list of index names")
	}
}

// Indexes returns every index pattern the rules reference, sorted.
func (r SearchRules) Indexes() ([]string, error) {
	claims, err := r.Claims()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(claims))
	for name := range claims {
		names = append(names, name)
	}
	if nested, ok := claims["indexes"].([]any); ok {
		names = slices.DeleteFunc(names, func(n string) bool { return n == "indexes" })
		for _, item := range nested {
			if name, ok := item.(string); ok {
				names = append(names, name)
			}
		}
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// TenantTokenRequest asks for a token derived from APIKey.
type TenantTokenRequest struct {
	SearchRules SearchRules       `json:"searchRules"`
	APIKey      Key               `json:"apiKey"`
	ExpiresAt   *domain.Timestamp `json:"expiresAt"`
}

// Validate checks the request against now.
func (r *TenantTokenRequest) Validate(now time.Time) error {
	if r.ExpiresAt != nil && !r.ExpiresAt.After(now) {
		return domain.BadRequest("expiresAt must be in the future")
	}
	if _, err := uuid.Parse(r.APIKey.UID); err != nil {
		return domain.BadRequest("apiKey.uid must be a UUID")
	}
	if r.APIKey.Key == "" {
		return domain.BadRequest("apiKey.key is required")
	}

	indexes, err := r.SearchRules.Indexes()
	if err != nil {
		return err
	}
	if slices.Contains(r.APIKey.Indexes, "*") {
		return nil
	}
	for _, name := range indexes {
		if name == "*" || !slices.Contains(r.APIKey.Indexes, name) {
			return domain.BadRequest("search rules reference index %q outside the key's indexes", name)
		}
	}
	return nil
}

// TenantToken is a signed search token.
type TenantToken struct {
	TenantToken string `json:"tenantToken"`
}
