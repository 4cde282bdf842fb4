// Package search describes search requests forwarded to Meilisearch.
package search

import (
	"encoding/json"

	"github.com/kailas-cloud/meiligate/internal/domain"
)

// Defaults applied to omitted request fields.
const (
	DefaultLimit            = 20
	DefaultCropLength       = 200
	DefaultCropMarker       = "..."
	DefaultHighlightPreTag  = "<em>"
	DefaultHighlightPostTag = "</em>"
	DefaultMatchingStrategy = MatchingLast
)

// MatchingStrategy controls how query terms are matched.
type MatchingStrategy string

// Supported matching strategies.
const (
	MatchingAll       MatchingStrategy = "all"
	MatchingLast      MatchingStrategy = "last"
	MatchingFrequency MatchingStrategy = "frequency"
)

// Request is a search against one index. Optional pagination fields stay nil
// when the caller omits them so Meilisearch picks the pagination mode.
type Request struct {
	UID                   string           `json:"uid"`
	Query                 string           `json:"q"`
	Offset                int64            `json:"offset"`
	Limit                 int64            `json:"limit"`
	Page                  *int64           `json:"page,omitempty"`
	HitsPerPage           *int64           `json:"hitsPerPage,omitempty"`
	Filter                any              `json:"filter,omitempty"`
	Facets                []string         `json:"facets,omitempty"`
	AttributesToRetrieve  []string         `json:"attributesToRetrieve,omitempty"`
	AttributesToCrop      []string         `json:"attributesToCrop,omitempty"`
	CropLength            int64            `json:"cropLength"`
	CropMarker            string           `json:"cropMarker"`
	AttributesToHighlight []string         `json:"attributesToHighlight,omitempty"`
	HighlightPreTag       string           `json:"highlightPreTag"`
	HighlightPostTag      string           `json:"highlightPostTag"`
	ShowMatchesPosition   bool             `json:"showMatchesPosition"`
	Sort                  []string         `json:"sort,omitempty"`
	MatchingStrategy      MatchingStrategy `json:"matchingStrategy"`
}

// UnmarshalJSON fills defaults for every field the payload omits.
// "query" is accepted as an alias of "q".
func (r *Request) UnmarshalJSON(data []byte) error {
	type plain Request
	p := plain{
		Limit:                DefaultLimit,
		AttributesToRetrieve: []string{"*"},
		CropLength:           DefaultCropLength,
		CropMarker:           DefaultCropMarker,
		HighlightPreTag:      DefaultHighlightPreTag,
		HighlightPostTag:     DefaultHighlightPostTag,
		MatchingStrategy:     DefaultMatchingStrategy,
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Query == "" {
		var alias struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(data, &alias); err == nil {
			p.Query = alias.Query
		}
	}
	*r = Request(p)
	r.Normalize()
	return nil
}

// NewRequest returns a request with all defaults applied.
func NewRequest(uid, query string) Request {
	return Request{
		UID:                  uid,
		Query:                query,
		Limit:                DefaultLimit,
		AttributesToRetrieve: []string{"*"},
		CropLength:           DefaultCropLength,
		CropMarker:           DefaultCropMarker,
		HighlightPreTag:      DefaultHighlightPreTag,
		HighlightPostTag:     DefaultHighlightPostTag,
		MatchingStrategy:     DefaultMatchingStrategy,
	}
}

// Normalize fills defaults that survive decoding as zero values.
func (r *Request) Normalize() {
	if len(r.AttributesToRetrieve) == 0 {
		r.AttributesToRetrieve = []string{"*"}
	}
	if r.MatchingStrategy == "" {
		r.MatchingStrategy = DefaultMatchingStrategy
	}
}

// Validate rejects requests Meilisearch would refuse for shape reasons.
func (r *Request) Validate() error {
	if r.UID == "" {
		return domain.BadRequest("uid is required")
	}
	if r.Offset < 0 {
		return domain.BadRequest("offset must not be negative")
	}
	if r.Limit < 0 {
		return domain.BadRequest("limit must not be negative")
	}
	if r.Page != nil && *r.Page < 1 {
		return domain.BadRequest("page must be at least 1")
	}
	if r.HitsPerPage != nil && *r.HitsPerPage < 0 {
		return domain.BadRequest("hitsPerPage must not be negative")
	}
	if r.CropLength < 0 {
		return domain.BadRequest("cropLength must not be negative")
	}
	switch r.MatchingStrategy {
	case MatchingAll, MatchingLast, MatchingFrequency:
	default:
		return domain.BadRequest("matchingStrategy must be one of all, last, frequency; got %q", r.MatchingStrategy)
	}
	return ValidateFilter(r.Filter)
}

// ValidateFilter accepts a filter expression string, a list of expressions
// (AND), or a list mixing expressions and lists of expressions (OR groups).
func ValidateFilter(filter any) error {
	switch f := filter.(type) {
	case nil, string:
		return nil
	case []string:
		return nil
	case [][]string:
		return nil
	case []any:
		for i, item := range f {
			switch inner := item.(type) {
			case string:
			case []any:
				for _, leaf := range inner {
					if _, ok := leaf.(string); !ok {
						return domain.BadRequest("filter[%d] must contain only strings", i)
					}
				}
			case []string:
			default:
				return domain.BadRequest("filter[%d] must be a string or a list of strings", i)
			}
		}
		return nil
	default:
		return domain.BadRequest("filter must be a string or a list")
	}
}

// Results is the Meilisearch response, forwarded without reinterpretation.
type Results = json.RawMessage
