package meili

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/meilisearch/meilisearch-go"

	"github.com/kailas-cloud/meiligate/internal/domain"
	"github.com/kailas-cloud/meiligate/internal/domain/settings"
	"github.com/kailas-cloud/meiligate/internal/domain/task"
)

// GetSettings fetches the full settings bundle.
func (c *Client) GetSettings(ctx context.Context, uid string) (settings.Settings, error) {
	var res *meilisearch.Settings
	err := c.do(ctx, OpGetSettings, func() (err error) {
		res, err = c.sm.Index(uid).GetSettingsWithContext(ctx)
		return err
	})
	if err != nil {
		return settings.Settings{}, err
	}

	var out settings.Settings
	if err := convert(res, &out); err != nil {
		return settings.Settings{}, err
	}
	return out, nil
}

// UpdateSettings enqueues a merge of the provided fields. Nil fields are not
// sent and stay unchanged; empty lists and maps are sent as such.
func (c *Client) UpdateSettings(ctx context.Context, uid string, s settings.Settings) (task.Handle, error) {
	var h task.Handle
	err := c.do(ctx, OpUpdateSettings, func() error {
		data, err := c.rest.call(ctx, http.MethodPatch, "/indexes/"+url.PathEscape(uid)+"/settings", settingsBody(s))
		if err != nil {
			return err
		}
		return bridge.Unmarshal(data, &h)
	})
	if err != nil {
		return task.Handle{}, err
	}
	return h, nil
}

// settingsBody keeps only the fields the caller set. Nested typo tolerance
// and faceting objects are merged field by field by Meilisearch, so their
// unset sub-fields are left out too.
func settingsBody(s settings.Settings) map[string]any {
	body := map[string]any{}
	lists := []struct {
		key string
		v   []string
	}{
		{"rankingRules", s.RankingRules},
		{"searchableAttributes", s.SearchableAttributes},
		{"displayedAttributes", s.DisplayedAttributes},
		{"stopWords", s.StopWords},
		{"filterableAttributes", s.FilterableAttributes},
		{"sortableAttributes", s.SortableAttributes},
		{"separatorTokens", s.SeparatorTokens},
		{"nonSeparatorTokens", s.NonSeparatorTokens},
		{"dictionary", s.Dictionary},
	}
	for _, l := range lists {
		if l.v != nil {
			body[l.key] = l.v
		}
	}
	if s.DistinctAttribute != nil {
		body["distinctAttribute"] = *s.DistinctAttribute
	}
	if s.Synonyms != nil {
		body["synonyms"] = s.Synonyms
	}

	if t := s.TypoTolerance; t != nil {
		typo := map[string]any{}
		if t.Enabled != nil {
			typo["enabled"] = *t.Enabled
		}
		if t.MinWordSizeForTypos != nil {
			typo["minWordSizeForTypos"] = t.MinWordSizeForTypos
		}
		if t.DisableOnWords != nil {
			typo["disableOnWords"] = t.DisableOnWords
		}
		if t.DisableOnAttributes != nil {
			typo["disableOnAttributes"] = t.DisableOnAttributes
		}
		body["typoTolerance"] = typo
	}
	if f := s.Faceting; f != nil {
		facet := map[string]any{}
		if f.MaxValuesPerFacet != nil {
			facet["maxValuesPerFacet"] = *f.MaxValuesPerFacet
		}
		if f.SortFacetValuesBy != nil {
			facet["sortFacetValuesBy"] = f.SortFacetValuesBy
		}
		body["faceting"] = facet
	}
	return body
}

// ResetSettings enqueues a reset of every setting to its default.
func (c *Client) ResetSettings(ctx context.Context, uid string) (task.Handle, error) {
	var info *meilisearch.TaskInfo
	err := c.do(ctx, OpResetSettings, func() (err error) {
		info, err = c.sm.Index(uid).ResetSettingsWithContext(ctx)
		return err
	})
	if err != nil {
		return task.Handle{}, err
	}
	return toHandle(info)
}

// ResetAttribute enqueues a reset of one setting to its default.
func (c *Client) ResetAttribute(ctx context.Context, uid string, attr settings.Attribute) (task.Handle, error) {
	idx := c.sm.Index(uid)

	var reset func(context.Context) (*meilisearch.TaskInfo, error)
	switch attr {
	case settings.RankingRules:
		reset = idx.ResetRankingRulesWithContext
	case settings.DistinctAttribute:
		reset = idx.ResetDistinctAttributeWithContext
	case settings.SearchableAttributes:
		reset = idx.ResetSearchableAttributesWithContext
	case settings.DisplayedAttributes:
		reset = idx.ResetDisplayedAttributesWithContext
	case settings.FilterableAttributes:
		reset = idx.ResetFilterableAttributesWithContext
	case settings.SortableAttributes:
		reset = idx.ResetSortableAttributesWithContext
	case settings.StopWords:
		reset = idx.ResetStopWordsWithContext
	case settings.Synonyms:
		reset = idx.ResetSynonymsWithContext
	case settings.TypoToleranceAttr:
		reset = idx.ResetTypoToleranceWithContext
	case settings.FacetingAttr:
		reset = idx.ResetFacetingWithContext
	default:
		return task.Handle{}, fmt.Errorf("%w: unknown setting %q", domain.ErrBadRequest, attr)
	}

	var info *meilisearch.TaskInfo
	err := c.do(ctx, OpResetAttribute, func() (err error) {
		info, err = reset(ctx)
		return err
	})
	if err != nil {
		return task.Handle{}, err
	}
	return toHandle(info)
}
