// Package settings models an index's configurable behaviours.
package settings

import (
	"encoding/json"
	"errors"

	"github.com/kailas-cloud/meiligate/internal/domain"
)

// DefaultRankingRules are the engine defaults restored by a reset.
var DefaultRankingRules = []string{"words", "typo", "proximity", "attribute", "sort", "exactness"}

// Settings is the full settings bundle of an index.
// A nil field means "not provided" on update and "unset" on read.
type Settings struct {
	RankingRules         []string            `json:"rankingRules"`
	DistinctAttribute    *string             `json:"distinctAttribute"`
	SearchableAttributes []string            `json:"searchableAttributes"`
	DisplayedAttributes  []string            `json:"displayedAttributes"`
	StopWords            []string            `json:"stopWords"`
	Synonyms             map[string][]string `json:"synonyms"`
	FilterableAttributes []string            `json:"filterableAttributes"`
	SortableAttributes   []string            `json:"sortableAttributes"`
	TypoTolerance        *TypoTolerance      `json:"typoTolerance"`
	Faceting             *Faceting           `json:"faceting"`
	SeparatorTokens      []string            `json:"separatorTokens"`
	NonSeparatorTokens   []string            `json:"nonSeparatorTokens"`
	Dictionary           []string            `json:"dictionary"`
}

// IsEmpty reports whether no field was provided.
func (s *Settings) IsEmpty() bool {
	return s.RankingRules == nil && s.DistinctAttribute == nil &&
		s.SearchableAttributes == nil && s.DisplayedAttributes == nil &&
		s.StopWords == nil && s.Synonyms == nil &&
		s.FilterableAttributes == nil && s.SortableAttributes == nil &&
		s.TypoTolerance == nil && s.Faceting == nil &&
		s.SeparatorTokens == nil && s.NonSeparatorTokens == nil && s.Dictionary == nil
}

// Filled returns a copy where unset collections read as empty rather than null.
func (s Settings) Filled() Settings {
	fill := func(v []string) []string {
		if v == nil {
			return []string{}
		}
		return v
	}
	s.RankingRules = fill(s.RankingRules)
	s.SearchableAttributes = fill(s.SearchableAttributes)
	s.DisplayedAttributes = fill(s.DisplayedAttributes)
	s.StopWords = fill(s.StopWords)
	s.FilterableAttributes = fill(s.FilterableAttributes)
	s.SortableAttributes = fill(s.SortableAttributes)
	s.SeparatorTokens = fill(s.SeparatorTokens)
	s.NonSeparatorTokens = fill(s.NonSeparatorTokens)
	s.Dictionary = fill(s.Dictionary)
	if s.Synonyms == nil {
		s.Synonyms = map[string][]string{}
	}
	return s
}

// MinWordSizeForTypos sets the word lengths from which typos are accepted.
type MinWordSizeForTypos struct {
	OneTypo  *int64 `json:"oneTypo,omitempty"`
	TwoTypos *int64 `json:"twoTypos,omitempty"`
}

// TypoTolerance configures fuzzy matching.
type TypoTolerance struct {
	Enabled             *bool                `json:"enabled,omitempty"`
	MinWordSizeForTypos *MinWordSizeForTypos `json:"minWordSizeForTypos,omitempty"`
	DisableOnWords      []string             `json:"disableOnWords,omitempty"`
	DisableOnAttributes []string             `json:"disableOnAttributes,omitempty"`
}

// IsEmpty reports whether the object carries no setting at all.
func (t *TypoTolerance) IsEmpty() bool {
	return t.Enabled == nil && t.MinWordSizeForTypos == nil &&
		t.DisableOnWords == nil && t.DisableOnAttributes == nil
}

// Faceting configures facet value retrieval.
type Faceting struct {
	MaxValuesPerFacet *int64            `json:"maxValuesPerFacet,omitempty"`
	SortFacetValuesBy map[string]string `json:"sortFacetValuesBy,omitempty"`
}

// IsEmpty reports whether the object carries no setting at all.
func (f *Faceting) IsEmpty() bool {
	return f.MaxValuesPerFacet == nil && f.SortFacetValuesBy == nil
}

// Validate checks the facet sort orders.
func (f *Faceting) Validate() error {
	if f.MaxValuesPerFacet != nil && *f.MaxValuesPerFacet < 0 {
		return domain.BadRequest("maxValuesPerFacet must not be negative")
	}
	for attr, order := range f.SortFacetValuesBy {
		if order != "alpha" && order != "count" {
			return domain.BadRequest("sortFacetValuesBy[%s] must be alpha or count, got %q", attr, order)
		}
	}
	return nil
}

// Attribute names one individually addressable setting.
type Attribute string

// Individually addressable settings.
const (
	RankingRules         Attribute = "ranking-rules"
	DistinctAttribute    Attribute = "attributes/distinct"
	SearchableAttributes Attribute = "searchable-attributes"
	DisplayedAttributes  Attribute = "displayed-attributes"
	FilterableAttributes Attribute = "filterable-attributes"
	SortableAttributes   Attribute = "sortable-attributes"
	StopWords            Attribute = "stop-words"
	Synonyms             Attribute = "synonyms"
	TypoToleranceAttr    Attribute = "typo-tolerance"
	FacetingAttr         Attribute = "faceting"
)

// Attributes lists every individually addressable setting in route order.
var Attributes = []Attribute{
	RankingRules, DistinctAttribute, SearchableAttributes, DisplayedAttributes,
	FilterableAttributes, SortableAttributes, StopWords, Synonyms,
	TypoToleranceAttr, FacetingAttr,
}

// Path is the route segment of the attribute.
func (a Attribute) Path() string { return string(a) }

// Key is the JSON key carrying the attribute's value in bodies.
func (a Attribute) Key() string {
	switch a {
	case RankingRules:
		return "rankingRules"
	case DistinctAttribute:
		return "attribute"
	case SearchableAttributes:
		return "searchableAttributes"
	case DisplayedAttributes:
		return "displayedAttributes"
	case FilterableAttributes:
		return "filterableAttributes"
	case SortableAttributes:
		return "sortableAttributes"
	case StopWords:
		return "stopWords"
	case Synonyms:
		return "synonyms"
	case TypoToleranceAttr:
		return "typoTolerance"
	case FacetingAttr:
		return "faceting"
	}
	return string(a)
}

// Value extracts the attribute from a bundle.
func (a Attribute) Value(s *Settings) any {
	switch a {
	case RankingRules:
		return s.RankingRules
	case DistinctAttribute:
		return s.DistinctAttribute
	case SearchableAttributes:
		return s.SearchableAttributes
	case DisplayedAttributes:
		return s.DisplayedAttributes
	case FilterableAttributes:
		return s.FilterableAttributes
	case SortableAttributes:
		return s.SortableAttributes
	case StopWords:
		return s.StopWords
	case Synonyms:
		return s.Synonyms
	case TypoToleranceAttr:
		return s.TypoTolerance
	case FacetingAttr:
		return s.Faceting
	}
	return nil
}

// Partial decodes raw into a bundle that sets only this attribute.
// A null or empty value is rejected: use reset to restore the default.
func (a Attribute) Partial(raw json.RawMessage) (Settings, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Settings{}, domain.BadRequest("%s is required", a.Key())
	}

	var s Settings
	var err error
	switch a {
	case RankingRules:
		err = decodeList(raw, &s.RankingRules)
	case DistinctAttribute:
		var attr string
		if err = json.Unmarshal(raw, &attr); err == nil {
			if attr == "" {
				return Settings{}, domain.BadRequest("attribute must not be empty")
			}
			s.DistinctAttribute = &attr
		}
	case SearchableAttributes:
		err = decodeList(raw, &s.SearchableAttributes)
	case DisplayedAttributes:
		err = decodeList(raw, &s.DisplayedAttributes)
	case FilterableAttributes:
		err = decodeList(raw, &s.FilterableAttributes)
	case SortableAttributes:
		err = decodeList(raw, &s.SortableAttributes)
	case StopWords:
		err = decodeList(raw, &s.StopWords)
	case Synonyms:
		if err = json.Unmarshal(raw, &s.Synonyms); err == nil && len(s.Synonyms) == 0 {
			return Settings{}, domain.BadRequest("synonyms must not be empty")
		}
	case TypoToleranceAttr:
		s.TypoTolerance = &TypoTolerance{}
		if err = json.Unmarshal(raw, s.TypoTolerance); err == nil && s.TypoTolerance.IsEmpty() {
			return Settings{}, domain.BadRequest("typoTolerance must not be empty")
		}
	case FacetingAttr:
		s.Faceting = &Faceting{}
		if err = json.Unmarshal(raw, s.Faceting); err == nil {
			if s.Faceting.IsEmpty() {
				return Settings{}, domain.BadRequest("faceting must not be empty")
			}
			err = s.Faceting.Validate()
		}
	default:
		return Settings{}, domain.BadRequest("unknown setting %q", a)
	}
	if err != nil {
		return Settings{}, wrapDecode(a, err)
	}
	return s, nil
}

func decodeList(raw json.RawMessage, dst *[]string) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return err
	}
	if *dst == nil {
		*dst = []string{}
	}
	return nil
}

func wrapDecode(a Attribute, err error) error {
	if errors.Is(err, domain.ErrBadRequest) {
		return err
	}
	return domain.BadRequest("invalid %s: %v", a.Key(), err)
}
