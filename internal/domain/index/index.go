// Package index holds index descriptors returned by Meilisearch.
package index

import (
	"regexp"

	"github.com/kailas-cloud/meiligate/internal/domain"
)

var uidPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,400}$`)

// ValidateUID checks the uid against Meilisearch's index naming rules.
func ValidateUID(uid string) error {
	if uid == "" {
		return domain.BadRequest("index uid is required")
	}
	if !uidPattern.MatchString(uid) {
		return domain.BadRequest("invalid index uid %q: only alphanumeric characters, hyphens and underscores are allowed", uid)
	}
	return nil
}

// Info describes an index.
type Info struct {
	UID        string           `json:"uid"`
	PrimaryKey *string          `json:"primaryKey"`
	CreatedAt  domain.Timestamp `json:"createdAt"`
	UpdatedAt  domain.Timestamp `json:"updatedAt"`
}

// Stats are the per-index statistics.
type Stats struct {
	NumberOfDocuments int64            `json:"numberOfDocuments"`
	IsIndexing        bool             `json:"isIndexing"`
	FieldDistribution map[string]int64 `json:"fieldDistribution"`
}
