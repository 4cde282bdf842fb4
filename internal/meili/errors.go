package meili

import (
	"context"
	"errors"
	"fmt"

	"github.com/meilisearch/meilisearch-go"

	"github.com/kailas-cloud/meiligate/internal/domain"
)

// Op names label upstream calls in metrics and error context.
const (
	OpCreateIndex    = "create_index"
	OpGetIndex       = "get_index"
	OpListIndexes    = "list_indexes"
	OpUpdateIndex    = "update_index"
	OpDeleteIndex    = "delete_index"
	OpIndexStats     = "index_stats"
	OpAddDocuments   = "add_documents"
	OpUpdateDocs     = "update_documents"
	OpGetDocument    = "get_document"
	OpGetDocuments   = "get_documents"
	OpDeleteDocument = "delete_document"
	OpDeleteDocs     = "delete_documents"
	OpDeleteAllDocs  = "delete_all_documents"
	OpSearch         = "search"
	OpGetSettings    = "get_settings"
	OpUpdateSettings = "update_settings"
	OpResetSettings  = "reset_settings"
	OpResetAttribute = "reset_attribute"
	OpWaitTask       = "wait_task"
	OpHealth         = "health"
	OpVersion        = "version"
	OpStats          = "stats"
	OpListKeys       = "list_keys"
	OpGetKey         = "get_key"
	OpCreateKey      = "create_key"
	OpUpdateKey      = "update_key"
	OpDeleteKey      = "delete_key"
	OpTenantToken    = "tenant_token"
)

// Error wraps an upstream failure with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// translate maps a meilisearch-go failure onto the domain taxonomy.
// Cancellation wins over whatever the client reported.
func translate(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &Error{Op: op, Err: ctxErr}
	}

	var up *domain.UpstreamError
	if errors.As(err, &up) {
		return &Error{Op: op, Err: up}
	}

	var apiErr *meilisearch.Error
	if errors.As(err, &apiErr) {
		up := &domain.UpstreamError{
			Status:  apiErr.StatusCode,
			Code:    apiErr.MeilisearchApiError.Code,
			Type:    apiErr.MeilisearchApiError.Type,
			Message: apiErr.MeilisearchApiError.Message,
			Link:    apiErr.MeilisearchApiError.Link,
		}
		if up.Message == "" {
			up.Message = apiErr.Error()
		}
		return &Error{Op: op, Err: up}
	}

	return &Error{Op: op, Err: fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)}
}
