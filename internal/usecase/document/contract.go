package document

import (
	"context"

	domdoc "github.com/kailas-cloud/meiligate/internal/domain/document"
	"github.com/kailas-cloud/meiligate/internal/domain/task"
)

// Gateway is the slice of the Meilisearch client used for documents.
type Gateway interface {
	AddDocuments(ctx context.Context, uid string, docs []domdoc.Document, primaryKey string) (task.Handle, error)
	UpdateDocuments(ctx context.Context, uid string, docs []domdoc.Document, primaryKey string) (task.Handle, error)
	GetDocuments(ctx context.Context, uid string, q domdoc.ListQuery) (domdoc.Page, error)
	GetDocument(ctx context.Context, uid, id string, fields []string) (domdoc.Document, error)
	DeleteDocument(ctx context.Context, uid, id string) (task.Handle, error)
	DeleteDocuments(ctx context.Context, uid string, ids []string) (task.Handle, error)
	DeleteAllDocuments(ctx context.Context, uid string) (task.Handle, error)
}

// Acquirer leases a Gateway for one call. release must always be called.
type Acquirer func(ctx context.Context) (gw Gateway, release func(), err error)
