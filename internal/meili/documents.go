package meili

import (
	"context"

	"github.com/meilisearch/meilisearch-go"

	"github.com/kailas-cloud/meiligate/internal/domain/document"
	"github.com/kailas-cloud/meiligate/internal/domain/task"
)

func primaryKeyArg(pk string) []string {
	if pk == "" {
		return nil
	}
	return []string{pk}
}

// AddDocuments enqueues an insert-or-replace of docs.
func (c *Client) AddDocuments(ctx context.Context, uid string, docs []document.Document, primaryKey string) (task.Handle, error) {
	var info *meilisearch.TaskInfo
	err := c.do(ctx, OpAddDocuments, func() (err error) {
		info, err = c.sm.Index(uid).AddDocumentsWithContext(ctx, docs, primaryKeyArg(primaryKey)...)
		return err
	})
	if err != nil {
		return task.Handle{}, err
	}
	return toHandle(info)
}

// UpdateDocuments enqueues an insert-or-merge of docs.
func (c *Client) UpdateDocuments(ctx context.Context, uid string, docs []document.Document, primaryKey string) (task.Handle, error) {
	var info *meilisearch.TaskInfo
	err := c.do(ctx, OpUpdateDocs, func() (err error) {
		info, err = c.sm.Index(uid).UpdateDocumentsWithContext(ctx, docs, primaryKeyArg(primaryKey)...)
		return err
	})
	if err != nil {
		return task.Handle{}, err
	}
	return toHandle(info)
}

// GetDocuments fetches one window of documents.
func (c *Client) GetDocuments(ctx context.Context, uid string, q document.ListQuery) (document.Page, error) {
	var res meilisearch.DocumentsResult
	err := c.do(ctx, OpGetDocuments, func() error {
		return c.sm.Index(uid).GetDocumentsWithContext(ctx, &meilisearch.DocumentsQuery{
			Offset: q.Offset,
			Limit:  q.Limit,
			Fields: q.Fields,
		}, &res)
	})
	if err != nil {
		return document.Page{}, err
	}

	var page document.Page
	if err := convert(&res, &page); err != nil {
		return document.Page{}, err
	}
	if page.Results == nil {
		page.Results = []document.Document{}
	}
	return page, nil
}

// GetDocument fetches one document by primary key value.
func (c *Client) GetDocument(ctx context.Context, uid, id string, fields []string) (document.Document, error) {
	doc := document.Document{}
	err := c.do(ctx, OpGetDocument, func() error {
		return c.sm.Index(uid).GetDocumentWithContext(ctx, id, &meilisearch.DocumentQuery{Fields: fields}, &doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteDocument enqueues deletion of one document.
func (c *Client) DeleteDocument(ctx context.Context, uid, id string) (task.Handle, error) {
	var info *meilisearch.TaskInfo
	err := c.do(ctx, OpDeleteDocument, func() (err error) {
		info, err = c.sm.Index(uid).DeleteDocumentWithContext(ctx, id)
		return err
	})
	if err != nil {
		return task.Handle{}, err
	}
	return toHandle(info)
}

// DeleteDocuments enqueues deletion of the listed documents.
func (c *Client) DeleteDocuments(ctx context.Context, uid string, ids []string) (task.Handle, error) {
	var info *meilisearch.TaskInfo
	err := c.do(ctx, OpDeleteDocs, func() (err error) {
		info, err = c.sm.Index(uid).DeleteDocumentsWithContext(ctx, ids)
		return err
	})
	if err != nil {
		return task.Handle{}, err
	}
	return toHandle(info)
}

// DeleteAllDocuments enqueues deletion of every document in the index.
func (c *Client) DeleteAllDocuments(ctx context.Context, uid string) (task.Handle, error) {
	var info *meilisearch.TaskInfo
	err := c.do(ctx, OpDeleteAllDocs, func() (err error) {
		info, err = c.sm.Index(uid).DeleteAllDocumentsWithContext(ctx)
		return err
	})
	if err != nil {
		return task.Handle{}, err
	}
	return toHandle(info)
}
