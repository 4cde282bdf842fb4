package document

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/meiligate/internal/domain"
	domdoc "github.com/kailas-cloud/meiligate/internal/domain/document"
	"github.com/kailas-cloud/meiligate/internal/domain/task"
	"github.com/kailas-cloud/meiligate/internal/metrics"
)

// DefaultPageSize is the listing window used when the caller gives none.
const DefaultPageSize = 20

// Mode selects how submitted documents meet existing ones.
type Mode int

const (
	// ModeAdd replaces documents with the same primary key.
	ModeAdd Mode = iota
	// ModeUpdate merges fields into documents with the same primary key.
	ModeUpdate
)

func (m Mode) String() string {
	if m == ModeUpdate {
		return "update"
	}
	return "add"
}

// Submission is a set of documents bound for one index.
type Submission struct {
	UID        string
	Documents  []domdoc.Document
	PrimaryKey string
	Mode       Mode
}

func (s *Submission) validate() error {
	if s.UID == "" {
		return domain.BadRequest("uid is required")
	}
	if s.Documents == nil {
		return domain.BadRequest("documents is required")
	}
	return nil
}

// Service handles document writes, reads and deletes.
type Service struct {
	acquire        Acquirer
	maxPayloadSize int
	pageSize       int64
}

// New creates a document service.
func New(acquire Acquirer) *Service {
	return &Service{
		acquire:        acquire,
		maxPayloadSize: domdoc.DefaultMaxPayloadSize,
		pageSize:       DefaultPageSize,
	}
}

// WithMaxPayloadSize configures the default auto-batch bound in bytes.
func (s *Service) WithMaxPayloadSize(size int) *Service {
	if size > 0 {
		s.maxPayloadSize = size
	}
	return s
}

// WithPageSize configures the default listing window.
func (s *Service) WithPageSize(size int64) *Service {
	if size > 0 {
		s.pageSize = size
	}
	return s
}

// Submit sends all documents as one task.
func (s *Service) Submit(ctx context.Context, sub Submission) (task.Handle, error) {
	if err := sub.validate(); err != nil {
		return task.Handle{}, err
	}

	gw, release, err := s.acquire(ctx)
	if err != nil {
		return task.Handle{}, err
	}
	defer release()

	h, err := submit(ctx, gw, sub, sub.Documents)
	if err != nil {
		return task.Handle{}, fmt.Errorf("%s documents: %w", sub.Mode, err)
	}
	return h, nil
}

// SubmitBatches splits the documents into chunks of batchSize and submits
// them in order, one task per chunk.
func (s *Service) SubmitBatches(ctx context.Context, sub Submission, batchSize int) ([]task.Handle, error) {
	if err := sub.validate(); err != nil {
		return nil, err
	}
	chunks, err := domdoc.ChunkBySize(sub.Documents, batchSize)
	if err != nil {
		return nil, err
	}
	return s.submitChunks(ctx, sub, chunks, "size")
}

// SubmitAutoBatch groups the documents so that each task's serialized
// payload stays within maxPayloadSize bytes (the service default when <= 0).
func (s *Service) SubmitAutoBatch(ctx context.Context, sub Submission, maxPayloadSize int) ([]task.Handle, error) {
	if err := sub.validate(); err != nil {
		return nil, err
	}
	if maxPayloadSize <= 0 {
		maxPayloadSize = s.maxPayloadSize
	}
	chunks, err := domdoc.ChunkByPayload(sub.Documents, maxPayloadSize)
	if err != nil {
		return nil, err
	}
	return s.submitChunks(ctx, sub, chunks, "payload")
}

// submitChunks submits sequentially and stops before the next chunk once ctx
// is done. Chunks already submitted stay submitted; their handles are
// returned alongside the error.
func (s *Service) submitChunks(ctx context.Context, sub Submission, chunks [][]domdoc.Document, mode string) ([]task.Handle, error) {
	gw, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	handles := make([]task.Handle, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return handles, fmt.Errorf("%s documents: chunk %d of %d: %w", sub.Mode, i+1, len(chunks), err)
		}
		h, err := submit(ctx, gw, sub, chunk)
		if err != nil {
			return handles, fmt.Errorf("%s documents: chunk %d of %d: %w", sub.Mode, i+1, len(chunks), err)
		}
		metrics.DocumentChunksTotal.WithLabelValues(mode).Inc()
		handles = append(handles, h)
	}
	return handles, nil
}

func submit(ctx context.Context, gw Gateway, sub Submission, docs []domdoc.Document) (task.Handle, error) {
	if sub.Mode == ModeUpdate {
		return gw.UpdateDocuments(ctx, sub.UID, docs, sub.PrimaryKey)
	}
	return gw.AddDocuments(ctx, sub.UID, docs, sub.PrimaryKey)
}

// List returns one window of documents. Limit 0 selects the default window.
func (s *Service) List(ctx context.Context, uid string, q domdoc.ListQuery) (domdoc.Page, error) {
	if q.Offset < 0 || q.Limit < 0 {
		return domdoc.Page{}, domain.BadRequest("offset and limit must not be negative")
	}
	if q.Limit == 0 {
		q.Limit = s.pageSize
	}

	gw, release, err := s.acquire(ctx)
	if err != nil {
		return domdoc.Page{}, err
	}
	defer release()

	page, err := gw.GetDocuments(ctx, uid, q)
	if err != nil {
		return domdoc.Page{}, fmt.Errorf("list documents: %w", err)
	}
	if page.Results == nil {
		page.Results = []domdoc.Document{}
	}
	return page, nil
}

// Get returns one document by id.
func (s *Service) Get(ctx context.Context, uid, id string, fields []string) (domdoc.Document, error) {
	gw, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	doc, err := gw.GetDocument(ctx, uid, id, fields)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Delete enqueues deletion of one document.
func (s *Service) Delete(ctx context.Context, uid, id string) (task.Handle, error) {
	gw, release, err := s.acquire(ctx)
	if err != nil {
		return task.Handle{}, err
	}
	defer release()

	h, err := gw.DeleteDocument(ctx, uid, id)
	if err != nil {
		return task.Handle{}, fmt.Errorf("delete document: %w", err)
	}
	return h, nil
}

// DeleteMany enqueues deletion of the listed documents.
func (s *Service) DeleteMany(ctx context.Context, uid string, ids []string) (task.Handle, error) {
	if uid == "" {
		return task.Handle{}, domain.BadRequest("uid is required")
	}
	if len(ids) == 0 {
		return task.Handle{}, domain.BadRequest("documentIds must not be empty")
	}

	gw, release, err := s.acquire(ctx)
	if err != nil {
		return task.Handle{}, err
	}
	defer release()

	h, err := gw.DeleteDocuments(ctx, uid, ids)
	if err != nil {
		return task.Handle{}, fmt.Errorf("delete documents: %w", err)
	}
	return h, nil
}

// DeleteAll enqueues deletion of every document in the index.
func (s *Service) DeleteAll(ctx context.Context, uid string) (task.Handle, error) {
	gw, release, err := s.acquire(ctx)
	if err != nil {
		return task.Handle{}, err
	}
	defer release()

	h, err := gw.DeleteAllDocuments(ctx, uid)
	if err != nil {
		return task.Handle{}, fmt.Errorf("delete all documents: %w", err)
	}
	return h, nil
}
