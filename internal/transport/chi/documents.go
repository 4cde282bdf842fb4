package chi

import (
	"encoding/json"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/meiligate/internal/domain"
	domdoc "github.com/kailas-cloud/meiligate/internal/domain/document"
	logpkg "github.com/kailas-cloud/meiligate/internal/logger"
	documentuc "github.com/kailas-cloud/meiligate/internal/usecase/document"
)

type documentsRequest struct {
	UID            string            `json:"uid"`
	Documents      []domdoc.Document `json:"documents"`
	PrimaryKey     string            `json:"primaryKey"`
	BatchSize      *int              `json:"batchSize"`
	MaxPayloadSize *int              `json:"maxPayloadSize"`
}

func (req *documentsRequest) submission(mode documentuc.Mode) documentuc.Submission {
	return documentuc.Submission{
		UID:        req.UID,
		Documents:  req.Documents,
		PrimaryKey: req.PrimaryKey,
		Mode:       mode,
	}
}

type deleteDocumentsRequest struct {
	UID         string      `json:"uid"`
	DocumentIDs documentIDs `json:"documentIds"`
}

// documentIDs accepts ids given as strings or as integers.
type documentIDs []string

func (ids *documentIDs) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.BadRequest("documentIds must be a list: %v", err)
	}
	out := make([]string, 0, len(raw))
	for i, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out = append(out, s)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(v, &n); err != nil {
			return domain.BadRequest("documentIds[%d] must be a string or a number", i)
		}
		out = append(out, n.String())
	}
	*ids = out
	return nil
}

func (s *Server) documentRoutes(r gochi.Router) {
	r.Post("/", s.submitDocuments(documentuc.ModeAdd))
	r.Put("/", s.submitDocuments(documentuc.ModeUpdate))
	r.Post("/batches", s.submitBatches(documentuc.ModeAdd))
	r.Put("/batches", s.submitBatches(documentuc.ModeUpdate))
	r.Post("/auto-batch", s.submitAutoBatch(documentuc.ModeAdd))
	r.Put("/auto-batch", s.submitAutoBatch(documentuc.ModeUpdate))

	r.Post("/delete", s.DeleteDocuments)

	r.Get("/{uid}", s.ListDocuments)
	r.Delete("/{uid}", s.DeleteAllDocuments)
	r.Get("/{uid}/{id}", s.GetDocument)
	r.Delete("/{uid}/{id}", s.DeleteDocument)
}

// decodeDocuments reads a submission body and tags the request logger.
func (s *Server) decodeDocuments(w http.ResponseWriter, r *http.Request) (*documentsRequest, *http.Request, error) {
	var req documentsRequest
	if err := decodeBody(w, r, s.maxBodyBytes, &req); err != nil {
		return nil, r, err
	}
	ctx := logpkg.With(r.Context(),
		zap.String("index", req.UID),
		zap.Int("documents", len(req.Documents)),
	)
	return &req, r.WithContext(ctx), nil
}

func (s *Server) submitDocuments(mode documentuc.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, r, err := s.decodeDocuments(w, r)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		h, err := s.svc.Documents.Submit(r.Context(), req.submission(mode))
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, h)
	}
}

func (s *Server) submitBatches(mode documentuc.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, r, err := s.decodeDocuments(w, r)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		if req.BatchSize == nil {
			s.handleDomainError(w, r, domain.BadRequest("batchSize is required"))
			return
		}
		handles, err := s.svc.Documents.SubmitBatches(r.Context(), req.submission(mode), *req.BatchSize)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, handles)
	}
}

func (s *Server) submitAutoBatch(mode documentuc.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, r, err := s.decodeDocuments(w, r)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		var maxPayload int
		if req.MaxPayloadSize != nil {
			if *req.MaxPayloadSize <= 0 {
				s.handleDomainError(w, r, domain.BadRequest("maxPayloadSize must be positive"))
				return
			}
			maxPayload = *req.MaxPayloadSize
		}
		handles, err := s.svc.Documents.SubmitAutoBatch(r.Context(), req.submission(mode), maxPayload)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, handles)
	}
}

// ListDocuments handles GET /documents/{uid}.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	var q domdoc.ListQuery
	for name, dst := range map[string]any{"offset": &q.Offset, "limit": &q.Limit, "fields": &q.Fields} {
		if err := bindQuery(r, name, dst); err != nil {
			s.handleDomainError(w, r, err)
			return
		}
	}

	page, err := s.svc.Documents.List(r.Context(), gochi.URLParam(r, "uid"), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetDocument handles GET /documents/{uid}/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	var fields []string
	if err := bindQuery(r, "fields", &fields); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	doc, err := s.svc.Documents.Get(r.Context(), gochi.URLParam(r, "uid"), gochi.URLParam(r, "id"), fields)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /documents/{uid}/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	h, err := s.svc.Documents.Delete(r.Context(), gochi.URLParam(r, "uid"), gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h)
}

// DeleteDocuments handles POST /documents/delete.
func (s *Server) DeleteDocuments(w http.ResponseWriter, r *http.Request) {
	var req deleteDocumentsRequest
	if err := decodeBody(w, r, s.maxBodyBytes, &req); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	h, err := s.svc.Documents.DeleteMany(r.Context(), req.UID, req.DocumentIDs)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h)
}

// DeleteAllDocuments handles DELETE /documents/{uid}.
func (s *Server) DeleteAllDocuments(w http.ResponseWriter, r *http.Request) {
	h, err := s.svc.Documents.DeleteAll(r.Context(), gochi.URLParam(r, "uid"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h)
}
