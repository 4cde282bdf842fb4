package chi

import (
	"encoding/json"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/meiligate/internal/domain"
	"github.com/kailas-cloud/meiligate/internal/domain/settings"
	logpkg "github.com/kailas-cloud/meiligate/internal/logger"
)

type indexRequest struct {
	UID        string `json:"uid"`
	PrimaryKey string `json:"primaryKey"`
}

type primaryKeyResponse struct {
	PrimaryKey *string `json:"primaryKey"`
}

func (s *Server) indexRoutes(r gochi.Router) {
	r.Post("/", s.CreateIndex)
	r.Get("/", s.ListIndexes)
	r.Patch("/", s.UpdateIndex)

	r.Delete("/delete-if-exists/{uid}", s.DeleteIndexIfExists)
	r.Get("/primary-key/{uid}", s.GetPrimaryKey)
	r.Get("/stats/{uid}", s.GetIndexStats)

	for _, attr := range settings.Attributes {
		r.Get("/"+attr.Path()+"/{uid}", s.getAttribute(attr))
		r.Patch("/"+attr.Path(), s.updateAttribute(attr))
		r.Delete("/"+attr.Path()+"/{uid}", s.resetAttribute(attr))
	}

	r.Get("/{uid}", s.GetIndex)
	r.Delete("/{uid}", s.DeleteIndex)
}

// CreateIndex handles POST /indexes.
func (s *Server) CreateIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := decodeBody(w, r, s.maxBodyBytes, &req); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	r = r.WithContext(logpkg.With(r.Context(), zap.String("index", req.UID)))

	info, err := s.svc.Indexes.Create(r.Context(), req.UID, req.PrimaryKey)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// ListIndexes handles GET /indexes.
func (s *Server) ListIndexes(w http.ResponseWriter, r *http.Request) {
	infos, err := s.svc.Indexes.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// GetIndex handles GET /indexes/{uid}.
func (s *Server) GetIndex(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.Indexes.Get(r.Context(), gochi.URLParam(r, "uid"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// UpdateIndex handles PATCH /indexes.
func (s *Server) UpdateIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := decodeBody(w, r, s.maxBodyBytes, &req); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if req.UID == "" {
		s.handleDomainError(w, r, domain.BadRequest("uid is required"))
		return
	}

	info, err := s.svc.Indexes.Update(r.Context(), req.UID, req.PrimaryKey)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// DeleteIndex handles DELETE /indexes/{uid}.
func (s *Server) DeleteIndex(w http.ResponseWriter, r *http.Request) {
	h, err := s.svc.Indexes.Delete(r.Context(), gochi.URLParam(r, "uid"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h)
}

// DeleteIndexIfExists handles DELETE /indexes/delete-if-exists/{uid}.
func (s *Server) DeleteIndexIfExists(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Indexes.DeleteIfExists(r.Context(), gochi.URLParam(r, "uid")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPrimaryKey handles GET /indexes/primary-key/{uid}.
func (s *Server) GetPrimaryKey(w http.ResponseWriter, r *http.Request) {
	pk, err := s.svc.Indexes.PrimaryKey(r.Context(), gochi.URLParam(r, "uid"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, primaryKeyResponse{PrimaryKey: pk})
}

// GetIndexStats handles GET /indexes/stats/{uid}.
func (s *Server) GetIndexStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Indexes.Stats(r.Context(), gochi.URLParam(r, "uid"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) getAttribute(attr settings.Attribute) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := s.svc.Indexes.GetAttribute(r.Context(), gochi.URLParam(r, "uid"), attr)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		if attr == settings.FacetingAttr {
			writeJSON(w, http.StatusOK, v)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{attr.Key(): v})
	}
}

func (s *Server) updateAttribute(attr settings.Attribute) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, err := readBody(w, r, s.maxBodyBytes)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		uid, err := requireUID(fields)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		raw, err := attributeValue(attr, fields)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}

		h, err := s.svc.Indexes.UpdateAttribute(r.Context(), uid, attr, raw)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, h)
	}
}

// attributeValue picks the attribute's value out of a {uid, <key>: value}
// body. Faceting also accepts its fields inline next to uid.
func attributeValue(attr settings.Attribute, fields map[string]json.RawMessage) (json.RawMessage, error) {
	if raw, ok := fields[attr.Key()]; ok {
		return raw, nil
	}
	if attr != settings.FacetingAttr {
		return nil, nil
	}

	inline := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		if k != "uid" {
			inline[k] = v
		}
	}
	if len(inline) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(inline)
	if err != nil {
		return nil, domain.BadRequest("invalid faceting: %v", err)
	}
	return raw, nil
}

func (s *Server) resetAttribute(attr settings.Attribute) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := s.svc.Indexes.ResetAttribute(r.Context(), gochi.URLParam(r, "uid"), attr)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, h)
	}
}
