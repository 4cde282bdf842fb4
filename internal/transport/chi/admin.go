package chi

import (
	"net/http"

	gochi "github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/meiligate/internal/domain/key"
)

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) adminRoutes(r gochi.Router) {
	r.Get("/health", s.MeiliHealth)
	r.Get("/version", s.MeiliVersion)
	r.Get("/stats", s.MeiliStats)

	r.Get("/keys", s.ListKeys)
	r.Post("/keys", s.CreateKey)
	r.Get("/keys/{key}", s.GetKey)
	r.Patch("/keys/{key}", s.UpdateKey)
	r.Delete("/keys/{key}", s.DeleteKey)

	r.Post("/generate-tenant-token", s.GenerateTenantToken)
}

// MeiliHealth handles GET /meilisearch/health.
func (s *Server) MeiliHealth(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.Admin.Health(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: status})
}

// MeiliVersion handles GET /meilisearch/version.
func (s *Server) MeiliVersion(w http.ResponseWriter, r *http.Request) {
	raw, err := s.svc.Admin.Version(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, raw)
}

// MeiliStats handles GET /meilisearch/stats.
func (s *Server) MeiliStats(w http.ResponseWriter, r *http.Request) {
	raw, err := s.svc.Admin.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, raw)
}

// ListKeys handles GET /meilisearch/keys.
func (s *Server) ListKeys(w http.ResponseWriter, r *http.Request) {
	var q key.ListQuery
	if err := bindQuery(r, "offset", &q.Offset); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := bindQuery(r, "limit", &q.Limit); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	page, err := s.svc.Admin.ListKeys(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// CreateKey handles POST /meilisearch/keys.
func (s *Server) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req key.CreateRequest
	if err := decodeBody(w, r, s.maxBodyBytes, &req); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	k, err := s.svc.Admin.CreateKey(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, k)
}

// GetKey handles GET /meilisearch/keys/{key}.
func (s *Server) GetKey(w http.ResponseWriter, r *http.Request) {
	k, err := s.svc.Admin.GetKey(r.Context(), gochi.URLParam(r, "key"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, k)
}

// UpdateKey handles PATCH /meilisearch/keys/{key}.
func (s *Server) UpdateKey(w http.ResponseWriter, r *http.Request) {
	var req key.UpdateRequest
	if err := decodeBody(w, r, s.maxBodyBytes, &req); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	k, err := s.svc.Admin.UpdateKey(r.Context(), gochi.URLParam(r, "key"), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, k)
}

// DeleteKey handles DELETE /meilisearch/keys/{key}.
func (s *Server) DeleteKey(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Admin.DeleteKey(r.Context(), gochi.URLParam(r, "key")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateTenantToken handles POST /meilisearch/generate-tenant-token.
func (s *Server) GenerateTenantToken(w http.ResponseWriter, r *http.Request) {
	var req key.TenantTokenRequest
	if err := decodeBody(w, r, s.maxBodyBytes, &req); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	tok, err := s.svc.Admin.TenantToken(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}
