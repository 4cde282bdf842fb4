package chi

import (
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	domset "github.com/kailas-cloud/meiligate/internal/domain/settings"
	logpkg "github.com/kailas-cloud/meiligate/internal/logger"
)

// settingsRequest is a flat {uid, ...settings} body.
type settingsRequest struct {
	UID string `json:"uid"`
	domset.Settings
}

func (s *Server) settingsRoutes(r gochi.Router) {
	r.Get("/{uid}", s.GetSettings)
	r.Patch("/", s.UpdateSettings)
	r.Post("/", s.UpdateSettings)
	r.Put("/", s.ReplaceSettings)
	r.Delete("/{uid}", s.ResetSettings)
}

func (s *Server) decodeSettings(w http.ResponseWriter, r *http.Request) (*settingsRequest, *http.Request, error) {
	var req settingsRequest
	if err := decodeBody(w, r, s.maxBodyBytes, &req); err != nil {
		return nil, r, err
	}
	return &req, r.WithContext(logpkg.With(r.Context(), zap.String("index", req.UID))), nil
}

// GetSettings handles GET /settings/{uid}.
func (s *Server) GetSettings(w http.ResponseWriter, r *http.Request) {
	bundle, err := s.svc.Settings.Get(r.Context(), gochi.URLParam(r, "uid"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

// UpdateSettings handles PATCH /settings. Omitted fields stay unchanged.
func (s *Server) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	req, r, err := s.decodeSettings(w, r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	h, err := s.svc.Settings.Update(r.Context(), req.UID, req.Settings)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h)
}

// ReplaceSettings handles PUT /settings: reset, then apply the bundle.
func (s *Server) ReplaceSettings(w http.ResponseWriter, r *http.Request) {
	req, r, err := s.decodeSettings(w, r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	handles, err := s.svc.Settings.Replace(r.Context(), req.UID, req.Settings)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, handles)
}

// ResetSettings handles DELETE /settings/{uid}.
func (s *Server) ResetSettings(w http.ResponseWriter, r *http.Request) {
	h, err := s.svc.Settings.Reset(r.Context(), gochi.URLParam(r, "uid"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h)
}
