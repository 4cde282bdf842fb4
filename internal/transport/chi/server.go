package chi

import (
	"encoding/json"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/meiligate/internal/domain"
	logpkg "github.com/kailas-cloud/meiligate/internal/logger"
	adminuc "github.com/kailas-cloud/meiligate/internal/usecase/admin"
	documentuc "github.com/kailas-cloud/meiligate/internal/usecase/document"
	healthuc "github.com/kailas-cloud/meiligate/internal/usecase/health"
	indexuc "github.com/kailas-cloud/meiligate/internal/usecase/index"
	searchuc "github.com/kailas-cloud/meiligate/internal/usecase/search"
	settingsuc "github.com/kailas-cloud/meiligate/internal/usecase/settings"
	"github.com/kailas-cloud/meiligate/internal/version"
)

// Services groups the use cases served over HTTP.
type Services struct {
	Indexes   *indexuc.Service
	Documents *documentuc.Service
	Search    *searchuc.Service
	Settings  *settingsuc.Service
	Admin     *adminuc.Service
	Health    *healthuc.Service
}

// Server maps HTTP routes onto use cases.
type Server struct {
	svc           Services
	maxBodyBytes  int64
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. maxBodyBytes bounds request bodies;
// zero means unbounded.
func NewServer(svc Services, maxBodyBytes int64, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		svc:           svc,
		maxBodyBytes:  maxBodyBytes,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Register mounts every route on r.
func (s *Server) Register(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/version", s.Version)

	r.Route("/indexes", s.indexRoutes)
	r.Route("/documents", s.documentRoutes)
	r.Post("/search", s.Search)
	r.Route("/settings", s.settingsRoutes)
	r.Route("/meilisearch", s.adminRoutes)
}

// Handler returns a router serving every route behind the given middlewares.
func (s *Server) Handler(middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := gochi.NewRouter()
	r.Use(middlewares...)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	s.Register(r)
	return r
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.svc.Health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Version handles GET /version with the gateway's own build metadata.
func (s *Server) Version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	logpkg.Annotate(r.Context(), zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("request failed", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

// bindQuery binds an optional form-style query parameter.
func bindQuery(r *http.Request, name string, dst any) error {
	if err := runtime.BindQueryParameter("form", false, false, name, r.URL.Query(), dst); err != nil {
		return domain.BadRequest("invalid query parameter %s: %v", name, err)
	}
	return nil
}

// writeRaw writes an upstream JSON document as received.
func writeRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
