package chi

import (
	"net/http"

	"go.uber.org/zap"

	domsearch "github.com/kailas-cloud/meiligate/internal/domain/search"
	logpkg "github.com/kailas-cloud/meiligate/internal/logger"
)

// Search handles POST /search. The Meilisearch response is forwarded as is.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req domsearch.Request
	if err := decodeBody(w, r, s.maxBodyBytes, &req); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	r = r.WithContext(logpkg.With(r.Context(), zap.String("index", req.UID)))

	res, err := s.svc.Search.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, res)
}
