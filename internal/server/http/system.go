package http

import (
	"net/http"

	"github.com/dmitrijs2005/liberandum/internal/common"
)

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Liberandum market API",
		"version": s.deps.Version,
		"status":  "running",
		"endpoints": map[string]string{
			"auth":    "/auth",
			"market":  "/market",
			"data":    "/data",
			"admin":   "/admin",
			"metrics": "/metrics",
		},
	})
}

// handleHealth answers 503 while storage is unreachable so load balancers
// can take the instance out.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "healthy",
		"timestamp": common.FormatTime(s.now()),
		"services":  map[string]string{"auth": "operational", "market": "operational", "database": "operational"},
	}
	if s.deps.Storage != nil {
		if err := s.deps.Storage.Ping(r.Context()); err != nil {
			s.logger.Warn(r.Context(), "Health check failed", "error", err)
			body["status"] = "unhealthy"
			body["services"] = map[string]string{"auth": "degraded", "market": "degraded", "database": "unavailable"}
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}
	writeJSON(w, http.StatusOK, body)
}
