// internal/api/health.go
package api

import (
	"context"
	"net/http"
	"time"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ready runs every readiness check; any failure answers 503.
func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.deps.Checks))
	status, code := "ready", http.StatusOK
	for _, c := range s.deps.Checks {
		if err := c.Check(ctx); err != nil {
			checks[c.Name] = err.Error()
			status, code = "not ready", http.StatusServiceUnavailable
			continue
		}
		checks[c.Name] = "ok"
	}

	writeJSON(w, code, map[string]interface{}{"status": status, "checks": checks})
}

func (s *Server) activities(w http.ResponseWriter, r *http.Request) {
	if s.deps.Activities == nil {
		writeError(w, http.StatusNotFound, "Activity registry not loaded")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Activities)
}
