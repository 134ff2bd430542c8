package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	ActiveSessions int   `json:"activeSessions"`
}

// handleHealth reports liveness plus a couple of cheap gauges, per
// spec §6 (GET /health) — the same shape the teacher's /health
// endpoint returns, extended with the registry's session count.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		UptimeSeconds:  int64(time.Since(s.startAt).Seconds()),
		ActiveSessions: s.Registry.Count(),
	})
}
