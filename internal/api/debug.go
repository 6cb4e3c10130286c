package api

import (
	"net/http"
	"time"

	"cargroup/internal/buildinfo"
)

// DebugJSON reports build info and the effective, non-secret configuration.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"build":        buildinfo.Info(),
		"time":         time.Now().UTC().Format(time.RFC3339),
		"server":       s.Config.Server,
		"solver":       s.Config.Solver,
		"hasRedisURL":  s.Config.Server.RedisURL != "",
		"rateLimitRps": float64(s.Limiter.Limit()),
		"subscribers":  s.Broker.Subscribers(),
	})
}
