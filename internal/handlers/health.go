package handlers

import (
	"net/http"
	"time"

	"github.com/mendelflow/mendelflowgo/internal/buildinfo"
)

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	if r.db != nil {
		if err := r.db.Ping(); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "degraded",
				"database": "unreachable",
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "ok",
	})
}

// getStatus returns build and runtime information
func (r *Router) getStatus(w http.ResponseWriter, req *http.Request) {
	status := map[string]interface{}{
		"status": "running",
		"build":  buildinfo.Get(),
		"uptime": buildinfo.Uptime().Round(time.Second).String(),
	}
	if r.picking != nil {
		status["pickingSessions"] = r.picking.Active()
	}
	if r.cfg != nil {
		status["environment"] = r.cfg.NodeEnv
		status["smsProvider"] = r.cfg.SMS.Provider
	}
	respondJSON(w, http.StatusOK, status)
}
