package handlers

import "net/http"

// Health serves GET /healthz with a trivial liveness check.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
