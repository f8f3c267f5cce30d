package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/fuzzydedup/dedup/internal/registry"
)

// RunsHandler serves GET /api/runs and GET /api/runs/{id}.
type RunsHandler struct {
	Registry *registry.Registry
}

// List returns the most recent runs, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.Registry == nil {
		writeJSON(w, http.StatusOK, []registry.Run{})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	runs, err := h.Registry.List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// Get returns a single run by id.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Registry == nil {
		writeError(w, http.StatusNotFound, errRegistryDisabled)
		return
	}
	id := mux.Vars(r)["id"]
	run, err := h.Registry.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

var errRegistryDisabled = runNotFoundError{"run registry is not configured"}

type runNotFoundError struct{ msg string }

func (e runNotFoundError) Error() string { return e.msg }
