// Package handlers implements the HTTP surface of the deduplication
// service: running a dedup job, and inspecting past runs.
package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/fuzzydedup/dedup/internal/dedup"
	"github.com/fuzzydedup/dedup/internal/registry"
)

// DedupHandler serves POST /api/dedup and POST /api/dedup/cross.
type DedupHandler struct {
	Engine   *dedup.Engine
	Registry *registry.Registry
	Log      *zap.Logger
}

func (h *DedupHandler) log() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

// dedupRequest is the single-source request body.
type dedupRequest struct {
	Source string            `json:"source"`
	Table  dedup.Table       `json:"table"`
	Config dedup.MatchConfig `json:"config"`
}

// Dedupe runs the single-source pipeline over the posted table.
func (h *DedupHandler) Dedupe(w http.ResponseWriter, r *http.Request) {
	var req dedupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.Config.Source = req.Source

	var runID string
	if h.Registry != nil {
		id, err := h.Registry.Begin("single-source")
		if err != nil {
			h.log().Warn("could not record run start", zap.Error(err))
		} else {
			runID = id
		}
	}

	bundle, err := h.Engine.Deduplicate(r.Context(), req.Table, req.Config)
	if h.Registry != nil && runID != "" {
		if finErr := h.Registry.Finish(runID, bundle.Statistics, err); finErr != nil {
			h.log().Warn("could not record run completion", zap.Error(finErr))
		}
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		RunID string `json:"run_id,omitempty"`
		dedup.OutputBundle
	}{RunID: runID, OutputBundle: bundle})
}

// crossDedupRequest is the cross-source request body. Table must carry a
// Source_System column tagging each row's originating source.
type crossDedupRequest struct {
	Table      dedup.Table         `json:"table"`
	Config     dedup.MatchConfig   `json:"config"`
	Precedence dedup.PrecedenceMap `json:"precedence"`
}

// DedupeCross runs the cross-source pipeline over the posted table.
func (h *DedupHandler) DedupeCross(w http.ResponseWriter, r *http.Request) {
	var req crossDedupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var runID string
	if h.Registry != nil {
		id, err := h.Registry.Begin("cross-source")
		if err != nil {
			h.log().Warn("could not record run start", zap.Error(err))
		} else {
			runID = id
		}
	}

	bundle, err := h.Engine.DeduplicateCross(r.Context(), req.Table, req.Config, req.Precedence)
	if h.Registry != nil && runID != "" {
		if finErr := h.Registry.Finish(runID, bundle.Statistics, err); finErr != nil {
			h.log().Warn("could not record run completion", zap.Error(finErr))
		}
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		RunID string `json:"run_id,omitempty"`
		dedup.OutputBundle
	}{RunID: runID, OutputBundle: bundle})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
