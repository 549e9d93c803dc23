package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mattjoyce/tooly/internal/history"
)

const (
	maxTriggerBodyBytes = 1 << 20
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := HealthzResponse{
		Status:        "ok",
		Service:       s.config.Service,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		History:       s.history != nil,
	}
	if s.activity != nil {
		resp.ScriptsActive = s.activity.InFlight()
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleTrigger handles POST /trigger. The dispatch report is returned with
// 202 when work continues in the background, 400 when the trigger could not
// be decoded and 200 otherwise.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var req TriggerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTriggerBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		s.writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	rep := s.triggers.HandleURL(r.Context(), req.URL)

	status := http.StatusOK
	switch {
	case rep.Status == history.StatusRejected:
		status = http.StatusBadRequest
	case rep.Async:
		status = http.StatusAccepted
	}
	respondJSON(w, status, rep)
}

// handleHistory handles GET /history?limit=N.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusServiceUnavailable, "history is disabled")
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list history", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}

	resp := HistoryResponse{Entries: make([]HistoryEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, NewHistoryEntry(e))
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleHistoryEntry handles GET /history/{id}.
func (s *Server) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusServiceUnavailable, "history is disabled")
		return
	}

	id := chi.URLParam(r, "id")
	e, err := s.history.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "history entry not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get history entry", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get history entry")
		return
	}
	respondJSON(w, http.StatusOK, NewHistoryEntry(*e))
}

// handleOpenAPI handles GET /openapi.json.
func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, buildOpenAPIDoc(s.config.Service))
}

// respondJSON is a helper to write JSON responses
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
