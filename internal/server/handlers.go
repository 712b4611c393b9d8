package server

// ABOUTME: HTTP handlers mapping the JSON API onto executor, manager, and
// ABOUTME: registry operations.

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/drydock-dev/drydock/internal/sandbox"
)

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close() //nolint:errcheck // request body close
	return json.NewDecoder(r.Body).Decode(v)
}

// bundleRequest is the shared request body for run and preview starts.
type bundleRequest struct {
	Files      map[string]string `json:"files"`
	Language   string            `json:"language,omitempty"`
	Framework  string            `json:"framework,omitempty"`
	SessionID  string            `json:"sessionId,omitempty"`
	TTLMinutes int               `json:"ttlMinutes,omitempty"`
}

func (req *bundleRequest) bundle() sandbox.Bundle {
	return sandbox.Bundle{Files: req.Files}
}

func (req *bundleRequest) plan() *sandbox.Plan {
	if req.Language == "" && req.Framework == "" {
		return nil
	}
	return &sandbox.Plan{Language: req.Language, Framework: req.Framework}
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req bundleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if len(req.Files) == 0 {
		writeError(w, http.StatusBadRequest, "files is required")
		return
	}

	result := s.executor.Run(r.Context(), req.bundle(), req.plan())
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStartPreview(w http.ResponseWriter, r *http.Request) {
	var req bundleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if len(req.Files) == 0 {
		writeError(w, http.StatusBadRequest, "files is required")
		return
	}

	outcome := s.manager.Start(r.Context(), req.bundle(), req.plan(), req.SessionID, req.TTLMinutes)
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handlePreviewStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	outcome, ok := s.manager.Status(r.Context(), sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "no active preview for session "+sessionID)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleStopPreview(w http.ResponseWriter, r *http.Request) {
	containerID := chi.URLParam(r, "containerID")
	outcome := s.manager.Stop(r.Context(), containerID)
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	containerID := chi.URLParam(r, "containerID")

	tail := 0
	if v := r.URL.Query().Get("tail"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid tail: "+v)
			return
		}
		tail = n
	}

	logs := s.manager.Logs(r.Context(), containerID, tail)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(logs)) //nolint:errcheck // best-effort response write
}

func (s *Server) handleListContainers(w http.ResponseWriter, r *http.Request) {
	records := s.registry.Active()
	if r.URL.Query().Get("all") == "true" {
		records = s.registry.All()
	}
	if records == nil {
		records = []sandbox.PreviewInstance{}
	}
	writeJSON(w, http.StatusOK, records)
}
