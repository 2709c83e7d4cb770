package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/filecheck/internal/core"
	"github.com/JonMunkholm/filecheck/internal/store"
	"github.com/JonMunkholm/filecheck/internal/web/templates"
)

// healthTimeout bounds the store ping in /healthz.
const healthTimeout = 2 * time.Second

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.IndexPage().Render(r.Context(), w); err != nil {
		logError(r, err, http.StatusInternalServerError)
	}
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// ResultsResponse is returned by /api/results.
type ResultsResponse struct {
	Results []store.Entry `json:"results"`
	Count   int           `json:"count"`
}

// handleResults reads recorded verdicts back, newest first. Filters:
// file_name, rule, run_id, limit.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.Filter{
		FileName: q.Get("file_name"),
		Rule:     q.Get("rule"),
		RunID:    q.Get("run_id"),
		Limit:    parseIntParam(r, "limit", store.DefaultListLimit),
	}

	entries, err := s.store.List(r.Context(), f)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}

	writeJSON(w, ResultsResponse{Results: entries, Count: len(entries)})
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status string                `json:"status"`
	Store  string                `json:"store"`
	Runs   core.RunLimiterStatus `json:"runs"`
}

// handleHealth reports store reachability and run slot occupancy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{
		Status: "ok",
		Store:  "ok",
		Runs:   s.service.LimiterStatus(),
	}

	status := http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		logError(r, err, http.StatusServiceUnavailable)
		resp.Status = "degraded"
		resp.Store = core.MapError(err).Message
		status = http.StatusServiceUnavailable
	}

	writeJSONStatus(w, status, resp)
}
