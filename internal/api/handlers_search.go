package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/notetree/internal/jobs"
)

type searchRequest struct {
	Query        string `json:"query"`
	SkipExcluded *bool  `json:"skip_excluded"`
}

// handleSearch starts a whole-document search. A search already running is
// superseded by the new one.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}
	skip := s.cfg.SearchSkipExcluded
	if req.SkipExcluded != nil {
		skip = *req.SkipExcluded
	}

	job, err := s.orchestrator.Search(req.Query, skip)
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":        job.ID,
		"status":        jobs.StatusQueued,
		"skip_excluded": skip,
		"poll_url":      fmt.Sprintf("/api/search/%s", job.ID),
	})
}

func (s *Server) handleSearchStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleSearchCancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if !s.orchestrator.Cancel(jobID) {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":    jobID,
		"cancelled": true,
	})
}

// handleFind runs a find over one node and waits for its hits. The job is
// cancelled when the client goes away.
func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	node, ok := s.lookupNode(w, r)
	if !ok {
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		jsonError(w, "q query parameter is required", http.StatusBadRequest)
		return
	}

	job, err := s.orchestrator.Find(node.ID, query)
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	select {
	case <-job.Done():
	case <-r.Context().Done():
		job.Cancel()
		return
	}

	snap := job.Snapshot()
	code := http.StatusOK
	switch snap.Status {
	case jobs.StatusFailed:
		code = http.StatusInternalServerError
	case jobs.StatusCancelled:
		code = http.StatusConflict
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(snap)
}
