package api

import (
	"net/http"

	"github.com/corral-dev/corral/pkg/types"
	"github.com/go-chi/chi/v5"
)

type createRunRequest struct {
	AgentID string `json:"agentId"`
	Version string `json:"version"`
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	run, err := s.mgr.CreateRun(req.AgentID, req.Version)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, run)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if status := r.URL.Query().Get("status"); status != "" {
		runs, err := s.mgr.ListRunsByStatus(types.RunStatus(status))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, runs)
		return
	}

	runs, err := s.mgr.ListRuns()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.mgr.GetRun(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, run)
}

type completeRunRequest struct {
	NodeID  string           `json:"nodeId"`
	Timings map[string]int64 `json:"timings"`
	Costs   *types.RunCosts  `json:"costs"`
}

func (s *Server) completeRun(w http.ResponseWriter, r *http.Request) {
	var req completeRunRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	runID := chi.URLParam(r, "id")
	if err := s.mgr.CompleteRun(r.Context(), runID, req.NodeID, req.Timings, req.Costs); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

type failRunRequest struct {
	NodeID       string           `json:"nodeId"`
	ErrorMessage string           `json:"errorMessage"`
	ErrorDetails string           `json:"errorDetails"`
	Retryable    bool             `json:"retryable"`
	Timings      map[string]int64 `json:"timings"`
}

func (s *Server) failRun(w http.ResponseWriter, r *http.Request) {
	var req failRunRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	runID := chi.URLParam(r, "id")
	shouldRetry, err := s.mgr.FailRun(r.Context(), runID, req.NodeID, req.ErrorMessage, req.ErrorDetails, req.Retryable, req.Timings)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"shouldRetry": shouldRetry})
}

type cancelRunRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) cancelRun(w http.ResponseWriter, r *http.Request) {
	var req cancelRunRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	runID := chi.URLParam(r, "id")
	if err := s.mgr.CancelRun(r.Context(), runID, req.Reason); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
