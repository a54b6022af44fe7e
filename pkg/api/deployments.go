package api

import (
	"net/http"

	"github.com/corral-dev/corral/pkg/types"
	"github.com/go-chi/chi/v5"
)

type deploymentRequest struct {
	AgentID     string                  `json:"agentId"`
	Version     string                  `json:"version"`
	Environment string                  `json:"environment"`
	Target      *types.DeploymentTarget `json:"target"`
}

func (s *Server) createDeployment(w http.ResponseWriter, r *http.Request) {
	var req deploymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	deployment := &types.Deployment{
		AgentID:     req.AgentID,
		Version:     req.Version,
		Environment: req.Environment,
		Target:      req.Target,
	}
	if err := s.mgr.CreateDeployment(deployment); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, deployment)
}

func (s *Server) listDeployments(w http.ResponseWriter, r *http.Request) {
	if agentID := r.URL.Query().Get("agentId"); agentID != "" {
		deployments, err := s.mgr.ListDeploymentsByAgent(agentID)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, deployments)
		return
	}

	deployments, err := s.mgr.ListDeployments()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, deployments)
}

func (s *Server) getDeployment(w http.ResponseWriter, r *http.Request) {
	deployment, err := s.mgr.GetDeployment(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, deployment)
}

func (s *Server) updateDeployment(w http.ResponseWriter, r *http.Request) {
	existing, err := s.mgr.GetDeployment(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}

	var req deploymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	existing.AgentID = req.AgentID
	existing.Version = req.Version
	existing.Environment = req.Environment
	existing.Target = req.Target
	if err := s.mgr.UpdateDeployment(existing); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, existing)
}

func (s *Server) deleteDeployment(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.DeleteDeployment(chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
