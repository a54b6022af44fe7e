package api

import (
	"net/http"

	"github.com/corral-dev/corral/pkg/types"
	"github.com/go-chi/chi/v5"
)

type agentRequest struct {
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	Instructions string                 `json:"instructions"`
	ModelProfile map[string]any         `json:"modelProfile"`
	Budget       *types.Budget          `json:"budget"`
	Tools        []string               `json:"tools"`
	Input        *types.ConnectorConfig `json:"input"`
	Output       *types.ConnectorConfig `json:"output"`
	Metadata     map[string]string      `json:"metadata"`
}

func (req *agentRequest) toAgent(id string) *types.Agent {
	return &types.Agent{
		ID:           id,
		Name:         req.Name,
		Description:  req.Description,
		Instructions: req.Instructions,
		ModelProfile: req.ModelProfile,
		Budget:       req.Budget,
		Tools:        req.Tools,
		Input:        req.Input,
		Output:       req.Output,
		Metadata:     req.Metadata,
	}
}

func (s *Server) createAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	agent := req.toAgent("")
	if err := s.mgr.CreateAgent(agent); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, agent)
}

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.mgr.ListAgents()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, agents)
}

func (s *Server) getAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := s.mgr.GetAgent(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, agent)
}

func (s *Server) updateAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	agent := req.toAgent(chi.URLParam(r, "id"))
	if err := s.mgr.UpdateAgent(agent); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, agent)
}

func (s *Server) deleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.DeleteAgent(chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type publishVersionRequest struct {
	Version string `json:"version"`
}

func (s *Server) publishVersion(w http.ResponseWriter, r *http.Request) {
	var req publishVersionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	version, err := s.mgr.PublishVersion(chi.URLParam(r, "id"), req.Version)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, version)
}

func (s *Server) listVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.mgr.ListVersionsByAgent(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, versions)
}
