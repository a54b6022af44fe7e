package api

import (
	"net/http"

	"github.com/corral-dev/corral/pkg/types"
	"github.com/go-chi/chi/v5"
)

type registerNodeRequest struct {
	ID       string              `json:"id"`
	Metadata map[string]string   `json:"metadata"`
	Capacity *types.NodeCapacity `json:"capacity"`
}

func (s *Server) registerNode(w http.ResponseWriter, r *http.Request) {
	var req registerNodeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	node := &types.Node{
		ID:       req.ID,
		Metadata: req.Metadata,
		Capacity: req.Capacity,
	}
	if err := s.mgr.RegisterNode(node); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, node)
}

type heartbeatRequest struct {
	State          types.NodeState `json:"state"`
	ActiveRuns     int             `json:"activeRuns"`
	AvailableSlots int             `json:"availableSlots"`
}

func (s *Server) heartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	status := types.NodeStatus{
		State:          req.State,
		ActiveRuns:     req.ActiveRuns,
		AvailableSlots: req.AvailableSlots,
	}
	nodeID := chi.URLParam(r, "id")
	if err := s.mgr.Heartbeat(nodeID, status); err != nil {
		respondError(w, err)
		return
	}
	node, err := s.mgr.GetNode(nodeID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, node)
}

func (s *Server) listNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.mgr.ListNodes()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nodes)
}

func (s *Server) getNode(w http.ResponseWriter, r *http.Request) {
	node, err := s.mgr.GetNode(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, node)
}

func (s *Server) removeNode(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.RemoveNode(chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) nodeLoads(w http.ResponseWriter, r *http.Request) {
	loads, err := s.sched.GetClusterLoad()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, loads)
}
