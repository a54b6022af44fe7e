package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/corral-dev/corral/pkg/errdefs"
	"github.com/corral-dev/corral/pkg/log"
	"github.com/corral-dev/corral/pkg/manager"
	"github.com/corral-dev/corral/pkg/metrics"
	"github.com/corral-dev/corral/pkg/scheduler"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Server exposes the control-plane REST API.
type Server struct {
	mgr        *manager.Manager
	sched      *scheduler.Scheduler
	router     chi.Router
	httpServer *http.Server
}

// NewServer creates the REST server and mounts all routes.
func NewServer(mgr *manager.Manager, sched *scheduler.Scheduler) *Server {
	s := &Server{
		mgr:   mgr,
		sched: sched,
	}
	s.router = s.routes()
	return s
}

// Router returns the HTTP handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves the API on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.WithComponent("api").Info().Str("addr", addr).Msg("rest api listening")
	metrics.UpdateComponent("api", true, "")
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)
	r.Use(requestMetrics)

	r.Get("/healthz", metrics.HealthHandler())
	r.Get("/readyz", metrics.ReadyHandler())
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/agents", func(r chi.Router) {
			r.Post("/", s.createAgent)
			r.Get("/", s.listAgents)
			r.Get("/{id}", s.getAgent)
			r.Put("/{id}", s.updateAgent)
			r.Delete("/{id}", s.deleteAgent)
			r.Post("/{id}:version", s.publishVersion)
			r.Get("/{id}/versions", s.listVersions)
		})

		r.Route("/deployments", func(r chi.Router) {
			r.Post("/", s.createDeployment)
			r.Get("/", s.listDeployments)
			r.Get("/{id}", s.getDeployment)
			r.Put("/{id}", s.updateDeployment)
			r.Delete("/{id}", s.deleteDeployment)
		})

		r.Post("/nodes:register", s.registerNode)
		r.Route("/nodes", func(r chi.Router) {
			r.Post("/", s.registerNode) // alias for :register
			r.Get("/", s.listNodes)
			r.Get("/load", s.nodeLoads)
			r.Get("/{id}", s.getNode)
			r.Delete("/{id}", s.removeNode)
			r.Post("/{id}:heartbeat", s.heartbeat)
		})

		r.Route("/runs", func(r chi.Router) {
			r.Post("/", s.createRun)
			r.Get("/", s.listRuns)
			r.Get("/{id}", s.getRun)
			r.Post("/{id}:complete", s.completeRun)
			r.Post("/{id}:fail", s.failRun)
			r.Post("/{id}:cancel", s.cancelRun)
		})

		r.Get("/events", s.streamEvents)
	})

	return r
}

// errorBody is the JSON error shape for every non-2xx response.
type errorBody struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errdefs.KindOf(err) {
	case errdefs.KindValidation:
		status = http.StatusBadRequest
	case errdefs.KindNotFound:
		status = http.StatusNotFound
	case errdefs.KindConflict:
		status = http.StatusConflict
	case errdefs.KindNotOwner:
		status = http.StatusForbidden
	case errdefs.KindTransient:
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, errorBody{Error: err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errdefs.Validationf("invalid request body: %v", err)
	}
	return nil
}
