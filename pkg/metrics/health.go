package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Health and readiness states reported on /healthz and /readyz.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusReady     = "ready"
	StatusNotReady  = "not_ready"
)

// criticalComponents must all be healthy before the server reports ready.
var criticalComponents = []string{"storage", "leases", "api"}

// HealthStatus is the wire shape of a health or readiness response.
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
	Message    string            `json:"message,omitempty"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
	StartTime  time.Time         `json:"-"`
}

type componentState struct {
	healthy bool
	message string
	updated time.Time
}

// healthRegistry holds per-component liveness flags pushed by the
// subsystems themselves. There is no active probing here: a component is
// whatever its owner last reported.
type healthRegistry struct {
	mu      sync.RWMutex
	states  map[string]componentState
	version string
	started time.Time
}

var registry = &healthRegistry{
	states:  make(map[string]componentState),
	started: time.Now(),
}

// SetVersion records the build version echoed in health responses.
func SetVersion(version string) {
	registry.mu.Lock()
	registry.version = version
	registry.mu.Unlock()
}

// RegisterComponent records the initial health of a component.
func RegisterComponent(name string, healthy bool, message string) {
	registry.mu.Lock()
	registry.states[name] = componentState{
		healthy: healthy,
		message: message,
		updated: time.Now(),
	}
	registry.mu.Unlock()
}

// UpdateComponent replaces a component's reported health.
func UpdateComponent(name string, healthy bool, message string) {
	RegisterComponent(name, healthy, message)
}

// GetHealth reports overall liveness: unhealthy if any registered
// component says so.
func GetHealth() HealthStatus {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	out := registry.newStatus(StatusHealthy)
	for name, state := range registry.states {
		if state.healthy {
			out.Components[name] = StatusHealthy
			continue
		}
		out.Status = StatusUnhealthy
		out.Components[name] = fmt.Sprintf("%s: %s", StatusUnhealthy, state.message)
	}
	return out
}

// GetReadiness reports whether the server can take traffic. Unlike
// liveness, readiness only consults the critical components, and a
// component that has not registered yet counts as not ready.
func GetReadiness() HealthStatus {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	out := registry.newStatus(StatusReady)
	for _, name := range criticalComponents {
		state, ok := registry.states[name]
		switch {
		case !ok:
			out.Status = StatusNotReady
			out.Message = fmt.Sprintf("waiting for %s initialization", name)
			out.Components[name] = "not registered"
		case !state.healthy:
			out.Status = StatusNotReady
			out.Message = fmt.Sprintf("waiting for %s", name)
			out.Components[name] = fmt.Sprintf("not ready: %s", state.message)
		default:
			out.Components[name] = StatusReady
		}
	}
	return out
}

// newStatus builds a response skeleton. Callers hold registry.mu.
func (r *healthRegistry) newStatus(status string) HealthStatus {
	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		Components: make(map[string]string, len(r.states)),
		Version:    r.version,
		Uptime:     time.Since(r.started).String(),
		StartTime:  r.started,
	}
}

// HealthHandler serves /healthz. A 503 means some component reported
// itself unhealthy.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		health := GetHealth()
		code := http.StatusOK
		if health.Status != StatusHealthy {
			code = http.StatusServiceUnavailable
		}
		writeStatus(w, code, health)
	}
}

// ReadyHandler serves /readyz. A 503 keeps load balancers away until the
// critical components come up.
func ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		ready := GetReadiness()
		code := http.StatusOK
		if ready.Status != StatusReady {
			code = http.StatusServiceUnavailable
		}
		writeStatus(w, code, ready)
	}
}

func writeStatus(w http.ResponseWriter, code int, status HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}
