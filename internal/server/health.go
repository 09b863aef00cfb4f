package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
)

// ReadinessCheck returns nil when a dependency the tools need is usable.
type ReadinessCheck func(ctx context.Context) error

type namedCheck struct {
	name  string
	check ReadinessCheck
}

// HealthChecker serves the liveness and readiness endpoints of the serve
// listeners. Readiness requires the listener to be up, the server context to
// be running and every registered ReadinessCheck to pass.
type HealthChecker struct {
	ready   atomic.Bool
	sc      *ServerContext
	started time.Time

	mu     sync.RWMutex
	checks []namedCheck
}

// NewHealthChecker returns a checker that starts out ready. sc may be nil.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{sc: sc, started: time.Now()}
	h.ready.Store(true)
	return h
}

// AddCheck registers a readiness check reported under name.
func (h *HealthChecker) AddCheck(name string, check ReadinessCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, namedCheck{name: name, check: check})
}

// SetReady toggles the listener part of readiness.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status   string            `json:"status"`
	Uptime   string            `json:"uptime"`
	Accounts int               `json:"accounts"`
	Checks   map[string]string `json:"checks,omitempty"`
}

// evaluate runs every check and returns the overall status with the result
// of each check. A failing check reports its error text.
func (h *HealthChecker) evaluate(ctx context.Context) (string, map[string]string) {
	status := healthStatusOK
	checks := map[string]string{"ready": healthStatusOK, "shutdown": healthStatusOK}

	if !h.ready.Load() {
		checks["ready"] = healthStatusNotReady
		status = healthStatusNotReady
	}
	if h.sc != nil && h.sc.IsShutdown() {
		checks["shutdown"] = healthStatusShuttingDown
		status = healthStatusShuttingDown
	}

	h.mu.RLock()
	registered := append([]namedCheck(nil), h.checks...)
	h.mu.RUnlock()
	for _, c := range registered {
		if err := c.check(ctx); err != nil {
			checks[c.name] = err.Error()
			if status == healthStatusOK {
				status = healthStatusNotReady
			}
			continue
		}
		checks[c.name] = healthStatusOK
	}
	return status, checks
}

func writeHealth(w http.ResponseWriter, status string, body any) {
	w.Header().Set("Content-Type", "application/json")
	if status == healthStatusOK {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(body)
}

// LivenessHandler answers /healthz. It only reports that the process serves
// HTTP.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, healthStatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler answers /readyz with 503 while any check fails.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, checks := h.evaluate(r.Context())
		writeHealth(w, status, HealthResponse{Status: status, Checks: checks})
	})
}

// DetailedHealthHandler answers /healthz/detailed with uptime and the
// number of accounts that have a live client.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, checks := h.evaluate(r.Context())
		resp := DetailedHealthResponse{
			Status: status,
			Uptime: time.Since(h.started).Truncate(time.Second).String(),
			Checks: checks,
		}
		if h.sc != nil {
			resp.Accounts = h.sc.Accounts()
		}
		writeHealth(w, status, resp)
	})
}

// RegisterHealthEndpoints mounts the health handlers on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}
