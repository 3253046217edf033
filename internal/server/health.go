package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/teemow/tickmcp/internal/ticktick"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusStopped      = "stopped"
	tokenStatusMissing       = "missing"
	tokenStatusUnreadable    = "unreadable"

	// tokenSourceNone is reported when no configured source yields a token.
	tokenSourceNone = "none"
)

// TokenSource names one place the TickTick access token may come from,
// such as the configured access_token or the token file.
type TokenSource struct {
	Name   string
	Loader ticktick.TokenLoader
}

// HealthOption configures a HealthChecker.
type HealthOption func(*HealthChecker)

// WithTokenSources sets the token sources consulted in order by /readyz and
// /healthz/detailed. Without any, the token check is skipped.
func WithTokenSources(sources ...TokenSource) HealthOption {
	return func(h *HealthChecker) {
		h.tokenSources = sources
	}
}

// WithUpstream records the TickTick API root the client talks to.
func WithUpstream(baseURL string) HealthOption {
	return func(h *HealthChecker) {
		h.upstream = baseURL
	}
}

// HealthChecker serves liveness and readiness endpoints next to /metrics.
type HealthChecker struct {
	// loopRunning is cleared once the JSON-RPC loop has stopped
	loopRunning   atomic.Bool
	serverContext *ServerContext
	tokenSources  []TokenSource
	upstream      string
	startTime     time.Time
}

// NewHealthChecker creates a HealthChecker for the given server context.
func NewHealthChecker(sc *ServerContext, opts ...HealthOption) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		upstream:      ticktick.DefaultBaseURL,
		startTime:     time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.loopRunning.Store(true)
	return h
}

// SetReady marks whether the JSON-RPC loop is still serving requests.
func (h *HealthChecker) SetReady(ready bool) {
	h.loopRunning.Store(ready)
}

// IsReady reports whether the JSON-RPC loop is still serving requests.
func (h *HealthChecker) IsReady() bool {
	return h.loopRunning.Load()
}

func (h *HealthChecker) isServerShuttingDown() bool {
	return h.serverContext != nil && h.serverContext.IsShutdown()
}

// tokenState walks the token sources in order and returns the name of the
// first one holding a token. status is "ok", "missing" or "unreadable".
// A read error from one source does not hide a token from a later one.
func (h *HealthChecker) tokenState() (source, status string) {
	status = tokenStatusMissing
	for _, s := range h.tokenSources {
		if s.Loader == nil {
			continue
		}
		token, err := s.Loader.LoadToken()
		if err != nil {
			status = tokenStatusUnreadable
			continue
		}
		if token != "" {
			return s.Name, healthStatusOK
		}
	}
	return tokenSourceNone, status
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse describes the state of the TickTick bridge.
type DetailedHealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version,omitempty"`
	Uptime        string `json:"uptime"`
	RPCLoop       string `json:"rpc_loop"`
	Upstream      string `json:"upstream"`
	TokenSource   string `json:"token_source,omitempty"`
	TokenStatus   string `json:"token_status,omitempty"`
	ClientCreated bool   `json:"client_created"`
}

// LivenessHandler returns an HTTP handler for the /healthz endpoint.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler returns an HTTP handler for the /readyz endpoint. The
// server is ready while the JSON-RPC loop runs, no shutdown is in progress
// and, when token sources are configured, one of them holds a token.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		checks := make(map[string]string)
		allOk := true

		if h.loopRunning.Load() {
			checks["rpc_loop"] = healthStatusOK
		} else {
			checks["rpc_loop"] = healthStatusStopped
			allOk = false
		}

		if h.isServerShuttingDown() {
			checks["shutdown"] = healthStatusShuttingDown
			allOk = false
		} else {
			checks["shutdown"] = healthStatusOK
		}

		if len(h.tokenSources) > 0 {
			_, status := h.tokenState()
			checks["ticktick_token"] = status
			if status != healthStatusOK {
				allOk = false
			}
		}

		response := HealthResponse{Checks: checks}
		if allOk {
			response.Status = healthStatusOK
			w.WriteHeader(http.StatusOK)
		} else {
			response.Status = healthStatusNotReady
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(response)
	})
}

// DetailedHealthHandler returns an HTTP handler for the /healthz/detailed
// endpoint. It always answers 200 and reports state rather than verdicts.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		response := DetailedHealthResponse{
			Status:   healthStatusOK,
			Uptime:   time.Since(h.startTime).Truncate(time.Second).String(),
			RPCLoop:  healthStatusOK,
			Upstream: h.upstream,
		}
		if !h.loopRunning.Load() {
			response.RPCLoop = healthStatusStopped
		}
		if h.isServerShuttingDown() {
			response.Status = healthStatusShuttingDown
		}
		if len(h.tokenSources) > 0 {
			response.TokenSource, response.TokenStatus = h.tokenState()
		}
		if h.serverContext != nil {
			response.Version = h.serverContext.Version()
			response.ClientCreated = h.serverContext.HasClient()
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	})
}

// RegisterHealthEndpoints registers health check endpoints on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}
