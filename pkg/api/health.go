package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cuemby/dops/pkg/log"
	"github.com/cuemby/dops/pkg/metrics"
	"github.com/cuemby/dops/pkg/session"
	"github.com/cuemby/dops/pkg/types"
)

// Version is reported by /health and set by the CLI at startup
var Version = "dev"

// SnapshotSource is anything that can report a session snapshot
type SnapshotSource interface {
	Snapshot() session.Snapshot
}

// StatusServer provides HTTP health, readiness and status endpoints for a
// running warm-up session
type StatusServer struct {
	source SnapshotSource
	mux    *http.ServeMux

	mu     sync.Mutex
	server *http.Server
	addr   string
}

// NewStatusServer creates a new status HTTP server
func NewStatusServer(source SnapshotSource) *StatusServer {
	ss := &StatusServer{source: source, mux: http.NewServeMux()}

	// Method patterns answer 405 for anything but GET and HEAD
	ss.mux.HandleFunc("GET /health", ss.healthHandler)
	ss.mux.HandleFunc("GET /ready", ss.readyHandler)
	ss.mux.HandleFunc("GET /status", ss.statusHandler)
	ss.mux.Handle("GET /metrics", metrics.Handler())

	return ss
}

// Start serves on addr until Shutdown is called. A ":0" port picks a free
// one; Addr reports it once listening.
func (ss *StatusServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:      ss.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ss.mu.Lock()
	ss.server = srv
	ss.addr = ln.Addr().String()
	ss.mu.Unlock()

	logger := log.WithComponent("api")
	logger.Info().Str("addr", ln.Addr().String()).Msg("Status server listening")

	err = srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Addr returns the listening address, or "" before Start
func (ss *StatusServer) Addr() string {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.addr
}

// Shutdown stops a server started with Start
func (ss *StatusServer) Shutdown(ctx context.Context) error {
	ss.mu.Lock()
	srv := ss.server
	ss.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

// healthHandler is liveness only: 200 while the process is serving
func (ss *StatusServer) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   Version,
	})
}

// Readiness evaluates a warm-up state the way /ready reports it. The
// session is ready once the backend is confirmed and locations are loaded;
// a limited catalog still counts.
func Readiness(st types.WarmupState) ReadyResponse {
	resp := ReadyResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Checks:    map[string]string{"backend": string(st.Phase)},
	}

	switch st.Phase {
	case types.PhaseReady:
	case types.PhaseFailed:
		resp.Message = "Prediction service unavailable"
	default:
		resp.Message = "Waiting for prediction service"
	}

	switch {
	case !st.AppInitialized:
		resp.Checks["locations"] = "not loaded"
		if resp.Message == "" {
			resp.Message = "Loading locations"
		}
	case st.LimitedMode:
		resp.Checks["locations"] = "limited"
	default:
		resp.Checks["locations"] = "ok"
	}

	if st.Phase != types.PhaseReady || !st.AppInitialized {
		resp.Status = "not ready"
	}
	return resp
}

func (ss *StatusServer) readyHandler(w http.ResponseWriter, _ *http.Request) {
	if ss.source == nil {
		writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status:    "not ready",
			Timestamp: time.Now(),
			Checks:    map[string]string{"session": "not initialized"},
			Message:   "Session not initialized",
		})
		return
	}

	resp := Readiness(ss.source.Snapshot().State)
	code := http.StatusOK
	if resp.Status != "ready" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// statusHandler serves the full session snapshot
func (ss *StatusServer) statusHandler(w http.ResponseWriter, _ *http.Request) {
	if ss.source == nil {
		http.Error(w, "Session not initialized", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, ss.source.Snapshot())
}

// GetHandler returns the HTTP handler for embedding in other servers
func (ss *StatusServer) GetHandler() http.Handler {
	return ss.mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
