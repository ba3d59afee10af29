package framework

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Backend is a fake DOPS prediction service that sleeps like a free-tier
// host: every endpoint answers 503 until it has woken up
type Backend struct {
	cfg    BackendConfig
	server *httptest.Server

	mu            sync.Mutex
	wakeAt        time.Time
	predictStatus int
	calls         map[string]int
}

// NewBackend starts a backend. It is closed through t.Cleanup.
func NewBackend(t TestingT, cfg BackendConfig) *Backend {
	t.Helper()

	b := &Backend{
		cfg:    cfg,
		wakeAt: time.Now().Add(cfg.ColdStart),
		calls:  make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/states", b.handle(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"states": b.cfg.States})
	}))
	mux.HandleFunc("/districts/", b.handle(func(w http.ResponseWriter, r *http.Request) {
		state := strings.TrimPrefix(r.URL.Path, "/districts/")
		districts, ok := b.cfg.Districts[state]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"detail": "No districts found for " + state})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"districts": districts})
	}))
	mux.HandleFunc("/predict", b.handle(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"detail": "Method Not Allowed"})
			return
		}
		b.mu.Lock()
		code := b.predictStatus
		b.mu.Unlock()
		if code != 0 {
			writeJSON(w, code, map[string]any{"detail": "Prediction failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"predictions": b.cfg.Predictions})
	}))

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

// handle counts the call and answers 503 while the backend is asleep
func (b *Backend) handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if strings.HasPrefix(path, "/districts/") {
			path = "/districts"
		}

		b.mu.Lock()
		b.calls[path]++
		asleep := b.cfg.NeverWakes || time.Now().Before(b.wakeAt)
		b.mu.Unlock()

		if asleep {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"detail": "Service waking up"})
			return
		}
		next(w, r)
	}
}

// URL returns the base URL of the backend
func (b *Backend) URL() string {
	return b.server.URL
}

// Sleep makes the backend cold again for d
func (b *Backend) Sleep(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wakeAt = time.Now().Add(d)
}

// SetPredictStatus makes /predict answer with code; 0 restores normal answers
func (b *Backend) SetPredictStatus(code int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.predictStatus = code
}

// Calls returns how many requests reached path ("/districts" for any state)
func (b *Backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
