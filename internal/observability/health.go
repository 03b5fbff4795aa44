package observability

import (
	"encoding/json"
	"maps"
	"net/http"
	"sync/atomic"
)

// HealthServer exposes /healthz and /readyz endpoints.
type HealthServer struct {
	ready atomic.Bool
	info  map[string]string
}

// NewHealthServer creates a new health server. info (for example the
// transport name) is echoed in every response.
func NewHealthServer(info map[string]string) *HealthServer {
	return &HealthServer{info: maps.Clone(info)}
}

// SetReady marks the server as ready to receive traffic.
func (h *HealthServer) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Handler returns an http.Handler with health and readiness endpoints.
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /readyz", h.handleReady)
	return mux
}

func (h *HealthServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.write(w, http.StatusOK, "ok")
}

func (h *HealthServer) handleReady(w http.ResponseWriter, _ *http.Request) {
	if h.ready.Load() {
		h.write(w, http.StatusOK, "ready")
	} else {
		h.write(w, http.StatusServiceUnavailable, "not ready")
	}
}

func (h *HealthServer) write(w http.ResponseWriter, code int, status string) {
	body := make(map[string]string, len(h.info)+1)
	maps.Copy(body, h.info)
	body["status"] = status

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
