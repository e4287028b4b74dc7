// Package api serves the agent's Prometheus metrics and loop status.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dcollector/logmanager"
	"dcollector/service"
)

// StatusSource reports the polling loop's current status.
type StatusSource interface {
	Status() service.Status
}

type StatusHandler struct {
	Source StatusSource
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.Source.Status()); err != nil {
		http.Error(w, "Encoding failed", http.StatusInternalServerError)
	}
}

// NewRouter mounts /metrics for gatherer and /status for status, both
// behind the handshake check.
func NewRouter(gatherer prometheus.Gatherer, status StatusSource, keys HandshakeValidator, logger *logmanager.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", HandshakeMiddleware(keys, logger,
		promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	mux.Handle("/status", HandshakeMiddleware(keys, logger, &StatusHandler{Source: status}))
	return mux
}
