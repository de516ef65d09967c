// Package health serves liveness and Prometheus metrics endpoints on a
// small chi router, kept separate from the gorilla/mux admin API so
// that a orchestrator can probe/scrape it independently of admin auth
// or rate limiting applied to the main router.
package health

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"synnergy-aaa/pkg/metrics"
)

// Registry is the subset of counters health reports alongside the
// plain liveness check.
type Registry = metrics.Registry

// NewRouter builds a chi.Router exposing GET /healthz and GET /metrics.
func NewRouter(reg Registry) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":       "ok",
			"live_sessions": reg.CountLive(),
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
