// Package httptransport is the thin HTTP layer of the audit sidecar. It
// delegates to the guard service so transport concerns stay isolated from
// the evidence pipeline.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the audit endpoints. Verification endpoints are read-only
// with respect to the evidence chain; nothing served here ever mutates the
// anchor log.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Get("/status", h.handleStatus)
	r.Post("/verify/evidence", h.handleVerifyEvidence)
	r.Post("/verify/anchor", h.handleVerifyAnchor)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
