package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/collections", h.Collections)
		r.Get("/collections/{collection}/dirty", h.DirtyIDs)
		r.Get("/collections/{collection}/clean", h.CleanIDs)
		r.Get("/ledger", h.Ledger)
	})

	return r
}
