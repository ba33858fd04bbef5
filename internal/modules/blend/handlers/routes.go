package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all blend routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/blend", func(r chi.Router) {
		r.Post("/optimize", h.HandleOptimize)
		r.Get("/latest", h.HandleGetLatest)
		r.Post("/refresh", h.HandleRefresh)
	})
}
