package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all forecast routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/forecast", func(r chi.Router) {
		r.Post("/", h.HandlePostForecast)
		r.Get("/{symbol}", func(w http.ResponseWriter, r *http.Request) {
			symbol := chi.URLParam(r, "symbol")
			h.HandleGetForecast(w, r, symbol)
		})
	})
}
