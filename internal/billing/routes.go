package billing

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches billing endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/patients/{id}/bill", h.GetBill)
	r.Post("/patients/{id}/final-bill", h.SaveFinalBill)
	r.Post("/patients/{id}/advances", h.RecordAdvance)
}
