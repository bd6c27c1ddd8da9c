package ledger

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches voucher and report endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/vouchers/journal", h.PostJournal)
	r.Post("/vouchers/receipt", h.PostReceipt)
	r.Post("/vouchers/payment", h.PostPayment)
	r.Post("/vouchers/contra", h.PostContra)
	r.Delete("/vouchers/{batchID}", h.Delete)

	r.Get("/reports/trial-balance", h.TrialBalance)
	r.Get("/reports/ledger/{accountID}", h.AccountLedger)
	r.Get("/reports/cash-book", h.CashBook)
}
