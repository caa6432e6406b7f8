package invoices

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("invoices.view"))
		r.Get("/invoices", h.List)
		r.Get("/invoices/tax-rate", h.TaxRate)
		r.Get("/invoices/{id}", h.Show)
		r.Get("/invoices/number/{number}", h.ShowByNumber)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("invoices.create"))
		r.Post("/invoices", h.Create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("invoices.edit"))
		r.Post("/invoices/{id}/send", h.Send)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("invoices.payment"))
		r.Post("/invoices/{id}/payments", h.AddPayment)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("invoices.cancel"))
		r.Post("/invoices/{id}/cancel", h.Cancel)
		r.Post("/invoices/{id}/void", h.Void)
	})
}
