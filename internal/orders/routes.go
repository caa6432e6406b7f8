package orders

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("orders.view"))
		r.Get("/orders", h.List)
		r.Get("/orders/{id}", h.Show)
		r.Get("/orders/{id}/validate", h.Validate)
		r.Get("/orders/number/{number}", h.ShowByNumber)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("orders.create"))
		r.Post("/orders", h.Create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("orders.edit"))
		r.Post("/orders/{id}/items", h.AddItem)
		r.Patch("/orders/{id}/items/{itemID}", h.UpdateItem)
		r.Delete("/orders/{id}/items/{itemID}", h.RemoveItem)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("orders.confirm"))
		r.Post("/orders/{id}/confirm", h.Confirm)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("orders.ship"))
		r.Post("/orders/{id}/ship", h.Ship)
		r.Post("/orders/{id}/deliver", h.Deliver)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("orders.cancel"))
		r.Post("/orders/{id}/cancel", h.Cancel)
	})
}
