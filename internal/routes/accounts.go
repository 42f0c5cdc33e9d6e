package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bankcore/bankcore/internal/account"
)

// RegisterAccountRoutes wires account registry endpoints.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler) {
	r.Post("/accounts", h.Create)
	r.Get("/accounts", h.List)
	r.Get("/accounts/:id", h.Get)
	r.Patch("/accounts/:id", h.Update)
	r.Delete("/accounts/:id", h.Delete)
}
