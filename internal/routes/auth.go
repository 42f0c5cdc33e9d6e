package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bankcore/bankcore/internal/auth"
)

// RegisterAuthRoutes wires registration and login endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", rateLimiter, h.Login)
	r.Post("/auth/refresh", h.Refresh)
}
