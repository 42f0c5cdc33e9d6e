package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bankcore/bankcore/internal/ledger"
)

// RegisterTransactionRoutes wires ledger engine endpoints.
func RegisterTransactionRoutes(r fiber.Router, h *ledger.Handler) {
	r.Post("/transactions/deposit", h.Deposit)
	r.Post("/transactions/withdraw", h.Withdraw)
	r.Post("/transactions/transfer", h.Transfer)
	r.Get("/transactions", h.List)
	r.Get("/transactions/:id", h.Get)
	r.Get("/admin/transactions", h.ListAll)
}
