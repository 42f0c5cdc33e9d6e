package ledger

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/bankcore/bankcore/internal/domain"
	"github.com/bankcore/bankcore/internal/middleware"
)

// Handler exposes money-movement endpoints.
type Handler struct {
	engine *Engine
}

// NewHandler constructs a ledger handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type movementRequest struct {
	AccountID int64 `json:"account_id"`
	Amount    int64 `json:"amount"`
}

type transferRequest struct {
	FromAccountID int64 `json:"from_account_id"`
	ToAccountID   int64 `json:"to_account_id"`
	Amount        int64 `json:"amount"`
}

// Deposit credits an account.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	var req movementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.engine.Deposit(c.UserContext(), actor, req.AccountID, req.Amount)
	if err != nil {
		return mapErr(err)
	}
	return c.Status(http.StatusCreated).JSON(rec)
}

// Withdraw debits an account.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	var req movementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.engine.Withdraw(c.UserContext(), actor, req.AccountID, req.Amount)
	if err != nil {
		return mapErr(err)
	}
	return c.Status(http.StatusCreated).JSON(rec)
}

// Transfer moves funds between two accounts.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.engine.Transfer(c.UserContext(), actor, req.FromAccountID, req.ToAccountID, req.Amount)
	if err != nil {
		return mapErr(err)
	}
	return c.Status(http.StatusCreated).JSON(rec)
}

// List returns the caller's transaction history.
func (h *Handler) List(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	records, err := h.engine.List(c.UserContext(), actor)
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(records)
}

// ListAll returns every transaction; admin only.
func (h *Handler) ListAll(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	records, err := h.engine.ListAll(c.UserContext(), actor)
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(records)
}

// Get returns one transaction.
func (h *Handler) Get(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return fiber.NewError(http.StatusBadRequest, "invalid transaction id")
	}
	rec, err := h.engine.Get(c.UserContext(), actor, id)
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(rec)
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, "amount must be positive")
	case errors.Is(err, domain.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "account not found")
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(http.StatusConflict, "operation conflicted, retry")
	case errors.Is(err, domain.ErrForbidden):
		return fiber.NewError(http.StatusForbidden, "admin access required")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
