package account

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/bankcore/bankcore/internal/domain"
	"github.com/bankcore/bankcore/internal/middleware"
)

// Handler exposes account registry endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an account handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	InitialBalance int64 `json:"initial_balance"`
}

// Create opens a new account for the caller.
func (h *Handler) Create(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acct, err := h.service.Create(c.UserContext(), actor, req.InitialBalance)
	if err != nil {
		return mapErr(err)
	}
	return c.Status(http.StatusCreated).JSON(acct)
}

// List returns the accounts visible to the caller.
func (h *Handler) List(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	accounts, err := h.service.List(c.UserContext(), actor)
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(accounts)
}

// Get returns one account.
func (h *Handler) Get(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	acct, err := h.service.Get(c.UserContext(), actor, id)
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(acct)
}

// Update applies an administrative patch.
func (h *Handler) Update(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var patch Patch
	if err := c.BodyParser(&patch); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acct, err := h.service.Update(c.UserContext(), actor, id, patch)
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(acct)
}

// Delete removes an empty account.
func (h *Handler) Delete(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), actor, id); err != nil {
		return mapErr(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	return id, nil
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, "amount must be non-negative")
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "account not found")
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(http.StatusConflict, "account balance must be zero")
	case errors.Is(err, domain.ErrForbidden):
		return fiber.NewError(http.StatusForbidden, "admin access required")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
