package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bankcore/bankcore/internal/auth"
	"github.com/bankcore/bankcore/internal/config"
	"github.com/bankcore/bankcore/internal/domain"
)

const actorLocal = "actor"

// JWTAuth validates bearer tokens and stores the authenticated actor in the
// request locals for downstream handlers.
func JWTAuth(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := auth.ParseAndVerifyHS256(tokenStr, []byte(cfg.JWTSecret))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		sub, ok := claims["sub"].(float64)
		if !ok || sub <= 0 {
			return fiber.NewError(http.StatusUnauthorized, "invalid subject")
		}
		role, _ := claims["role"].(string)

		c.Locals(actorLocal, domain.Actor{ID: int64(sub), Role: domain.ParseRole(role)})
		return c.Next()
	}
}

// ActorFromCtx retrieves the actor stored by JWTAuth.
func ActorFromCtx(c *fiber.Ctx) (domain.Actor, bool) {
	actor, ok := c.Locals(actorLocal).(domain.Actor)
	return actor, ok
}

// WithActor stores an actor directly; used by handler tests that bypass the
// JWT middleware.
func WithActor(actor domain.Actor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(actorLocal, actor)
		return c.Next()
	}
}
