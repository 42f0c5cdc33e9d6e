package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	pendingMarker        = "pending"
	redisOpTimeout       = 2 * time.Second
)

type replayEntry struct {
	Status  int               `json:"status"`
	Body    []byte            `json:"body"`
	Headers map[string]string `json:"headers"`
}

// Idempotency replays the stored response for repeated unsafe requests that
// carry the same Idempotency-Key. Keys are scoped to the authenticated actor
// so two users reusing the same key never observe each other's responses.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing Idempotency-Key header")
		}
		cacheKey := scopedKey(c, key)

		ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
		defer cancel()

		// SetNX reserves the key atomically: exactly one request wins and
		// executes; the rest replay whatever the winner stored.
		reserved, err := cache.SetNX(ctx, cacheKey, pendingMarker, ttl).Result()
		if err != nil {
			logger.Error("idempotency reservation failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}
		if !reserved {
			return replay(ctx, c, cache, cacheKey, logger)
		}

		if err := c.Next(); err != nil {
			// Failed requests do not consume the key.
			release(cache, cacheKey)
			return err
		}
		return persist(c, cache, cacheKey, ttl, logger)
	}
}

func replay(ctx context.Context, c *fiber.Ctx, cache *redis.Client, cacheKey string, logger *slog.Logger) error {
	raw, err := cache.Get(ctx, cacheKey).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Error("idempotency lookup failed", slog.String("cache_key", cacheKey), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}
		return fiber.NewError(fiber.StatusConflict, "duplicate request")
	}
	if raw == pendingMarker {
		return fiber.NewError(fiber.StatusConflict, "request with this key is still processing")
	}

	var entry replayEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		logger.Warn("stored idempotent response unreadable", slog.String("cache_key", cacheKey), slog.Any("error", err))
		return fiber.NewError(fiber.StatusConflict, "duplicate request")
	}
	for name, value := range entry.Headers {
		if strings.EqualFold(name, fiber.HeaderContentLength) {
			continue
		}
		c.Set(name, value)
	}
	return c.Status(entry.Status).Send(entry.Body)
}

func persist(c *fiber.Ctx, cache *redis.Client, cacheKey string, ttl time.Duration, logger *slog.Logger) error {
	entry := replayEntry{
		Status:  c.Response().StatusCode(),
		Body:    append([]byte(nil), c.Response().Body()...),
		Headers: map[string]string{},
	}
	c.Response().Header.VisitAll(func(k, v []byte) {
		entry.Headers[string(k)] = string(v)
	})

	payload, err := json.Marshal(entry)
	if err != nil {
		logger.Error("failed to encode idempotent response", slog.String("cache_key", cacheKey), slog.Any("error", err))
		release(cache, cacheKey)
		return fiber.NewError(fiber.StatusInternalServerError, "idempotency persistence failure")
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := cache.Set(ctx, cacheKey, payload, ttl).Err(); err != nil {
		logger.Error("failed to persist idempotent response", slog.String("cache_key", cacheKey), slog.Any("error", err))
		release(cache, cacheKey)
		return fiber.NewError(fiber.StatusInternalServerError, "idempotency persistence failure")
	}
	return nil
}

func release(cache *redis.Client, cacheKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	cache.Del(ctx, cacheKey) // best effort
}

func scopedKey(c *fiber.Ctx, key string) string {
	scope := "anon"
	if actor, ok := ActorFromCtx(c); ok {
		scope = strconv.FormatInt(actor.ID, 10)
	}
	return "idempotency:v1:" + scope + ":" + key
}
