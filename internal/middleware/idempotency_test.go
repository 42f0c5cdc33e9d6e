package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bankcore/bankcore/internal/domain"
	"github.com/bankcore/bankcore/internal/logging"
)

func newTestCache(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })
	return cache
}

func newIdempotentApp(cache *redis.Client, actor domain.Actor, hits *int32) *fiber.App {
	app := fiber.New()
	app.Use(WithActor(actor))
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error {
		atomic.AddInt32(hits, 1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true})
	})
	return app
}

func postResource(t *testing.T, app *fiber.App, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/resource", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode, string(body)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	var hits int32
	app := newIdempotentApp(newTestCache(t), domain.Actor{ID: 1}, &hits)

	status, _ := postResource(t, app, "")
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("handler ran without an idempotency key")
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	var hits int32
	app := newIdempotentApp(newTestCache(t), domain.Actor{ID: 1}, &hits)

	status, body := postResource(t, app, "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}

	replayStatus, replayBody := postResource(t, app, "abc123")
	if replayStatus != status || replayBody != body {
		t.Fatalf("replay diverged: %d %q vs %d %q", replayStatus, replayBody, status, body)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("handler ran %d times for one key", got)
	}
}

func TestIdempotencyKeysScopedPerActor(t *testing.T) {
	cache := newTestCache(t)
	var hits int32
	alice := newIdempotentApp(cache, domain.Actor{ID: 1}, &hits)
	bob := newIdempotentApp(cache, domain.Actor{ID: 2}, &hits)

	if status, _ := postResource(t, alice, "shared-key"); status != fiber.StatusCreated {
		t.Fatalf("first actor: expected %d got %d", fiber.StatusCreated, status)
	}
	// The same key from a different actor is a fresh request, not a replay.
	if status, _ := postResource(t, bob, "shared-key"); status != fiber.StatusCreated {
		t.Fatalf("second actor: expected %d got %d", fiber.StatusCreated, status)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("expected both actors to execute, handler ran %d times", got)
	}
}
