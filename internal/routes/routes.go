package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/bankcore/bankcore/internal/account"
	"github.com/bankcore/bankcore/internal/auth"
	"github.com/bankcore/bankcore/internal/authz"
	"github.com/bankcore/bankcore/internal/config"
	"github.com/bankcore/bankcore/internal/events"
	"github.com/bankcore/bankcore/internal/identity"
	"github.com/bankcore/bankcore/internal/ledger"
	"github.com/bankcore/bankcore/internal/middleware"
	"github.com/bankcore/bankcore/internal/store"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg       config.Config
	DB        *pgxpool.Pool
	Cache     *redis.Client
	Logger    *slog.Logger
	Publisher events.Publisher
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Outside dev the backing services are mandatory even though main also
	// checks; memory fallbacks are a dev convenience only.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	var st store.Store
	if d.DB != nil {
		st = store.NewPostgres(d.DB)
	} else {
		st = store.NewMemory()
	}

	var userRepo identity.Repository
	if d.DB != nil {
		userRepo = identity.NewPostgresRepository(d.DB)
	} else {
		userRepo = identity.NewMemoryRepository()
	}

	publisher := d.Publisher
	if publisher == nil {
		publisher = events.NewLogPublisher(d.Logger)
	}

	policy := authz.OwnerOrAdmin{}
	registry := account.NewService(st, policy)
	engine := ledger.NewEngine(st, policy, publisher, d.Logger)
	identitySvc := identity.NewService(userRepo)
	authSvc := auth.NewService(d.Cfg)

	authHandler := auth.NewHandler(identitySvc, authSvc)
	accountHandler := account.NewHandler(registry)
	ledgerHandler := ledger.NewHandler(engine)

	api := app.Group("/api/v1")

	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter)

	protected := api.Group("", middleware.JWTAuth(d.Cfg))
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterAccountRoutes(protected, accountHandler)
	RegisterTransactionRoutes(protected, ledgerHandler)

	return nil
}
