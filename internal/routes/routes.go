package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/paycard/internal/cards"
	"github.com/congo-pay/paycard/internal/config"
	"github.com/congo-pay/paycard/internal/middleware"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	Cache  *redis.Client
	NATS   *nats.Conn
	Logger *slog.Logger
	Trust  *middleware.ProxyTrust
	Cards  *cards.Handler
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Cards == nil {
		return fmt.Errorf("card handler is required")
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.ClientIP(d.Trust))
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	// The allow-list runs ahead of body parsing and every handler.
	app.Use(middleware.IPAllowList(middleware.NewAllowList(d.Cfg.AllowedIPs), d.Logger))

	RegisterHealthRoutes(app, d)

	var guards []fiber.Handler
	if d.Cache != nil {
		guards = append(guards,
			middleware.RateLimit(d.Cache, d.Cfg.RateLimitPerMinute, d.Logger),
			middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
		)
	}
	RegisterCardRoutes(app, d.Cards, guards...)

	return nil
}
