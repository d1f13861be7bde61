package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/paycard/internal/cards"
	"github.com/congo-pay/paycard/internal/config"
	"github.com/congo-pay/paycard/internal/middleware"
	"github.com/congo-pay/paycard/internal/routes"
)

// Drainer is implemented by dispatchers holding in-flight background work.
type Drainer interface {
	Close(ctx context.Context) error
}

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app     *fiber.App
	cfg     config.Config
	drainer Drainer
	logger  *slog.Logger
}

// Options carries the optional backends and the background dispatcher to drain.
type Options struct {
	Cache   *redis.Client
	NATS    *nats.Conn
	Drainer Drainer
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, handler *cards.Handler, opts Options, logger *slog.Logger) (*Server, error) {
	trust, err := middleware.NewProxyTrust(cfg.ProxyHeader, cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.CaptureTimeout + cfg.DeliveryTimeout + 30*time.Second,
		// c.IP() only believes ProxyHeader from TrustedProxies; the access gate
		// resolves callers itself through middleware.ProxyTrust.
		ProxyHeader:             cfg.ProxyHeader,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          cfg.TrustedProxies,
		DisableStartupMessage:   true,
		ErrorHandler:            errorHandler(logger),
	})

	deps := routes.Deps{
		Cfg:    cfg,
		Cache:  opts.Cache,
		NATS:   opts.NATS,
		Logger: logger,
		Trust:  trust,
		Cards:  handler,
	}
	if err := routes.Setup(app, deps); err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, drainer: opts.Drainer, logger: logger}, nil
}

// App exposes the underlying Fiber app for in-process tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	s.logger.Info("listening", slog.String("addr", s.cfg.Address()), slog.String("dispatch", s.cfg.DispatchMode))
	return s.app.Listen(s.cfg.Address())
}

// Shutdown stops accepting requests, then waits for deferred card jobs to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	if s.drainer != nil {
		if derr := s.drainer.Close(ctx); derr != nil {
			err = errors.Join(err, derr)
		}
	}
	return err
}

// errorHandler renders every error as {"detail": message}.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed", slog.String("path", c.Path()), slog.Any("error", err))
		}
		return c.Status(code).JSON(fiber.Map{"detail": err.Error()})
	}
}
