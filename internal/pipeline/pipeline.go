// Package pipeline assembles the card service and its dispatcher from configuration.
// Both the HTTP server and cardctl build through here.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/congo-pay/paycard/internal/cards"
	"github.com/congo-pay/paycard/internal/config"
	"github.com/congo-pay/paycard/internal/dispatch"
	"github.com/congo-pay/paycard/internal/notification"
	"github.com/congo-pay/paycard/internal/render"
)

// NewDriver loads the templates and builds the headless-browser render driver.
// A missing card template fails here rather than on the first request.
func NewDriver(cfg config.Config, logger *slog.Logger) (*render.Driver, error) {
	templates, err := render.DefaultTemplates(cfg.TemplateDir)
	if err != nil {
		return nil, err
	}
	capturer := render.NewRodCapturer(cfg.ChromeBin, cfg.CaptureTimeout, logger)
	return render.NewDriver(templates, capturer, cards.TemplateName, render.DefaultCaptureOptions, logger)
}

// NewNotifier picks the delivery client named by cfg.DeliveryMode.
func NewNotifier(cfg config.Config, logger *slog.Logger) notification.Notifier {
	if cfg.DeliveryMode == config.DeliveryLog {
		return notification.NewLoggerNotifier(logger)
	}
	return notification.NewWhatsAppNotifier(notification.WhatsAppConfig{
		BaseURL:     cfg.WhatsAppBaseURL,
		CountryCode: cfg.CountryCode,
		Timeout:     cfg.DeliveryTimeout,
	}, nil, logger)
}

// NewService wires driver, notifier and namer into the card service.
func NewService(cfg config.Config, renderer cards.Renderer, notifier notification.Notifier, logger *slog.Logger) *cards.Service {
	return cards.NewService(renderer, notifier, render.ArtifactNamer{Dir: cfg.OutputDir}, logger)
}

// Dispatcher is the handler-facing dispatcher plus the optional pieces main must run
// or drain.
type Dispatcher struct {
	cards.Dispatcher
	Deferred *dispatch.Deferred
	Queue    *dispatch.Queue
}

// NewDispatcher selects the scheduling strategy for cfg.DispatchMode. Queue mode
// requires nc.
func NewDispatcher(cfg config.Config, svc *cards.Service, nc *nats.Conn, logger *slog.Logger) (Dispatcher, error) {
	switch cfg.DispatchMode {
	case config.DispatchSync:
		return Dispatcher{Dispatcher: dispatch.NewInline(svc)}, nil
	case config.DispatchDeferred:
		d := dispatch.NewDeferred(svc, cfg.DeferredWorkers, cfg.DeferredQueue, logger)
		return Dispatcher{Dispatcher: d, Deferred: d}, nil
	case config.DispatchQueue:
		if nc == nil {
			return Dispatcher{}, fmt.Errorf("dispatch mode %s requires a nats connection", cfg.DispatchMode)
		}
		q, err := dispatch.NewQueue(nc, logger)
		if err != nil {
			return Dispatcher{}, err
		}
		return Dispatcher{Dispatcher: q, Queue: q}, nil
	default:
		return Dispatcher{}, fmt.Errorf("unknown dispatch mode %q", cfg.DispatchMode)
	}
}
