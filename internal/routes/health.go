package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	statusOK       = "ok"
	statusDisabled = "disabled"
)

// RegisterHealthRoutes adds a liveness endpoint reporting the optional backends.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		redisStatus := statusDisabled
		natsStatus := statusDisabled

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if d.Cache != nil {
			redisStatus = statusOK
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
			}
		}
		if d.NATS != nil {
			natsStatus = statusOK
			if !d.NATS.IsConnected() {
				natsStatus = "not connected"
				if last := d.NATS.LastError(); last != nil {
					natsStatus = last.Error()
				}
			}
		}

		status := http.StatusOK
		if !healthy(redisStatus) || !healthy(natsStatus) {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status": fiber.Map{
				"redis":    redisStatus,
				"nats":     natsStatus,
				"dispatch": d.Cfg.DispatchMode,
			},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

func healthy(s string) bool {
	return s == statusOK || s == statusDisabled
}
