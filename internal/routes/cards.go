package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/paycard/internal/cards"
)

// CardPath is the single generation endpoint.
const CardPath = "/generate-payment-card"

// RegisterCardRoutes wires the card endpoint behind optional per-route guards.
func RegisterCardRoutes(r fiber.Router, h *cards.Handler, guards ...fiber.Handler) {
	handlers := append(guards, h.Generate)
	r.Post(CardPath, handlers...)
}
