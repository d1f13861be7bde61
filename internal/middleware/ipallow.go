package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// AllowList is an exact-match set of caller addresses. No CIDR or range semantics.
type AllowList map[string]struct{}

// NewAllowList builds the set from configured addresses.
func NewAllowList(addrs []string) AllowList {
	list := make(AllowList, len(addrs))
	for _, a := range addrs {
		list[a] = struct{}{}
	}
	return list
}

// Allows reports whether addr may call the service. An empty list disables the gate.
func (l AllowList) Allows(addr string) bool {
	if len(l) == 0 {
		return true
	}
	_, ok := l[addr]
	return ok
}

// IPAllowList rejects callers whose address is not in list before any handler runs.
// The address is the one resolved by ClientIP.
func IPAllowList(list AllowList, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := CallerIP(c)
		if list.Allows(ip) {
			return c.Next()
		}
		if logger != nil {
			logger.Warn("access denied", slog.String("ip", ip), slog.String("path", c.Path()))
		}
		return c.Status(http.StatusForbidden).JSON(fiber.Map{
			"detail": fmt.Sprintf("Access denied: IP %s not allowed", ip),
		})
	}
}
