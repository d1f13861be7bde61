package middleware

import (
	"fmt"
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const callerIPKey = "caller_ip"

// ProxyTrust decides which peers may speak for a client through a forwarding header.
type ProxyTrust struct {
	header string
	ips    map[string]struct{}
	nets   []*net.IPNet
}

// NewProxyTrust parses proxies as addresses or CIDR ranges. An empty header disables
// forwarding headers entirely and the TCP peer is always the caller.
func NewProxyTrust(header string, proxies []string) (*ProxyTrust, error) {
	p := &ProxyTrust{header: header, ips: make(map[string]struct{}, len(proxies))}
	for _, raw := range proxies {
		if strings.Contains(raw, "/") {
			_, ipNet, err := net.ParseCIDR(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy range %q: %w", raw, err)
			}
			p.nets = append(p.nets, ipNet)
			continue
		}
		ip := net.ParseIP(raw)
		if ip == nil {
			return nil, fmt.Errorf("invalid trusted proxy address %q", raw)
		}
		p.ips[ip.String()] = struct{}{}
	}
	return p, nil
}

func (p *ProxyTrust) trusts(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	if _, ok := p.ips[ip.String()]; ok {
		return true
	}
	for _, n := range p.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Resolve returns the caller address for c. The header is read only when the TCP
// peer is a trusted proxy, and then hops are walked right to left past trusted
// proxies, so a value the client prepended cannot stand in for its own address.
func (p *ProxyTrust) Resolve(c *fiber.Ctx) string {
	peer := c.Context().RemoteIP().String()
	if p == nil || p.header == "" || !p.trusts(peer) {
		return peer
	}

	hops := strings.Split(c.Get(p.header), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !p.trusts(hop) {
			return hop
		}
		peer = hop
	}
	return peer
}

// ClientIP resolves the caller once per request and stores it for CallerIP.
func ClientIP(trust *ProxyTrust) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(callerIPKey, trust.Resolve(c))
		return c.Next()
	}
}

// CallerIP returns the address stored by ClientIP, or the TCP peer when it did not run.
func CallerIP(c *fiber.Ctx) string {
	if ip, ok := c.Locals(callerIPKey).(string); ok {
		return ip
	}
	return c.Context().RemoteIP().String()
}
