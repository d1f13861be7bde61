package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/paycard/internal/logging"
)

// app.Test connections come from 0.0.0.0.
const testPeer = "0.0.0.0"

func newGateApp(t *testing.T, allowed, trusted []string, hits *int) *fiber.App {
	t.Helper()
	trust, err := NewProxyTrust(fiber.HeaderXForwardedFor, trusted)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(ClientIP(trust))
	app.Use(IPAllowList(NewAllowList(allowed), logging.Discard()))
	app.Post("/generate-payment-card", func(c *fiber.Ctx) error {
		*hits++
		return c.Status(fiber.StatusTeapot).SendString("downstream")
	})
	return app
}

func doGate(t *testing.T, app *fiber.App, forwarded string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/generate-payment-card", nil)
	if forwarded != "" {
		req.Header.Set(fiber.HeaderXForwardedFor, forwarded)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestAllowListEmptyAdmitsEveryone(t *testing.T) {
	list := NewAllowList(nil)
	for _, ip := range []string{"127.0.0.1", "10.1.2.3", "::1", ""} {
		assert.True(t, list.Allows(ip), "empty allow-list rejected %q", ip)
	}
}

func TestAllowListExactMatchOnly(t *testing.T) {
	list := NewAllowList([]string{"10.0.0.1"})
	assert.True(t, list.Allows("10.0.0.1"))
	for _, ip := range []string{"10.0.0.10", "10.0.0.0/24", " 10.0.0.1", "10.0.0.2"} {
		assert.False(t, list.Allows(ip), "unexpected admit of %q", ip)
	}
}

func TestIPAllowListDisabledPassesThrough(t *testing.T) {
	hits := 0
	app := newGateApp(t, nil, []string{testPeer}, &hits)

	status, body := doGate(t, app, "203.0.113.9")
	assert.Equal(t, fiber.StatusTeapot, status)
	assert.Equal(t, "downstream", body)
	assert.Equal(t, 1, hits)
}

func TestIPAllowListRejectsUnknownCaller(t *testing.T) {
	hits := 0
	app := newGateApp(t, []string{"10.0.0.1"}, []string{testPeer}, &hits)

	status, body := doGate(t, app, "203.0.113.9")
	require.Equal(t, fiber.StatusForbidden, status)
	assert.Zero(t, hits, "handler must not run for rejected callers")

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &decoded))
	assert.Equal(t, "Access denied: IP 203.0.113.9 not allowed", decoded["detail"])
}

func TestIPAllowListAdmitsListedCaller(t *testing.T) {
	hits := 0
	app := newGateApp(t, []string{"10.0.0.1", "10.0.0.2"}, []string{testPeer}, &hits)

	status, _ := doGate(t, app, "10.0.0.2")
	assert.Equal(t, fiber.StatusTeapot, status)
	assert.Equal(t, 1, hits)
}

func TestIPAllowListIgnoresHeaderFromUntrustedPeer(t *testing.T) {
	hits := 0
	app := newGateApp(t, []string{"10.0.0.1"}, []string{"10.9.9.9"}, &hits)

	status, body := doGate(t, app, "10.0.0.1")
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Contains(t, body, testPeer)
	assert.Zero(t, hits)
}

func TestIPAllowListUsesNearestUntrustedHop(t *testing.T) {
	hits := 0
	app := newGateApp(t, []string{"10.0.0.1"}, []string{testPeer, "192.168.1.0/24"}, &hits)

	// The client prepended an allowed address; the hop its proxy recorded wins.
	status, _ := doGate(t, app, "10.0.0.1, 198.51.100.4, 192.168.1.5")
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = doGate(t, app, "198.51.100.4, 10.0.0.1, 192.168.1.5")
	assert.Equal(t, fiber.StatusTeapot, status)
	assert.Equal(t, 1, hits)
}

func TestNewProxyTrustRejectsGarbage(t *testing.T) {
	_, err := NewProxyTrust(fiber.HeaderXForwardedFor, []string{"not-an-ip"})
	assert.Error(t, err)
	_, err = NewProxyTrust(fiber.HeaderXForwardedFor, []string{"10.0.0.0/99"})
	assert.Error(t, err)
}
