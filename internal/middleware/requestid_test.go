package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDAssignsAndEchoes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	app := fiber.New()
	app.Use(RequestID(), Audit(logger))
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString(RequestIDFrom(c))
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	generated := resp.Header.Get(RequestIDHeader)
	assert.NotEmpty(t, generated)

	req := httptest.NewRequest(fiber.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "trace-42")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "trace-42", resp.Header.Get(RequestIDHeader))

	var last map[string]any
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	require.NoError(t, json.Unmarshal(lines[1], &last))
	assert.Equal(t, "trace-42", last["request_id"])
	assert.Equal(t, "/healthz", last["path"])
}
