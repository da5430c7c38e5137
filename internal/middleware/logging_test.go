package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"claimpro/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogger swaps the global logger for a JSON logger writing into the returned buffer.
func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := observability.GlobalLogger
	observability.GlobalLogger = observability.NewLogger(&buf, "production")
	t.Cleanup(func() { observability.GlobalLogger = prev })
	return &buf
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &rec))
	return rec
}

func TestStructuredLogger_LevelFollowsStatus(t *testing.T) {
	buf := captureLogger(t)

	app := fiber.New()
	app.Use(requestid.New(), ContextMiddleware(), StructuredLogger())
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/Claims/Details/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) })
	app.Get("/boom", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusBadGateway, "upstream") })

	tests := []struct {
		path  string
		level string
		route string
	}{
		{"/ok", "INFO", "/ok"},
		{"/Claims/Details/7", "WARN", "/Claims/Details/:id"},
		{"/boom", "ERROR", "/boom"},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
		require.NoError(t, err)
		_ = resp.Body.Close()

		rec := lastRecord(t, buf)
		assert.Equal(t, tt.level, rec["level"], tt.path)
		assert.Equal(t, tt.route, rec["route"], tt.path)
		assert.NotEmpty(t, rec["request_id"], tt.path)
	}
}
