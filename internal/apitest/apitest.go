// Package apitest holds helpers for exercising fiber handlers in tests.
package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"dairy-backend/internal/auth"
	"dairy-backend/internal/httpx"
	"dairy-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// NewApp returns an app with the production error handler and the given
// user already authenticated.
func NewApp(user *models.User) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: httpx.ErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil))),
	})
	if user != nil {
		app.Use(AsUser(user))
	}
	return app
}

// AsUser sets the locals the JWT middleware would set for user.
func AsUser(user *models.User) fiber.Handler {
	claims := &auth.Claims{UserID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role}
	return func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, user.ID)
		c.Locals(auth.CtxUserRoleKey, user.Role)
		c.Locals(auth.CtxClaimsKey, claims)
		return c.Next()
	}
}

func Admin() *models.User {
	return &models.User{ID: 1, Name: "Admin", Email: "admin@example.com", Role: models.RoleAdmin}
}

// Do sends a request with an optional JSON body and returns the status and raw body.
func Do(t *testing.T, app *fiber.App, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

// DoJSON is Do followed by decoding the response into dst.
func DoJSON(t *testing.T, app *fiber.App, method, path string, body, dst any) int {
	t.Helper()
	status, raw := Do(t, app, method, path, body)
	if dst != nil && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, dst), string(raw))
	}
	return status
}
