package middleware_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"pairing-system/middleware"
	"pairing-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func newProtectedApp() *fiber.App {
	app := fiber.New()
	app.Use(middleware.ParticipantContextMiddleware())
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"session_id": c.Locals("session_id"),
			"username":   c.Locals("username"),
		})
	})
	return app
}

func TestParticipantContext_MissingToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newProtectedApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/whoami", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestParticipantContext_InvalidToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newProtectedApp()

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer garbage")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestParticipantContext_ValidToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newProtectedApp()

	token, err := utils.GenerateParticipantToken("sess-1", "alice", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}
