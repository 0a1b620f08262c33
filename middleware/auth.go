package middleware

import (
	"log"
	"strings"

	"pairing-system/utils"

	"github.com/gofiber/fiber/v2"
)

// ParticipantContextMiddleware validates the Bearer token issued at login
// and attaches the participant's session and username to the context.
func ParticipantContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authorization token missing",
			})
		}

		// Parse "Bearer <token>"
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			// no "Bearer " prefix — try raw value
			token = authHeader
		}

		claims, err := utils.ParseParticipantToken(token)
		if err != nil {
			log.Printf("🚫 [AUTH] Invalid participant token for %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired token",
			})
		}

		c.Locals("session_id", claims.SessionID)
		c.Locals("username", claims.Username)

		return c.Next()
	}
}
