package handlers

import (
	"pairing-system/middleware"
	"pairing-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupSessionRoutes(app *fiber.App, sessionService *services.SessionService, preferenceService *services.PreferenceService) {
	// 🔓 Public routes — creation and login need no prior identity
	app.Post("/api/sessions", sessionService.CreateSession)
	app.Post("/api/login", sessionService.Login)
	app.Get("/api/sessions/:id/status", preferenceService.GetSessionStatus)

	// 🔐 Secured routes — participant token required
	secured := app.Group("/api/preferences", middleware.ParticipantContextMiddleware())
	secured.Post("/", preferenceService.SubmitPreferences)
}
