package handlers

import (
	"pairing-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupPairingRoutes(app *fiber.App, pairingService *services.PairingService) {
	// Results stay public like session status — the session id is the
	// unguessable capability, matching the share-a-link flow.
	app.Get("/api/sessions/:id/results", pairingService.GetResults)
	app.Get("/api/sessions/:id/results/history", pairingService.GetResultsHistory)
}
