package settlementRoutes

import (
	settlementControllers "coursepay/controllers/settlement"
	"coursepay/middleware"
	settlementValidators "coursepay/validators/settlement"

	"github.com/gofiber/fiber/v2"
)

func SetupSettlementRoutes(app *fiber.App, h *settlementControllers.Handler) {
	settlementGroup := app.Group("/settlement")

	settlementGroup.Post("/verify", middleware.OptionalJWTMiddleware, settlementValidators.Verify(), h.Verify)
	settlementGroup.Get("/:id", middleware.JWTMiddleware, settlementValidators.SettlementIDParam(), h.GetSettlement)
}
