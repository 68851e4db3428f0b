package adminRoutes

import (
	adminControllers "coursepay/controllers/admin"
	"coursepay/middleware"
	adminValidators "coursepay/validators/admin"

	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(app *fiber.App, h *adminControllers.Handler) {
	adminGroup := app.Group("/admin", middleware.JWTMiddleware, middleware.RequireRole("ADMIN"))

	adminGroup.Post("/discount-token", adminValidators.CreateDiscountToken(), h.CreateDiscountToken)
	adminGroup.Get("/discount-token/list", h.ListDiscountTokens)
	adminGroup.Patch("/discount-token/:id/deactivate", h.DeactivateDiscountToken)
}
