package userRoutes

import (
	userControllers "coursepay/controllers/user"
	"coursepay/middleware"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, h *userControllers.Handler) {
	userGroup := app.Group("/user")

	userGroup.Get("/enrollments", middleware.JWTMiddleware, h.GetEnrollments)
	userGroup.Post("/purchases/claim", middleware.JWTMiddleware, h.ClaimPurchases)
}
