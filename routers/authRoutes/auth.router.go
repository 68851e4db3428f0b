package authRoutes

import (
	authControllers "coursepay/controllers/auth"
	authValidators "coursepay/validators/auth"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App, h *authControllers.Handler) {
	authGroup := app.Group("/auth")

	authGroup.Post("/signup", authValidators.Signup(), h.Signup)
	authGroup.Post("/login", authValidators.Login(), h.Login)
}
