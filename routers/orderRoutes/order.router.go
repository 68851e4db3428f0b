package orderRoutes

import (
	orderControllers "coursepay/controllers/order"
	"coursepay/middleware"
	orderValidators "coursepay/validators/order"

	"github.com/gofiber/fiber/v2"
)

func SetupOrderRoutes(app *fiber.App, h *orderControllers.Handler) {
	orderGroup := app.Group("/order")

	// Guests may buy; a signed-in buyer is identified by their token
	orderGroup.Post("/:courseId", middleware.OptionalJWTMiddleware, orderValidators.CourseIDParam(), orderValidators.CreateOrder(), h.CreateOrder)
}
