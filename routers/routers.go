package routers

import (
	adminControllers "coursepay/controllers/admin"
	authControllers "coursepay/controllers/auth"
	courseControllers "coursepay/controllers/course"
	orderControllers "coursepay/controllers/order"
	settlementControllers "coursepay/controllers/settlement"
	userControllers "coursepay/controllers/user"
	"coursepay/middleware"
	"coursepay/routers/adminRoutes"
	"coursepay/routers/authRoutes"
	"coursepay/routers/courseRoutes"
	"coursepay/routers/orderRoutes"
	"coursepay/routers/settlementRoutes"
	"coursepay/routers/userRoutes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups every controller the API serves.
type Handlers struct {
	Auth       *authControllers.Handler
	Course     *courseControllers.Handler
	Order      *orderControllers.Handler
	Settlement *settlementControllers.Handler
	User       *userControllers.Handler
	Admin      *adminControllers.Handler
}

// Setup registers all routes on app
func Setup(app *fiber.App, h Handlers) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "OK", nil)
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	authRoutes.SetupAuthRoutes(app, h.Auth)
	courseRoutes.SetupCourseRoutes(app, h.Course)
	orderRoutes.SetupOrderRoutes(app, h.Order)
	settlementRoutes.SetupSettlementRoutes(app, h.Settlement)
	userRoutes.SetupUserRoutes(app, h.User)
	adminRoutes.SetupAdminRoutes(app, h.Admin)
}
