package courseRoutes

import (
	courseControllers "coursepay/controllers/course"
	courseValidators "coursepay/validators/course"
	orderValidators "coursepay/validators/order"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up the public storefront routes
func SetupCourseRoutes(app *fiber.App, h *courseControllers.Handler) {
	courseGroup := app.Group("/course")

	courseGroup.Get("/list", courseValidators.CourseList(), h.GetAllCourses)
	courseGroup.Get("/:courseId", orderValidators.CourseIDParam(), h.GetCourseDetails)
}
