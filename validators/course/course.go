package courseValidator

import (
	"coursepay/middleware"

	"github.com/gofiber/fiber/v2"
)

type ListRequest struct {
	Page  int `query:"page" json:"page" validate:"gte=1"`
	Limit int `query:"limit" json:"limit" validate:"gte=1,lte=100"`
}

// CourseList validator middleware. Page and limit default to 1 and 10.
func CourseList() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := &ListRequest{Page: 1, Limit: 10}

		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
		}

		if errors := middleware.ValidateStruct(reqData); len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedList", reqData)
		return c.Next()
	}
}
