package orderValidator

import (
	"coursepay/middleware"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type CreateOrderRequest struct {
	DiscountToken  string `json:"discountToken" validate:"max=64"`
	Email          string `json:"email" validate:"omitempty,email,max=255"`
	IdempotencyKey string `json:"idempotencyKey" validate:"max=100"`
	ApplyTax       bool   `json:"applyTax"`
}

// CourseIDParam validates the :courseId path parameter
func CourseIDParam() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseIDStr := strings.TrimSpace(c.Params("courseId"))
		if courseIDStr == "" {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Course ID is required!", nil)
		}

		courseID, err := strconv.ParseUint(courseIDStr, 10, 32)
		if err != nil || courseID == 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Course ID!", nil)
		}

		c.Locals("courseID", uint(courseID))
		return c.Next()
	}
}

// CreateOrder validator middleware. The body is optional; the idempotency key
// may also arrive in the Idempotency-Key header.
func CreateOrder() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(CreateOrderRequest)
		if len(c.Body()) > 0 {
			if err := c.BodyParser(reqData); err != nil {
				return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
			}
		}

		reqData.DiscountToken = strings.TrimSpace(reqData.DiscountToken)
		reqData.Email = strings.TrimSpace(reqData.Email)
		if reqData.IdempotencyKey == "" {
			reqData.IdempotencyKey = strings.TrimSpace(c.Get("Idempotency-Key"))
		}

		if errors := middleware.ValidateStruct(reqData); len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedOrder", reqData)
		return c.Next()
	}
}
