package adminValidator

import (
	"coursepay/middleware"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

type CreateDiscountTokenRequest struct {
	Token              string    `json:"token" validate:"required,min=3,max=64"`
	CourseIDs          []uint    `json:"courseIds" validate:"required,min=1,dive,gt=0"`
	DiscountPercentage int64     `json:"discountPercentage" validate:"gte=0,lte=100"`
	ExpiresAt          time.Time `json:"expiresAt" validate:"required"`
}

// CreateDiscountToken validator middleware
func CreateDiscountToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(CreateDiscountTokenRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		reqData.Token = strings.TrimSpace(reqData.Token)

		errors := middleware.ValidateStruct(reqData)
		if errors == nil {
			errors = make(map[string]string)
		}
		if _, bad := errors["expiresAt"]; !bad && !reqData.ExpiresAt.After(time.Now()) {
			errors["expiresAt"] = "Expiry must be in the future!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedDiscountToken", reqData)
		return c.Next()
	}
}
