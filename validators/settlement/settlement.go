package settlementValidator

import (
	"coursepay/middleware"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// VerifyRequest is the checkout callback relayed by the browser. The
// razorpay_* names sent by the gateway's checkout handler are accepted when
// the gateway* names are absent.
type VerifyRequest struct {
	SettlementID  uint   `json:"settlementId" validate:"required,gt=0"`
	OrderID       string `json:"gatewayOrderId" validate:"required,max=100"`
	PaymentID     string `json:"gatewayPaymentId" validate:"required,max=100"`
	Signature     string `json:"providedSignature" validate:"required,max=255"`
	BuyerIdentity string `json:"buyerIdentity" validate:"max=64"`
	Amount        int64  `json:"amount" validate:"gte=0"`
	Email         string `json:"email" validate:"omitempty,email,max=255"`

	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Verify validator middleware. The signature's format is not checked here: a
// malformed signature is recorded and rejected like any other forgery.
func Verify() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(VerifyRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		reqData.OrderID = firstNonEmpty(reqData.OrderID, reqData.RazorpayOrderID)
		reqData.PaymentID = firstNonEmpty(reqData.PaymentID, reqData.RazorpayPaymentID)
		reqData.Signature = firstNonEmpty(reqData.Signature, reqData.RazorpaySignature)
		reqData.BuyerIdentity = strings.TrimSpace(reqData.BuyerIdentity)
		reqData.Email = strings.TrimSpace(reqData.Email)

		if errors := middleware.ValidateStruct(reqData); len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedVerify", reqData)
		return c.Next()
	}
}

// SettlementIDParam validates the :id path parameter
func SettlementIDParam() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(strings.TrimSpace(c.Params("id")), 10, 32)
		if err != nil || id == 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Settlement ID!", nil)
		}
		c.Locals("settlementID", uint(id))
		return c.Next()
	}
}
