package orderController

import (
	"coursepay/middleware"
	"coursepay/services/settlement"
	orderValidator "coursepay/validators/order"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

type Handler struct {
	initiator *settlement.Initiator
	keyID     string
}

// NewHandler wires order creation. keyID is handed to the checkout widget.
func NewHandler(initiator *settlement.Initiator, keyID string) *Handler {
	return &Handler{initiator: initiator, keyID: keyID}
}

func (h *Handler) CreateOrder(c *fiber.Ctx) error {
	courseID := c.Locals("courseID").(uint)
	reqData := c.Locals("validatedOrder").(*orderValidator.CreateOrderRequest)

	buyer := settlement.BuyerContext{
		DiscountToken:  reqData.DiscountToken,
		BuyerEmail:     reqData.Email,
		IdempotencyKey: reqData.IdempotencyKey,
		ApplyTax:       reqData.ApplyTax,
	}
	// Signed-in buyers are identified by their token, never by the body
	if externalID, ok := c.Locals("externalId").(string); ok {
		buyer.BuyerIdentity = externalID
	}
	if buyer.BuyerEmail == "" {
		buyer.BuyerEmail, _ = c.Locals("email").(string)
	}

	res, err := h.initiator.CreateOrder(c.UserContext(), courseID, buyer)
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrCourseNotFound):
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
		case errors.Is(err, settlement.ErrIdempotencyMismatch):
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Idempotency key already used for another course!", nil)
		case errors.Is(err, settlement.ErrAmountOutOfRange):
			return middleware.JsonResponse(c, fiber.StatusUnprocessableEntity, false, "Order amount out of range!", nil)
		case errors.Is(err, settlement.ErrSettlementClosed):
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Idempotency key already used for a closed order, use a new key!", nil)
		case errors.Is(err, settlement.ErrOrderInProgress):
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Order creation already in progress, retry shortly!", nil)
		case errors.Is(err, settlement.ErrGatewayUnavailable):
			return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Payment gateway unavailable, please try again!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create order!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Order created successfully.", fiber.Map{
		"settlementId":   res.SettlementID,
		"gatewayOrderId": res.GatewayOrderID,
		"amount":         res.Amount,
		"currency":       res.Currency,
		"keyId":          h.keyID,
		"replayed":       res.Replayed,
	})
}
