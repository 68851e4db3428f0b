package settlementController

import (
	"coursepay/middleware"
	"coursepay/services/settlement"
	settlementValidator "coursepay/validators/settlement"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

type Handler struct {
	reconciler *settlement.Reconciler
	store      *settlement.Store
}

func NewHandler(reconciler *settlement.Reconciler, store *settlement.Store) *Handler {
	return &Handler{reconciler: reconciler, store: store}
}

// Verify settles a payment from the checkout callback
func (h *Handler) Verify(c *fiber.Ctx) error {
	reqData := c.Locals("validatedVerify").(*settlementValidator.VerifyRequest)

	req := settlement.ReconcileRequest{
		SettlementID:     reqData.SettlementID,
		GatewayOrderID:   reqData.OrderID,
		GatewayPaymentID: reqData.PaymentID,
		Signature:        reqData.Signature,
		BuyerIdentity:    reqData.BuyerIdentity,
		DisplayAmount:    reqData.Amount,
		NotifyEmail:      reqData.Email,
	}
	// a signed-in caller is always the buyer
	if externalID, ok := c.Locals("externalId").(string); ok && externalID != "" {
		req.BuyerIdentity = externalID
	}
	if req.NotifyEmail == "" {
		req.NotifyEmail, _ = c.Locals("email").(string)
	}

	res, err := h.reconciler.Reconcile(c.UserContext(), req)
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrSettlementNotFound):
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Settlement not found!", nil)
		case errors.Is(err, settlement.ErrCourseNotFound):
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to verify payment!", nil)
	}

	data := fiber.Map{
		"status":       res.Outcome,
		"settlementId": res.Settlement.ID,
		"courseId":     res.Settlement.CourseID,
		"userAttached": res.Settlement.UserID != nil,
		"enrolled":     res.HasAccess,
	}
	if res.Outcome == settlement.Rejected {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Payment verification failed!", data)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Payment verified successfully.", data)
}

// GetSettlement returns one of the caller's own settlements
func (h *Handler) GetSettlement(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	settlementID := c.Locals("settlementID").(uint)

	st, err := h.store.FindForUser(c.UserContext(), settlementID, userID)
	if err != nil {
		if errors.Is(err, settlement.ErrSettlementNotFound) {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Settlement not found!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch settlement!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Settlement fetched successfully!", st)
}
