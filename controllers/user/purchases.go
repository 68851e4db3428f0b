package userController

import (
	"coursepay/middleware"
	"coursepay/models"
	"coursepay/services/settlement"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Handler struct {
	db      *gorm.DB
	store   *settlement.Store
	claimer *settlement.Claimer
}

func NewHandler(db *gorm.DB, store *settlement.Store, claimer *settlement.Claimer) *Handler {
	return &Handler{db: db, store: store, claimer: claimer}
}

func (h *Handler) currentUser(c *fiber.Ctx) (*models.User, error) {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return nil, middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := h.db.WithContext(c.UserContext()).Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return nil, middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}
	return &user, nil
}

// ClaimPurchases attaches purchases made with the user's email before signup
func (h *Handler) ClaimPurchases(c *fiber.Ctx) error {
	user, resp := h.currentUser(c)
	if user == nil {
		return resp
	}

	claimed, err := h.claimer.ClaimForUser(c.UserContext(), user)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to claim purchases!", nil)
	}
	if claimed == nil {
		claimed = []uint{}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Purchases claimed successfully.", fiber.Map{
		"courseIds": claimed,
	})
}

func (h *Handler) GetEnrollments(c *fiber.Ctx) error {
	user, resp := h.currentUser(c)
	if user == nil {
		return resp
	}

	enrollments, err := h.store.ListEnrollments(c.UserContext(), user.ID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch enrollments!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched successfully!", fiber.Map{
		"enrollments": enrollments,
		"total":       len(enrollments),
	})
}
