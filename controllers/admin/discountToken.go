package adminController

import (
	"coursepay/middleware"
	"coursepay/models"
	adminValidator "coursepay/validators/admin"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Handler struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewHandler(db *gorm.DB, logger *zap.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

func (h *Handler) CreateDiscountToken(c *fiber.Ctx) error {
	reqData := c.Locals("validatedDiscountToken").(*adminValidator.CreateDiscountTokenRequest)

	token := models.DiscountToken{
		Token:              reqData.Token,
		CourseIDs:          datatypes.JSONSlice[uint](reqData.CourseIDs),
		DiscountPercentage: reqData.DiscountPercentage,
		ExpiresAt:          reqData.ExpiresAt,
		IsActive:           true,
	}
	if err := h.db.WithContext(c.UserContext()).Create(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Discount token already exists!", nil)
		}
		h.logger.Error("Error creating discount token", zap.Error(err))
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create discount token!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Discount token created successfully.", token)
}

func (h *Handler) ListDiscountTokens(c *fiber.Ctx) error {
	var tokens []models.DiscountToken
	if err := h.db.WithContext(c.UserContext()).Order("created_at desc").Find(&tokens).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch discount tokens!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Discount tokens fetched successfully!", tokens)
}

// DeactivateDiscountToken stops a token from applying to new orders
func (h *Handler) DeactivateDiscountToken(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid token ID!", nil)
	}

	res := h.db.WithContext(c.UserContext()).Model(&models.DiscountToken{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to deactivate discount token!", nil)
	}
	if res.RowsAffected == 0 {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Discount token not found!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Discount token deactivated.", nil)
}
