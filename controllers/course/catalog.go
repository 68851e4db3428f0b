package courseController

import (
	"coursepay/middleware"
	"coursepay/models"
	"coursepay/services/pricing"
	courseValidator "coursepay/validators/course"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Handler struct {
	db       *gorm.DB
	resolver *pricing.Resolver
}

func NewHandler(db *gorm.DB, resolver *pricing.Resolver) *Handler {
	return &Handler{db: db, resolver: resolver}
}

// GetAllCourses lists published courses for the storefront
func (h *Handler) GetAllCourses(c *fiber.Ctx) error {
	reqData := c.Locals("validatedList").(*courseValidator.ListRequest)

	page, limit := reqData.Page, reqData.Limit
	offset := (page - 1) * limit

	db := h.db.WithContext(c.UserContext()).Model(&models.Course{}).
		Where("is_deleted = ? AND is_published = ? AND status = ?", false, true, "ACTIVE")

	// Get total count
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch courses!", nil)
	}

	var courses []models.Course
	if err := db.Offset(offset).Limit(limit).Order("created_at desc").Find(&courses).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch courses!", nil)
	}

	response := map[string]interface{}{
		"courses": courses,
		"pagination": map[string]interface{}{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", response)
}

// GetCourseDetails returns a course with the price a buyer would pay, so the
// checkout page can preview a discount token before ordering.
func (h *Handler) GetCourseDetails(c *fiber.Ctx) error {
	courseID := c.Locals("courseID").(uint)

	var course models.Course
	err := h.db.WithContext(c.UserContext()).
		Where("id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).
		First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch course!", nil)
	}

	quote := h.resolver.ResolvePrice(c.UserContext(), course.ID, course.Price, c.Query("discountToken"))

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course fetched successfully!", fiber.Map{
		"course":          course,
		"basePrice":       quote.BasePrice,
		"effectivePrice":  quote.EffectivePrice,
		"discount":        quote.Discount(),
		"discountApplied": quote.Token != nil,
	})
}
