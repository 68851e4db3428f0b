package authController

import (
	"coursepay/middleware"
	"coursepay/models"
	"coursepay/services/settlement"
	authValidator "coursepay/validators/auth"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Handler struct {
	db        *gorm.DB
	claimer   *settlement.Claimer
	saltRound int
	logger    *zap.Logger
}

func NewHandler(db *gorm.DB, claimer *settlement.Claimer, saltRound int, logger *zap.Logger) *Handler {
	if saltRound < bcrypt.MinCost {
		saltRound = bcrypt.DefaultCost
	}
	return &Handler{db: db, claimer: claimer, saltRound: saltRound, logger: logger}
}

func (h *Handler) Signup(c *fiber.Ctx) error {
	reqData := c.Locals("validatedUser").(*authValidator.SignupRequest)
	db := h.db.WithContext(c.UserContext())

	// Check if email already exists
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", reqData.Email).Count(&count).Error; err != nil {
		h.logger.Error("Error checking email", zap.Error(err))
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process your request!", nil)
	}
	if count > 0 {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Email is already registered!", nil)
	}

	// Hash Password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(reqData.Password), h.saltRound)
	if err != nil {
		h.logger.Error("Error hashing password", zap.Error(err))
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process your request!", nil)
	}

	newUser := models.User{
		ExternalID: uuid.NewString(),
		Name:       reqData.Name,
		Email:      reqData.Email,
		Mobile:     reqData.Mobile,
		Password:   string(hashedPassword),
		Role:       "USER",
	}
	if err := db.Create(&newUser).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Email is already registered!", nil)
		}
		h.logger.Error("Error saving user to database", zap.Error(err))
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to Signup user!", nil)
	}

	// Purchases made with this email before the account existed. A failure
	// here does not undo the signup; the user can claim again later.
	claimed, err := h.claimer.ClaimForUser(c.UserContext(), &newUser)
	if err != nil {
		h.logger.Warn("Claiming earlier purchases failed", zap.Uint("user_id", newUser.ID), zap.Error(err))
	}

	token, err := middleware.GenerateJWT(newUser.ID, newUser.ExternalID, newUser.Name, newUser.Role, newUser.Email)
	if err != nil {
		h.logger.Error("Error generating token", zap.Error(err))
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to generate token!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "User registered successfully.", fiber.Map{
		"token":          token,
		"user":           newUser,
		"claimedCourses": claimed,
	})
}

func (h *Handler) Login(c *fiber.Ctx) error {
	reqData := c.Locals("validatedUser").(*authValidator.LoginRequest)
	db := h.db.WithContext(c.UserContext())

	var users []models.User
	if err := db.Where("email = ? AND is_deleted = ?", reqData.Email, false).Limit(1).Find(&users).Error; err != nil {
		h.logger.Error("Error fetching user", zap.Error(err))
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process your request!", nil)
	}
	if len(users) == 0 {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid credentials!", nil)
	}
	user := users[0]

	// Validate password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(reqData.Password)); err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid credentials!", nil)
	}

	if err := db.Model(&user).Update("last_login", time.Now()).Error; err != nil {
		h.logger.Warn("Error updating last login", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	token, err := middleware.GenerateJWT(user.ID, user.ExternalID, user.Name, user.Role, user.Email)
	if err != nil {
		h.logger.Error("Error generating token", zap.Error(err))
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to generate token!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login successful.", fiber.Map{
		"token": token,
		"user":  user,
	})
}
