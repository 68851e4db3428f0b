package middleware

import (
	"coursepay/config"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// GenerateJWT generates a JWT token for the user
func GenerateJWT(userID uint, externalID, name, role, email string) (string, error) {
	claims := jwt.MapClaims{
		"userId":     userID,
		"externalId": externalID,
		"name":       name,
		"role":       role,
		"email":      email,
		"iat":        time.Now().Unix(),                     // issued at
		"exp":        time.Now().Add(24 * time.Hour).Unix(), // expiry 24h
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	jwtSecret := []byte(config.AppConfig.JWTKey)

	return token.SignedString(jwtSecret)
}

// parseBearer validates the Authorization header and returns its claims
func parseBearer(authHeader string) (jwt.MapClaims, string) {
	// The token should be prefixed with "Bearer "
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, "Invalid Authorization header format"
	}
	tokenString := authHeader[len("Bearer "):]

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.AppConfig.JWTKey), nil
	})
	if err != nil || !token.Valid {
		return nil, "Invalid or expired token"
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["userId"] == nil {
		return nil, "Invalid token payload"
	}
	if _, ok := claims["userId"].(float64); !ok {
		return nil, "Invalid token payload"
	}
	return claims, ""
}

// setIdentity stores the caller's identity in the request context
func setIdentity(c *fiber.Ctx, claims jwt.MapClaims) {
	userID := claims["userId"].(float64) // JWT numbers decode as float64
	c.Locals("userId", uint(userID))
	if externalID, ok := claims["externalId"].(string); ok {
		c.Locals("externalId", externalID)
	}
	if role, ok := claims["role"].(string); ok {
		c.Locals("role", role)
	}
	if email, ok := claims["email"].(string); ok {
		c.Locals("email", email)
	}
}

// JWTMiddleware is a middleware to check for valid JWT token in the request
func JWTMiddleware(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Missing or invalid Authorization header", nil)
	}

	claims, msg := parseBearer(authHeader)
	if claims == nil {
		return JsonResponse(c, fiber.StatusUnauthorized, false, msg, nil)
	}

	setIdentity(c, claims)
	return c.Next()
}

// OptionalJWTMiddleware lets anonymous requests through. A token that is
// present must still be valid.
func OptionalJWTMiddleware(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Next()
	}

	claims, msg := parseBearer(authHeader)
	if claims == nil {
		return JsonResponse(c, fiber.StatusUnauthorized, false, msg, nil)
	}

	setIdentity(c, claims)
	return c.Next()
}

func JsonResponse(c *fiber.Ctx, statusCode int, status bool, message string, data interface{}) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

func ValidationErrorResponse(c *fiber.Ctx, errors map[string]string) error {
	return JsonResponse(c, fiber.StatusUnprocessableEntity, false, "Validation failed!", errors)
}
