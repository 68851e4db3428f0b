package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"coursepay/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(mw ...fiber.Handler) *fiber.App {
	app := fiber.New()
	handlers := append(mw, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("userId").(uint)
		externalID, _ := c.Locals("externalId").(string)
		return c.JSON(fiber.Map{"userId": userID, "externalId": externalID})
	})
	app.Get("/", handlers...)
	return app
}

func request(t *testing.T, app *fiber.App, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestJWTMiddleware(t *testing.T) {
	config.AppConfig = &config.Config{JWTKey: "k"}
	token, err := GenerateJWT(7, "ext-7", "Asha", "USER", "asha@example.com")
	require.NoError(t, err)

	app := newApp(JWTMiddleware)
	assert.Equal(t, http.StatusOK, request(t, app, "Bearer "+token))
	assert.Equal(t, http.StatusUnauthorized, request(t, app, ""))
	assert.Equal(t, http.StatusUnauthorized, request(t, app, token))
	assert.Equal(t, http.StatusUnauthorized, request(t, app, "Bearer "+token+"x"))

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"userId": 7})
	forged, err := other.SignedString([]byte("not-k"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, request(t, app, "Bearer "+forged))
}

func TestOptionalJWTMiddleware(t *testing.T) {
	config.AppConfig = &config.Config{JWTKey: "k"}
	token, err := GenerateJWT(7, "ext-7", "Asha", "USER", "asha@example.com")
	require.NoError(t, err)

	app := newApp(OptionalJWTMiddleware)
	assert.Equal(t, http.StatusOK, request(t, app, ""))
	assert.Equal(t, http.StatusOK, request(t, app, "Bearer "+token))
	assert.Equal(t, http.StatusUnauthorized, request(t, app, "Bearer garbage"))
}

func TestRequireRole(t *testing.T) {
	config.AppConfig = &config.Config{JWTKey: "k"}
	user, err := GenerateJWT(1, "u", "U", "USER", "u@example.com")
	require.NoError(t, err)
	admin, err := GenerateJWT(2, "a", "A", "ADMIN", "a@example.com")
	require.NoError(t, err)

	app := newApp(JWTMiddleware, RequireRole("ADMIN"))
	assert.Equal(t, http.StatusForbidden, request(t, app, "Bearer "+user))
	assert.Equal(t, http.StatusOK, request(t, app, "Bearer "+admin))
}

func TestValidateStruct(t *testing.T) {
	type body struct {
		Email  string `json:"email" validate:"required,email"`
		Amount int64  `json:"amount" validate:"gte=0"`
		Note   string `json:"note" validate:"max=3"`
	}

	assert.Nil(t, ValidateStruct(&body{Email: "a@b.co", Note: "ok"}))

	errs := ValidateStruct(&body{Email: "nope", Amount: -1, Note: "toolong"})
	assert.Equal(t, "Invalid email!", errs["email"])
	assert.Contains(t, errs, "amount")
	assert.Contains(t, errs, "note")

	errs = ValidateStruct(&body{})
	assert.Equal(t, "email is required!", errs["email"])
}
