package routers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"coursepay/config"
	adminControllers "coursepay/controllers/admin"
	authControllers "coursepay/controllers/auth"
	courseControllers "coursepay/controllers/course"
	orderControllers "coursepay/controllers/order"
	settlementControllers "coursepay/controllers/settlement"
	userControllers "coursepay/controllers/user"
	"coursepay/middleware"
	"coursepay/models"
	"coursepay/services/events"
	"coursepay/services/gateway"
	"coursepay/services/notify"
	"coursepay/services/pricing"
	"coursepay/services/settlement"
	"coursepay/services/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const gatewaySecret = "rzp_test_secret"

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	app        *fiber.App
	db         *gorm.DB
	dispatcher *notify.Dispatcher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	config.AppConfig = &config.Config{JWTKey: "test-jwt-key"}

	var orders atomic.Int64
	rzp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		n := orders.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       "order_test_" + strconv.FormatInt(n, 10),
			"amount":   body["amount"],
			"currency": body["currency"],
			"receipt":  body["receipt"],
			"status":   "created",
		})
	}))
	t.Cleanup(rzp.Close)

	db := testutil.NewTestDB(t)
	log := zap.NewNop()
	dispatcher := notify.NewDispatcher(log)
	t.Cleanup(dispatcher.Wait)

	store := settlement.NewStore(db)
	catalog := settlement.NewGormCatalog(db)
	client := gateway.NewRazorpayClient(rzp.URL, "rzp_key", gatewaySecret, 2*time.Second)
	resolver := pricing.NewResolver(pricing.NewGormTokenStore(db), log)
	initiator := settlement.NewInitiator(store, catalog, resolver, client,
		settlement.InitiatorConfig{Currency: "INR", TaxPercent: 18, GatewayTimeout: 2 * time.Second}, log)
	reconciler := settlement.NewReconciler(store, catalog, settlement.NewGormIdentity(db), notify.NewLogMailer(log),
		events.NopPublisher{}, dispatcher, gatewaySecret, log)
	claimer := settlement.NewClaimer(store, events.NopPublisher{}, dispatcher, log)

	app := fiber.New()
	Setup(app, Handlers{
		Auth:       authControllers.NewHandler(db, claimer, 4, log),
		Course:     courseControllers.NewHandler(db, resolver),
		Order:      orderControllers.NewHandler(initiator, client.KeyID()),
		Settlement: settlementControllers.NewHandler(reconciler, store),
		User:       userControllers.NewHandler(db, store, claimer),
		Admin:      adminControllers.NewHandler(db, log),
	})
	return &testServer{app: app, db: db, dispatcher: dispatcher}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (s *testServer) seedCourse(t *testing.T, price int64) models.Course {
	t.Helper()
	course := models.Course{Title: "Price Action", Price: price, Status: "ACTIVE", IsPublished: true}
	require.NoError(t, s.db.Create(&course).Error)
	return course
}

type orderData struct {
	SettlementID   uint   `json:"settlementId"`
	GatewayOrderID string `json:"gatewayOrderId"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	KeyID          string `json:"keyId"`
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func signup(t *testing.T, s *testServer, email string) string {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/auth/signup", map[string]any{
		"name": "Asha Rao", "email": email, "password": "correct-horse",
	}, "")
	require.Equal(t, http.StatusCreated, status, env.Message)
	return decode[struct {
		Token string `json:"token"`
	}](t, env.Data).Token
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	status, env := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Status)
}

func TestPurchaseFlow_SignedInBuyer(t *testing.T) {
	s := newTestServer(t)
	course := s.seedCourse(t, 100000)
	token := signup(t, s, "asha@example.com")

	status, env := s.do(t, http.MethodPost, "/order/"+itoa(course.ID), map[string]any{}, token)
	require.Equal(t, http.StatusOK, status, env.Message)
	order := decode[orderData](t, env.Data)
	assert.Equal(t, int64(100000), order.Amount)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, "rzp_key", order.KeyID)

	status, env = s.do(t, http.MethodPost, "/settlement/verify", map[string]any{
		"settlementId":      order.SettlementID,
		"gatewayOrderId":    order.GatewayOrderID,
		"gatewayPaymentId":  "pay_1",
		"providedSignature": gateway.Sign(order.GatewayOrderID, "pay_1", gatewaySecret),
		"amount":            order.Amount,
	}, token)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Contains(t, string(env.Data), `"confirmed"`)
	assert.Contains(t, string(env.Data), `"enrolled":true`)

	status, env = s.do(t, http.MethodGet, "/user/enrollments", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"total":1`)

	status, _ = s.do(t, http.MethodGet, "/settlement/"+itoa(order.SettlementID), nil, token)
	assert.Equal(t, http.StatusOK, status)
}

func TestVerify_ForgedSignatureIsRejected(t *testing.T) {
	s := newTestServer(t)
	course := s.seedCourse(t, 5000)

	status, env := s.do(t, http.MethodPost, "/order/"+itoa(course.ID), nil, "")
	require.Equal(t, http.StatusOK, status, env.Message)
	order := decode[orderData](t, env.Data)

	status, env = s.do(t, http.MethodPost, "/settlement/verify", map[string]any{
		"settlementId":        order.SettlementID,
		"razorpay_order_id":   order.GatewayOrderID,
		"razorpay_payment_id": "pay_2",
		"razorpay_signature":  "00",
	}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Status)
	assert.Contains(t, string(env.Data), `"rejected"`)
}

func TestVerify_Errors(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodPost, "/settlement/verify", map[string]any{
		"settlementId":        404,
		"razorpay_order_id":   "order_x",
		"razorpay_payment_id": "pay_x",
		"razorpay_signature":  "ab",
	}, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, env = s.do(t, http.MethodPost, "/settlement/verify", map[string]any{"settlementId": 1}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, string(env.Data), "providedSignature")
}

func TestVerify_BuyerIdentityFromBody(t *testing.T) {
	s := newTestServer(t)
	course := s.seedCourse(t, 25000)
	buyer := models.User{ExternalID: "ext-buyer-42", Name: "Ravi", Email: "ravi@example.com", Password: "x"}
	require.NoError(t, s.db.Create(&buyer).Error)

	status, env := s.do(t, http.MethodPost, "/order/"+itoa(course.ID), nil, "")
	require.Equal(t, http.StatusOK, status, env.Message)
	order := decode[orderData](t, env.Data)

	status, env = s.do(t, http.MethodPost, "/settlement/verify", map[string]any{
		"settlementId":      order.SettlementID,
		"gatewayOrderId":    order.GatewayOrderID,
		"gatewayPaymentId":  "pay_9",
		"providedSignature": gateway.Sign(order.GatewayOrderID, "pay_9", gatewaySecret),
		"buyerIdentity":     buyer.ExternalID,
		"amount":            order.Amount,
	}, "")
	require.Equal(t, http.StatusOK, status, env.Message)
	data := decode[struct {
		Status       string `json:"status"`
		UserAttached bool   `json:"userAttached"`
		Enrolled     bool   `json:"enrolled"`
	}](t, env.Data)
	assert.Equal(t, "confirmed", data.Status)
	assert.True(t, data.UserAttached)
	assert.True(t, data.Enrolled)

	var n int64
	require.NoError(t, s.db.Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ?", buyer.ID, course.ID).
		Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestCreateOrder_Errors(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodPost, "/order/999", nil, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(t, http.MethodPost, "/order/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPost, "/order/1", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCreateOrder_IdempotencyHeader(t *testing.T) {
	s := newTestServer(t)
	course := s.seedCourse(t, 5000)

	send := func() orderData {
		req := httptest.NewRequest(http.MethodPost, "/order/"+itoa(course.ID), nil)
		req.Header.Set("Idempotency-Key", "checkout-42")
		resp, err := s.app.Test(req, 5000)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var env envelope
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		return decode[orderData](t, env.Data)
	}

	first, second := send(), send()
	assert.Equal(t, first.SettlementID, second.SettlementID)
	assert.Equal(t, first.GatewayOrderID, second.GatewayOrderID)
}

func TestGuestPurchaseIsClaimedAtSignup(t *testing.T) {
	s := newTestServer(t)
	course := s.seedCourse(t, 5000)

	status, env := s.do(t, http.MethodPost, "/order/"+itoa(course.ID), map[string]any{"email": "guest@example.com"}, "")
	require.Equal(t, http.StatusOK, status, env.Message)
	order := decode[orderData](t, env.Data)

	status, _ = s.do(t, http.MethodPost, "/settlement/verify", map[string]any{
		"settlementId":        order.SettlementID,
		"razorpay_order_id":   order.GatewayOrderID,
		"razorpay_payment_id": "pay_3",
		"razorpay_signature":  gateway.Sign(order.GatewayOrderID, "pay_3", gatewaySecret),
	}, "")
	require.Equal(t, http.StatusOK, status)

	token := signup(t, s, "Guest@Example.com")

	status, env = s.do(t, http.MethodGet, "/user/enrollments", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"total":1`)

	// claiming again finds nothing new
	status, env = s.do(t, http.MethodPost, "/user/purchases/claim", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"courseIds":[]}`, string(env.Data))
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)
	signup(t, s, "login@example.com")

	status, _ := s.do(t, http.MethodPost, "/auth/signup", map[string]any{
		"name": "Asha Rao", "email": "login@example.com", "password": "correct-horse",
	}, "")
	assert.Equal(t, http.StatusConflict, status)

	status, env := s.do(t, http.MethodPost, "/auth/signup", map[string]any{"name": "A", "email": "bad", "password": "short"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, string(env.Data), "email")

	status, _ = s.do(t, http.MethodPost, "/auth/login", map[string]any{"email": "login@example.com", "password": "wrong-horse"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = s.do(t, http.MethodPost, "/auth/login", map[string]any{"email": "LOGIN@example.com", "password": "correct-horse"}, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "token")
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	s := newTestServer(t)
	course := s.seedCourse(t, 100000)
	userToken := signup(t, s, "user@example.com")

	tokenBody := map[string]any{
		"token":              "LAUNCH25",
		"courseIds":          []uint{course.ID},
		"discountPercentage": 25,
		"expiresAt":          time.Now().Add(24 * time.Hour),
	}
	status, _ := s.do(t, http.MethodPost, "/admin/discount-token", tokenBody, userToken)
	assert.Equal(t, http.StatusForbidden, status)

	adminToken, err := middleware.GenerateJWT(1000, "admin-ext", "Admin", "ADMIN", "admin@example.com")
	require.NoError(t, err)
	status, env := s.do(t, http.MethodPost, "/admin/discount-token", tokenBody, adminToken)
	require.Equal(t, http.StatusCreated, status, env.Message)

	status, env = s.do(t, http.MethodPost, "/order/"+itoa(course.ID), map[string]any{"discountToken": "LAUNCH25"}, "")
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, int64(75000), decode[orderData](t, env.Data).Amount)
}

func TestCourseCatalog(t *testing.T) {
	s := newTestServer(t)
	course := s.seedCourse(t, 100000)
	require.NoError(t, s.db.Create(&models.DiscountToken{
		Token:              "HALF",
		CourseIDs:          []uint{course.ID},
		DiscountPercentage: 50,
		ExpiresAt:          time.Now().Add(time.Hour),
		IsActive:           true,
	}).Error)

	status, env := s.do(t, http.MethodGet, "/course/list?page=1&limit=5", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"total":1`)

	status, _ = s.do(t, http.MethodGet, "/course/list?limit=500", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, env = s.do(t, http.MethodGet, "/course/"+itoa(course.ID)+"?discountToken=HALF", nil, "")
	require.Equal(t, http.StatusOK, status)
	preview := decode[struct {
		EffectivePrice  int64 `json:"effectivePrice"`
		DiscountApplied bool  `json:"discountApplied"`
	}](t, env.Data)
	assert.Equal(t, int64(50000), preview.EffectivePrice)
	assert.True(t, preview.DiscountApplied)

	status, _ = s.do(t, http.MethodGet, "/course/999", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
