package settlement

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"coursepay/models"
	"coursepay/services/events"
	"coursepay/services/gateway"
	"coursepay/services/notify"
	"coursepay/services/pricing"
	"coursepay/services/testutil"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const testSecret = "rzp_test_secret"

type fakeGateway struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &gateway.Order{
		ID:       fmt.Sprintf("order_%d_%s", g.calls, receipt),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return m.err
}

func (m *recordingMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.SettlementEvent
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.SettlementEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var types []string
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type brokenIdentity struct{}

func (brokenIdentity) FindUserByExternalID(context.Context, string) (*models.User, error) {
	return nil, errors.New("connection reset by peer")
}

func (brokenIdentity) FindUserByEmail(context.Context, string) (*models.User, error) {
	return nil, errors.New("connection reset by peer")
}

type harness struct {
	db         *gorm.DB
	store      *Store
	gw         *fakeGateway
	mailer     *recordingMailer
	publisher  *recordingPublisher
	dispatcher *notify.Dispatcher
	initiator  *Initiator
	reconciler *Reconciler
	claimer    *Claimer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := testutil.NewTestDB(t)
	logger := zap.NewNop()
	store := NewStore(db)
	catalog := NewGormCatalog(db)
	h := &harness{
		db:         db,
		store:      store,
		gw:         &fakeGateway{},
		mailer:     &recordingMailer{},
		publisher:  &recordingPublisher{},
		dispatcher: notify.NewDispatcher(logger),
	}
	resolver := pricing.NewResolver(pricing.NewGormTokenStore(db), logger)
	h.initiator = NewInitiator(store, catalog, resolver, h.gw, InitiatorConfig{
		Currency:          "INR",
		TaxPercent:        18,
		GatewayTimeout:    2 * time.Second,
		IdempotencyWindow: 10 * time.Minute,
	}, logger)
	h.reconciler = NewReconciler(store, catalog, NewGormIdentity(db), h.mailer, h.publisher, h.dispatcher, testSecret, logger)
	h.claimer = NewClaimer(store, h.publisher, h.dispatcher, logger)

	t.Cleanup(h.dispatcher.Wait)
	return h
}

func (h *harness) seedCourse(t *testing.T, title string, price int64) models.Course {
	t.Helper()
	course := models.Course{Title: title, Price: price, CategoryID: 1, Status: "ACTIVE", IsPublished: true}
	require.NoError(t, h.db.Create(&course).Error)
	return course
}

func (h *harness) seedUser(t *testing.T, email string) models.User {
	t.Helper()
	user := models.User{ExternalID: uuid.NewString(), Name: "Test Buyer", Email: email, Password: "x"}
	require.NoError(t, h.db.Create(&user).Error)
	return user
}

func (h *harness) seedToken(t *testing.T, token string, pct int64, expiresAt time.Time, courseIDs ...uint) models.DiscountToken {
	t.Helper()
	dt := models.DiscountToken{
		Token:              token,
		CourseIDs:          datatypes.JSONSlice[uint](courseIDs),
		DiscountPercentage: pct,
		ExpiresAt:          expiresAt,
		IsActive:           true,
	}
	require.NoError(t, h.db.Create(&dt).Error)
	return dt
}

func (h *harness) order(t *testing.T, courseID uint, buyer BuyerContext) *OrderResult {
	t.Helper()
	res, err := h.initiator.CreateOrder(context.Background(), courseID, buyer)
	require.NoError(t, err)
	require.NotEmpty(t, res.GatewayOrderID)
	return res
}

func (h *harness) settlement(t *testing.T, id uint) models.Settlement {
	t.Helper()
	var st models.Settlement
	require.NoError(t, h.db.First(&st, id).Error)
	return st
}

func (h *harness) enrollmentCount(t *testing.T, userID, courseID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&n).Error)
	return n
}

func signedCallback(res *OrderResult, paymentID, buyerIdentity, email string) ReconcileRequest {
	return ReconcileRequest{
		SettlementID:     res.SettlementID,
		GatewayOrderID:   res.GatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        gateway.Sign(res.GatewayOrderID, paymentID, testSecret),
		BuyerIdentity:    buyerIdentity,
		DisplayAmount:    res.Amount,
		NotifyEmail:      email,
	}
}

func farFuture() time.Time {
	return time.Now().Add(30 * 24 * time.Hour)
}
