package settlement

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"coursepay/models"
	"coursepay/services/gateway"
	"coursepay/services/pricing"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// BuyerContext carries what the checkout page knows about the buyer.
type BuyerContext struct {
	DiscountToken  string
	BuyerIdentity  string
	BuyerEmail     string
	IdempotencyKey string
	ApplyTax       bool
}

// OrderResult is what the checkout widget needs to collect payment.
type OrderResult struct {
	SettlementID   uint   `json:"settlementId"`
	GatewayOrderID string `json:"gatewayOrderId"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Replayed       bool   `json:"replayed"`
}

type InitiatorConfig struct {
	Currency          string
	TaxPercent        int64
	GatewayTimeout    time.Duration
	IdempotencyWindow time.Duration
}

// Initiator creates PENDING settlements and their gateway orders.
type Initiator struct {
	store    *Store
	catalog  Catalog
	resolver *pricing.Resolver
	gateway  gateway.Client
	cfg      InitiatorConfig
	now      func() time.Time
	logger   *zap.Logger
}

func NewInitiator(store *Store, catalog Catalog, resolver *pricing.Resolver, gw gateway.Client, cfg InitiatorConfig, logger *zap.Logger) *Initiator {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 10 * time.Second
	}
	if cfg.IdempotencyWindow <= 0 {
		cfg.IdempotencyWindow = 10 * time.Minute
	}
	return &Initiator{
		store:    store,
		catalog:  catalog,
		resolver: resolver,
		gateway:  gw,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// CreateOrder prices the course, records a PENDING settlement and opens a
// gateway order for it. Replaying an idempotency key returns the settlement
// already created for it instead of opening a second gateway order.
func (i *Initiator) CreateOrder(ctx context.Context, courseID uint, buyer BuyerContext) (*OrderResult, error) {
	course, err := i.catalog.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, ErrCourseNotFound) {
			ordersTotal.WithLabelValues("not_found").Inc()
			return nil, err
		}
		ordersTotal.WithLabelValues("error").Inc()
		return nil, internal(err, "load course")
	}

	key, derived := i.idempotencyKey(courseID, buyer)
	if key != "" {
		existing, err := i.store.FindByIdempotencyKey(ctx, key)
		if err != nil {
			ordersTotal.WithLabelValues("error").Inc()
			return nil, internal(err, "idempotency lookup")
		}
		if existing != nil {
			if derived && existing.IsTerminal() {
				// the earlier attempt in this window is settled; this is a new purchase
				key = ""
			} else {
				return i.replay(ctx, existing, courseID)
			}
		}
	}

	quote := i.resolver.ResolvePrice(ctx, course.ID, course.Price, buyer.DiscountToken)
	var tax int64
	if buyer.ApplyTax {
		tax = pricing.AddTax(quote.EffectivePrice, i.cfg.TaxPercent)
	}
	if quote.EffectivePrice > math.MaxInt64-tax {
		ordersTotal.WithLabelValues("error").Inc()
		return nil, errors.Wrapf(ErrAmountOutOfRange, "course %d", course.ID)
	}

	st := &models.Settlement{
		CourseID:       course.ID,
		BuyerIdentity:  buyer.BuyerIdentity,
		BuyerEmail:     normalizeEmail(buyer.BuyerEmail),
		BaseAmount:     quote.BasePrice,
		DiscountAmount: quote.Discount(),
		TaxAmount:      tax,
		Amount:         quote.EffectivePrice + tax,
		Currency:       i.cfg.Currency,
	}
	if quote.Token != nil {
		st.DiscountTokenID = &quote.Token.ID
	}
	if key != "" {
		st.IdempotencyKey = &key
	}

	if err := i.store.CreatePending(ctx, st); err != nil {
		if errors.Is(err, errDuplicateKey) {
			// a concurrent request with the same key won the insert
			existing, ferr := i.store.FindByIdempotencyKey(ctx, key)
			if ferr == nil && existing != nil {
				return i.replay(ctx, existing, courseID)
			}
		}
		ordersTotal.WithLabelValues("error").Inc()
		return nil, internal(err, "create settlement")
	}

	i.logger.Info("settlement created",
		zap.Uint("settlement_id", st.ID),
		zap.Uint("course_id", course.ID),
		zap.Int64("amount", st.Amount),
		zap.Int64("discount", st.DiscountAmount),
		zap.Int64("tax", st.TaxAmount),
	)

	return i.openGatewayOrder(ctx, st, false)
}

// openGatewayOrder runs outside any database transaction so the network call
// never holds a connection or lock.
func (i *Initiator) openGatewayOrder(ctx context.Context, st *models.Settlement, replayed bool) (*OrderResult, error) {
	gctx, cancel := context.WithTimeout(ctx, i.cfg.GatewayTimeout)
	defer cancel()

	order, err := i.gateway.CreateOrder(gctx, st.Amount, st.Currency, receipt(st.ID))
	if err != nil {
		ordersTotal.WithLabelValues("gateway_unavailable").Inc()
		i.logger.Warn("gateway order creation failed, settlement left pending",
			zap.Uint("settlement_id", st.ID),
			zap.Error(err),
		)
		return nil, errors.Wrap(ErrGatewayUnavailable, err.Error())
	}

	attached, err := i.store.AttachGatewayOrder(ctx, st.ID, order.ID)
	if err != nil {
		ordersTotal.WithLabelValues("error").Inc()
		i.logger.Error("gateway order created but not recorded",
			zap.Uint("settlement_id", st.ID),
			zap.String("gateway_order_id", order.ID),
			zap.Error(err),
		)
		return nil, internal(err, "record gateway order")
	}
	if !attached {
		// a concurrent resume attached its own order first; hand out that one
		current, err := i.store.FindByID(ctx, st.ID)
		if err != nil || current.GatewayOrderID == nil {
			ordersTotal.WithLabelValues("error").Inc()
			return nil, ErrOrderInProgress
		}
		i.logger.Warn("discarding duplicate gateway order",
			zap.Uint("settlement_id", st.ID),
			zap.String("gateway_order_id", order.ID),
		)
		return resultFor(current, true), nil
	}

	st.GatewayOrderID = &order.ID
	if replayed {
		ordersTotal.WithLabelValues("resumed").Inc()
	} else {
		ordersTotal.WithLabelValues("created").Inc()
	}
	return resultFor(st, replayed), nil
}

func (i *Initiator) replay(ctx context.Context, existing *models.Settlement, courseID uint) (*OrderResult, error) {
	if existing.CourseID != courseID {
		ordersTotal.WithLabelValues("conflict").Inc()
		return nil, ErrIdempotencyMismatch
	}
	if existing.GatewayOrderID != nil {
		ordersTotal.WithLabelValues("replayed").Inc()
		return resultFor(existing, true), nil
	}
	// settled without ever reaching the gateway; nothing left to resume
	if existing.IsTerminal() {
		ordersTotal.WithLabelValues("conflict").Inc()
		return nil, ErrSettlementClosed
	}
	// No gateway order yet: either the first attempt is still talking to the
	// gateway, or it failed and left the row PENDING. Only resume the latter.
	if i.now().Sub(existing.CreatedAt) < i.cfg.GatewayTimeout {
		ordersTotal.WithLabelValues("conflict").Inc()
		return nil, ErrOrderInProgress
	}
	return i.openGatewayOrder(ctx, existing, true)
}

// idempotencyKey returns the caller's key, or one derived from course, buyer
// and time bucket. Derived keys are reported so a settled attempt does not
// block a later purchase in the same bucket.
func (i *Initiator) idempotencyKey(courseID uint, buyer BuyerContext) (string, bool) {
	if k := strings.TrimSpace(buyer.IdempotencyKey); k != "" {
		return "req:" + k, false
	}
	if buyer.BuyerIdentity == "" {
		return "", false
	}
	bucket := i.now().Truncate(i.cfg.IdempotencyWindow).Unix()
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%d", courseID, buyer.BuyerIdentity, bucket)))
	return "auto:" + hex.EncodeToString(sum[:]), true
}

func resultFor(st *models.Settlement, replayed bool) *OrderResult {
	res := &OrderResult{
		SettlementID: st.ID,
		Amount:       st.Amount,
		Currency:     st.Currency,
		Replayed:     replayed,
	}
	if st.GatewayOrderID != nil {
		res.GatewayOrderID = *st.GatewayOrderID
	}
	return res
}

func receipt(settlementID uint) string {
	return fmt.Sprintf("settlement_%d", settlementID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
