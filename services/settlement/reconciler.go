package settlement

import (
	"context"
	"time"

	"coursepay/models"
	"coursepay/services/events"
	"coursepay/services/gateway"
	"coursepay/services/notify"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Outcome is the buyer-visible verdict on a gateway callback.
type Outcome string

const (
	Confirmed Outcome = "confirmed"
	Rejected  Outcome = "rejected"
)

// ReconcileRequest is the checkout callback as relayed by the buyer's browser.
type ReconcileRequest struct {
	SettlementID     uint
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	BuyerIdentity    string
	DisplayAmount    int64
	NotifyEmail      string
}

type ReconcileResult struct {
	Outcome    Outcome
	Settlement *models.Settlement
	Enrolled   bool // an enrollment was created by this call
	HasAccess  bool // the buyer holds an enrollment for the course after this call
	Replayed   bool // the settlement was already terminal
}

// Reconciler verifies gateway callbacks and applies their effects exactly once.
type Reconciler struct {
	store      *Store
	catalog    Catalog
	identity   Identity
	mailer     notify.Mailer
	publisher  events.Publisher
	dispatcher *notify.Dispatcher
	secret     string
	now        func() time.Time
	logger     *zap.Logger
}

func NewReconciler(
	store *Store,
	catalog Catalog,
	identity Identity,
	mailer notify.Mailer,
	publisher events.Publisher,
	dispatcher *notify.Dispatcher,
	secret string,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		store:      store,
		catalog:    catalog,
		identity:   identity,
		mailer:     mailer,
		publisher:  publisher,
		dispatcher: dispatcher,
		secret:     secret,
		now:        time.Now,
		logger:     logger,
	}
}

// Reconcile settles a PENDING settlement from a gateway callback. A settlement
// that is already SUCCESS or FAILED is neither re-verified nor re-written; its
// stored verdict is returned, and for SUCCESS the buyer's enrollment is
// re-ensured so an earlier partial failure heals on retry.
func (r *Reconciler) Reconcile(ctx context.Context, req ReconcileRequest) (*ReconcileResult, error) {
	log := r.logger.With(zap.Uint("settlement_id", req.SettlementID))

	st, err := r.store.FindByID(ctx, req.SettlementID)
	if err != nil {
		return nil, r.fail(log, err, "load settlement")
	}

	course, err := r.catalog.GetCourse(ctx, st.CourseID)
	if err != nil {
		return nil, r.fail(log, err, "load course")
	}

	if st.IsTerminal() {
		return r.replay(ctx, log, st)
	}

	if !r.authentic(st, req) {
		return r.reject(ctx, log, st, req)
	}

	// an authenticated callback names the buyer; otherwise use the one seen at checkout
	identity := req.BuyerIdentity
	if identity == "" {
		identity = st.BuyerIdentity
	}
	var buyer *models.User
	if identity != "" {
		buyer, err = r.identity.FindUserByExternalID(ctx, identity)
		if err != nil {
			return nil, r.fail(log, err, "resolve buyer")
		}
	}

	settledAt := r.now()
	fields := map[string]any{
		"gateway_payment_id": req.GatewayPaymentID,
		"gateway_signature":  req.Signature,
		"settled_amount":     req.DisplayAmount,
		"settled_at":         settledAt,
	}
	if buyer != nil {
		fields["user_id"] = buyer.ID
	}
	if email := normalizeEmail(req.NotifyEmail); email != "" {
		fields["buyer_email"] = email
	} else if st.BuyerEmail == "" && buyer != nil {
		fields["buyer_email"] = normalizeEmail(buyer.Email)
	}

	won, err := r.store.Transition(ctx, st.ID, models.SettlementSuccess, fields)
	if err != nil {
		return nil, r.fail(log, err, "mark settlement successful")
	}
	if !won {
		// a concurrent callback settled it first
		current, err := r.store.FindByID(ctx, st.ID)
		if err != nil {
			return nil, r.fail(log, err, "reload settlement")
		}
		return r.replay(ctx, log, current)
	}

	st, err = r.store.FindByID(ctx, st.ID)
	if err != nil {
		return nil, r.fail(log, err, "reload settlement")
	}
	if req.DisplayAmount != 0 && req.DisplayAmount != st.Amount {
		log.Warn("callback amount differs from order amount",
			zap.Int64("order_amount", st.Amount),
			zap.Int64("callback_amount", req.DisplayAmount),
		)
	}

	r.announce(st, course, events.TypeSettlementConfirmed)

	result := &ReconcileResult{Outcome: Confirmed, Settlement: st}
	if st.UserID != nil {
		created, err := r.store.EnsureEnrollment(ctx, *st.UserID, st.CourseID, &st.ID, settledAt)
		if err != nil {
			// the SUCCESS state is kept; a retry takes the replay path and grants it
			return nil, r.fail(log, err, "grant enrollment")
		}
		if created {
			enrollmentsGranted.WithLabelValues("settlement").Inc()
		}
		result.Enrolled = created
		result.HasAccess = true
	} else {
		log.Info("buyer has no account yet, enrollment deferred to claim",
			zap.String("buyer_email", st.BuyerEmail),
		)
	}

	reconciliationsTotal.WithLabelValues(outcomeConfirmed).Inc()
	log.Info("settlement confirmed",
		zap.String("outcome", outcomeConfirmed),
		zap.Uint("course_id", st.CourseID),
		zap.Bool("enrolled", result.Enrolled),
	)
	return result, nil
}

// authentic verifies the callback against the order this settlement opened.
// A callback naming any other order is treated as forged.
func (r *Reconciler) authentic(st *models.Settlement, req ReconcileRequest) bool {
	if st.GatewayOrderID == nil || *st.GatewayOrderID != req.GatewayOrderID {
		return false
	}
	return gateway.Verify(*st.GatewayOrderID, req.GatewayPaymentID, req.Signature, r.secret)
}

func (r *Reconciler) reject(ctx context.Context, log *zap.Logger, st *models.Settlement, req ReconcileRequest) (*ReconcileResult, error) {
	won, err := r.store.Transition(ctx, st.ID, models.SettlementFailed, map[string]any{
		"gateway_payment_id": req.GatewayPaymentID,
		"gateway_signature":  req.Signature,
		"settled_at":         r.now(),
	})
	if err != nil {
		return nil, r.fail(log, err, "mark settlement failed")
	}

	current, err := r.store.FindByID(ctx, st.ID)
	if err != nil {
		return nil, r.fail(log, err, "reload settlement")
	}

	reconciliationsTotal.WithLabelValues(outcomeRejected).Inc()
	log.Warn("settlement rejected: signature mismatch",
		zap.String("outcome", outcomeRejected),
		zap.String("gateway_order_id", req.GatewayOrderID),
		zap.String("gateway_payment_id", req.GatewayPaymentID),
		zap.Bool("transitioned", won),
	)
	if won {
		r.publish(current, events.TypeSettlementRejected)
	}
	return &ReconcileResult{Outcome: Rejected, Settlement: current, Replayed: !won}, nil
}

func (r *Reconciler) replay(ctx context.Context, log *zap.Logger, st *models.Settlement) (*ReconcileResult, error) {
	if st.Status == models.SettlementFailed {
		reconciliationsTotal.WithLabelValues(outcomeReplayedRejected).Inc()
		log.Info("settlement already failed", zap.String("outcome", outcomeReplayedRejected))
		return &ReconcileResult{Outcome: Rejected, Settlement: st, Replayed: true}, nil
	}

	result := &ReconcileResult{Outcome: Confirmed, Settlement: st, Replayed: true}
	if st.UserID != nil {
		at := r.now()
		if st.SettledAt != nil {
			at = *st.SettledAt
		}
		created, err := r.store.EnsureEnrollment(ctx, *st.UserID, st.CourseID, &st.ID, at)
		if err != nil {
			return nil, r.fail(log, err, "re-ensure enrollment")
		}
		if created {
			enrollmentsGranted.WithLabelValues("settlement").Inc()
			log.Info("pending enrollment granted on retry", zap.Uint("user_id", *st.UserID))
		}
		result.Enrolled = created
		result.HasAccess = true
	}

	reconciliationsTotal.WithLabelValues(outcomeReplayedConfirmed).Inc()
	log.Info("settlement already confirmed", zap.String("outcome", outcomeReplayedConfirmed))
	return result, nil
}

// fail classifies err for logs and metrics. Not-found errors pass through;
// anything else becomes ErrInternal.
func (r *Reconciler) fail(log *zap.Logger, err error, step string) error {
	if errors.Is(err, ErrSettlementNotFound) || errors.Is(err, ErrCourseNotFound) {
		reconciliationsTotal.WithLabelValues(outcomeNotFound).Inc()
		log.Info("reconciliation target missing", zap.String("outcome", outcomeNotFound), zap.String("step", step), zap.Error(err))
		return err
	}
	reconciliationsTotal.WithLabelValues(outcomeInternalError).Inc()
	log.Error("reconciliation failed", zap.String("outcome", outcomeInternalError), zap.String("step", step), zap.Error(err))
	return internal(err, step)
}

// announce sends the confirmation email and event without blocking the caller.
func (r *Reconciler) announce(st *models.Settlement, course *models.Course, eventType string) {
	if st.BuyerEmail != "" {
		to := st.BuyerEmail
		subject, body := notify.PurchaseConfirmation(course.Title, st.Amount, st.Currency, r.now())
		r.dispatcher.Go("purchase_confirmation_email", func(ctx context.Context) error {
			return r.mailer.SendEmail(ctx, to, subject, body)
		})
	}
	r.publish(st, eventType)
}

func (r *Reconciler) publish(st *models.Settlement, eventType string) {
	evt := events.SettlementEvent{
		Type:         eventType,
		SettlementID: st.ID,
		CourseID:     st.CourseID,
		UserID:       st.UserID,
		Amount:       st.Amount,
		Currency:     st.Currency,
		Status:       string(st.Status),
		Timestamp:    r.now().UTC(),
	}
	if st.GatewayOrderID != nil {
		evt.GatewayOrderID = *st.GatewayOrderID
	}
	r.dispatcher.Go(eventType+"_event", func(ctx context.Context) error {
		return r.publisher.Publish(ctx, evt)
	})
}
