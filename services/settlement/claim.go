package settlement

import (
	"context"
	"time"

	"coursepay/models"
	"coursepay/services/events"
	"coursepay/services/notify"

	"go.uber.org/zap"
)

// Claimer attaches purchases made before the buyer had an account. It is run
// by account provisioning and can be re-run at any time.
type Claimer struct {
	store      *Store
	publisher  events.Publisher
	dispatcher *notify.Dispatcher
	now        func() time.Time
	logger     *zap.Logger
}

func NewClaimer(store *Store, publisher events.Publisher, dispatcher *notify.Dispatcher, logger *zap.Logger) *Claimer {
	return &Claimer{store: store, publisher: publisher, dispatcher: dispatcher, now: time.Now, logger: logger}
}

// ClaimForUser attaches every successful settlement paid with the user's email
// and ensures the matching enrollments. It returns the course ids newly
// enrolled by this call.
func (c *Claimer) ClaimForUser(ctx context.Context, user *models.User) ([]uint, error) {
	email := normalizeEmail(user.Email)
	if email == "" {
		return nil, nil
	}

	rows, err := c.store.FindClaimable(ctx, email, user.ID)
	if err != nil {
		return nil, internal(err, "find claimable settlements")
	}

	var enrolled []uint
	for _, st := range rows {
		at := c.now()
		if st.UserID == nil {
			attached, err := c.store.AttachUser(ctx, st.ID, user.ID, at)
			if err != nil {
				return enrolled, internal(err, "attach settlement")
			}
			if !attached {
				// claimed concurrently; that claimer owns the enrollment
				continue
			}
			uid := user.ID
			st.UserID = &uid
			c.publish(st)
		}

		created, err := c.store.EnsureEnrollment(ctx, user.ID, st.CourseID, &st.ID, at)
		if err != nil {
			return enrolled, internal(err, "grant claimed enrollment")
		}
		if created {
			enrollmentsGranted.WithLabelValues("claim").Inc()
			enrolled = append(enrolled, st.CourseID)
		}
	}

	if len(rows) > 0 {
		c.logger.Info("claimed purchases",
			zap.Uint("user_id", user.ID),
			zap.Int("settlements", len(rows)),
			zap.Int("enrolled", len(enrolled)),
		)
	}
	return enrolled, nil
}

func (c *Claimer) publish(st models.Settlement) {
	evt := events.SettlementEvent{
		Type:         events.TypeEnrollmentClaimed,
		SettlementID: st.ID,
		CourseID:     st.CourseID,
		UserID:       st.UserID,
		Amount:       st.Amount,
		Currency:     st.Currency,
		Status:       string(st.Status),
		Timestamp:    c.now().UTC(),
	}
	c.dispatcher.Go("enrollment_claimed_event", func(ctx context.Context) error {
		return c.publisher.Publish(ctx, evt)
	})
}
