package settlement

import (
	"context"
	"time"

	"coursepay/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errDuplicateKey = errors.New("duplicate idempotency key")

// Store persists settlements and enrollments. Every state change is a single
// conditional statement; nothing reads a row and writes it back.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CreatePending inserts a new PENDING settlement. A clash on the idempotency
// key is reported as errDuplicateKey.
func (s *Store) CreatePending(ctx context.Context, st *models.Settlement) error {
	st.Status = models.SettlementPending
	err := s.db.WithContext(ctx).Create(st).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errDuplicateKey
	}
	return errors.Wrap(err, "create settlement")
}

func (s *Store) FindByID(ctx context.Context, id uint) (*models.Settlement, error) {
	var st models.Settlement
	err := s.db.WithContext(ctx).First(&st, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSettlementNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load settlement %d", id)
	}
	return &st, nil
}

// FindForUser returns a settlement only when it belongs to userID.
func (s *Store) FindForUser(ctx context.Context, id, userID uint) (*models.Settlement, error) {
	var st models.Settlement
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSettlementNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load settlement %d", id)
	}
	return &st, nil
}

// FindByIdempotencyKey returns nil, nil when the key is unused.
func (s *Store) FindByIdempotencyKey(ctx context.Context, key string) (*models.Settlement, error) {
	var rows []models.Settlement
	if err := s.db.WithContext(ctx).Where("idempotency_key = ?", key).Limit(1).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "find settlement by idempotency key")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// AttachGatewayOrder records the gateway order on a PENDING settlement that
// does not have one yet.
func (s *Store) AttachGatewayOrder(ctx context.Context, id uint, orderID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Settlement{}).
		Where("id = ? AND status = ? AND gateway_order_id IS NULL", id, models.SettlementPending).
		Update("gateway_order_id", orderID)
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "attach gateway order to settlement %d", id)
	}
	return res.RowsAffected == 1, nil
}

// Transition moves a PENDING settlement to a terminal status. It reports
// false when another caller already moved it; exactly one caller ever wins.
func (s *Store) Transition(ctx context.Context, id uint, to models.SettlementStatus, fields map[string]any) (bool, error) {
	updates := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["status"] = to

	res := s.db.WithContext(ctx).Model(&models.Settlement{}).
		Where("id = ? AND status = ?", id, models.SettlementPending).
		Updates(updates)
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "transition settlement %d to %s", id, to)
	}
	return res.RowsAffected == 1, nil
}

// EnsureEnrollment grants userID access to courseID unless it already has it.
// Losing an insert race to the unique index counts as success.
func (s *Store) EnsureEnrollment(ctx context.Context, userID, courseID uint, settlementID *uint, at time.Time) (bool, error) {
	db := s.db.WithContext(ctx)

	var existing []models.Enrollment
	if err := db.Where("user_id = ? AND course_id = ?", userID, courseID).Limit(1).Find(&existing).Error; err != nil {
		return false, errors.Wrap(err, "check enrollment")
	}
	if len(existing) > 0 {
		return false, nil
	}

	enrollment := models.Enrollment{
		UserID:       userID,
		CourseID:     courseID,
		SettlementID: settlementID,
		Status:       "ENROLLED",
		EnrolledAt:   at,
	}
	res := db.Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(&enrollment)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "create enrollment")
	}
	return res.RowsAffected == 1, nil
}

// FindClaimable lists successful settlements paid with email that are either
// unattached or already attached to userID.
func (s *Store) FindClaimable(ctx context.Context, email string, userID uint) ([]models.Settlement, error) {
	var rows []models.Settlement
	err := s.db.WithContext(ctx).
		Where("status = ? AND buyer_email = ?", models.SettlementSuccess, email).
		Where("user_id IS NULL OR user_id = ?", userID).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "find claimable settlements")
	}
	return rows, nil
}

// AttachUser assigns an unattached settlement to userID.
func (s *Store) AttachUser(ctx context.Context, id, userID uint, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Settlement{}).
		Where("id = ? AND user_id IS NULL", id).
		Updates(map[string]any{"user_id": userID, "claimed_at": at})
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "attach user to settlement %d", id)
	}
	return res.RowsAffected == 1, nil
}

// FindStalePending lists PENDING settlements created before cutoff.
func (s *Store) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Settlement, error) {
	var rows []models.Settlement
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.SettlementPending, cutoff).
		Order("created_at asc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "find stale settlements")
	}
	return rows, nil
}

// ListEnrollments returns a user's enrollments with their courses.
func (s *Store) ListEnrollments(ctx context.Context, userID uint) ([]models.Enrollment, error) {
	var rows []models.Enrollment
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Course").
		Order("enrolled_at desc").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "list enrollments")
	}
	return rows, nil
}
