package pricing

import (
	"context"

	"coursepay/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// GormTokenStore reads discount tokens from the catalog database.
type GormTokenStore struct {
	db *gorm.DB
}

func NewGormTokenStore(db *gorm.DB) *GormTokenStore {
	return &GormTokenStore{db: db}
}

// FindApplicableTokens loads active tokens by token string. Expiry and course
// membership are checked by the caller so the rule lives in one place.
func (s *GormTokenStore) FindApplicableTokens(ctx context.Context, courseID uint, token string) ([]models.DiscountToken, error) {
	var tokens []models.DiscountToken
	if err := s.db.WithContext(ctx).
		Where("token = ? AND is_active = ?", token, true).
		Find(&tokens).Error; err != nil {
		return nil, errors.Wrapf(err, "find discount tokens for course %d", courseID)
	}
	return tokens, nil
}
