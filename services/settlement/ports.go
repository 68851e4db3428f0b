package settlement

import (
	"context"
	"strings"

	"coursepay/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Catalog resolves courses. GetCourse returns ErrCourseNotFound when absent.
type Catalog interface {
	GetCourse(ctx context.Context, id uint) (*models.Course, error)
}

// Identity resolves buyer accounts. Lookups return nil, nil when no account matches.
type Identity interface {
	FindUserByExternalID(ctx context.Context, externalID string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type GormCatalog struct {
	db *gorm.DB
}

func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

func (c *GormCatalog) GetCourse(ctx context.Context, id uint) (*models.Course, error) {
	var course models.Course
	err := c.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load course %d", id)
	}
	return &course, nil
}

type GormIdentity struct {
	db *gorm.DB
}

func NewGormIdentity(db *gorm.DB) *GormIdentity {
	return &GormIdentity{db: db}
}

func (i *GormIdentity) FindUserByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return i.findOne(ctx, "external_id = ? AND is_deleted = ?", externalID, false)
}

func (i *GormIdentity) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return i.findOne(ctx, "email = ? AND is_deleted = ?", strings.ToLower(strings.TrimSpace(email)), false)
}

func (i *GormIdentity) findOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var users []models.User
	if err := i.db.WithContext(ctx).Where(query, args...).Limit(1).Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}
