package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DiscountToken is a time-bounded coupon scoped to a set of courses.
type DiscountToken struct {
	gorm.Model
	Token              string                   `gorm:"type:varchar(64);uniqueIndex;not null" json:"token"`
	CourseIDs          datatypes.JSONSlice[uint] `json:"courseIds"`
	DiscountPercentage int64                    `gorm:"not null;default:0" json:"discountPercentage"` // 0-100
	ExpiresAt          time.Time                `gorm:"not null" json:"expiresAt"`
	IsActive           bool                     `gorm:"default:true" json:"isActive"`
}

// AppliesTo reports whether the token may discount courseID at instant now.
func (t DiscountToken) AppliesTo(courseID uint, now time.Time) bool {
	if !t.IsActive || !now.Before(t.ExpiresAt) {
		return false
	}
	for _, id := range t.CourseIDs {
		if id == courseID {
			return true
		}
	}
	return false
}
