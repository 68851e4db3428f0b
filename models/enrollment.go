package models

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment grants a user access to a course. At most one per (user, course).
type Enrollment struct {
	gorm.Model
	UserID       uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	CourseID     uint      `json:"course_id" gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	SettlementID *uint     `json:"settlement_id" gorm:"index"`
	Status       string    `json:"status" gorm:"default:'ENROLLED'"`
	EnrolledAt   time.Time `json:"enrolled_at" gorm:"not null"`
	Course       Course    `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}
