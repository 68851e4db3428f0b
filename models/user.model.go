package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	ExternalID string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"externalId"` // buyer identity handed to checkout
	Name       string     `gorm:"default:''" json:"name"`
	Email      string     `gorm:"unique;not null" json:"email"`
	Mobile     string     `gorm:"default:''" json:"mobile"`
	Role       string     `gorm:"default:'USER'" json:"role"` // USER, ADMIN
	Password   string     `gorm:"not null" json:"-"`
	LastLogin  *time.Time `json:"lastLogin"`
	IsDeleted  bool       `gorm:"default:false" json:"-"`
}
