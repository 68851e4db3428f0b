package models

import "gorm.io/gorm"

// Course is the catalog entry a settlement pays for. Price is in paise.
type Course struct {
	gorm.Model
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price" gorm:"not null;default:0"`
	CategoryID  uint   `json:"category_id" gorm:"index"`
	Status      string `json:"status" gorm:"default:'ACTIVE'"` // DRAFT, ACTIVE, INACTIVE
	IsPublished bool   `json:"is_published" gorm:"default:true"`
	IsDeleted   bool   `gorm:"default:false" json:"-"`
}
