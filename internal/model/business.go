package model

import (
	"time"
)

// Business represents a seller's business. Each business belongs to exactly
// one user; the owner never changes after creation.
type Business struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	Address     string    `json:"address" gorm:"type:varchar(255)"`
	Phone       string    `json:"phone" gorm:"type:varchar(50)"`
	Email       string    `json:"email" gorm:"type:varchar(100);not null"`
	UserID      uint      `json:"user_id" gorm:"index;not null"`
	ImageURL    string    `json:"image_url,omitempty" gorm:"type:varchar(255)"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	User     *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Products []Product `json:"products,omitempty" gorm:"foreignKey:BusinessID;constraint:OnDelete:CASCADE"`
}
