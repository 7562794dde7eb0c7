package model

import (
	"time"
)

// Product represents a surplus item offered by a business
type Product struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Name            string    `json:"name" gorm:"type:varchar(255);not null"`
	Description     string    `json:"description" gorm:"type:text"`
	Price           float64   `json:"price" gorm:"not null"`
	DiscountedPrice *float64  `json:"discounted_price,omitempty"`
	Quantity        int       `json:"quantity" gorm:"not null"`
	Category        string    `json:"category" gorm:"type:varchar(100);not null;index"`
	ExpirationDate  time.Time `json:"expiration_date" gorm:"not null"`
	BusinessID      uint      `json:"business_id" gorm:"index;not null"`
	ImageURL        string    `json:"image_url,omitempty" gorm:"type:varchar(255)"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Relations
	Business *Business `json:"business,omitempty" gorm:"foreignKey:BusinessID"`
}
