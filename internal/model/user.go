package model

import (
	"time"
)

// User roles
const (
	RoleCustomer = "customer"
	RoleBusiness = "business"
	RoleAdmin    = "admin"
)

// User statuses
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User represents the user model stored in the database
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	FullName  string    `json:"full_name" gorm:"type:varchar(100);not null"`
	Email     string    `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"type:varchar(255);not null"`
	UserType  string    `json:"user_type" gorm:"type:varchar(20);not null;default:'customer'"`
	Status    string    `json:"status" gorm:"type:varchar(20);not null;default:'active'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Businesses []Business `json:"businesses,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// ValidRole reports whether role is one of the known user types
func ValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleBusiness, RoleAdmin:
		return true
	}
	return false
}
