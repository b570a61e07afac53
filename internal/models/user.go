package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User represents a shop account.
type User struct {
	BaseModel
	FullName        string        `gorm:"not null" json:"full_name"`
	Email           string        `gorm:"uniqueIndex;not null" json:"email"`
	Phone           string        `json:"phone,omitempty"`
	PasswordHash    string        `gorm:"not null" json:"-"`
	Role            string        `gorm:"index;not null" json:"role"`
	IsActive        bool          `gorm:"not null" json:"is_active"`
	EmailVerified   bool          `gorm:"not null" json:"email_verified"`
	EmailVerifiedAt *time.Time    `json:"email_verified_at,omitempty"`
	Addresses       []UserAddress `json:"addresses,omitempty"`
}

// BeforeSave normalizes the email and fills the default role.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = RoleCustomer
	}
	return nil
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
