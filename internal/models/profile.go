package models

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserAddress is a saved shipping address in a user's address book.
type UserAddress struct {
	BaseModel
	UserID     uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Label      string    `json:"label"`
	Line1      string    `gorm:"not null" json:"line1"`
	Line2      string    `json:"line2"`
	City       string    `gorm:"not null" json:"city"`
	State      string    `gorm:"not null" json:"state"`
	PostalCode string    `gorm:"not null" json:"postal_code"`
	Country    string    `gorm:"size:2;not null" json:"country"`
	IsDefault  bool      `gorm:"not null" json:"is_default"`
}

// BeforeSave upper-cases the country code, defaulting to IN.
func (a *UserAddress) BeforeSave(tx *gorm.DB) error {
	a.Country = normalizeCountry(a.Country)
	return nil
}

func normalizeCountry(country string) string {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		return "IN"
	}
	return country
}
