package models

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Product is a sellable catalog entry.
type Product struct {
	BaseModel
	Name        string                      `gorm:"not null" json:"name"`
	Slug        string                      `gorm:"uniqueIndex;not null" json:"slug"`
	Description string                      `json:"description"`
	Price       decimal.Decimal             `gorm:"type:numeric(12,2);not null" json:"price"`
	Currency    string                      `gorm:"size:3;not null" json:"currency"`
	Stock       int                         `gorm:"not null;check:chk_products_stock,stock >= 0" json:"stock"`
	CategoryID  *uuid.UUID                  `gorm:"type:uuid;index" json:"category_id"`
	Category    *Category                   `json:"category,omitempty"`
	Images      datatypes.JSONSlice[string] `json:"images"`
	IsActive    bool                        `gorm:"not null;index" json:"is_active"`
}

// BeforeSave normalizes slug and currency.
func (p *Product) BeforeSave(tx *gorm.DB) error {
	p.Slug = strings.ToLower(strings.TrimSpace(p.Slug))
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	if p.Currency == "" {
		p.Currency = "INR"
	}
	if p.Images == nil {
		p.Images = datatypes.JSONSlice[string]{}
	}
	return nil
}

// Available reports whether the product can be sold. Category must be
// preloaded for its status to count.
func (p *Product) Available() bool {
	if !p.IsActive {
		return false
	}
	return p.Category == nil || p.Category.IsActive
}

// PrimaryImage returns the first image URL, if any.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
