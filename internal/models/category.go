package models

import (
	"strings"

	"gorm.io/gorm"
)

// Category groups products. Disabling a category takes its products off sale.
type Category struct {
	BaseModel
	Name     string `gorm:"uniqueIndex;not null" json:"name"`
	Slug     string `gorm:"uniqueIndex;not null" json:"slug"`
	IsActive bool   `gorm:"not null;index" json:"is_active"`
}

// BeforeSave normalizes name and slug.
func (c *Category) BeforeSave(tx *gorm.DB) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Slug = strings.ToLower(strings.TrimSpace(c.Slug))
	return nil
}
