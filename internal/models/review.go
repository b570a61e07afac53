package models

import "github.com/google/uuid"

// Review is a customer's rating of a product. One per (user, product).
type Review struct {
	BaseModel
	UserID             uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_user_product" json:"user_id"`
	User               *User     `json:"user,omitempty"`
	ProductID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_user_product;index" json:"product_id"`
	Product            *Product  `json:"product,omitempty"`
	Rating             int       `gorm:"not null" json:"rating"`
	Title              string    `gorm:"size:100" json:"title,omitempty"`
	Comment            string    `gorm:"size:1000" json:"comment,omitempty"`
	IsVerifiedPurchase bool      `gorm:"not null" json:"is_verified_purchase"`
	IsApproved         bool      `gorm:"not null;index" json:"is_approved"`
	IsDeleted          bool      `gorm:"not null" json:"-"`
}

// WishlistItem marks a product saved for later by a user.
type WishlistItem struct {
	BaseModel
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_wishlist_user_product" json:"user_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_wishlist_user_product" json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
}
