package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CartStatusActive    = "active"
	CartStatusConverted = "converted"
	CartStatusAbandoned = "abandoned"
)

// Cart is a user's shopping cart. A user has at most one active cart.
type Cart struct {
	BaseModel
	UserID uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_carts_active_user,where:status = 'active'" json:"user_id"`
	Status string     `gorm:"size:16;not null;index" json:"status"`
	Items  []CartItem `json:"items,omitempty"`
}

// CartItem is a product line in a cart.
type CartItem struct {
	BaseModel
	CartID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cart_items_cart_product" json:"cart_id"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cart_items_cart_product" json:"product_id"`
	Product         *Product        `json:"product,omitempty"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	PriceAtAddition decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_at_addition"`
}

// Subtotal is quantity times the captured price.
func (i *CartItem) Subtotal() decimal.Decimal {
	return i.PriceAtAddition.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
