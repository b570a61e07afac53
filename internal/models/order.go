package models

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPending        = "pending"
	OrderStatusPaid           = "paid"
	OrderStatusShipped        = "shipped"
	OrderStatusReachedCity    = "reached_city"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
)

// OrderStatusFlow is the forward progression of an order. Cancelled is
// reachable from any point and is not part of the flow.
var OrderStatusFlow = []string{
	OrderStatusPendingPayment,
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusShipped,
	OrderStatusReachedCity,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

// FulfilledOrderStatuses are the statuses of orders whose payment has been confirmed.
var FulfilledOrderStatuses = []string{
	OrderStatusPaid,
	OrderStatusShipped,
	OrderStatusReachedCity,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

// IsValidOrderStatus reports whether status belongs to the order vocabulary.
func IsValidOrderStatus(status string) bool {
	return status == OrderStatusCancelled || OrderStatusIndex(status) >= 0
}

// OrderStatusIndex returns the position of status in OrderStatusFlow, or -1.
func OrderStatusIndex(status string) int {
	for i, s := range OrderStatusFlow {
		if s == status {
			return i
		}
	}
	return -1
}

// ShippingAddress is embedded into orders as a snapshot.
type ShippingAddress struct {
	Name       string `gorm:"not null" json:"name"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `gorm:"not null" json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `gorm:"not null" json:"city"`
	State      string `gorm:"not null" json:"state"`
	PostalCode string `gorm:"not null" json:"postal_code"`
	Country    string `gorm:"size:2;not null" json:"country"`
}

// Order is the immutable snapshot of a completed checkout.
type Order struct {
	BaseModel
	UserID          uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	User            *User              `json:"user,omitempty"`
	CartID          *uuid.UUID         `gorm:"type:uuid" json:"cart_id,omitempty"`
	TotalAmount     decimal.Decimal    `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Currency        string             `gorm:"size:3;not null" json:"currency"`
	Status          string             `gorm:"size:32;not null;index" json:"status"`
	ShippingAddress ShippingAddress    `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	GatewayOrderID  string             `gorm:"index" json:"gateway_order_id,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	Items           []OrderItem        `json:"items,omitempty"`
	Payments        []Payment          `json:"payments,omitempty"`
	StatusHistory   []OrderStatusEvent `json:"status_history,omitempty"`
}

// BeforeSave normalizes the shipping country and currency.
func (o *Order) BeforeSave(tx *gorm.DB) error {
	o.ShippingAddress.Country = normalizeCountry(o.ShippingAddress.Country)
	o.Currency = strings.ToUpper(o.Currency)
	return nil
}

// OrderItem is a purchased product line captured at checkout.
type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductName string          `gorm:"not null" json:"product_name"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Subtotal    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
}

// BeforeSave derives the subtotal from unit price and quantity so a caller
// supplied value is never persisted.
func (i *OrderItem) BeforeSave(tx *gorm.DB) error {
	i.Subtotal = LineSubtotal(i.UnitPrice, i.Quantity)
	return nil
}

// LineSubtotal computes round(unitPrice * quantity).
func LineSubtotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(0)
}

// OrderStatusEvent is one entry of an order's admin status history.
type OrderStatusEvent struct {
	BaseModel
	OrderID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"order_id"`
	Status    string     `gorm:"size:32;not null" json:"status"`
	Notes     string     `json:"notes"`
	UpdatedBy *uuid.UUID `gorm:"type:uuid" json:"updated_by,omitempty"`
}
