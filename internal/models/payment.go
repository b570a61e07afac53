package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	PaymentStatusInitiated  = "initiated"
	PaymentStatusAuthorized = "authorized"
	PaymentStatusCaptured   = "captured"
	PaymentStatusFailed     = "failed"
	PaymentStatusRefunded   = "refunded"

	PaymentGatewayManual = "manual"
)

// Payment records a payment attempt against an order.
type Payment struct {
	BaseModel
	OrderID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	Gateway       string          `gorm:"size:32;not null" json:"gateway"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency      string          `gorm:"size:3;not null" json:"currency"`
	Status        string          `gorm:"size:16;not null;index" json:"status"`
	TransactionID string          `json:"transaction_id,omitempty"`
	RawResponse   datatypes.JSON  `json:"raw_response,omitempty"`
}
