package services

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/example/annavaram/internal/apperr"
	"github.com/example/annavaram/internal/models"
	"github.com/example/annavaram/internal/utils"
)

const offlineTransactionID = "offline"

// CreateOrderInput is the customer-supplied part of a checkout. A saved
// address, when given, replaces ShippingAddress.
type CreateOrderInput struct {
	ShippingAddress models.ShippingAddress
	AddressID       *uuid.UUID
	Notes           string
}

// CheckoutPayload is what a client needs to open the gateway's checkout.
type CheckoutPayload struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

// OrderResult is the outcome of a successful checkout.
type OrderResult struct {
	Order        *models.Order      `json:"order"`
	Items        []models.OrderItem `json:"items"`
	Payment      *models.Payment    `json:"payment"`
	GatewayOrder *GatewayOrder      `json:"-"`
	Checkout     *CheckoutPayload   `json:"razorpay,omitempty"`
}

// VerifyPaymentInput carries the gateway's checkout callback values.
type VerifyPaymentInput struct {
	OrderID          uuid.UUID
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// PaymentResult is a verified order with its captured payment.
type PaymentResult struct {
	Order   *models.Order   `json:"order"`
	Payment *models.Payment `json:"payment"`
}

// OrderService converts carts into orders and records payments.
type OrderService struct {
	db       *gorm.DB
	carts    *CartService
	products *ProductService
	gateway  PaymentGateway
	notifier Notifier
	currency string
	log      *zap.Logger
}

// NewOrderService constructs an OrderService. A nil gateway selects the
// offline flow where orders are created already paid.
func NewOrderService(db *gorm.DB, carts *CartService, products *ProductService, gateway PaymentGateway, notifier Notifier, currency string, log *zap.Logger) *OrderService {
	return &OrderService{
		db:       db,
		carts:    carts,
		products: products,
		gateway:  gateway,
		notifier: notifier,
		currency: currency,
		log:      log,
	}
}

// GatewayEnabled reports whether checkout goes through a payment gateway.
func (s *OrderService) GatewayEnabled() bool {
	return s.gateway != nil
}

// CreateOrder turns the user's active cart into an order.
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderResult, error) {
	cart, err := s.carts.GetOrCreateActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.carts.Snapshot(ctx, cart)
	if err != nil {
		return nil, err
	}
	if len(snapshot.Items) == 0 {
		return nil, ErrEmptyCart
	}

	if err := s.carts.VerifyStockLevels(ctx, snapshot.Items); err != nil {
		return nil, err
	}

	if input.AddressID != nil {
		shipping, err := s.savedAddress(ctx, userID, *input.AddressID)
		if err != nil {
			return nil, err
		}
		input.ShippingAddress = *shipping
	}

	order, items, err := s.placeOrder(ctx, userID, cart.ID, snapshot, input)
	if err != nil {
		return nil, err
	}
	s.products.Invalidate(ctx)

	result := &OrderResult{Order: order, Items: items}

	payment := &models.Payment{
		OrderID:  order.ID,
		Amount:   order.TotalAmount,
		Currency: order.Currency,
	}

	if s.gateway != nil {
		gatewayOrder, err := s.gateway.CreateOrder(ctx, GatewayOrderRequest{
			AmountMinorUnits: MinorUnits(order.TotalAmount),
			Currency:         order.Currency,
			Receipt:          order.ID.String(),
			Notes:            map[string]string{"userId": userID.String()},
		})
		if err != nil {
			s.log.Error("payment gateway order failed",
				zap.String("order_id", order.ID.String()),
				zap.Error(err),
			)
			s.abandon(ctx, order, items)
			return nil, ErrPaymentGateway
		}

		result.GatewayOrder = gatewayOrder
		result.Checkout = &CheckoutPayload{
			OrderID:  gatewayOrder.ID,
			Amount:   gatewayOrder.Amount,
			Currency: gatewayOrder.Currency,
			KeyID:    s.gateway.PublicKey(),
		}
		order.GatewayOrderID = gatewayOrder.ID
		payment.Gateway = s.gateway.Name()
		payment.Status = models.PaymentStatusInitiated
		payment.RawResponse = datatypes.JSON(gatewayOrder.Raw)
	} else {
		payment.Gateway = models.PaymentGatewayManual
		payment.Status = models.PaymentStatusCaptured
		payment.TransactionID = offlineTransactionID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if order.GatewayOrderID != "" {
			if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).
				Update("gateway_order_id", order.GatewayOrderID).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(payment).Error; err != nil {
			return err
		}
		return s.carts.Clear(tx, cart.ID)
	})
	if err != nil {
		s.log.Error("order finalization failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		s.abandon(ctx, order, items)
		return nil, err
	}
	result.Payment = payment

	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("total", order.TotalAmount.String()),
		zap.String("status", order.Status),
	)
	s.notifyNewOrder(ctx, userID, order, items, payment.Gateway)

	return result, nil
}

// placeOrder writes the order, its items and the stock decrements in one
// transaction. A product whose stock cannot cover its line aborts everything.
func (s *OrderService) placeOrder(ctx context.Context, userID, cartID uuid.UUID, snapshot *CartSnapshot, input CreateOrderInput) (*models.Order, []models.OrderItem, error) {
	status := models.OrderStatusPaid
	if s.gateway != nil {
		status = models.OrderStatusPendingPayment
	}

	items := make([]models.OrderItem, 0, len(snapshot.Items))
	total := decimal.Zero
	for _, line := range snapshot.Items {
		item := models.OrderItem{
			ProductID:   line.ProductID,
			ProductName: line.Name,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			Subtotal:    models.LineSubtotal(line.UnitPrice, line.Quantity),
		}
		total = total.Add(item.Subtotal)
		items = append(items, item)
	}

	order := &models.Order{
		UserID:          userID,
		CartID:          &cartID,
		TotalAmount:     total,
		Currency:        s.currency,
		Status:          status,
		ShippingAddress: input.ShippingAddress,
		Notes:           input.Notes,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}

		for _, item := range items {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", item.ProductID, item.Quantity).
				Update("stock", gorm.Expr("stock - ?", item.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.Wrap(ErrOutOfStock, "Insufficient stock for %s", displayName(item.ProductName))
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, items, nil
}

// abandon undoes placeOrder for an order that could not be completed. It
// runs even when ctx is already cancelled.
func (s *OrderService) abandon(ctx context.Context, order *models.Order, items []models.OrderItem) {
	ctx = context.WithoutCancel(ctx)
	if err := s.compensate(ctx, order, items); err != nil {
		s.log.Error("order compensation failed", zap.String("order_id", order.ID.String()), zap.Error(err))
		return
	}
	s.products.Invalidate(ctx)
}

// compensate removes an order and gives its stock back.
func (s *OrderService) compensate(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			if err := tx.Model(&models.Product{}).Where("id = ?", item.ProductID).
				Update("stock", gorm.Expr("stock + ?", item.Quantity)).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Order{}, "id = ?", order.ID).Error
	})
}

// VerifyPayment checks a gateway checkout signature and marks the order paid.
// Verifying an already captured payment returns it unchanged.
func (s *OrderService) VerifyPayment(ctx context.Context, userID uuid.UUID, input VerifyPaymentInput) (*PaymentResult, error) {
	if s.gateway == nil {
		return nil, ErrGatewayNotConfigured
	}
	db := s.db.WithContext(ctx)

	var order models.Order
	err := db.Where("id = ? AND user_id = ?", input.OrderID, userID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if existing, err := s.capturedPayment(db, order.ID); err != nil {
		return nil, err
	} else if existing != nil {
		return &PaymentResult{Order: &order, Payment: existing}, nil
	}

	if order.GatewayOrderID != "" && order.GatewayOrderID != input.GatewayOrderID {
		return nil, ErrPaymentOrderMismatch
	}

	expected := s.gateway.ComputeSignature(input.GatewayOrderID, input.GatewayPaymentID)
	if !hmac.Equal([]byte(expected), []byte(input.Signature)) {
		s.log.Warn("payment signature mismatch", zap.String("order_id", order.ID.String()))
		return nil, ErrSignatureMismatch
	}

	raw, err := json.Marshal(map[string]string{
		"gatewayOrderId":   input.GatewayOrderID,
		"gatewayPaymentId": input.GatewayPaymentID,
		"signature":        input.Signature,
	})
	if err != nil {
		return nil, err
	}

	var payment *models.Payment
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
			"status":           models.OrderStatusPaid,
			"gateway_order_id": input.GatewayOrderID,
		}).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Payment{}).
			Where("order_id = ? AND gateway = ? AND status <> ?", order.ID, s.gateway.Name(), models.PaymentStatusCaptured).
			Updates(map[string]interface{}{
				"status":         models.PaymentStatusCaptured,
				"transaction_id": input.GatewayPaymentID,
				"raw_response":   datatypes.JSON(raw),
			})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			existing, err := s.capturedPayment(tx, order.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				payment = existing
				return nil
			}
			payment = &models.Payment{
				OrderID:       order.ID,
				Gateway:       s.gateway.Name(),
				Amount:        order.TotalAmount,
				Currency:      order.Currency,
				Status:        models.PaymentStatusCaptured,
				TransactionID: input.GatewayPaymentID,
				RawResponse:   datatypes.JSON(raw),
			}
			return tx.Create(payment).Error
		}

		found, err := s.capturedPayment(tx, order.ID)
		payment = found
		return err
	})
	if err != nil {
		return nil, err
	}

	order.Status = models.OrderStatusPaid
	order.GatewayOrderID = input.GatewayOrderID

	s.log.Info("payment captured", zap.String("order_id", order.ID.String()), zap.String("payment_id", input.GatewayPaymentID))
	s.notifyPayment(ctx, &order, input.GatewayPaymentID)

	return &PaymentResult{Order: &order, Payment: payment}, nil
}

func (s *OrderService) savedAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.ShippingAddress, error) {
	var address models.UserAddress
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", addressID, userID).First(&address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).Select("full_name", "phone").First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}

	return &models.ShippingAddress{
		Name:       user.FullName,
		Phone:      user.Phone,
		Line1:      address.Line1,
		Line2:      address.Line2,
		City:       address.City,
		State:      address.State,
		PostalCode: address.PostalCode,
		Country:    address.Country,
	}, nil
}

func (s *OrderService) capturedPayment(db *gorm.DB, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := db.Where("order_id = ? AND gateway = ? AND status = ?", orderID, s.gateway.Name(), models.PaymentStatusCaptured).
		Order("created_at asc").
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListOrders returns the user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, page utils.Pagination) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orders := []models.Order{}
	if err := query.Preload("Items").
		Order("created_at desc").
		Limit(page.Limit).Offset(page.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// GetOrder returns one of the user's orders with items and payments.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MinorUnits converts an amount into the currency's smallest unit.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (s *OrderService) notifyNewOrder(ctx context.Context, userID uuid.UUID, order *models.Order, items []models.OrderItem, gateway string) {
	if s.notifier == nil {
		return
	}

	notification := OrderNotification{
		OrderID:       order.ID.String(),
		Items:         make([]OrderItemNotification, 0, len(items)),
		TotalAmount:   order.TotalAmount,
		Currency:      order.Currency,
		CustomerName:  order.ShippingAddress.Name,
		City:          order.ShippingAddress.City,
		PaymentMethod: gateway,
		Status:        order.Status,
	}
	for _, item := range items {
		notification.Items = append(notification.Items, OrderItemNotification{
			Name:     item.ProductName,
			Quantity: item.Quantity,
			Price:    item.UnitPrice,
		})
	}

	var user models.User
	if err := s.db.WithContext(ctx).Select("email").First(&user, "id = ?", userID).Error; err == nil {
		notification.CustomerEmail = user.Email
	}

	go func() {
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		if err := s.notifier.NotifyNewOrder(notifyCtx, notification); err != nil {
			s.log.Warn("new order notification failed", zap.String("order_id", notification.OrderID), zap.Error(err))
		}
	}()
}

func (s *OrderService) notifyPayment(ctx context.Context, order *models.Order, paymentID string) {
	if s.notifier == nil {
		return
	}

	notification := PaymentSuccessNotification{
		OrderID:          order.ID.String(),
		GatewayPaymentID: paymentID,
		Amount:           order.TotalAmount,
		Currency:         order.Currency,
	}
	go func() {
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		if err := s.notifier.NotifyPaymentSuccess(notifyCtx, notification); err != nil {
			s.log.Warn("payment notification failed", zap.String("order_id", notification.OrderID), zap.Error(err))
		}
	}()
}
