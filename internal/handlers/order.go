package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/annavaram/internal/middleware"
	"github.com/example/annavaram/internal/models"
	"github.com/example/annavaram/internal/services"
	"github.com/example/annavaram/internal/utils"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	orders *services.OrderService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type shippingAddressRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	Phone      string `json:"phone" validate:"omitempty,max=20"`
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2" validate:"omitempty,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=12"`
	Country    string `json:"country" validate:"omitempty,len=2"`
}

type createOrderRequest struct {
	ShippingAddress *shippingAddressRequest `json:"shipping_address" validate:"required_without=AddressID"`
	AddressID       string                  `json:"address_id" validate:"omitempty,uuid"`
	Notes           string                  `json:"notes" validate:"omitempty,max=500"`
}

// CreateOrder converts the caller's cart into an order.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	var req createOrderRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	input := services.CreateOrderInput{Notes: req.Notes}
	if req.AddressID != "" {
		id := uuid.MustParse(req.AddressID)
		input.AddressID = &id
	} else {
		input.ShippingAddress = models.ShippingAddress{
			Name:       req.ShippingAddress.Name,
			Phone:      req.ShippingAddress.Phone,
			Line1:      req.ShippingAddress.Line1,
			Line2:      req.ShippingAddress.Line2,
			City:       req.ShippingAddress.City,
			State:      req.ShippingAddress.State,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		}
	}

	result, err := h.orders.CreateOrder(c.UserContext(), userID, input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Order created successfully.",
		"data":    result,
	})
}

// ListOrders returns orders for authenticated user.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	pg := utils.ParsePagination(c, 10)
	orders, total, err := h.orders.ListOrders(c.UserContext(), userID, pg)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pg.Meta(total),
	})
}

// GetOrder returns a single order for the authenticated user.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orders.GetOrder(c.UserContext(), userID, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}

type verifyPaymentRequest struct {
	OrderID           string `json:"order_id" validate:"required,uuid"`
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}

// VerifyPayment confirms a Razorpay checkout and marks the order paid.
func (h *OrderHandler) VerifyPayment(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	var req verifyPaymentRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result, err := h.orders.VerifyPayment(c.UserContext(), userID, services.VerifyPaymentInput{
		OrderID:          uuid.MustParse(req.OrderID),
		GatewayOrderID:   req.RazorpayOrderID,
		GatewayPaymentID: req.RazorpayPaymentID,
		Signature:        req.RazorpaySignature,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Payment verified successfully.",
		"data":    result,
	})
}
