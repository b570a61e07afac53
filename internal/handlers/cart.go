package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/annavaram/internal/middleware"
	"github.com/example/annavaram/internal/services"
)

// CartHandler serves the current user's cart.
type CartHandler struct {
	carts *services.CartService
}

// NewCartHandler constructs a CartHandler.
func NewCartHandler(carts *services.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// GetCart returns the active cart with live product data.
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}
	return h.respond(c, userID, fiber.StatusOK)
}

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=100"`
}

// AddItem adds a product to the cart, summing with any existing line.
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	var req addCartItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	cart, err := h.carts.GetOrCreateActiveCart(c.UserContext(), userID)
	if err != nil {
		return err
	}
	if err := h.carts.AddItem(c.UserContext(), cart, uuid.MustParse(req.ProductID), req.Quantity); err != nil {
		return err
	}
	return h.respond(c, userID, fiber.StatusCreated)
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,max=100"`
}

// UpdateItem sets a line's quantity. Zero removes the line.
func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	itemID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req updateCartItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	cart, err := h.carts.GetOrCreateActiveCart(c.UserContext(), userID)
	if err != nil {
		return err
	}
	if err := h.carts.UpdateItem(c.UserContext(), cart, itemID, *req.Quantity); err != nil {
		return err
	}
	return h.respond(c, userID, fiber.StatusOK)
}

// RemoveItem deletes a line from the cart.
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	itemID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	cart, err := h.carts.GetOrCreateActiveCart(c.UserContext(), userID)
	if err != nil {
		return err
	}
	if err := h.carts.RemoveItem(c.UserContext(), cart, itemID); err != nil {
		return err
	}
	return h.respond(c, userID, fiber.StatusOK)
}

func (h *CartHandler) respond(c *fiber.Ctx, userID uuid.UUID, status int) error {
	cart, err := h.carts.GetOrCreateActiveCart(c.UserContext(), userID)
	if err != nil {
		return err
	}
	snapshot, err := h.carts.Snapshot(c.UserContext(), cart)
	if err != nil {
		return err
	}
	return c.Status(status).JSON(fiber.Map{"success": true, "data": snapshot})
}
