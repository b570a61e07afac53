package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/annavaram/internal/middleware"
	"github.com/example/annavaram/internal/services"
	"github.com/example/annavaram/internal/utils"
)

// AdminHandler manages admin-only order endpoints.
type AdminHandler struct {
	orders *services.OrderService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(orders *services.OrderService) *AdminHandler {
	return &AdminHandler{orders: orders}
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	stats, err := h.orders.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": stats})
}

// ListOrders returns orders of all users. Without a status filter only
// fulfilled orders are listed; status=all lists everything.
func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	filter := services.AdminOrderFilter{Status: c.Query("status")}

	if v := c.Query("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid user_id")
		}
		filter.UserID = &id
	}
	if v := c.Query("from"); v != "" {
		from, err := parseDateParam(v, false)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid from date")
		}
		filter.From = &from
	}
	if v := c.Query("to"); v != "" {
		to, err := parseDateParam(v, true)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid to date")
		}
		filter.To = &to
	}

	pg := utils.ParsePagination(c, 20)
	orders, total, err := h.orders.ListAllOrders(c.UserContext(), filter, pg)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pg.Meta(total),
	})
}

// GetOrder returns any order with payments and status history.
func (h *AdminHandler) GetOrder(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orders.GetOrderAdmin(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes" validate:"omitempty,max=500"`
}

// UpdateOrderStatus moves an order along the fulfilment flow.
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	adminID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req updateOrderStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	order, err := h.orders.UpdateOrderStatus(c.UserContext(), adminID, id, req.Status, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Order status updated",
		"data":    order,
	})
}

// parseDateParam accepts RFC 3339 timestamps or plain dates. A plain date used
// as an upper bound covers the whole day.
func parseDateParam(value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
