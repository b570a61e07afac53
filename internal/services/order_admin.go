package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/annavaram/internal/models"
	"github.com/example/annavaram/internal/utils"
)

// AllStatuses selects every order regardless of status in an admin listing.
const AllStatuses = "all"

// AdminOrderFilter narrows the admin order listing. An empty Status lists
// fulfilled orders only.
type AdminOrderFilter struct {
	Status string
	UserID *uuid.UUID
	From   *time.Time
	To     *time.Time
}

// StatusBreakdown is the order count and revenue of one status.
type StatusBreakdown struct {
	Status      string          `json:"status"`
	Count       int64           `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// OrderStats summarizes the shop for the admin dashboard.
type OrderStats struct {
	TotalOrders    int64             `json:"total_orders"`
	TotalRevenue   decimal.Decimal   `json:"total_revenue"`
	TotalCustomers int64             `json:"total_customers"`
	ActiveProducts int64             `json:"active_products"`
	ByStatus       []StatusBreakdown `json:"by_status"`
}

// ListAllOrders returns orders across all users, newest first.
func (s *OrderService) ListAllOrders(ctx context.Context, filter AdminOrderFilter, page utils.Pagination) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})

	switch filter.Status {
	case "":
		query = query.Where("status IN ?", models.FulfilledOrderStatuses)
	case AllStatuses:
	default:
		if !models.IsValidOrderStatus(filter.Status) {
			return nil, 0, ErrInvalidOrderStatus
		}
		query = query.Where("status = ?", filter.Status)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orders := []models.Order{}
	if err := query.
		Preload("Items").
		Preload("User").
		Order("created_at desc").
		Limit(page.Limit).Offset(page.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// GetOrderAdmin returns any order with its items, payments and status history.
func (s *OrderService) GetOrderAdmin(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("User").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		First(&order, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus moves an order to status and appends a history entry.
// Moving backwards along the flow is allowed but logged.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, adminID, orderID uuid.UUID, status, notes string) (*models.Order, error) {
	if !models.IsValidOrderStatus(status) {
		return nil, ErrInvalidOrderStatus
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		from, to := models.OrderStatusIndex(order.Status), models.OrderStatusIndex(status)
		if from >= 0 && to >= 0 && to < from {
			s.log.Warn("order status moved backwards",
				zap.String("order_id", order.ID.String()),
				zap.String("from", order.Status),
				zap.String("to", status),
			)
		}

		if err := tx.Model(&order).Update("status", status).Error; err != nil {
			return err
		}

		if notes == "" {
			notes = fmt.Sprintf("Status updated to %s", status)
		}
		return tx.Create(&models.OrderStatusEvent{
			OrderID:   order.ID,
			Status:    status,
			Notes:     notes,
			UpdatedBy: &adminID,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("status", status),
		zap.String("admin_id", adminID.String()),
	)
	return s.GetOrderAdmin(ctx, orderID)
}

// Stats aggregates order counts and revenue. Revenue counts fulfilled orders only.
func (s *OrderService) Stats(ctx context.Context) (*OrderStats, error) {
	db := s.db.WithContext(ctx)

	var rows []StatusBreakdown
	if err := db.Model(&models.Order{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total_amount").
		Group("status").
		Order("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &OrderStats{TotalRevenue: decimal.Zero, ByStatus: []StatusBreakdown{}}
	for _, row := range rows {
		stats.ByStatus = append(stats.ByStatus, row)
		if isFulfilled(row.Status) {
			stats.TotalOrders += row.Count
			stats.TotalRevenue = stats.TotalRevenue.Add(row.TotalAmount)
		}
	}

	if err := db.Model(&models.User{}).Where("role = ?", models.RoleCustomer).Count(&stats.TotalCustomers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Product{}).Where("is_active = ?", true).Count(&stats.ActiveProducts).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

func isFulfilled(status string) bool {
	for _, s := range models.FulfilledOrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}
