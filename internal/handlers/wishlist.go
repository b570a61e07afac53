package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/annavaram/internal/middleware"
	"github.com/example/annavaram/internal/models"
	"github.com/example/annavaram/internal/services"
)

// WishlistHandler manages the products a user saved for later.
type WishlistHandler struct {
	db *gorm.DB
}

// NewWishlistHandler constructs a WishlistHandler.
func NewWishlistHandler(db *gorm.DB) *WishlistHandler {
	return &WishlistHandler{db: db}
}

// GetWishlist returns the wishlist, skipping products that are no longer on sale.
func (h *WishlistHandler) GetWishlist(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	var items []models.WishlistItem
	if err := h.db.WithContext(c.UserContext()).
		Preload("Product.Category").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&items).Error; err != nil {
		return err
	}

	visible := make([]models.WishlistItem, 0, len(items))
	for _, item := range items {
		if item.Product != nil && item.Product.Available() {
			visible = append(visible, item)
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"items": visible,
			"count": len(visible),
		},
	})
}

// AddToWishlist saves a product. Adding a saved product again is a no-op.
func (h *WishlistHandler) AddToWishlist(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	productID, err := paramUUID(c, "productId")
	if err != nil {
		return err
	}

	db := h.db.WithContext(c.UserContext())
	if err := h.requireActiveProduct(db, productID); err != nil {
		return err
	}

	item, created, err := h.add(db, userID, productID)
	if err != nil {
		return err
	}

	status, message := fiber.StatusCreated, "Added to wishlist"
	if !created {
		status, message = fiber.StatusOK, "Product already in wishlist"
	}
	return c.Status(status).JSON(fiber.Map{"success": true, "message": message, "data": item})
}

// RemoveFromWishlist deletes a saved product.
func (h *WishlistHandler) RemoveFromWishlist(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	productID, err := paramUUID(c, "productId")
	if err != nil {
		return err
	}

	res := h.db.WithContext(c.UserContext()).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return services.ErrNotInWishlist
	}
	return c.JSON(fiber.Map{"success": true, "message": "Removed from wishlist"})
}

// ToggleWishlist adds the product when absent and removes it when present.
func (h *WishlistHandler) ToggleWishlist(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	productID, err := paramUUID(c, "productId")
	if err != nil {
		return err
	}

	db := h.db.WithContext(c.UserContext())
	if err := h.requireActiveProduct(db, productID); err != nil {
		return err
	}

	res := db.Where("user_id = ? AND product_id = ?", userID, productID).Delete(&models.WishlistItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Removed from wishlist",
			"data":    fiber.Map{"in_wishlist": false, "product_id": productID},
		})
	}

	item, _, err := h.add(db, userID, productID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Added to wishlist",
		"data":    fiber.Map{"in_wishlist": true, "product_id": productID, "id": item.ID},
	})
}

// ClearWishlist removes every saved product.
func (h *WishlistHandler) ClearWishlist(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	if err := h.db.WithContext(c.UserContext()).
		Where("user_id = ?", userID).
		Delete(&models.WishlistItem{}).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Wishlist cleared"})
}

func (h *WishlistHandler) add(db *gorm.DB, userID, productID uuid.UUID) (*models.WishlistItem, bool, error) {
	item := models.WishlistItem{UserID: userID, ProductID: productID}
	err := db.Create(&item).Error
	if err == nil {
		return &item, true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, err
	}

	var existing models.WishlistItem
	if err := db.First(&existing, "user_id = ? AND product_id = ?", userID, productID).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

func (h *WishlistHandler) requireActiveProduct(db *gorm.DB, productID uuid.UUID) error {
	var count int64
	if err := db.Model(&models.Product{}).
		Where("id = ? AND is_active = ?", productID, true).
		Where("category_id IS NULL OR category_id IN (?)", db.Model(&models.Category{}).Select("id").Where("is_active = ?", true)).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return services.ErrProductUnavailable
	}
	return nil
}
