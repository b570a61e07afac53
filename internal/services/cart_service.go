package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/annavaram/internal/apperr"
	"github.com/example/annavaram/internal/models"
)

// ProductSnapshot is the live product data attached to a cart line.
type ProductSnapshot struct {
	Slug       string     `json:"slug"`
	Stock      int        `json:"stock"`
	IsActive   bool       `json:"is_active"`
	CategoryID *uuid.UUID `json:"category_id"`
	Category   string     `json:"category,omitempty"`
	Images     []string   `json:"images"`
}

// CartLine is one item of a cart snapshot.
type CartLine struct {
	ID        uuid.UUID        `json:"id"`
	ProductID uuid.UUID        `json:"product_id"`
	Name      string           `json:"name"`
	Quantity  int              `json:"quantity"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
	Subtotal  decimal.Decimal  `json:"subtotal"`
	Product   *ProductSnapshot `json:"product_snapshot,omitempty"`
}

// CartTotals folds quantity and amount over every line.
type CartTotals struct {
	Quantity int             `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

// CartSnapshot is a read-only view of a cart joined with live product data.
type CartSnapshot struct {
	CartID   uuid.UUID  `json:"id"`
	Status   string     `json:"status"`
	Currency string     `json:"currency"`
	Items    []CartLine `json:"items"`
	Totals   CartTotals `json:"totals"`
}

// CartService owns the mutable shopping cart of each user.
type CartService struct {
	db       *gorm.DB
	log      *zap.Logger
	currency string
}

// NewCartService constructs a CartService.
func NewCartService(db *gorm.DB, currency string, log *zap.Logger) *CartService {
	return &CartService{db: db, log: log, currency: currency}
}

// GetOrCreateActiveCart returns the user's active cart, creating it on first use.
func (s *CartService) GetOrCreateActiveCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	db := s.db.WithContext(ctx)

	cart, err := s.findActiveCart(db, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cart = &models.Cart{UserID: userID, Status: models.CartStatusActive}
	if err := db.Create(cart).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.findActiveCart(db, userID)
		}
		return nil, err
	}
	return cart, nil
}

func (s *CartService) findActiveCart(db *gorm.DB, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := db.Where("user_id = ? AND status = ?", userID, models.CartStatusActive).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddItem adds quantity of a product to the cart. An existing line for the
// same product has the quantity summed and is removed if the sum drops to zero.
func (s *CartService) AddItem(ctx context.Context, cart *models.Cart, productID uuid.UUID, quantity int) error {
	db := s.db.WithContext(ctx)

	product, err := s.loadAvailableProduct(db, productID)
	if err != nil {
		return err
	}
	if product.Stock < quantity {
		return apperr.Wrap(ErrInsufficientStock, "Insufficient stock for requested quantity")
	}

	merged, err := s.mergeQuantity(db, cart.ID, product.ID, quantity)
	if err != nil {
		return err
	}
	if merged {
		return db.Where("cart_id = ? AND product_id = ? AND quantity <= 0", cart.ID, product.ID).
			Delete(&models.CartItem{}).Error
	}

	if quantity <= 0 {
		return apperr.Validation("quantity must be at least 1", map[string]string{"quantity": "must be at least 1"})
	}
	err = db.Create(&models.CartItem{
		CartID:          cart.ID,
		ProductID:       product.ID,
		Quantity:        quantity,
		PriceAtAddition: product.Price,
	}).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}

	// Another request inserted the line first; add onto it.
	merged, err = s.mergeQuantity(db, cart.ID, product.ID, quantity)
	if err != nil {
		return err
	}
	if !merged {
		return ErrCartItemNotFound
	}
	return nil
}

// mergeQuantity adds quantity onto an existing line and reports whether one existed.
func (s *CartService) mergeQuantity(db *gorm.DB, cartID, productID uuid.UUID, quantity int) (bool, error) {
	res := db.Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Update("quantity", gorm.Expr("quantity + ?", quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateItem sets the quantity of a cart line. Zero or less removes the line;
// any other value is checked against the product's current stock.
func (s *CartService) UpdateItem(ctx context.Context, cart *models.Cart, itemID uuid.UUID, quantity int) error {
	db := s.db.WithContext(ctx)

	var item models.CartItem
	err := db.Where("id = ? AND cart_id = ?", itemID, cart.ID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCartItemNotFound
	}
	if err != nil {
		return err
	}

	if quantity <= 0 {
		return db.Delete(&item).Error
	}

	product, err := s.loadAvailableProduct(db, item.ProductID)
	if err != nil {
		return err
	}
	if product.Stock < quantity {
		return apperr.Wrap(ErrInsufficientStock, "Insufficient stock for requested quantity")
	}

	return db.Model(&item).Update("quantity", quantity).Error
}

// RemoveItem deletes a cart line. Removing a missing line is not an error.
func (s *CartService) RemoveItem(ctx context.Context, cart *models.Cart, itemID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cart.ID).
		Delete(&models.CartItem{}).Error
}

// Snapshot joins the cart's items with live product data and computes totals.
// Subtotals use the price captured when the item was added.
func (s *CartService) Snapshot(ctx context.Context, cart *models.Cart) (*CartSnapshot, error) {
	var items []models.CartItem
	if err := s.db.WithContext(ctx).
		Preload("Product.Category").
		Where("cart_id = ?", cart.ID).
		Order("created_at asc").
		Find(&items).Error; err != nil {
		return nil, err
	}

	snapshot := &CartSnapshot{
		CartID:   cart.ID,
		Status:   cart.Status,
		Currency: s.currency,
		Items:    make([]CartLine, 0, len(items)),
		Totals:   CartTotals{Amount: decimal.Zero},
	}

	for i := range items {
		item := &items[i]
		line := CartLine{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.PriceAtAddition,
			Subtotal:  item.Subtotal(),
		}
		if item.Product != nil {
			line.Name = item.Product.Name
			line.Product = &ProductSnapshot{
				Slug:       item.Product.Slug,
				Stock:      item.Product.Stock,
				IsActive:   item.Product.Available(),
				CategoryID: item.Product.CategoryID,
				Images:     item.Product.Images,
			}
			if item.Product.Category != nil {
				line.Product.Category = item.Product.Category.Name
			}
		}

		snapshot.Items = append(snapshot.Items, line)
		snapshot.Totals.Quantity += line.Quantity
		snapshot.Totals.Amount = snapshot.Totals.Amount.Add(line.Subtotal)
	}

	return snapshot, nil
}

// VerifyStockLevels checks every line against current product state and fails
// on the first product that is unavailable or short of stock.
func (s *CartService) VerifyStockLevels(ctx context.Context, items []CartLine) error {
	db := s.db.WithContext(ctx)
	for _, item := range items {
		var product models.Product
		err := db.Preload("Category").First(&product, "id = ?", item.ProductID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Wrap(ErrProductUnavailable, "%s is no longer available", displayName(item.Name))
		}
		if err != nil {
			return err
		}
		if !product.Available() {
			return apperr.Wrap(ErrProductUnavailable, "%s is no longer available", product.Name)
		}
		if product.Stock < item.Quantity {
			return apperr.Wrap(ErrOutOfStock, "Insufficient stock for %s", product.Name)
		}
	}
	return nil
}

// Clear empties the cart and marks it converted. Runs on tx so it can join
// the caller's transaction.
func (s *CartService) Clear(tx *gorm.DB, cartID uuid.UUID) error {
	if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return tx.Model(&models.Cart{}).Where("id = ?", cartID).Update("status", models.CartStatusConverted).Error
}

// loadAvailableProduct returns a product that is on sale. An inactive
// product or one in a disabled category is unavailable.
func (s *CartService) loadAvailableProduct(db *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := db.Preload("Category").First(&product, "id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductUnavailable
	}
	if err != nil {
		return nil, err
	}
	if !product.Available() {
		return nil, ErrProductUnavailable
	}
	return &product, nil
}

func displayName(name string) string {
	if name == "" {
		return "A product in your cart"
	}
	return name
}
