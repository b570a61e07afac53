package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/annavaram/internal/apperr"
	"github.com/example/annavaram/internal/services"
	"github.com/example/annavaram/internal/utils"
)

// ProductHandler manages the catalog.
type ProductHandler struct {
	products *services.ProductService
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(products *services.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

// ListProducts returns products on sale with optional search and category
// filters. category takes a category id or slug.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	active := true
	return h.list(c, &active)
}

// AdminListProducts lists every product, optionally filtered by is_active.
func (h *ProductHandler) AdminListProducts(c *fiber.Ctx) error {
	return h.list(c, utils.ParseBool(c.Query("is_active")))
}

func (h *ProductHandler) list(c *fiber.Ctx, active *bool) error {
	pg := utils.ParsePagination(c, 20)
	page, err := h.products.List(c.UserContext(), services.ProductFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Category: strings.TrimSpace(c.Query("category")),
		IsActive: active,
	}, pg)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       page.Items,
		"pagination": pg.Meta(page.Total),
	})
}

// GetProduct returns an active product by id or slug.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	product, err := h.products.Get(c.UserContext(), c.Params("id"), false)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": product})
}

type productRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Slug        string          `json:"slug" validate:"omitempty,max=200"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency" validate:"omitempty,len=3"`
	Stock       int             `json:"stock" validate:"min=0"`
	CategoryID  *uuid.UUID      `json:"category_id"`
	Images      []string        `json:"images" validate:"omitempty,dive,url"`
	IsActive    *bool           `json:"is_active"`
}

// CreateProduct adds a product to the catalog.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if !req.Price.IsPositive() {
		return apperr.Validation("validation failed", map[string]string{"price": "must be greater than 0"})
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	product, err := h.products.Create(c.UserContext(), services.ProductInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		Images:      req.Images,
		IsActive:    isActive,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": product})
}

type productUpdateRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Slug        *string          `json:"slug" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Currency    *string          `json:"currency" validate:"omitempty,len=3"`
	Stock       *int             `json:"stock" validate:"omitempty,min=0"`
	CategoryID  *uuid.UUID       `json:"category_id"`
	Images      []string         `json:"images" validate:"omitempty,dive,url"`
	IsActive    *bool            `json:"is_active"`
}

// UpdateProduct applies a partial update to a product.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req productUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Price != nil && !req.Price.IsPositive() {
		return apperr.Validation("validation failed", map[string]string{"price": "must be greater than 0"})
	}

	product, err := h.products.Update(c.UserContext(), id, services.ProductUpdate{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		Images:      req.Images,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": product})
}

// DeleteProduct hides a product from the storefront.
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.products.Deactivate(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Product deactivated"})
}
