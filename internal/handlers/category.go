package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/annavaram/internal/services"
)

// CategoryHandler manages product categories.
type CategoryHandler struct {
	categories *services.CategoryService
}

// NewCategoryHandler constructs CategoryHandler.
func NewCategoryHandler(categories *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// ListCategories returns every category, newest first.
func (h *CategoryHandler) ListCategories(c *fiber.Ctx) error {
	return h.list(c, false)
}

// ListActiveCategories returns the categories on sale, by name.
func (h *CategoryHandler) ListActiveCategories(c *fiber.Ctx) error {
	return h.list(c, true)
}

func (h *CategoryHandler) list(c *fiber.Ctx, activeOnly bool) error {
	categories, err := h.categories.List(c.UserContext(), activeOnly)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": categories, "count": len(categories)})
}

type categoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CreateCategory adds an active category.
func (h *CategoryHandler) CreateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	category, err := h.categories.Create(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Category created successfully",
		"data":    category,
	})
}

// UpdateCategory renames a category.
func (h *CategoryHandler) UpdateCategory(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req categoryRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	category, err := h.categories.Rename(c.UserContext(), id, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Category updated successfully", "data": category})
}

// ToggleCategoryStatus enables or disables a category.
func (h *CategoryHandler) ToggleCategoryStatus(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	category, err := h.categories.ToggleStatus(c.UserContext(), id)
	if err != nil {
		return err
	}

	message := "Category disabled successfully"
	if category.IsActive {
		message = "Category enabled successfully"
	}
	return c.JSON(fiber.Map{"success": true, "message": message, "data": category})
}

// DeleteCategory disables a category that has no products.
func (h *CategoryHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.categories.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Category disabled successfully"})
}
