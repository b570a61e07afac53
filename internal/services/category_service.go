package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/annavaram/internal/apperr"
	"github.com/example/annavaram/internal/models"
)

// CategoryService manages product categories. Status changes reach the
// storefront immediately, so every write drops the catalog cache.
type CategoryService struct {
	db       *gorm.DB
	products *ProductService
	log      *zap.Logger
}

// NewCategoryService constructs a CategoryService.
func NewCategoryService(db *gorm.DB, products *ProductService, log *zap.Logger) *CategoryService {
	return &CategoryService{db: db, products: products, log: log}
}

// List returns every category newest first, or only active ones by name.
func (s *CategoryService) List(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	query := s.db.WithContext(ctx).Model(&models.Category{})
	if activeOnly {
		query = query.Where("is_active = ?", true).Order("name asc")
	} else {
		query = query.Order("created_at desc")
	}

	categories := []models.Category{}
	if err := query.Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Create adds an active category.
func (s *CategoryService) Create(ctx context.Context, name string) (*models.Category, error) {
	name, slug, err := categoryName(name)
	if err != nil {
		return nil, err
	}

	category := &models.Category{Name: name, Slug: slug, IsActive: true}
	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCategoryTaken
		}
		return nil, err
	}

	s.log.Info("category created", zap.String("category_id", category.ID.String()), zap.String("name", category.Name))
	return category, nil
}

// Rename changes the name and slug of a category.
func (s *CategoryService) Rename(ctx context.Context, id uuid.UUID, name string) (*models.Category, error) {
	name, slug, err := categoryName(name)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	category, err := findCategory(db, id)
	if err != nil {
		return nil, err
	}

	category.Name = name
	category.Slug = slug
	if err := db.Save(category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Wrap(ErrCategoryTaken, "Another category with this name already exists")
		}
		return nil, err
	}

	s.products.Invalidate(ctx)
	return category, nil
}

// ToggleStatus flips whether a category, and so its products, is on sale.
func (s *CategoryService) ToggleStatus(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	db := s.db.WithContext(ctx)
	category, err := findCategory(db, id)
	if err != nil {
		return nil, err
	}

	category.IsActive = !category.IsActive
	if err := db.Model(category).Update("is_active", category.IsActive).Error; err != nil {
		return nil, err
	}

	s.products.Invalidate(ctx)
	s.log.Info("category status changed",
		zap.String("category_id", category.ID.String()),
		zap.Bool("is_active", category.IsActive),
	)
	return category, nil
}

// Delete disables an empty category. Categories that still hold products
// are refused; their products must be moved first.
func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	db := s.db.WithContext(ctx)
	category, err := findCategory(db, id)
	if err != nil {
		return err
	}

	var count int64
	if err := db.Model(&models.Product{}).Where("category_id = ?", category.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperr.Wrap(ErrCategoryInUse,
			"Cannot delete category. It has %d product(s). Please remove or reassign products first.", count)
	}

	if err := db.Model(category).Update("is_active", false).Error; err != nil {
		return err
	}
	s.products.Invalidate(ctx)
	return nil
}

func categoryName(raw string) (string, string, error) {
	name := strings.TrimSpace(raw)
	slug := Slugify(name)
	if name == "" || slug == "" {
		return "", "", apperr.Validation("validation failed", map[string]string{"name": "Category name is required"})
	}
	return name, slug, nil
}

func findCategory(db *gorm.DB, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	err := db.First(&category, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// activeCategory loads a category that products may be placed in.
func activeCategory(db *gorm.DB, id uuid.UUID) (*models.Category, error) {
	category, err := findCategory(db, id)
	if err != nil {
		return nil, err
	}
	if !category.IsActive {
		return nil, ErrCategoryInactive
	}
	return category, nil
}
