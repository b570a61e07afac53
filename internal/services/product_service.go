package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/example/annavaram/internal/apperr"
	"github.com/example/annavaram/internal/models"
	"github.com/example/annavaram/internal/utils"
)

const productCachePrefix = "product:"

// ProductFilter narrows a product listing. Category matches a category id
// or slug. A listing of active products also hides disabled categories.
type ProductFilter struct {
	Search   string
	Category string
	IsActive *bool
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Items []models.Product `json:"items"`
	Total int64            `json:"total"`
}

// ProductInput carries the fields of a new product.
type ProductInput struct {
	Name        string
	Slug        string
	Description string
	Price       decimal.Decimal
	Currency    string
	Stock       int
	CategoryID  *uuid.UUID
	Images      []string
	IsActive    bool
}

// ProductUpdate carries optional product changes. Nil fields are left as is.
type ProductUpdate struct {
	Name        *string
	Slug        *string
	Description *string
	Price       *decimal.Decimal
	Currency    *string
	Stock       *int
	CategoryID  *uuid.UUID
	Images      []string
	IsActive    *bool
}

// ProductService serves the catalog with a read-through cache.
type ProductService struct {
	db    *gorm.DB
	cache Cache
	log   *zap.Logger
}

// NewProductService constructs a ProductService.
func NewProductService(db *gorm.DB, cache Cache, log *zap.Logger) *ProductService {
	if cache == nil {
		cache = NopCache{}
	}
	return &ProductService{db: db, cache: cache, log: log}
}

// List returns products matching filter, newest first.
func (s *ProductService) List(ctx context.Context, filter ProductFilter, page utils.Pagination) (*ProductPage, error) {
	key := cacheKey("product", "list", fmt.Sprintf("%q|%q|%v|%d|%d", filter.Search, filter.Category, boolKey(filter.IsActive), page.Page, page.Limit))

	var cached ProductPage
	if found, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.log.Warn("product cache read failed", zap.Error(err))
	} else if found {
		return &cached, nil
	}

	query := s.db.WithContext(ctx).Model(&models.Product{})
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if filter.Category != "" {
		categories := s.db.Model(&models.Category{}).Select("id")
		if id, err := uuid.Parse(filter.Category); err == nil {
			categories = categories.Where("id = ?", id)
		} else {
			categories = categories.Where("slug = ?", strings.ToLower(filter.Category))
		}
		query = query.Where("category_id IN (?)", categories)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
		if *filter.IsActive {
			query = query.Where("category_id IS NULL OR category_id IN (?)",
				s.db.Model(&models.Category{}).Select("id").Where("is_active = ?", true))
		}
	}

	result := &ProductPage{Items: []models.Product{}}
	if err := query.Count(&result.Total).Error; err != nil {
		return nil, err
	}
	if err := query.Preload("Category").Order("created_at desc").Limit(page.Limit).Offset(page.Offset).Find(&result.Items).Error; err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, result); err != nil {
		s.log.Warn("product cache write failed", zap.Error(err))
	}
	return result, nil
}

// Get returns a product by id or slug. Products that cannot be sold are
// hidden unless includeInactive.
func (s *ProductService) Get(ctx context.Context, idOrSlug string, includeInactive bool) (*models.Product, error) {
	key := cacheKey("product", "ref", idOrSlug)

	var product models.Product
	found, err := s.cache.Get(ctx, key, &product)
	if err != nil {
		s.log.Warn("product cache read failed", zap.Error(err))
	}

	if !found {
		query := s.db.WithContext(ctx).Preload("Category")
		if id, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
			query = query.Where("id = ?", id)
		} else {
			query = query.Where("slug = ?", strings.ToLower(idOrSlug))
		}
		err = query.First(&product).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, &product); err != nil {
			s.log.Warn("product cache write failed", zap.Error(err))
		}
	}

	if !product.Available() && !includeInactive {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

// Create inserts a product. An empty slug is derived from the name.
func (s *ProductService) Create(ctx context.Context, input ProductInput) (*models.Product, error) {
	db := s.db.WithContext(ctx)

	var category *models.Category
	if input.CategoryID != nil {
		found, err := activeCategory(db, *input.CategoryID)
		if err != nil {
			return nil, err
		}
		category = found
	}

	slug := input.Slug
	if slug == "" {
		slug = Slugify(input.Name)
	}

	product := &models.Product{
		Name:        strings.TrimSpace(input.Name),
		Slug:        slug,
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
		Currency:    input.Currency,
		Stock:       input.Stock,
		CategoryID:  input.CategoryID,
		Images:      datatypes.JSONSlice[string](input.Images),
		IsActive:    input.IsActive,
	}
	if err := db.Omit("Category").Create(product).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	product.Category = category

	s.invalidate(ctx)
	return product, nil
}

// Update applies the non-nil fields of update.
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, update ProductUpdate) (*models.Product, error) {
	db := s.db.WithContext(ctx)

	var product models.Product
	err := db.First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		product.Name = strings.TrimSpace(*update.Name)
	}
	if update.Slug != nil {
		product.Slug = *update.Slug
	}
	if update.Description != nil {
		product.Description = strings.TrimSpace(*update.Description)
	}
	if update.Price != nil {
		product.Price = *update.Price
	}
	if update.Currency != nil {
		product.Currency = *update.Currency
	}
	if update.Stock != nil {
		if *update.Stock < 0 {
			return nil, apperr.Validation("validation failed", map[string]string{"stock": "must be at least 0"})
		}
		product.Stock = *update.Stock
	}
	if update.CategoryID != nil && (product.CategoryID == nil || *product.CategoryID != *update.CategoryID) {
		if _, err := activeCategory(db, *update.CategoryID); err != nil {
			if errors.Is(err, ErrCategoryInactive) {
				return nil, apperr.Wrap(ErrCategoryInactive, "Cannot move product to an inactive category")
			}
			return nil, err
		}
		product.CategoryID = update.CategoryID
	}
	if update.Images != nil {
		product.Images = datatypes.JSONSlice[string](update.Images)
	}
	if update.IsActive != nil {
		product.IsActive = *update.IsActive
	}

	if err := db.Save(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	if product.CategoryID != nil {
		product.Category, _ = findCategory(db, *product.CategoryID)
	}

	s.invalidate(ctx)
	return &product, nil
}

// Deactivate hides a product from the storefront. Orders and reviews keep
// referencing it, so rows are never deleted.
func (s *ProductService) Deactivate(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	s.invalidate(ctx)
	return nil
}

// Invalidate drops every cached catalog entry.
func (s *ProductService) Invalidate(ctx context.Context) {
	s.invalidate(ctx)
}

func (s *ProductService) invalidate(ctx context.Context) {
	if err := s.cache.DeletePrefix(ctx, productCachePrefix); err != nil {
		s.log.Warn("product cache invalidation failed", zap.Error(err))
	}
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases name and joins its alphanumeric runs with dashes.
func Slugify(name string) string {
	return strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

func boolKey(value *bool) string {
	if value == nil {
		return "any"
	}
	if *value {
		return "true"
	}
	return "false"
}
