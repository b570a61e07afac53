package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/annavaram/internal/apperr"
	"github.com/example/annavaram/internal/testutil"
	"github.com/example/annavaram/internal/utils"
)

func TestCategoryCreateAndList(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewCategoryService(db, NewProductService(db, nil, zap.NewNop()), zap.NewNop())
	ctx := context.Background()

	sweets, err := svc.Create(ctx, "  Sweets ")
	require.NoError(t, err)
	assert.Equal(t, "Sweets", sweets.Name)
	assert.Equal(t, "sweets", sweets.Slug)
	assert.True(t, sweets.IsActive)

	_, err = svc.Create(ctx, "Sweets")
	require.ErrorIs(t, err, ErrCategoryTaken)

	_, err = svc.Create(ctx, "   ")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	annam, err := svc.Create(ctx, "Annam")
	require.NoError(t, err)
	_, err = svc.ToggleStatus(ctx, sweets.ID)
	require.NoError(t, err)

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, annam.ID, active[0].ID)
}

func TestCategoryRename(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewCategoryService(db, NewProductService(db, nil, zap.NewNop()), zap.NewNop())
	ctx := context.Background()

	sweets, err := svc.Create(ctx, "Sweets")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "Annam")
	require.NoError(t, err)

	renamed, err := svc.Rename(ctx, sweets.ID, "Temple Sweets")
	require.NoError(t, err)
	assert.Equal(t, "temple-sweets", renamed.Slug)

	_, err = svc.Rename(ctx, sweets.ID, "Annam")
	require.ErrorIs(t, err, ErrCategoryTaken)
	assert.Equal(t, "Another category with this name already exists", err.Error())

	_, err = svc.Rename(ctx, uuid.New(), "Anything")
	require.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryToggleHidesProducts(t *testing.T) {
	db := testutil.NewDB(t)
	cache := newMemoryCache()
	products := NewProductService(db, cache, zap.NewNop())
	svc := NewCategoryService(db, products, zap.NewNop())
	ctx := context.Background()

	category := testutil.CreateCategory(t, db, "Sweets")
	product, err := products.Create(ctx, ProductInput{
		Name:       "Ravva Kesari",
		Price:      decimal.NewFromInt(60),
		Stock:      5,
		CategoryID: &category.ID,
		IsActive:   true,
	})
	require.NoError(t, err)
	require.NotNil(t, product.Category)

	_, err = products.Get(ctx, product.ID.String(), false)
	require.NoError(t, err)
	assert.NotZero(t, cache.size())

	toggled, err := svc.ToggleStatus(ctx, category.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)
	assert.Zero(t, cache.size())

	_, err = products.Get(ctx, product.ID.String(), false)
	require.ErrorIs(t, err, ErrProductNotFound)

	active := true
	page, err := products.List(ctx, ProductFilter{IsActive: &active}, utils.NewPagination(1, 10, 10))
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	page, err = products.List(ctx, ProductFilter{Category: category.Slug}, utils.NewPagination(1, 10, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	toggled, err = svc.ToggleStatus(ctx, category.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)

	_, err = products.Get(ctx, product.ID.String(), false)
	require.NoError(t, err)
}

func TestCategoryDeleteRefusesNonEmpty(t *testing.T) {
	db := testutil.NewDB(t)
	products := NewProductService(db, nil, zap.NewNop())
	svc := NewCategoryService(db, products, zap.NewNop())
	ctx := context.Background()

	category := testutil.CreateCategory(t, db, "Sweets")
	product := testutil.CreateProduct(t, db, "Ladoo", "100", 3)
	require.NoError(t, db.Model(product).Update("category_id", category.ID).Error)

	err := svc.Delete(ctx, category.ID)
	require.ErrorIs(t, err, ErrCategoryInUse)
	assert.Contains(t, err.Error(), "It has 1 product(s)")

	empty := testutil.CreateCategory(t, db, "Annam")
	require.NoError(t, svc.Delete(ctx, empty.ID))

	stored, err := findCategory(db, empty.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	require.ErrorIs(t, svc.Delete(ctx, uuid.New()), ErrCategoryNotFound)
}

func TestProductCategoryMustBeActive(t *testing.T) {
	db := testutil.NewDB(t)
	products := NewProductService(db, nil, zap.NewNop())
	ctx := context.Background()

	open := testutil.CreateCategory(t, db, "Sweets")
	closed := testutil.CreateCategory(t, db, "Seasonal")
	require.NoError(t, db.Model(closed).Update("is_active", false).Error)

	missing := uuid.New()
	_, err := products.Create(ctx, ProductInput{Name: "Ladoo", Price: decimal.NewFromInt(1), CategoryID: &missing})
	require.ErrorIs(t, err, ErrCategoryNotFound)

	_, err = products.Create(ctx, ProductInput{Name: "Ladoo", Price: decimal.NewFromInt(1), CategoryID: &closed.ID})
	require.ErrorIs(t, err, ErrCategoryInactive)

	product, err := products.Create(ctx, ProductInput{Name: "Ladoo", Price: decimal.NewFromInt(1), CategoryID: &open.ID, IsActive: true})
	require.NoError(t, err)

	_, err = products.Update(ctx, product.ID, ProductUpdate{CategoryID: &closed.ID})
	require.ErrorIs(t, err, ErrCategoryInactive)
	assert.Equal(t, "Cannot move product to an inactive category", err.Error())

	require.NoError(t, db.Model(open).Update("is_active", false).Error)
	price := decimal.NewFromInt(2)
	updated, err := products.Update(ctx, product.ID, ProductUpdate{CategoryID: &open.ID, Price: &price})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(price))
}
