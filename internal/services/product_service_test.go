package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/annavaram/internal/testutil"
	"github.com/example/annavaram/internal/utils"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	failGet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return false, errors.New("cache down")
	}
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

func (c *memoryCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

func (c *memoryCache) Ping(context.Context) error { return nil }

func (c *memoryCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func TestProductCreateDerivesSlug(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewProductService(db, nil, zap.NewNop())
	ctx := context.Background()

	product, err := svc.Create(ctx, ProductInput{
		Name:     "  Sri Satyadeva Prasadam ",
		Price:    decimal.NewFromInt(150),
		Currency: "inr",
		Stock:    25,
		IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "sri-satyadeva-prasadam", product.Slug)
	assert.Equal(t, "Sri Satyadeva Prasadam", product.Name)
	assert.Equal(t, "INR", product.Currency)

	_, err = svc.Create(ctx, ProductInput{Name: "Sri Satyadeva Prasadam", Price: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, ErrSlugTaken)
}

func TestProductGetByIDOrSlug(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewProductService(db, nil, zap.NewNop())
	ctx := context.Background()
	created := testutil.CreateProduct(t, db, "Ladoo", "100", 3)

	byID, err := svc.Get(ctx, created.ID.String(), false)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byID.ID)

	bySlug, err := svc.Get(ctx, strings.ToUpper(created.Slug), false)
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySlug.ID)

	require.NoError(t, svc.Deactivate(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID.String(), false)
	require.ErrorIs(t, err, ErrProductNotFound)

	hidden, err := svc.Get(ctx, created.ID.String(), true)
	require.NoError(t, err)
	assert.False(t, hidden.IsActive)

	_, err = svc.Get(ctx, "no-such-product", true)
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductListFilters(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewProductService(db, nil, zap.NewNop())
	ctx := context.Background()
	testutil.CreateProduct(t, db, "Ladoo", "100", 3)
	testutil.CreateProduct(t, db, "Pulihora", "50", 3)
	inactive := testutil.CreateProduct(t, db, "Old Ladoo", "90", 0)
	require.NoError(t, svc.Deactivate(ctx, inactive.ID))

	active := true
	page, err := svc.List(ctx, ProductFilter{IsActive: &active}, utils.NewPagination(1, 10, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	page, err = svc.List(ctx, ProductFilter{Search: "ladoo"}, utils.NewPagination(1, 10, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	page, err = svc.List(ctx, ProductFilter{Search: "LADOO", IsActive: &active}, utils.NewPagination(1, 1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	assert.Len(t, page.Items, 1)
}

func TestProductCacheInvalidatedOnWrite(t *testing.T) {
	db := testutil.NewDB(t)
	cache := newMemoryCache()
	svc := NewProductService(db, cache, zap.NewNop())
	ctx := context.Background()
	product := testutil.CreateProduct(t, db, "Ladoo", "100", 3)

	_, err := svc.Get(ctx, product.ID.String(), false)
	require.NoError(t, err)
	_, err = svc.List(ctx, ProductFilter{}, utils.NewPagination(1, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, 2, cache.size())

	require.NoError(t, db.Model(product).Update("stock", 99).Error)
	cached, err := svc.Get(ctx, product.ID.String(), false)
	require.NoError(t, err)
	assert.Equal(t, 3, cached.Stock)

	stock := 7
	_, err = svc.Update(ctx, product.ID, ProductUpdate{Stock: &stock})
	require.NoError(t, err)
	assert.Zero(t, cache.size())

	fresh, err := svc.Get(ctx, product.ID.String(), false)
	require.NoError(t, err)
	assert.Equal(t, 7, fresh.Stock)
}

func TestProductReadsSurviveCacheFailure(t *testing.T) {
	db := testutil.NewDB(t)
	cache := newMemoryCache()
	cache.failGet = true
	svc := NewProductService(db, cache, zap.NewNop())
	product := testutil.CreateProduct(t, db, "Ladoo", "100", 3)

	got, err := svc.Get(context.Background(), product.ID.String(), false)
	require.NoError(t, err)
	assert.Equal(t, product.ID, got.ID)
}

func TestProductUpdateRejectsNegativeStock(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewProductService(db, nil, zap.NewNop())
	product := testutil.CreateProduct(t, db, "Ladoo", "100", 3)

	stock := -1
	_, err := svc.Update(context.Background(), product.ID, ProductUpdate{Stock: &stock})
	require.Error(t, err)

	price := decimal.RequireFromString("120.00")
	updated, err := svc.Update(context.Background(), product.ID, ProductUpdate{Price: &price})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(price))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "kobbari-ladoo-500g", Slugify("Kobbari Ladoo (500g)"))
	assert.Equal(t, "", Slugify("!!!"))
}
