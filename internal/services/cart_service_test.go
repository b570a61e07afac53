package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/annavaram/internal/apperr"
	"github.com/example/annavaram/internal/models"
	"github.com/example/annavaram/internal/testutil"
)

type cartFixture struct {
	db    *gorm.DB
	svc   *CartService
	user  *models.User
	cart  *models.Cart
	ladoo *models.Product
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()
	db := testutil.NewDB(t)
	svc := NewCartService(db, "INR", zap.NewNop())
	user := testutil.CreateUser(t, db, "cart@example.com")

	cart, err := svc.GetOrCreateActiveCart(context.Background(), user.ID)
	require.NoError(t, err)

	return &cartFixture{
		db:    db,
		svc:   svc,
		user:  user,
		cart:  cart,
		ladoo: testutil.CreateProduct(t, db, "Tirupati Ladoo", "120.50", 10),
	}
}

func (f *cartFixture) snapshot(t *testing.T) *CartSnapshot {
	t.Helper()
	snap, err := f.svc.Snapshot(context.Background(), f.cart)
	require.NoError(t, err)
	return snap
}

func TestGetOrCreateActiveCartReturnsSameCart(t *testing.T) {
	f := newCartFixture(t)

	again, err := f.svc.GetOrCreateActiveCart(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, f.cart.ID, again.ID)
	assert.Equal(t, models.CartStatusActive, again.Status)
}

func TestAddItemMergesQuantities(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.AddItem(ctx, f.cart, f.ladoo.ID, 2))
	require.NoError(t, f.svc.AddItem(ctx, f.cart, f.ladoo.ID, 3))

	snap := f.snapshot(t)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 5, snap.Items[0].Quantity)
	assert.Equal(t, "Tirupati Ladoo", snap.Items[0].Name)
	assert.Equal(t, 5, snap.Totals.Quantity)
	assert.Equal(t, "602.5", snap.Totals.Amount.String())
	assert.Equal(t, "INR", snap.Currency)
}

func TestAddItemChecksStock(t *testing.T) {
	f := newCartFixture(t)

	err := f.svc.AddItem(context.Background(), f.cart, f.ladoo.ID, 11)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, apperr.KindBusinessRule, apperr.KindOf(err))
	assert.Empty(t, f.snapshot(t).Items)
}

func TestAddItemRejectsUnavailableProducts(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	err := f.svc.AddItem(ctx, f.cart, uuid.New(), 1)
	require.ErrorIs(t, err, ErrProductUnavailable)

	require.NoError(t, f.db.Model(f.ladoo).Update("is_active", false).Error)
	err = f.svc.AddItem(ctx, f.cart, f.ladoo.ID, 1)
	require.ErrorIs(t, err, ErrProductUnavailable)
}

func TestUpdateItem(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.AddItem(ctx, f.cart, f.ladoo.ID, 2))
	itemID := f.snapshot(t).Items[0].ID

	require.NoError(t, f.svc.UpdateItem(ctx, f.cart, itemID, 7))
	assert.Equal(t, 7, f.snapshot(t).Items[0].Quantity)

	err := f.svc.UpdateItem(ctx, f.cart, itemID, 50)
	require.ErrorIs(t, err, ErrInsufficientStock)

	require.NoError(t, f.svc.UpdateItem(ctx, f.cart, itemID, 0))
	assert.Empty(t, f.snapshot(t).Items)

	err = f.svc.UpdateItem(ctx, f.cart, itemID, 1)
	require.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestUpdateItemIgnoresOtherCarts(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.AddItem(ctx, f.cart, f.ladoo.ID, 2))
	itemID := f.snapshot(t).Items[0].ID

	other := testutil.CreateUser(t, f.db, "other@example.com")
	otherCart, err := f.svc.GetOrCreateActiveCart(ctx, other.ID)
	require.NoError(t, err)

	err = f.svc.UpdateItem(ctx, otherCart, itemID, 1)
	require.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.AddItem(ctx, f.cart, f.ladoo.ID, 1))
	itemID := f.snapshot(t).Items[0].ID

	require.NoError(t, f.svc.RemoveItem(ctx, f.cart, itemID))
	require.NoError(t, f.svc.RemoveItem(ctx, f.cart, itemID))
	assert.Empty(t, f.snapshot(t).Items)
}

func TestSnapshotKeepsPriceAtAddition(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.AddItem(ctx, f.cart, f.ladoo.ID, 2))

	require.NoError(t, f.db.Model(f.ladoo).Update("price", "200").Error)

	snap := f.snapshot(t)
	assert.Equal(t, "120.5", snap.Items[0].UnitPrice.String())
	assert.Equal(t, "241", snap.Totals.Amount.String())
	require.NotNil(t, snap.Items[0].Product)
	assert.Equal(t, 10, snap.Items[0].Product.Stock)
}

func TestVerifyStockLevels(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.AddItem(ctx, f.cart, f.ladoo.ID, 4))
	lines := f.snapshot(t).Items

	require.NoError(t, f.svc.VerifyStockLevels(ctx, lines))

	require.NoError(t, f.db.Model(f.ladoo).Update("stock", 3).Error)
	err := f.svc.VerifyStockLevels(ctx, lines)
	require.ErrorIs(t, err, ErrOutOfStock)
	assert.Contains(t, err.Error(), "Tirupati Ladoo")

	require.NoError(t, f.db.Model(f.ladoo).Update("is_active", false).Error)
	err = f.svc.VerifyStockLevels(ctx, lines)
	require.ErrorIs(t, err, ErrProductUnavailable)
}

func TestClearConvertsCart(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.AddItem(ctx, f.cart, f.ladoo.ID, 1))

	require.NoError(t, f.svc.Clear(f.db, f.cart.ID))

	var stored models.Cart
	require.NoError(t, f.db.First(&stored, "id = ?", f.cart.ID).Error)
	assert.Equal(t, models.CartStatusConverted, stored.Status)

	next, err := f.svc.GetOrCreateActiveCart(ctx, f.user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, f.cart.ID, next.ID)
}

func TestUpdateItemRechecksLiveStock(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.AddItem(ctx, f.cart, f.ladoo.ID, 2))
	itemID := f.snapshot(t).Items[0].ID

	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", f.ladoo.ID).Update("stock", 0).Error)

	err := f.svc.UpdateItem(ctx, f.cart, itemID, 1)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 2, f.snapshot(t).Items[0].Quantity)
}

func TestDisabledCategoryMakesProductUnavailable(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	category := testutil.CreateCategory(t, f.db, "Sweets")
	require.NoError(t, f.db.Model(f.ladoo).Update("category_id", category.ID).Error)

	require.NoError(t, f.svc.AddItem(ctx, f.cart, f.ladoo.ID, 2))
	snap := f.snapshot(t)
	require.NotNil(t, snap.Items[0].Product)
	assert.Equal(t, "Sweets", snap.Items[0].Product.Category)
	assert.True(t, snap.Items[0].Product.IsActive)

	require.NoError(t, f.db.Model(category).Update("is_active", false).Error)

	err := f.svc.AddItem(ctx, f.cart, f.ladoo.ID, 1)
	require.ErrorIs(t, err, ErrProductUnavailable)

	err = f.svc.UpdateItem(ctx, f.cart, snap.Items[0].ID, 3)
	require.ErrorIs(t, err, ErrProductUnavailable)

	err = f.svc.VerifyStockLevels(ctx, snap.Items)
	require.ErrorIs(t, err, ErrProductUnavailable)
	assert.Contains(t, err.Error(), "Tirupati Ladoo")

	assert.False(t, f.snapshot(t).Items[0].Product.IsActive)
}

func TestAddItemMergesWhenLineAppearsConcurrently(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	injected := false
	require.NoError(t, f.db.Callback().Create().Before("gorm:begin_transaction").Register("test:concurrent_add", func(tx *gorm.DB) {
		if injected || tx.Statement.Table != "cart_items" {
			return
		}
		injected = true
		require.NoError(t, f.db.Create(&models.CartItem{
			CartID:          f.cart.ID,
			ProductID:       f.ladoo.ID,
			Quantity:        4,
			PriceAtAddition: f.ladoo.Price,
		}).Error)
	}))

	require.NoError(t, f.svc.AddItem(ctx, f.cart, f.ladoo.ID, 3))
	assert.True(t, injected)

	snap := f.snapshot(t)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 7, snap.Items[0].Quantity)
}
