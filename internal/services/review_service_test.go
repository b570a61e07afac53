package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/annavaram/internal/models"
	"github.com/example/annavaram/internal/testutil"
	"github.com/example/annavaram/internal/utils"
)

type reviewFixture struct {
	db      *gorm.DB
	svc     *ReviewService
	user    *models.User
	other   *models.User
	product *models.Product
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()
	db := testutil.NewDB(t)
	return &reviewFixture{
		db:      db,
		svc:     NewReviewService(db, zap.NewNop()),
		user:    testutil.CreateUser(t, db, "reviewer@example.com"),
		other:   testutil.CreateUser(t, db, "other@example.com"),
		product: testutil.CreateProduct(t, db, "Pulihora Mix", "80", 20),
	}
}

func (f *reviewFixture) purchase(t *testing.T, user *models.User, status string) {
	t.Helper()
	order := &models.Order{
		UserID:      user.ID,
		TotalAmount: decimal.NewFromInt(80),
		Currency:    "INR",
		Status:      status,
		ShippingAddress: models.ShippingAddress{
			Name: "Reviewer", Line1: "1 Temple Road", City: "Annavaram",
			State: "Andhra Pradesh", PostalCode: "533406", Country: "IN",
		},
	}
	require.NoError(t, f.db.Create(order).Error)
	require.NoError(t, f.db.Create(&models.OrderItem{
		OrderID:     order.ID,
		ProductID:   f.product.ID,
		ProductName: f.product.Name,
		UnitPrice:   f.product.Price,
		Quantity:    1,
	}).Error)
}

func TestCreateReviewFlagsVerifiedPurchase(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	f.purchase(t, f.user, models.OrderStatusDelivered)
	f.purchase(t, f.other, models.OrderStatusPendingPayment)

	mine, err := f.svc.Create(ctx, f.user.ID, f.product.ID, ReviewInput{Rating: 5, Title: "Divine", Comment: "Tastes like home"})
	require.NoError(t, err)
	assert.True(t, mine.IsVerifiedPurchase)
	assert.True(t, mine.IsApproved)

	theirs, err := f.svc.Create(ctx, f.other.ID, f.product.ID, ReviewInput{Rating: 3})
	require.NoError(t, err)
	assert.False(t, theirs.IsVerifiedPurchase)
}

func TestCreateReviewOncePerProduct(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.user.ID, f.product.ID, ReviewInput{Rating: 4})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.user.ID, f.product.ID, ReviewInput{Rating: 2})
	require.ErrorIs(t, err, ErrAlreadyReviewed)
}

func TestCreateReviewRequiresActiveProduct(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.user.ID, uuid.New(), ReviewInput{Rating: 4})
	require.ErrorIs(t, err, ErrProductNotFound)

	require.NoError(t, f.db.Model(f.product).Update("is_active", false).Error)
	_, err = f.svc.Create(ctx, f.user.ID, f.product.ID, ReviewInput{Rating: 4})
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestListForProductStats(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	third := testutil.CreateUser(t, f.db, "third@example.com")

	_, err := f.svc.Create(ctx, f.user.ID, f.product.ID, ReviewInput{Rating: 5})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.other.ID, f.product.ID, ReviewInput{Rating: 4})
	require.NoError(t, err)
	hidden, err := f.svc.Create(ctx, third.ID, f.product.ID, ReviewInput{Rating: 1})
	require.NoError(t, err)

	_, err = f.svc.SetApproval(ctx, hidden.ID, false)
	require.NoError(t, err)

	reviews, total, stats, err := f.svc.ListForProduct(ctx, f.product.ID, utils.NewPagination(1, 10, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, reviews, 2)
	assert.InDelta(t, 4.5, stats.AverageRating, 0.001)
	require.NotNil(t, reviews[0].User)
	assert.Equal(t, "Test User", reviews[0].User.FullName)
	assert.Empty(t, reviews[0].User.Email)
}

func TestUpdateAndDeleteAreOwnerOnly(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	review, err := f.svc.Create(ctx, f.user.ID, f.product.ID, ReviewInput{Rating: 3, Comment: "ok"})
	require.NoError(t, err)

	rating := 5
	_, err = f.svc.Update(ctx, f.other.ID, review.ID, ReviewUpdate{Rating: &rating})
	require.ErrorIs(t, err, ErrReviewNotOwned)

	updated, err := f.svc.Update(ctx, f.user.ID, review.ID, ReviewUpdate{Rating: &rating})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, "ok", updated.Comment)

	require.ErrorIs(t, f.svc.Delete(ctx, f.other.ID, review.ID), ErrReviewNotOwned)
	require.NoError(t, f.svc.Delete(ctx, f.user.ID, review.ID))
	require.ErrorIs(t, f.svc.Delete(ctx, f.user.ID, review.ID), ErrReviewNotFound)

	_, err = f.svc.Create(ctx, f.user.ID, f.product.ID, ReviewInput{Rating: 4})
	require.NoError(t, err)
}

func TestModeration(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	review, err := f.svc.Create(ctx, f.user.ID, f.product.ID, ReviewInput{Rating: 2})
	require.NoError(t, err)

	approved := true
	listed, total, err := f.svc.ListForModeration(ctx, ReviewModerationFilter{IsApproved: &approved}, utils.NewPagination(1, 20, 20))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, review.ID, listed[0].ID)

	require.NoError(t, f.svc.SoftDelete(ctx, review.ID))
	require.ErrorIs(t, f.svc.SoftDelete(ctx, review.ID), ErrReviewNotFound)

	_, total, err = f.svc.ListForModeration(ctx, ReviewModerationFilter{}, utils.NewPagination(1, 20, 20))
	require.NoError(t, err)
	assert.Zero(t, total)

	mine, err := f.svc.ListMine(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)

	_, err = f.svc.SetApproval(ctx, review.ID, true)
	require.ErrorIs(t, err, ErrReviewNotFound)
}
