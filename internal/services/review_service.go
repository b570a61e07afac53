package services

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/annavaram/internal/models"
	"github.com/example/annavaram/internal/utils"
)

// ReviewInput carries a new review.
type ReviewInput struct {
	Rating  int
	Title   string
	Comment string
}

// ReviewUpdate carries optional review changes.
type ReviewUpdate struct {
	Rating  *int
	Title   *string
	Comment *string
}

// ReviewStats summarizes the approved reviews of a product.
type ReviewStats struct {
	AverageRating float64 `json:"average_rating"`
	TotalReviews  int64   `json:"total_reviews"`
}

// ReviewModerationFilter narrows the admin review listing.
type ReviewModerationFilter struct {
	IsApproved *bool
	ProductID  *uuid.UUID
}

// ReviewService manages product reviews and their moderation.
type ReviewService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewReviewService constructs a ReviewService.
func NewReviewService(db *gorm.DB, log *zap.Logger) *ReviewService {
	return &ReviewService{db: db, log: log}
}

func visibleReviews(db *gorm.DB) *gorm.DB {
	return db.Where("is_deleted = ?", false)
}

// ListForProduct returns approved reviews of an active product, newest first.
func (s *ReviewService) ListForProduct(ctx context.Context, productID uuid.UUID, page utils.Pagination) ([]models.Review, int64, *ReviewStats, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.activeProduct(db, productID); err != nil {
		return nil, 0, nil, err
	}

	query := db.Model(&models.Review{}).Scopes(visibleReviews).
		Where("product_id = ? AND is_approved = ?", productID, true)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, nil, err
	}

	reviews := []models.Review{}
	if err := query.
		Preload("User", func(db *gorm.DB) *gorm.DB { return db.Select("id", "full_name") }).
		Order("created_at desc").
		Limit(page.Limit).Offset(page.Offset).
		Find(&reviews).Error; err != nil {
		return nil, 0, nil, err
	}

	var avg struct{ Average float64 }
	if err := db.Model(&models.Review{}).Scopes(visibleReviews).
		Select("COALESCE(AVG(rating), 0) AS average").
		Where("product_id = ? AND is_approved = ?", productID, true).
		Scan(&avg).Error; err != nil {
		return nil, 0, nil, err
	}

	stats := &ReviewStats{
		AverageRating: math.Round(avg.Average*100) / 100,
		TotalReviews:  total,
	}
	return reviews, total, stats, nil
}

// Create adds the user's review of a product. Reviews are approved on
// creation and flagged as verified when the user has a fulfilled order
// containing the product.
func (s *ReviewService) Create(ctx context.Context, userID, productID uuid.UUID, input ReviewInput) (*models.Review, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.activeProduct(db, productID); err != nil {
		return nil, err
	}

	var existing int64
	if err := db.Model(&models.Review{}).Where("user_id = ? AND product_id = ?", userID, productID).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrAlreadyReviewed
	}

	verified, err := s.HasPurchased(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	review := &models.Review{
		UserID:             userID,
		ProductID:          productID,
		Rating:             input.Rating,
		Title:              input.Title,
		Comment:            input.Comment,
		IsVerifiedPurchase: verified,
		IsApproved:         true,
	}
	if err := db.Create(review).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}
	return review, nil
}

// HasPurchased reports whether the user has a fulfilled order containing the product.
func (s *ReviewService) HasPurchased(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND orders.status IN ? AND order_items.product_id = ?", userID, models.FulfilledOrderStatuses, productID).
		Count(&count).Error
	return count > 0, err
}

// Update changes the user's own review.
func (s *ReviewService) Update(ctx context.Context, userID, reviewID uuid.UUID, update ReviewUpdate) (*models.Review, error) {
	review, err := s.ownedReview(ctx, userID, reviewID)
	if err != nil {
		return nil, err
	}

	if update.Rating != nil {
		review.Rating = *update.Rating
	}
	if update.Title != nil {
		review.Title = *update.Title
	}
	if update.Comment != nil {
		review.Comment = *update.Comment
	}
	if err := s.db.WithContext(ctx).Save(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}

// Delete removes the user's own review.
func (s *ReviewService) Delete(ctx context.Context, userID, reviewID uuid.UUID) error {
	review, err := s.ownedReview(ctx, userID, reviewID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(review).Error
}

// ListMine returns every review written by the user.
func (s *ReviewService) ListMine(ctx context.Context, userID uuid.UUID) ([]models.Review, error) {
	reviews := []models.Review{}
	err := s.db.WithContext(ctx).Scopes(visibleReviews).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&reviews).Error
	return reviews, err
}

// ListForModeration returns reviews for the admin, newest first.
func (s *ReviewService) ListForModeration(ctx context.Context, filter ReviewModerationFilter, page utils.Pagination) ([]models.Review, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Review{}).Scopes(visibleReviews)
	if filter.IsApproved != nil {
		query = query.Where("is_approved = ?", *filter.IsApproved)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	reviews := []models.Review{}
	if err := query.
		Preload("User").
		Preload("Product").
		Order("created_at desc").
		Limit(page.Limit).Offset(page.Offset).
		Find(&reviews).Error; err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

// SetApproval approves or hides a review.
func (s *ReviewService) SetApproval(ctx context.Context, reviewID uuid.UUID, approved bool) (*models.Review, error) {
	db := s.db.WithContext(ctx)
	res := db.Model(&models.Review{}).Scopes(visibleReviews).
		Where("id = ?", reviewID).
		Update("is_approved", approved)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrReviewNotFound
	}

	var review models.Review
	if err := db.First(&review, "id = ?", reviewID).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// SoftDelete hides a review from every listing while keeping the row.
func (s *ReviewService) SoftDelete(ctx context.Context, reviewID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Review{}).Scopes(visibleReviews).
		Where("id = ?", reviewID).
		Updates(map[string]interface{}{"is_deleted": true, "is_approved": false})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrReviewNotFound
	}
	s.log.Info("review removed by admin", zap.String("review_id", reviewID.String()))
	return nil
}

func (s *ReviewService) ownedReview(ctx context.Context, userID, reviewID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := s.db.WithContext(ctx).Scopes(visibleReviews).First(&review, "id = ?", reviewID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, err
	}
	if review.UserID != userID {
		return nil, ErrReviewNotOwned
	}
	return &review, nil
}

func (s *ReviewService) activeProduct(db *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := db.Where("id = ? AND is_active = ?", productID, true).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}
