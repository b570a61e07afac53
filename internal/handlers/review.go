package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/annavaram/internal/middleware"
	"github.com/example/annavaram/internal/services"
	"github.com/example/annavaram/internal/utils"
)

// ReviewHandler manages product reviews and their moderation.
type ReviewHandler struct {
	reviews *services.ReviewService
}

// NewReviewHandler constructs a ReviewHandler.
func NewReviewHandler(reviews *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// ListProductReviews returns approved reviews of a product with rating stats.
func (h *ReviewHandler) ListProductReviews(c *fiber.Ctx) error {
	productID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	pg := utils.ParsePagination(c, 10)
	reviews, total, stats, err := h.reviews.ListForProduct(c.UserContext(), productID, pg)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"reviews": reviews,
			"stats":   stats,
		},
		"pagination": pg.Meta(total),
	})
}

type createReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Title   string `json:"title" validate:"omitempty,max=100"`
	Comment string `json:"comment" validate:"omitempty,max=1000"`
}

// CreateReview adds the caller's review of a product.
func (h *ReviewHandler) CreateReview(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	productID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req createReviewRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	review, err := h.reviews.Create(c.UserContext(), userID, productID, services.ReviewInput{
		Rating:  req.Rating,
		Title:   req.Title,
		Comment: req.Comment,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Review submitted successfully",
		"data":    review,
	})
}

type updateReviewRequest struct {
	Rating  *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Title   *string `json:"title" validate:"omitempty,max=100"`
	Comment *string `json:"comment" validate:"omitempty,max=1000"`
}

// UpdateReview edits one of the caller's reviews.
func (h *ReviewHandler) UpdateReview(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	reviewID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req updateReviewRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	review, err := h.reviews.Update(c.UserContext(), userID, reviewID, services.ReviewUpdate{
		Rating:  req.Rating,
		Title:   req.Title,
		Comment: req.Comment,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Review updated successfully", "data": review})
}

// DeleteReview removes one of the caller's reviews.
func (h *ReviewHandler) DeleteReview(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	reviewID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.reviews.Delete(c.UserContext(), userID, reviewID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Review deleted successfully"})
}

// MyReviews lists the caller's reviews.
func (h *ReviewHandler) MyReviews(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	reviews, err := h.reviews.ListMine(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": reviews})
}

// AdminListReviews lists reviews for moderation.
func (h *ReviewHandler) AdminListReviews(c *fiber.Ctx) error {
	filter := services.ReviewModerationFilter{IsApproved: utils.ParseBool(c.Query("is_approved"))}
	if v := c.Query("product_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid product_id")
		}
		filter.ProductID = &id
	}

	pg := utils.ParsePagination(c, 20)
	reviews, total, err := h.reviews.ListForModeration(c.UserContext(), filter, pg)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       reviews,
		"pagination": pg.Meta(total),
	})
}

type moderateReviewRequest struct {
	IsApproved *bool `json:"is_approved" validate:"required"`
}

// ModerateReview approves or hides a review.
func (h *ReviewHandler) ModerateReview(c *fiber.Ctx) error {
	reviewID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req moderateReviewRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	review, err := h.reviews.SetApproval(c.UserContext(), reviewID, *req.IsApproved)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": review})
}

// AdminDeleteReview soft-deletes a review.
func (h *ReviewHandler) AdminDeleteReview(c *fiber.Ctx) error {
	reviewID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.reviews.SoftDelete(c.UserContext(), reviewID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Review removed"})
}
