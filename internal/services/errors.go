package services

import (
	"time"

	"github.com/example/annavaram/internal/apperr"
)

// Clock returns the current time. Services take one so tests can move time.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

var (
	ErrOTPRateLimited      = apperr.New(apperr.KindRateLimited, "OTP request limit reached. Try again later.")
	ErrOTPNoPendingCode    = apperr.New(apperr.KindBusinessRule, "No OTP request found. Please request a new code.")
	ErrOTPAttemptsExceeded = apperr.New(apperr.KindRateLimited, "Maximum OTP attempts exceeded. Request a new code.")
	ErrOTPExpired          = apperr.New(apperr.KindBusinessRule, "OTP has expired. Request a new code.")
	ErrOTPInvalid          = apperr.New(apperr.KindBusinessRule, "Invalid OTP. Please try again.")

	ErrSessionNotFound      = apperr.New(apperr.KindUnauthenticated, "Session not found")
	ErrSessionRevoked       = apperr.New(apperr.KindUnauthenticated, "Session revoked")
	ErrSessionExpired       = apperr.New(apperr.KindUnauthenticated, "Session expired")
	ErrInvalidRefreshToken  = apperr.New(apperr.KindUnauthenticated, "Invalid refresh token")
	ErrMissingRefreshToken  = apperr.New(apperr.KindUnauthenticated, "Refresh token missing")
	ErrAccountUnavailable   = apperr.New(apperr.KindUnauthenticated, "User account unavailable")
	ErrMissingToken         = apperr.New(apperr.KindUnauthenticated, "Authentication required")
	ErrInvalidToken         = apperr.New(apperr.KindUnauthenticated, "Invalid or expired token")
	ErrUserNotFound         = apperr.New(apperr.KindUnauthenticated, "User not found")
	ErrAccountDisabled      = apperr.New(apperr.KindForbidden, "Account is disabled")
	ErrAdminRequired        = apperr.New(apperr.KindForbidden, "Admin access required")
	ErrInvalidCredentials   = apperr.New(apperr.KindUnauthenticated, "Invalid email or password")
	ErrEmailNotVerified     = apperr.New(apperr.KindForbidden, "Email not verified. Please verify your email to continue.")
	ErrEmailTaken           = apperr.New(apperr.KindConflict, "An account with this email already exists")
	ErrEmailAlreadyVerified = apperr.New(apperr.KindBusinessRule, "Email already verified")
	ErrEmailDelivery        = apperr.New(apperr.KindUpstream, "Failed to send email")
	ErrAccountNotFound      = apperr.New(apperr.KindNotFound, "Account not found")
	ErrEmailNotRegistered   = apperr.New(apperr.KindNotFound, "This email is not registered with us. Please sign up first.")
	ErrResetNeedsVerified   = apperr.New(apperr.KindValidation, "This email is not verified yet. Please verify your account before resetting the password.")

	ErrProductNotFound    = apperr.New(apperr.KindNotFound, "Product not found")
	ErrProductUnavailable = apperr.New(apperr.KindBusinessRule, "Product not available")
	ErrInsufficientStock  = apperr.New(apperr.KindBusinessRule, "Insufficient stock")
	ErrCartItemNotFound   = apperr.New(apperr.KindNotFound, "Cart item not found")
	ErrSlugTaken          = apperr.New(apperr.KindConflict, "A product with this slug already exists")

	ErrCategoryNotFound = apperr.New(apperr.KindNotFound, "Category not found")
	ErrCategoryTaken    = apperr.New(apperr.KindConflict, "Category with this name already exists")
	ErrCategoryInactive = apperr.New(apperr.KindBusinessRule, "Cannot add products to an inactive category")
	ErrCategoryInUse    = apperr.New(apperr.KindBusinessRule, "Category still has products")

	ErrEmptyCart            = apperr.New(apperr.KindBusinessRule, "Cart is empty")
	ErrOutOfStock           = apperr.New(apperr.KindBusinessRule, "Product is out of stock")
	ErrPaymentGateway       = apperr.New(apperr.KindUpstream, "Failed to initiate payment. Please try again.")
	ErrGatewayNotConfigured = apperr.New(apperr.KindBusinessRule, "Payment gateway not configured")
	ErrOrderNotFound        = apperr.New(apperr.KindNotFound, "Order not found")
	ErrPaymentOrderMismatch = apperr.New(apperr.KindBusinessRule, "Payment order mismatch")
	ErrSignatureMismatch    = apperr.New(apperr.KindBusinessRule, "Payment signature mismatch")
	ErrInvalidOrderStatus   = apperr.New(apperr.KindValidation, "Invalid order status")

	ErrReviewNotFound  = apperr.New(apperr.KindNotFound, "Review not found")
	ErrAlreadyReviewed = apperr.New(apperr.KindConflict, "You have already reviewed this product")
	ErrReviewNotOwned  = apperr.New(apperr.KindForbidden, "You can only change your own reviews")
	ErrNotInWishlist   = apperr.New(apperr.KindNotFound, "Product not in wishlist")
	ErrAddressNotFound = apperr.New(apperr.KindNotFound, "Address not found")
)
