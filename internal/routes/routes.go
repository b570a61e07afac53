package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"

	"github.com/example/annavaram/internal/config"
	"github.com/example/annavaram/internal/handlers"
	"github.com/example/annavaram/internal/middleware"
	"github.com/example/annavaram/internal/services"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	DB            *gorm.DB
	Config        *config.Config
	Cache         services.Cache
	Authenticator *services.Authenticator
	Auth          *services.AuthService
	Products      *services.ProductService
	Categories    *services.CategoryService
	Carts         *services.CartService
	Orders        *services.OrderService
	Reviews       *services.ReviewService
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Deps) {
	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Config)
	resetHandler := handlers.NewPasswordResetHandler(deps.Auth)
	productHandler := handlers.NewProductHandler(deps.Products)
	categoryHandler := handlers.NewCategoryHandler(deps.Categories)
	cartHandler := handlers.NewCartHandler(deps.Carts)
	orderHandler := handlers.NewOrderHandler(deps.Orders)
	reviewHandler := handlers.NewReviewHandler(deps.Reviews)
	profileHandler := handlers.NewProfileHandler(deps.DB)
	wishlistHandler := handlers.NewWishlistHandler(deps.DB)
	adminHandler := handlers.NewAdminHandler(deps.Orders)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Cache)

	requireAuth := middleware.AuthMiddleware(deps.Authenticator)

	app.Get("/health", healthHandler.Health)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	credentials := limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests, try again later")
		},
	})
	auth.Post("/signup", credentials, authHandler.Signup)
	auth.Post("/verify-email", credentials, authHandler.VerifyEmail)
	auth.Post("/resend-otp", credentials, authHandler.ResendOTP)
	auth.Post("/login", credentials, authHandler.Login)
	auth.Post("/forgot-password", credentials, resetHandler.ForgotPassword)
	auth.Post("/reset-password", credentials, resetHandler.ResetPassword)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/logout", middleware.OptionalAuth(deps.Authenticator), authHandler.Logout)
	auth.Post("/logout-all", requireAuth, authHandler.LogoutAll)
	auth.Get("/me", requireAuth, authHandler.Me)

	// Catalog
	products := api.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Get("/:id", productHandler.GetProduct)
	products.Get("/:id/reviews", reviewHandler.ListProductReviews)
	products.Post("/:id/reviews", requireAuth, reviewHandler.CreateReview)
	api.Get("/categories", categoryHandler.ListActiveCategories)

	// Protected routes
	protected := api.Group("", requireAuth)

	protected.Get("/cart", cartHandler.GetCart)
	protected.Post("/cart/items", cartHandler.AddItem)
	protected.Patch("/cart/items/:id", cartHandler.UpdateItem)
	protected.Delete("/cart/items/:id", cartHandler.RemoveItem)

	protected.Post("/orders", orderHandler.CreateOrder)
	protected.Get("/orders", orderHandler.ListOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)
	protected.Post("/payments/verify", orderHandler.VerifyPayment)

	protected.Get("/reviews/me", reviewHandler.MyReviews)
	protected.Patch("/reviews/:id", reviewHandler.UpdateReview)
	protected.Delete("/reviews/:id", reviewHandler.DeleteReview)

	protected.Put("/profile", profileHandler.UpdateProfile)
	protected.Get("/profile/addresses", profileHandler.ListAddresses)
	protected.Post("/profile/addresses", profileHandler.CreateAddress)
	protected.Put("/profile/addresses/:id", profileHandler.UpdateAddress)
	protected.Delete("/profile/addresses/:id", profileHandler.DeleteAddress)

	protected.Get("/wishlist", wishlistHandler.GetWishlist)
	protected.Delete("/wishlist", wishlistHandler.ClearWishlist)
	protected.Post("/wishlist/:productId", wishlistHandler.AddToWishlist)
	protected.Delete("/wishlist/:productId", wishlistHandler.RemoveFromWishlist)
	protected.Post("/wishlist/:productId/toggle", wishlistHandler.ToggleWishlist)

	// Admin routes
	admin := protected.Group("/admin", middleware.RequireAdmin())

	admin.Get("/stats", adminHandler.DashboardStats)

	admin.Get("/categories", categoryHandler.ListCategories)
	admin.Get("/categories/active", categoryHandler.ListActiveCategories)
	admin.Post("/categories", categoryHandler.CreateCategory)
	admin.Put("/categories/:id", categoryHandler.UpdateCategory)
	admin.Patch("/categories/:id/toggle-status", categoryHandler.ToggleCategoryStatus)
	admin.Delete("/categories/:id", categoryHandler.DeleteCategory)

	admin.Get("/products", productHandler.AdminListProducts)
	admin.Post("/products", productHandler.CreateProduct)
	admin.Put("/products/:id", productHandler.UpdateProduct)
	admin.Delete("/products/:id", productHandler.DeleteProduct)

	admin.Get("/orders", adminHandler.ListOrders)
	admin.Get("/orders/:id", adminHandler.GetOrder)
	admin.Patch("/orders/:id/status", adminHandler.UpdateOrderStatus)

	admin.Get("/reviews", reviewHandler.AdminListReviews)
	admin.Patch("/reviews/:id", reviewHandler.ModerateReview)
	admin.Delete("/reviews/:id", reviewHandler.AdminDeleteReview)
}
