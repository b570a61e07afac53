package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/annavaram/internal/config"
	"github.com/example/annavaram/internal/database"
	"github.com/example/annavaram/internal/handlers"
	"github.com/example/annavaram/internal/middleware"
	"github.com/example/annavaram/internal/routes"
	"github.com/example/annavaram/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}

	cache := newCache(ctx, cfg, logger)

	otps := services.NewOTPService(db, cfg, logger)
	sessions := services.NewSessionService(db, cfg, logger)
	mailer := services.NewMailer(cfg, logger)
	products := services.NewProductService(db, cache, logger)
	carts := services.NewCartService(db, cfg.Currency, logger)
	notifier := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat, logger)

	var gateway services.PaymentGateway
	if cfg.PaymentGatewayEnabled() {
		gateway = services.NewRazorpayGateway(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpaySecret)
	} else {
		logger.Warn("razorpay credentials not configured, orders will be recorded as paid offline")
	}

	deps := routes.Deps{
		DB:            db,
		Config:        cfg,
		Cache:         cache,
		Authenticator: services.NewAuthenticator(db, sessions, cfg),
		Auth:          services.NewAuthService(db, otps, sessions, mailer, logger),
		Products:      products,
		Categories:    services.NewCategoryService(db, products, logger),
		Carts:         carts,
		Orders:        services.NewOrderService(db, carts, products, gateway, notifier, cfg.Currency, logger),
		Reviews:       services.NewReviewService(db, logger),
	}

	go sessions.RunSweeper(ctx, cfg.SessionSweepInterval)

	app := fiber.New(fiber.Config{
		AppName:      "Annavaram Storefront",
		ErrorHandler: handlers.ErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Refresh-Token",
	}))
	app.Use(middleware.RequestLogger(logger))

	routes.Register(app, deps)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
		errCh <- app.Listen(":" + cfg.AppPort)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}

func newCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) services.Cache {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, product cache disabled")
		return services.NopCache{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("redis unreachable at startup, cache reads will fall through", zap.Error(err))
	}

	return services.NewRedisCache(client, cfg.ProductCacheTTL)
}
