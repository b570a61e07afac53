package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/annavaram/internal/services"
)

// HealthHandler reports liveness of the API and its backing stores.
type HealthHandler struct {
	db    *gorm.DB
	cache services.Cache
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(db *gorm.DB, cache services.Cache) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// Health pings the database and the cache.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := fiber.Map{"database": "ok", "cache": "ok"}
	healthy := true

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		status["database"] = "unavailable"
		healthy = false
	}
	if err := h.cache.Ping(ctx); err != nil {
		status["cache"] = "unavailable"
	}

	code := fiber.StatusOK
	if !healthy {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"success": healthy,
		"status":  status,
		"time":    time.Now().UTC(),
	})
}
