package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/annavaram/internal/database"
	"github.com/example/annavaram/internal/models"
	"github.com/example/annavaram/internal/utils"
)

// NewDB returns a migrated in-memory SQLite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := database.Config()
	cfg.Logger = logger.Default.LogMode(logger.Silent)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts an active, verified customer with password "password123".
func CreateUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := utils.HashPassword("password123")
	require.NoError(t, err)

	user := &models.User{
		FullName:      "Test User",
		Email:         email,
		PasswordHash:  hash,
		Role:          models.RoleCustomer,
		IsActive:      true,
		EmailVerified: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateProduct inserts an active product with the given price and stock.
func CreateProduct(t *testing.T, db *gorm.DB, name string, price string, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		Name:     name,
		Slug:     uuid.NewString(),
		Price:    decimal.RequireFromString(price),
		Currency: "INR",
		Stock:    stock,
		IsActive: true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

// CreateCategory inserts an active category.
func CreateCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()

	category := &models.Category{
		Name:     name,
		Slug:     uuid.NewString(),
		IsActive: true,
	}
	require.NoError(t, db.Create(category).Error)
	return category
}
