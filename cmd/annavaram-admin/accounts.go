package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/example/annavaram/internal/models"
	"github.com/example/annavaram/internal/utils"
)

const minPasswordLength = 8

func createAdmin(ctx context.Context, db *gorm.DB, email, fullName, password string) (*models.User, error) {
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		FullName:        fullName,
		Email:           email,
		PasswordHash:    hash,
		Role:            models.RoleAdmin,
		IsActive:        true,
		EmailVerified:   true,
		EmailVerifiedAt: &now,
	}
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("an account with email %s already exists, use promote instead", models.NormalizeEmail(email))
		}
		return nil, err
	}
	return user, nil
}

func setRole(ctx context.Context, db *gorm.DB, email string, admin bool) (string, error) {
	role := models.RoleCustomer
	if admin {
		role = models.RoleAdmin
	}

	res := db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", models.NormalizeEmail(email)).
		Update("role", role)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", fmt.Errorf("no account with email %s", email)
	}
	return role, nil
}

func deactivate(ctx context.Context, db *gorm.DB, email string) (int64, error) {
	var revoked int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "email = ?", models.NormalizeEmail(email)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("no account with email %s", email)
			}
			return err
		}

		if err := tx.Model(&user).Update("is_active", false).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Session{}).
			Where("user_id = ? AND revoked_at IS NULL", user.ID).
			Update("revoked_at", time.Now().UTC())
		revoked = res.RowsAffected
		return res.Error
	})
	return revoked, err
}
