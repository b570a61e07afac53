package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/annavaram/internal/middleware"
	"github.com/example/annavaram/internal/models"
	"github.com/example/annavaram/internal/services"
)

// ProfileHandler manages user profile endpoints.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

type updateProfileRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,min=2,max=120"`
	Phone    *string `json:"phone" validate:"omitempty,min=7,max=20"`
}

// UpdateProfile updates user profile fields.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	var req updateProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if req.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}

	db := h.db.WithContext(c.UserContext())
	if err := db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		return err
	}

	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"user": serializeUser(&user)}})
}

// Address endpoints

// ListAddresses returns user addresses, default first.
func (h *ProfileHandler) ListAddresses(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	addresses := []models.UserAddress{}
	if err := h.db.WithContext(c.UserContext()).
		Where("user_id = ?", userID).
		Order("is_default desc, created_at asc").
		Find(&addresses).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": addresses})
}

type createAddressRequest struct {
	Label      string `json:"label" validate:"omitempty,max=50"`
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2" validate:"omitempty,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=12"`
	Country    string `json:"country" validate:"omitempty,len=2"`
	IsDefault  bool   `json:"is_default"`
}

// CreateAddress creates an address for the user. The first address becomes
// the default.
func (h *ProfileHandler) CreateAddress(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	var req createAddressRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	address := models.UserAddress{
		UserID:     userID,
		Label:      req.Label,
		Line1:      req.Line1,
		Line2:      req.Line2,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		IsDefault:  req.IsDefault,
	}

	err := h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.UserAddress{}).Where("user_id = ?", userID).Count(&existing).Error; err != nil {
			return err
		}
		if existing == 0 {
			address.IsDefault = true
		}
		if address.IsDefault {
			if err := clearDefaultAddress(tx, userID); err != nil {
				return err
			}
		}
		return tx.Create(&address).Error
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": address})
}

type updateAddressRequest struct {
	Label      *string `json:"label" validate:"omitempty,max=50"`
	Line1      *string `json:"line1" validate:"omitempty,min=1,max=200"`
	Line2      *string `json:"line2" validate:"omitempty,max=200"`
	City       *string `json:"city" validate:"omitempty,min=1,max=100"`
	State      *string `json:"state" validate:"omitempty,min=1,max=100"`
	PostalCode *string `json:"postal_code" validate:"omitempty,min=1,max=12"`
	Country    *string `json:"country" validate:"omitempty,len=2"`
	IsDefault  *bool   `json:"is_default"`
}

// UpdateAddress updates a user address.
func (h *ProfileHandler) UpdateAddress(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	addrID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req updateAddressRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	var address models.UserAddress
	err = h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&address, "id = ? AND user_id = ?", addrID, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return services.ErrAddressNotFound
			}
			return err
		}

		if req.Label != nil {
			address.Label = *req.Label
		}
		if req.Line1 != nil {
			address.Line1 = *req.Line1
		}
		if req.Line2 != nil {
			address.Line2 = *req.Line2
		}
		if req.City != nil {
			address.City = *req.City
		}
		if req.State != nil {
			address.State = *req.State
		}
		if req.PostalCode != nil {
			address.PostalCode = *req.PostalCode
		}
		if req.Country != nil {
			address.Country = *req.Country
		}
		if req.IsDefault != nil && *req.IsDefault && !address.IsDefault {
			if err := clearDefaultAddress(tx, userID); err != nil {
				return err
			}
			address.IsDefault = true
		}
		return tx.Save(&address).Error
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": address})
}

// DeleteAddress removes a user address.
func (h *ProfileHandler) DeleteAddress(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	addrID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	res := h.db.WithContext(c.UserContext()).
		Where("id = ? AND user_id = ?", addrID, userID).
		Delete(&models.UserAddress{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return services.ErrAddressNotFound
	}

	return c.JSON(fiber.Map{"success": true, "message": "address deleted"})
}

func clearDefaultAddress(tx *gorm.DB, userID uuid.UUID) error {
	return tx.Model(&models.UserAddress{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}
