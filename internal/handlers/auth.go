package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/annavaram/internal/config"
	"github.com/example/annavaram/internal/middleware"
	"github.com/example/annavaram/internal/models"
	"github.com/example/annavaram/internal/services"
)

const (
	refreshCookieName = "refreshToken"
	refreshCookiePath = "/api/auth"
	refreshHeaderName = "X-Refresh-Token"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	auth *services.AuthService
	cfg  *config.Config
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{auth: auth, cfg: cfg}
}

type signupRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Phone    string `json:"phone" validate:"omitempty,min=7,max=20"`
}

// Signup creates a new account and sends the email verification code.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if _, err := h.auth.Signup(c.UserContext(), services.SignupInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	}); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Signup successful. Please verify your email using the OTP sent to your inbox.",
	})
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// VerifyEmail consumes the verification code sent at signup.
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var req verifyEmailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.auth.VerifyEmail(c.UserContext(), req.Email, req.OTP); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "Email verified successfully."})
}

// ResendOTP issues a fresh verification code.
func (h *AuthHandler) ResendOTP(c *fiber.Ctx) error {
	var req emailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	sent, err := h.auth.ResendVerification(c.UserContext(), req.Email)
	if err != nil {
		return err
	}
	if !sent {
		return c.JSON(fiber.Map{"success": true, "message": "Email already verified."})
	}
	return c.JSON(fiber.Map{"success": true, "message": "A new OTP has been sent to your email address."})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates an existing user and opens a session.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	tokens, err := h.auth.Login(c.UserContext(), req.Email, req.Password, deviceMeta(c))
	if err != nil {
		return err
	}

	h.setRefreshCookie(c, tokens.RefreshToken, tokens.RefreshTokenExpiresAt)
	return c.JSON(authResponse("Login successful.", tokens))
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh rotates the refresh token and issues a new access token.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	tokens, err := h.auth.Refresh(c.UserContext(), refreshTokenFrom(c), deviceMeta(c))
	if err != nil {
		return err
	}

	h.setRefreshCookie(c, tokens.RefreshToken, tokens.RefreshTokenExpiresAt)
	return c.JSON(authResponse("Session refreshed.", tokens))
}

// Logout revokes the current session. It works with either a valid access
// token or just the refresh token.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.clearRefreshCookie(c)

	identity, _ := middleware.GetIdentity(c)
	if err := h.auth.Logout(c.UserContext(), identity, refreshTokenFrom(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Logged out successfully."})
}

// LogoutAll revokes every session of the current user.
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	h.clearRefreshCookie(c)
	if _, err := h.auth.LogoutAll(c.UserContext(), userID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "All sessions revoked successfully."})
}

// Me returns the current user.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return services.ErrMissingToken
	}

	user, err := h.auth.Me(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"user": serializeUser(user)}})
}

func (h *AuthHandler) refreshCookieSecure() bool {
	return h.cfg.RefreshCookieSecure || h.cfg.IsProduction()
}

func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, token string, expiresAt time.Time) {
	secure := h.refreshCookieSecure()
	sameSite := fiber.CookieSameSiteLaxMode
	if secure {
		sameSite = fiber.CookieSameSiteNoneMode
	}
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
}

func (h *AuthHandler) clearRefreshCookie(c *fiber.Ctx) {
	h.setRefreshCookie(c, "", time.Unix(0, 0))
}

// refreshTokenFrom reads the refresh token from the cookie, the JSON body or
// the X-Refresh-Token header, in that order.
func refreshTokenFrom(c *fiber.Ctx) string {
	if token := c.Cookies(refreshCookieName); token != "" {
		return token
	}
	if len(c.Body()) > 0 {
		var req refreshRequest
		if err := c.BodyParser(&req); err == nil && req.RefreshToken != "" {
			return req.RefreshToken
		}
	}
	return c.Get(refreshHeaderName)
}

func deviceMeta(c *fiber.Ctx) services.DeviceMeta {
	return services.DeviceMeta{
		UserAgent: c.Get(fiber.HeaderUserAgent),
		IPAddress: c.IP(),
	}
}

func serializeUser(user *models.User) fiber.Map {
	return fiber.Map{
		"id":             user.ID,
		"full_name":      user.FullName,
		"email":          user.Email,
		"phone":          user.Phone,
		"role":           user.Role,
		"email_verified": user.EmailVerified,
		"created_at":     user.CreatedAt,
		"updated_at":     user.UpdatedAt,
	}
}

func authResponse(message string, tokens *services.SessionTokens) fiber.Map {
	return fiber.Map{
		"success": true,
		"message": message,
		"data": fiber.Map{
			"access_token":            tokens.AccessToken,
			"access_token_expires_at": tokens.AccessTokenExpiresAt.UTC().Format(time.RFC3339),
			"session": fiber.Map{
				"id":         tokens.Session.ID,
				"expires_at": tokens.Session.ExpiresAt.UTC().Format(time.RFC3339),
				"created_at": tokens.Session.CreatedAt,
				"updated_at": tokens.Session.UpdatedAt,
			},
			"user": serializeUser(tokens.User),
		},
	}
}
