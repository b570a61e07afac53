package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/annavaram/internal/models"
	"github.com/example/annavaram/internal/utils"
)

// SignupInput carries a new account's details.
type SignupInput struct {
	FullName string
	Email    string
	Password string
	Phone    string
}

// AuthService drives signup, login and password recovery on top of the
// session store and the OTP buckets.
type AuthService struct {
	db       *gorm.DB
	otps     *OTPService
	sessions *SessionService
	mailer   Mailer
	log      *zap.Logger
	now      Clock
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, otps *OTPService, sessions *SessionService, mailer Mailer, log *zap.Logger) *AuthService {
	return &AuthService{
		db:       db,
		otps:     otps,
		sessions: sessions,
		mailer:   mailer,
		log:      log,
		now:      systemClock,
	}
}

// Signup creates an unverified account and emails it a verification code.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*models.User, error) {
	db := s.db.WithContext(ctx)
	email := models.NormalizeEmail(input.Email)

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FullName:     input.FullName,
		Email:        email,
		Phone:        input.Phone,
		PasswordHash: hash,
		Role:         models.RoleCustomer,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	if err := s.sendVerificationCode(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user signed up", zap.String("user_id", user.ID.String()))
	return user, nil
}

// ResendVerification issues a new email verification code. It reports false
// when the email is already verified and nothing was sent.
func (s *AuthService) ResendVerification(ctx context.Context, email string) (bool, error) {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, ErrAccountNotFound
	}
	if user.EmailVerified {
		return false, nil
	}
	if err := s.sendVerificationCode(ctx, user); err != nil {
		return false, err
	}
	return true, nil
}

// VerifyEmail consumes an email verification code and marks the email verified.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrAccountNotFound
	}

	if err := s.otps.Verify(ctx, user.ID, models.OTPPurposeEmailVerification, code); err != nil {
		return err
	}

	now := s.now()
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"email_verified":    true,
		"email_verified_at": now,
	}).Error
}

// Login checks credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, email, password string, meta DeviceMeta) (*SessionTokens, error) {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	tokens, err := s.sessions.CreateSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}
	s.log.Info("user logged in", zap.String("user_id", user.ID.String()), zap.String("session_id", tokens.Session.ID.String()))
	return tokens, nil
}

// Refresh rotates a refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta DeviceMeta) (*SessionTokens, error) {
	if refreshToken == "" {
		return nil, ErrMissingRefreshToken
	}
	return s.sessions.RotateSession(ctx, refreshToken, meta)
}

// Logout revokes the caller's session. Without an authenticated session the
// refresh token, if any, identifies the session instead.
func (s *AuthService) Logout(ctx context.Context, identity *Identity, refreshToken string) error {
	if identity != nil && identity.SessionID != uuid.Nil {
		return s.sessions.RevokeSession(ctx, identity.SessionID)
	}
	if refreshToken != "" {
		s.sessions.RevokeByRefreshToken(ctx, refreshToken)
	}
	return nil
}

// LogoutAll revokes every session of the user.
func (s *AuthService) LogoutAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.sessions.RevokeAllSessions(ctx, userID)
}

// RequestPasswordReset emails a password reset code to a verified account.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrEmailNotRegistered
	}
	if !user.EmailVerified {
		return ErrResetNeedsVerified
	}

	issued, err := s.otps.Issue(ctx, user.ID, models.OTPPurposePasswordReset)
	if err != nil {
		return err
	}
	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, issued.Code, s.otps.ExpiryMinutes()); err != nil {
		s.log.Error("password reset email failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		return ErrEmailDelivery
	}
	return nil
}

// ResetPassword consumes a reset code, replaces the password and revokes
// every session. An unknown email succeeds silently.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	if err := s.otps.Verify(ctx, user.ID, models.OTPPurposePasswordReset, code); err != nil {
		return err
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).
		Update("password_hash", hash).Error; err != nil {
		return err
	}

	revoked, err := s.sessions.RevokeAllSessions(ctx, user.ID)
	if err != nil {
		return err
	}
	s.log.Info("password reset", zap.String("user_id", user.ID.String()), zap.Int64("sessions_revoked", revoked))
	return nil
}

// Me returns the user's current record.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) sendVerificationCode(ctx context.Context, user *models.User) error {
	issued, err := s.otps.Issue(ctx, user.ID, models.OTPPurposeEmailVerification)
	if err != nil {
		return err
	}
	if err := s.mailer.SendOTPEmail(ctx, user.Email, issued.Code, s.otps.ExpiryMinutes()); err != nil {
		s.log.Error("verification email failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		return ErrEmailDelivery
	}
	return nil
}

func (s *AuthService) findByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
