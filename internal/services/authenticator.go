package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/annavaram/internal/config"
	"github.com/example/annavaram/internal/models"
	"github.com/example/annavaram/internal/utils"
)

// Identity is the resolved caller of an authenticated request.
type Identity struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
	Role      string
	User      *models.User
}

// IsAdmin reports whether the caller holds the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == models.RoleAdmin
}

// Authenticator resolves bearer access tokens into identities. Every call
// checks the backing session so revocation takes effect immediately.
type Authenticator struct {
	db       *gorm.DB
	sessions *SessionService
	secret   string
	now      Clock
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(db *gorm.DB, sessions *SessionService, cfg *config.Config) *Authenticator {
	return &Authenticator{
		db:       db,
		sessions: sessions,
		secret:   cfg.AccessTokenSecret,
		now:      systemClock,
	}
}

// Authenticate resolves an Authorization header value.
func (a *Authenticator) Authenticate(ctx context.Context, authorization string) (*Identity, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(authorization), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return nil, ErrMissingToken
	}

	claims, err := utils.ParseAccessToken(a.secret, token, a.now())
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, _ := claims.UserID()
	sessionID, _ := claims.SID()

	if _, err := a.sessions.ValidateSession(ctx, sessionID, userID); err != nil {
		return nil, err
	}

	var user models.User
	err = a.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	return &Identity{
		UserID:    user.ID,
		SessionID: sessionID,
		Role:      user.Role,
		User:      &user,
	}, nil
}

// RequireAdmin fails unless the identity holds the admin role.
func RequireAdmin(identity *Identity) error {
	if !identity.IsAdmin() {
		return ErrAdminRequired
	}
	return nil
}
