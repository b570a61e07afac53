package services

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/annavaram/internal/config"
	"github.com/example/annavaram/internal/models"
	"github.com/example/annavaram/internal/utils"
)

const refreshTokenRandomBytes = 64

// DeviceMeta is advisory client information stored on a session.
type DeviceMeta struct {
	UserAgent string
	IPAddress string
}

// SessionTokens is the credential bundle handed to a client after login or refresh.
type SessionTokens struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	Session               *models.Session
	User                  *models.User
}

// SessionService issues, rotates and revokes refresh-token backed sessions.
type SessionService struct {
	db            *gorm.DB
	log           *zap.Logger
	accessSecret  string
	refreshSecret string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           Clock
}

// NewSessionService constructs a SessionService.
func NewSessionService(db *gorm.DB, cfg *config.Config, log *zap.Logger) *SessionService {
	return &SessionService{
		db:            db,
		log:           log,
		accessSecret:  cfg.AccessTokenSecret,
		refreshSecret: cfg.RefreshTokenSecret,
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		now:           systemClock,
	}
}

// CreateSession opens a new session for user and returns fresh tokens.
func (s *SessionService) CreateSession(ctx context.Context, user *models.User, meta DeviceMeta) (*SessionTokens, error) {
	refreshToken, tokenHash, err := s.generateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &models.Session{
		UserID:           user.ID,
		RefreshTokenHash: tokenHash,
		ExpiresAt:        now.Add(s.refreshTTL),
		UserAgent:        truncate(meta.UserAgent, 512),
		IPAddress:        truncate(meta.IPAddress, 64),
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}

	return s.issue(user, session, refreshToken, now)
}

// ValidateSession loads the session and fails unless it is usable.
func (s *SessionService) ValidateSession(ctx context.Context, sessionID, userID uuid.UUID) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	if session.RevokedAt != nil {
		return nil, ErrSessionRevoked
	}
	if !session.ExpiresAt.After(s.now()) {
		return nil, ErrSessionExpired
	}
	return &session, nil
}

// RotateSession exchanges a refresh token for a new one. The presented token
// stops working as soon as this returns successfully.
func (s *SessionService) RotateSession(ctx context.Context, refreshToken string, meta DeviceMeta) (*SessionTokens, error) {
	random, err := s.verifyRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	presentedHash := utils.SHA256Hex([]byte(random))

	db := s.db.WithContext(ctx)
	var session models.Session
	err = db.Where("refresh_token_hash = ?", presentedHash).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !session.ExpiresAt.After(now) {
		return nil, ErrSessionExpired
	}
	if session.RevokedAt != nil {
		return nil, ErrSessionRevoked
	}

	var user models.User
	err = db.First(&user, "id = ?", session.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountUnavailable
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountUnavailable
	}

	nextToken, nextHash, err := s.generateRefreshToken()
	if err != nil {
		return nil, err
	}
	expiresAt := now.Add(s.refreshTTL)

	res := db.Model(&models.Session{}).
		Where("id = ? AND refresh_token_hash = ? AND revoked_at IS NULL", session.ID, presentedHash).
		Updates(map[string]interface{}{
			"refresh_token_hash": nextHash,
			"expires_at":         expiresAt,
			"user_agent":         truncate(meta.UserAgent, 512),
			"ip_address":         truncate(meta.IPAddress, 64),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInvalidRefreshToken
	}

	session.RefreshTokenHash = nextHash
	session.ExpiresAt = expiresAt
	session.UserAgent = truncate(meta.UserAgent, 512)
	session.IPAddress = truncate(meta.IPAddress, 64)

	return s.issue(&user, &session, nextToken, now)
}

// RevokeSession marks one session revoked.
func (s *SessionService) RevokeSession(ctx context.Context, sessionID uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Update("revoked_at", s.now()).Error
}

// RevokeByRefreshToken revokes the session addressed by refreshToken.
// Malformed or unknown tokens are ignored.
func (s *SessionService) RevokeByRefreshToken(ctx context.Context, refreshToken string) {
	random, err := s.verifyRefreshToken(refreshToken)
	if err != nil {
		return
	}
	err = s.db.WithContext(ctx).Model(&models.Session{}).
		Where("refresh_token_hash = ? AND revoked_at IS NULL", utils.SHA256Hex([]byte(random))).
		Update("revoked_at", s.now()).Error
	if err != nil {
		s.log.Warn("revoke by refresh token failed", zap.Error(err))
	}
}

// RevokeAllSessions revokes every active session of a user.
func (s *SessionService) RevokeAllSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", s.now())
	return res.RowsAffected, res.Error
}

// SweepExpired deletes sessions that expired or were revoked more than a
// refresh lifetime ago.
func (s *SessionService) SweepExpired(ctx context.Context) (int64, error) {
	now := s.now()
	res := s.db.WithContext(ctx).
		Where("expires_at <= ? OR (revoked_at IS NOT NULL AND revoked_at <= ?)", now, now.Add(-s.refreshTTL)).
		Delete(&models.Session{})
	return res.RowsAffected, res.Error
}

// RunSweeper calls SweepExpired every interval until ctx is cancelled.
func (s *SessionService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.SweepExpired(ctx)
			if err != nil {
				s.log.Warn("session sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				s.log.Info("expired sessions removed", zap.Int64("count", removed))
			}
		}
	}
}

func (s *SessionService) issue(user *models.User, session *models.Session, refreshToken string, now time.Time) (*SessionTokens, error) {
	accessToken, accessExpiresAt, err := utils.GenerateAccessToken(s.accessSecret, user.ID, session.ID, user.Role, now, s.accessTTL)
	if err != nil {
		return nil, err
	}

	return &SessionTokens{
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  accessExpiresAt,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: session.ExpiresAt,
		Session:               session,
		User:                  user,
	}, nil
}

// generateRefreshToken returns "<random hex>.<hmac hex>" and the hash of the random part.
func (s *SessionService) generateRefreshToken() (string, string, error) {
	buf := make([]byte, refreshTokenRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	random := hex.EncodeToString(buf)
	return random + "." + s.sign(random), utils.SHA256Hex([]byte(random)), nil
}

func (s *SessionService) verifyRefreshToken(token string) (string, error) {
	random, signature, ok := strings.Cut(token, ".")
	if !ok || random == "" || strings.Contains(signature, ".") {
		return "", ErrInvalidRefreshToken
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}
	expected, _ := hex.DecodeString(s.sign(random))
	if !hmac.Equal(provided, expected) {
		return "", ErrInvalidRefreshToken
	}
	return random, nil
}

func (s *SessionService) sign(random string) string {
	mac := hmac.New(sha256.New, []byte(s.refreshSecret))
	mac.Write([]byte(random))
	return hex.EncodeToString(mac.Sum(nil))
}

// truncate cuts value to at most max bytes without splitting a UTF-8 sequence.
func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
