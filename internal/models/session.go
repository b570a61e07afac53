package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is a server-side login session addressed by a refresh token.
type Session struct {
	BaseModel
	UserID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User             *User      `json:"-"`
	RefreshTokenHash string     `gorm:"size:64;not null;uniqueIndex" json:"-"`
	ExpiresAt        time.Time  `gorm:"not null;index" json:"expires_at"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	UserAgent        string     `gorm:"size:512" json:"user_agent,omitempty"`
	IPAddress        string     `gorm:"size:64" json:"ip_address,omitempty"`
}

// Usable reports whether the session is neither revoked nor expired at now.
func (s *Session) Usable(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
