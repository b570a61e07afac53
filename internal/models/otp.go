package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	OTPPurposeEmailVerification = "emailVerification"
	OTPPurposePasswordReset     = "passwordReset"
)

// OTPBucket holds the pending one-time code for a (user, purpose) pair.
type OTPBucket struct {
	BaseModel
	UserID       uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_otp_buckets_user_purpose" json:"user_id"`
	Purpose      string        `gorm:"size:32;not null;uniqueIndex:idx_otp_buckets_user_purpose" json:"purpose"`
	OTPHash      *string       `json:"-"`
	OTPExpiresAt *time.Time    `json:"otp_expires_at"`
	Attempts     int           `gorm:"not null" json:"attempts"`
	Dispatches   []OTPDispatch `gorm:"foreignKey:BucketID;constraint:OnDelete:CASCADE" json:"-"`
}

// OTPDispatch records a single code being sent from a bucket.
type OTPDispatch struct {
	BaseModel
	BucketID uuid.UUID `gorm:"type:uuid;not null;index" json:"bucket_id"`
	SentAt   time.Time `gorm:"not null;index" json:"sent_at"`
}
