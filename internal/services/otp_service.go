package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/annavaram/internal/config"
	"github.com/example/annavaram/internal/models"
	"github.com/example/annavaram/internal/utils"
)

const otpHistoryWindow = 24 * time.Hour

// IssuedOTP is a freshly generated code. Code is never stored.
type IssuedOTP struct {
	Code      string
	ExpiresAt time.Time
}

// OTPService issues and verifies one-time codes, one bucket per (user, purpose).
type OTPService struct {
	db          *gorm.DB
	log         *zap.Logger
	expiry      time.Duration
	maxAttempts int
	maxPerDay   int
	now         Clock
}

// NewOTPService constructs an OTPService.
func NewOTPService(db *gorm.DB, cfg *config.Config, log *zap.Logger) *OTPService {
	return &OTPService{
		db:          db,
		log:         log,
		expiry:      cfg.OTPExpiry,
		maxAttempts: cfg.OTPMaxAttempts,
		maxPerDay:   cfg.OTPMaxPerDay,
		now:         systemClock,
	}
}

// ExpiryMinutes is the lifetime of an issued code in whole minutes.
func (s *OTPService) ExpiryMinutes() int {
	return int(s.expiry / time.Minute)
}

// Issue generates a new code for the bucket, replacing any pending one.
func (s *OTPService) Issue(ctx context.Context, userID uuid.UUID, purpose string) (*IssuedOTP, error) {
	db := s.db.WithContext(ctx)
	if err := s.ensureBucket(db, userID, purpose); err != nil {
		return nil, err
	}

	code, err := utils.GenerateNumericCode()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(s.expiry)

	err = db.Transaction(func(tx *gorm.DB) error {
		var bucket models.OTPBucket
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND purpose = ?", userID, purpose).
			First(&bucket).Error; err != nil {
			return err
		}

		if err := tx.Where("bucket_id = ? AND sent_at <= ?", bucket.ID, now.Add(-otpHistoryWindow)).
			Delete(&models.OTPDispatch{}).Error; err != nil {
			return err
		}

		var sent int64
		if err := tx.Model(&models.OTPDispatch{}).Where("bucket_id = ?", bucket.ID).Count(&sent).Error; err != nil {
			return err
		}
		if int(sent) >= s.maxPerDay {
			return ErrOTPRateLimited
		}

		if err := tx.Model(&bucket).Updates(map[string]interface{}{
			"otp_hash":       string(hash),
			"otp_expires_at": expiresAt,
			"attempts":       0,
		}).Error; err != nil {
			return err
		}

		return tx.Create(&models.OTPDispatch{BucketID: bucket.ID, SentAt: now}).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("otp issued", zap.String("user_id", userID.String()), zap.String("purpose", purpose))
	return &IssuedOTP{Code: code, ExpiresAt: expiresAt}, nil
}

// Verify checks a submitted code. A matching code is consumed and cannot be reused.
func (s *OTPService) Verify(ctx context.Context, userID uuid.UUID, purpose, code string) error {
	db := s.db.WithContext(ctx)

	var bucket models.OTPBucket
	err := db.Where("user_id = ? AND purpose = ?", userID, purpose).First(&bucket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOTPNoPendingCode
	}
	if err != nil {
		return err
	}

	if bucket.OTPHash == nil || *bucket.OTPHash == "" {
		return ErrOTPNoPendingCode
	}
	if bucket.Attempts >= s.maxAttempts {
		return ErrOTPAttemptsExceeded
	}
	if bucket.OTPExpiresAt == nil || s.now().After(*bucket.OTPExpiresAt) {
		return ErrOTPExpired
	}

	if bcrypt.CompareHashAndPassword([]byte(*bucket.OTPHash), []byte(code)) != nil {
		if err := db.Model(&models.OTPBucket{}).Where("id = ?", bucket.ID).
			Update("attempts", gorm.Expr("attempts + 1")).Error; err != nil {
			return err
		}
		return ErrOTPInvalid
	}

	res := db.Model(&models.OTPBucket{}).
		Where("id = ? AND otp_hash = ?", bucket.ID, *bucket.OTPHash).
		Updates(map[string]interface{}{
			"otp_hash":       nil,
			"otp_expires_at": nil,
			"attempts":       0,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOTPNoPendingCode
	}
	return nil
}

func (s *OTPService) ensureBucket(db *gorm.DB, userID uuid.UUID, purpose string) error {
	var bucket models.OTPBucket
	err := db.Where("user_id = ? AND purpose = ?", userID, purpose).First(&bucket).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	bucket = models.OTPBucket{UserID: userID, Purpose: purpose}
	if err := db.Create(&bucket).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	return nil
}
