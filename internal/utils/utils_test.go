package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/annavaram/internal/apperr"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	now := time.Now()
	userID, sessionID := uuid.New(), uuid.New()

	token, expiresAt, err := GenerateAccessToken("secret", userID, sessionID, "admin", now, 15*time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(15*time.Minute), expiresAt, time.Second)

	claims, err := ParseAccessToken("secret", token, now.Add(time.Minute))
	require.NoError(t, err)

	gotUser, _ := claims.UserID()
	gotSession, _ := claims.SID()
	assert.Equal(t, userID, gotUser)
	assert.Equal(t, sessionID, gotSession)
	assert.Equal(t, "admin", claims.Role)
}

func TestAccessTokenRejectsExpiredAndForged(t *testing.T) {
	now := time.Now()
	token, _, err := GenerateAccessToken("secret", uuid.New(), uuid.New(), "customer", now, time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken("secret", token, now.Add(2*time.Minute))
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))

	_, err = ParseAccessToken("other-secret", token, now)
	assert.True(t, errors.Is(err, jwt.ErrTokenSignatureInvalid))
}

func TestGenerateNumericCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateNumericCode()
		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.Regexp(t, `^\d{6}$`, code)
	}
}

func TestPagination(t *testing.T) {
	p := NewPagination(3, 500, 20)
	assert.Equal(t, 100, p.Limit)
	assert.Equal(t, 200, p.Offset)

	p = NewPagination(0, 0, 12)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 12, p.Limit)
	assert.EqualValues(t, 3, p.Meta(25)["total_pages"])
	assert.EqualValues(t, 1, p.Meta(0)["total_pages"])
}

type signupPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestValidateStruct(t *testing.T) {
	require.NoError(t, ValidateStruct(signupPayload{Email: "a@b.co", Password: "longenough"}))

	err := ValidateStruct(signupPayload{Email: "nope", Password: "short"})
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Equal(t, "must be a valid email address", appErr.Details["email"])
	assert.Equal(t, "must be at least 8 characters", appErr.Details["password"])
}
