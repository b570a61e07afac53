package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/annavaram/internal/models"
	"github.com/example/annavaram/internal/testutil"
)

type sessionFixture struct {
	db       *gorm.DB
	clock    *fakeClock
	sessions *SessionService
	auth     *Authenticator
	user     *models.User
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	db := testutil.NewDB(t)
	clock := newFakeClock()
	clock.current = time.Now().UTC()

	sessions := NewSessionService(db, testConfig(), zap.NewNop())
	sessions.now = clock.Now
	auth := NewAuthenticator(db, sessions, testConfig())
	auth.now = clock.Now

	return &sessionFixture{
		db:       db,
		clock:    clock,
		sessions: sessions,
		auth:     auth,
		user:     testutil.CreateUser(t, db, "session@example.com"),
	}
}

func TestCreateSessionStoresOnlyTokenHash(t *testing.T) {
	f := newSessionFixture(t)
	tokens, err := f.sessions.CreateSession(context.Background(), f.user, DeviceMeta{UserAgent: "go-test", IPAddress: "127.0.0.1"})
	require.NoError(t, err)

	random, signature, ok := strings.Cut(tokens.RefreshToken, ".")
	require.True(t, ok)
	assert.Len(t, random, 128)
	assert.Len(t, signature, 64)

	var stored models.Session
	require.NoError(t, f.db.First(&stored, "id = ?", tokens.Session.ID).Error)
	assert.NotContains(t, tokens.RefreshToken, stored.RefreshTokenHash)
	assert.Equal(t, "go-test", stored.UserAgent)
	assert.WithinDuration(t, f.clock.Now().Add(7*24*time.Hour), stored.ExpiresAt, time.Second)
	assert.WithinDuration(t, f.clock.Now().Add(15*time.Minute), tokens.AccessTokenExpiresAt, time.Second)
}

func TestRevocationPropagatesToAccessTokens(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	tokens, err := f.sessions.CreateSession(ctx, f.user, DeviceMeta{})
	require.NoError(t, err)

	identity, err := f.auth.Authenticate(ctx, "Bearer "+tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, identity.UserID)
	assert.Equal(t, tokens.Session.ID, identity.SessionID)

	require.NoError(t, f.sessions.RevokeSession(ctx, tokens.Session.ID))

	_, err = f.auth.Authenticate(ctx, "Bearer "+tokens.AccessToken)
	assert.True(t, errors.Is(err, ErrSessionRevoked))
}

func TestRotationInvalidatesPreviousRefreshToken(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	first, err := f.sessions.CreateSession(ctx, f.user, DeviceMeta{})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	second, err := f.sessions.RotateSession(ctx, first.RefreshToken, DeviceMeta{UserAgent: "rotated"})
	require.NoError(t, err)
	assert.Equal(t, first.Session.ID, second.Session.ID)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.True(t, second.RefreshTokenExpiresAt.After(first.RefreshTokenExpiresAt))

	_, err = f.sessions.RotateSession(ctx, first.RefreshToken, DeviceMeta{})
	assert.True(t, errors.Is(err, ErrInvalidRefreshToken))

	_, err = f.sessions.RotateSession(ctx, second.RefreshToken, DeviceMeta{})
	assert.NoError(t, err)
}

func TestRotateRejectsTamperedAndRevokedTokens(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	tokens, err := f.sessions.CreateSession(ctx, f.user, DeviceMeta{})
	require.NoError(t, err)

	random, _, _ := strings.Cut(tokens.RefreshToken, ".")
	_, err = f.sessions.RotateSession(ctx, random+"."+strings.Repeat("0", 64), DeviceMeta{})
	assert.True(t, errors.Is(err, ErrInvalidRefreshToken))

	_, err = f.sessions.RotateSession(ctx, "not-a-token", DeviceMeta{})
	assert.True(t, errors.Is(err, ErrInvalidRefreshToken))

	f.sessions.RevokeByRefreshToken(ctx, tokens.RefreshToken)
	_, err = f.sessions.RotateSession(ctx, tokens.RefreshToken, DeviceMeta{})
	assert.True(t, errors.Is(err, ErrSessionRevoked))

	f.sessions.RevokeByRefreshToken(ctx, "garbage")
}

func TestRotateRejectsInactiveUser(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	tokens, err := f.sessions.CreateSession(ctx, f.user, DeviceMeta{})
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", f.user.ID).Update("is_active", false).Error)

	_, err = f.sessions.RotateSession(ctx, tokens.RefreshToken, DeviceMeta{})
	assert.True(t, errors.Is(err, ErrAccountUnavailable))

	_, err = f.auth.Authenticate(ctx, "Bearer "+tokens.AccessToken)
	assert.True(t, errors.Is(err, ErrAccountDisabled))
}

func TestSessionExpiry(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	tokens, err := f.sessions.CreateSession(ctx, f.user, DeviceMeta{})
	require.NoError(t, err)

	f.clock.Advance(8 * 24 * time.Hour)
	_, err = f.sessions.ValidateSession(ctx, tokens.Session.ID, f.user.ID)
	assert.True(t, errors.Is(err, ErrSessionExpired))

	_, err = f.sessions.RotateSession(ctx, tokens.RefreshToken, DeviceMeta{})
	assert.True(t, errors.Is(err, ErrSessionExpired))

	removed, err := f.sessions.SweepExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, err = f.sessions.ValidateSession(ctx, tokens.Session.ID, f.user.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestRevokeAllSessions(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	a, err := f.sessions.CreateSession(ctx, f.user, DeviceMeta{})
	require.NoError(t, err)
	b, err := f.sessions.CreateSession(ctx, f.user, DeviceMeta{})
	require.NoError(t, err)

	revoked, err := f.sessions.RevokeAllSessions(ctx, f.user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, revoked)

	for _, tokens := range []*SessionTokens{a, b} {
		_, err := f.auth.Authenticate(ctx, "Bearer "+tokens.AccessToken)
		assert.True(t, errors.Is(err, ErrSessionRevoked))
	}
}

func TestAuthenticateHeaderErrors(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer   "} {
		_, err := f.auth.Authenticate(ctx, header)
		assert.True(t, errors.Is(err, ErrMissingToken), header)
	}

	_, err := f.auth.Authenticate(ctx, "Bearer not.a.jwt")
	assert.True(t, errors.Is(err, ErrInvalidToken))

	tokens, err := f.sessions.CreateSession(ctx, f.user, DeviceMeta{})
	require.NoError(t, err)
	f.clock.Advance(16 * time.Minute)
	_, err = f.auth.Authenticate(ctx, "Bearer "+tokens.AccessToken)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestRequireAdmin(t *testing.T) {
	assert.True(t, errors.Is(RequireAdmin(&Identity{Role: models.RoleCustomer}), ErrAdminRequired))
	assert.True(t, errors.Is(RequireAdmin(nil), ErrAdminRequired))
	assert.NoError(t, RequireAdmin(&Identity{Role: models.RoleAdmin}))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc", truncate("abcdef", 3))

	// "అన్నవరం" is Telugu; every rune is three bytes.
	telugu := "అన్నవరం"
	cut := truncate(telugu, 4)
	assert.Equal(t, "అ", cut)
	assert.True(t, utf8.ValidString(cut))

	long := strings.Repeat("ఓ", 200)
	cut = truncate(long, 512)
	assert.True(t, utf8.ValidString(cut))
	assert.Len(t, cut, 510)
}

func TestCreateSessionTruncatesMultibyteUserAgent(t *testing.T) {
	f := newSessionFixture(t)
	agent := "Mozilla/5.0 " + strings.Repeat("శ్రీ", 100)
	tokens, err := f.sessions.CreateSession(context.Background(), f.user, DeviceMeta{UserAgent: agent, IPAddress: "127.0.0.1"})
	require.NoError(t, err)

	var stored models.Session
	require.NoError(t, f.db.First(&stored, "id = ?", tokens.Session.ID).Error)
	assert.LessOrEqual(t, len(stored.UserAgent), 512)
	assert.True(t, utf8.ValidString(stored.UserAgent))
	assert.True(t, strings.HasPrefix(agent, stored.UserAgent))
}
