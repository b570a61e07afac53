package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/annavaram/internal/models"
	"github.com/example/annavaram/internal/testutil"
	"github.com/example/annavaram/internal/utils"
)

func TestCreateAdmin(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	user, err := createAdmin(ctx, db, " Priest@Temple.org ", "Head Priest", "prasadam123")
	require.NoError(t, err)
	assert.Equal(t, "priest@temple.org", user.Email)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.True(t, user.EmailVerified)
	assert.True(t, utils.CheckPassword(user.PasswordHash, "prasadam123"))

	_, err = createAdmin(ctx, db, "priest@temple.org", "Again", "prasadam123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = createAdmin(ctx, db, "short@temple.org", "Short", "abc")
	require.Error(t, err)
}

func TestSetRole(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "devotee@example.com")

	role, err := setRole(ctx, db, "DEVOTEE@example.com", true)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, models.RoleAdmin, stored.Role)

	role, err = setRole(ctx, db, "devotee@example.com", false)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, role)

	_, err = setRole(ctx, db, "missing@example.com", true)
	require.Error(t, err)
}

func TestDeactivateRevokesSessions(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "devotee@example.com")

	for _, hash := range []string{"a", "b"} {
		require.NoError(t, db.Create(&models.Session{
			UserID:           user.ID,
			RefreshTokenHash: hash,
			ExpiresAt:        time.Now().Add(time.Hour),
		}).Error)
	}

	revoked, err := deactivate(ctx, db, "devotee@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 2, revoked)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.False(t, stored.IsActive)

	_, err = deactivate(ctx, db, "missing@example.com")
	require.Error(t, err)
}
