package repository

import (
	"context"
	"testing"
	"time"

	"github.com/adgenius-ai/adgenius/models"
	"github.com/adgenius-ai/adgenius/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserByEmail(t *testing.T) {
	tdb, fixtures := setupRepoTest(t)
	repo := NewUserRepository(tdb.DB)

	missing, err := repo.ByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	user, err := fixtures.CreateTestUser()
	require.NoError(t, err)

	found, err := repo.ByEmail(context.Background(), user.Email)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, user.UUID, found.UUID)
}

func TestUserByUUID(t *testing.T) {
	tdb, fixtures := setupRepoTest(t)
	repo := NewUserRepository(tdb.DB)

	user, err := fixtures.CreateTestUser()
	require.NoError(t, err)

	found, err := repo.ByUUID(context.Background(), user.UUID.String())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)

	_, err = repo.ByUUID(context.Background(), "not-a-uuid")
	require.Error(t, err)
}

func TestUserUpdatePassword(t *testing.T) {
	tdb, fixtures := setupRepoTest(t)
	repo := NewUserRepository(tdb.DB)

	user, err := fixtures.CreateTestUser()
	require.NoError(t, err)

	newHash, err := bcrypt.GenerateFromPassword([]byte("NewPass456"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, repo.UpdatePassword(context.Background(), user.ID, string(newHash)))

	updated, err := repo.ByEmail(context.Background(), user.Email)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("NewPass456")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("TestPass123")))
}

func TestUserTouchLastLogin(t *testing.T) {
	tdb, fixtures := setupRepoTest(t)
	repo := NewUserRepository(tdb.DB)

	user, err := fixtures.CreateTestUser()
	require.NoError(t, err)
	assert.Nil(t, user.LastLoginAt)

	before := utils.UTCNow()
	require.NoError(t, repo.TouchLastLogin(context.Background(), user.ID))

	updated, err := repo.ByEmail(context.Background(), user.Email)
	require.NoError(t, err)
	require.NotNil(t, updated.LastLoginAt)
	assert.WithinDuration(t, before, *updated.LastLoginAt, time.Second)
}

func TestUserCountAndExists(t *testing.T) {
	tdb, fixtures := setupRepoTest(t)
	repo := NewUserRepository(tdb.DB)

	user, err := fixtures.CreateTestUser()
	require.NoError(t, err)

	exists, err := repo.Exists(context.Background(), models.UserFilter{Email: &user.Email})
	require.NoError(t, err)
	assert.True(t, exists)

	active := true
	count, err := repo.Count(context.Background(), models.UserFilter{IsActive: &active})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
