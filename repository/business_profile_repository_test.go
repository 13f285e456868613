package repository

import (
	"context"
	"testing"

	"github.com/adgenius-ai/adgenius/models"
	"github.com/adgenius-ai/adgenius/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessProfileByUserID(t *testing.T) {
	tdb, fixtures := setupRepoTest(t)
	repo := NewBusinessProfileRepository(tdb.DB)

	user, err := fixtures.CreateTestUser()
	require.NoError(t, err)

	missing, err := repo.ByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := fixtures.CreateTestBusinessProfile(user.ID)
	require.NoError(t, err)

	profile, err := repo.ByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, created.ID, profile.ID)
	require.NotNil(t, profile.BusinessName)
	assert.Equal(t, "Acme Outfitters", *profile.BusinessName)
}

func TestBusinessProfileUpsertKeyedByUser(t *testing.T) {
	tdb, fixtures := setupRepoTest(t)
	repo := NewBusinessProfileRepository(tdb.DB)

	user, err := fixtures.CreateTestUser()
	require.NoError(t, err)
	first, err := fixtures.CreateTestBusinessProfile(user.ID)
	require.NoError(t, err)

	update := &models.BusinessProfile{
		UserID:       user.ID,
		BusinessName: utils.ToPtr("Acme Rebranded"),
		Industry:     utils.ToPtr("retail"),
		Objective:    utils.ToPtr("awareness"),
		WebsiteURL:   utils.ToPtr("https://rebrand.example.com"),
	}
	require.NoError(t, repo.Upsert(context.Background(), update))

	stored, err := repo.ByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	// Same row, new contents
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "Acme Rebranded", *stored.BusinessName)
	assert.Equal(t, "retail", *stored.Industry)
	assert.Equal(t, "awareness", *stored.Objective)

	count, err := repo.Count(context.Background(), models.BusinessProfileFilter{UserID: &user.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
