package repository

import (
	"context"
	"testing"

	"github.com/adgenius-ai/adgenius/models"
	"github.com/adgenius-ai/adgenius/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrationByUserAndProvider(t *testing.T) {
	tdb, fixtures := setupRepoTest(t)
	repo := NewIntegrationRepository(tdb.DB)

	user, err := fixtures.CreateTestUser()
	require.NoError(t, err)

	// Nothing connected yet
	integration, err := repo.ByUserAndProvider(context.Background(), user.ID, models.ProviderMeta)
	require.NoError(t, err)
	assert.Nil(t, integration)

	created, err := fixtures.CreateTestIntegration(user.ID)
	require.NoError(t, err)

	integration, err = repo.ByUserAndProvider(context.Background(), user.ID, models.ProviderMeta)
	require.NoError(t, err)
	require.NotNil(t, integration)
	assert.Equal(t, created.ID, integration.ID)
	assert.Equal(t, "test-access-token", integration.AccessToken)
	require.Len(t, integration.AdAccounts, 2)
	assert.Equal(t, "act_123", integration.AdAccounts[0].ID)
}

func TestIntegrationUpsertReplacesOnReconnect(t *testing.T) {
	tdb, fixtures := setupRepoTest(t)
	repo := NewIntegrationRepository(tdb.DB)

	user, err := fixtures.CreateTestUser()
	require.NoError(t, err)
	first, err := fixtures.CreateTestIntegration(user.ID)
	require.NoError(t, err)

	// Reconnecting comes in as a fresh row for the same (user, provider)
	reconnect := &models.Integration{
		UUID:        uuid.New(),
		UserID:      user.ID,
		Provider:    models.ProviderMeta,
		AccessToken: "rotated-token",
		TokenType:   utils.ToPtr("bearer"),
		AdAccounts: models.AdAccountList{
			{ID: "act_789", AccountID: "789", Name: "New Account", Currency: "GBP"},
		},
		ConnectedAt: utils.UTCNow(),
	}
	require.NoError(t, repo.Upsert(context.Background(), reconnect))

	stored, err := repo.ByUserAndProvider(context.Background(), user.ID, models.ProviderMeta)
	require.NoError(t, err)
	require.NotNil(t, stored)

	// Same row, replaced credentials and account list, selection cleared
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "rotated-token", stored.AccessToken)
	require.Len(t, stored.AdAccounts, 1)
	assert.Equal(t, "act_789", stored.AdAccounts[0].ID)
	assert.Nil(t, stored.SelectedAdAccount)

	count, err := repo.Count(context.Background(), models.IntegrationFilter{UserID: &user.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIntegrationDeleteByUserAndProvider(t *testing.T) {
	tdb, fixtures := setupRepoTest(t)
	repo := NewIntegrationRepository(tdb.DB)

	user, err := fixtures.CreateTestUser()
	require.NoError(t, err)
	other, err := fixtures.CreateTestUser()
	require.NoError(t, err)

	_, err = fixtures.CreateTestIntegration(user.ID)
	require.NoError(t, err)
	_, err = fixtures.CreateTestIntegration(other.ID)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteByUserAndProvider(context.Background(), user.ID, models.ProviderMeta))

	mine, err := repo.ByUserAndProvider(context.Background(), user.ID, models.ProviderMeta)
	require.NoError(t, err)
	assert.Nil(t, mine)

	theirs, err := repo.ByUserAndProvider(context.Background(), other.ID, models.ProviderMeta)
	require.NoError(t, err)
	assert.NotNil(t, theirs)
}
