package repository

import (
	"context"
	"testing"

	"github.com/adgenius-ai/adgenius/models"
	apptesting "github.com/adgenius-ai/adgenius/testing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepoTest(t *testing.T) (*apptesting.TestDB, *apptesting.TestFixtures) {
	t.Helper()

	tdb, err := apptesting.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = tdb.Cleanup() })

	return tdb, apptesting.NewTestFixtures(tdb)
}

func seedSession(t *testing.T, fixtures *apptesting.TestFixtures, userID uint, sessionID uuid.UUID, contents ...string) []*models.ChatMessage {
	t.Helper()

	rows := make([]*models.ChatMessage, 0, len(contents))
	for i, content := range contents {
		role := models.ChatRoleUser
		if i%2 == 1 {
			role = models.ChatRoleAssistant
		}
		msg, err := fixtures.CreateTestChatMessage(userID, sessionID, role, content)
		require.NoError(t, err)
		rows = append(rows, msg)
	}
	return rows
}

func TestListBySessionReturnsChronologicalWindow(t *testing.T) {
	tdb, fixtures := setupRepoTest(t)
	repo := NewChatMessageRepository(tdb.DB)

	user, err := fixtures.CreateTestUser()
	require.NoError(t, err)

	sessionID := uuid.New()
	seedSession(t, fixtures, user.ID, sessionID, "one", "two", "three", "four", "five")

	// Limited reads keep the most recent turns, oldest first
	rows, err := repo.ListBySession(context.Background(), user.ID, sessionID, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "three", rows[0].Content)
	assert.Equal(t, "four", rows[1].Content)
	assert.Equal(t, "five", rows[2].Content)

	// A zero limit returns the whole session
	rows, err = repo.ListBySession(context.Background(), user.ID, sessionID, 0)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "one", rows[0].Content)
	assert.Equal(t, "five", rows[4].Content)
}

func TestListBySessionScopedToOwner(t *testing.T) {
	tdb, fixtures := setupRepoTest(t)
	repo := NewChatMessageRepository(tdb.DB)

	owner, err := fixtures.CreateTestUser()
	require.NoError(t, err)
	other, err := fixtures.CreateTestUser()
	require.NoError(t, err)

	sessionID := uuid.New()
	seedSession(t, fixtures, owner.ID, sessionID, "mine")

	rows, err := repo.ListBySession(context.Background(), other.ID, sessionID, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestListSessionsReturnsLatestMessagePerSession(t *testing.T) {
	tdb, fixtures := setupRepoTest(t)
	repo := NewChatMessageRepository(tdb.DB)

	user, err := fixtures.CreateTestUser()
	require.NoError(t, err)

	older := uuid.New()
	seedSession(t, fixtures, user.ID, older, "old question", "old answer")

	newer := uuid.New()
	seedSession(t, fixtures, user.ID, newer, "new question", "new answer")

	// Another user's sessions stay invisible
	stranger, err := fixtures.CreateTestUser()
	require.NoError(t, err)
	seedSession(t, fixtures, stranger.ID, uuid.New(), "not yours")

	sessions, err := repo.ListSessions(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, newer, sessions[0].SessionID)
	assert.Equal(t, "new answer", sessions[0].Content)
	assert.Equal(t, older, sessions[1].SessionID)
	assert.Equal(t, "old answer", sessions[1].Content)
}

func TestDeleteSessionRemovesOnlyThatSession(t *testing.T) {
	tdb, fixtures := setupRepoTest(t)
	repo := NewChatMessageRepository(tdb.DB)

	user, err := fixtures.CreateTestUser()
	require.NoError(t, err)

	target := uuid.New()
	seedSession(t, fixtures, user.ID, target, "q", "a")
	keep := uuid.New()
	seedSession(t, fixtures, user.ID, keep, "still here")

	deleted, err := repo.DeleteSession(context.Background(), user.ID, target)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := repo.ListSessions(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, keep, remaining[0].SessionID)

	// Deleting again reports zero rows
	deleted, err = repo.DeleteSession(context.Background(), user.ID, target)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestDeleteMessageChecksOwnership(t *testing.T) {
	tdb, fixtures := setupRepoTest(t)
	repo := NewChatMessageRepository(tdb.DB)

	user, err := fixtures.CreateTestUser()
	require.NoError(t, err)

	msg, err := fixtures.CreateTestChatMessage(user.ID, uuid.New(), models.ChatRoleUser, "delete me")
	require.NoError(t, err)

	deleted, err := repo.DeleteMessage(context.Background(), user.ID+1, msg.ID)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = repo.DeleteMessage(context.Background(), user.ID, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestDeleteAllSessionsWipesOneUserOnly(t *testing.T) {
	tdb, fixtures := setupRepoTest(t)
	repo := NewChatMessageRepository(tdb.DB)

	user, err := fixtures.CreateTestUser()
	require.NoError(t, err)
	other, err := fixtures.CreateTestUser()
	require.NoError(t, err)

	seedSession(t, fixtures, user.ID, uuid.New(), "a", "b")
	seedSession(t, fixtures, user.ID, uuid.New(), "c")
	seedSession(t, fixtures, other.ID, uuid.New(), "untouched")

	deleted, err := repo.DeleteAllSessions(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	mine, err := repo.ListSessions(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)

	theirs, err := repo.ListSessions(context.Background(), other.ID)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}
