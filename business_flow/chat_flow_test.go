package businessflow

import (
	"context"
	"errors"
	"testing"

	"github.com/adgenius-ai/adgenius/app/dto"
	"github.com/adgenius-ai/adgenius/app/services"
	"github.com/adgenius-ai/adgenius/models"
	"github.com/adgenius-ai/adgenius/repository"
	apptesting "github.com/adgenius-ai/adgenius/testing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatFlowFixture struct {
	flow     ChatFlow
	db       *apptesting.TestDB
	fixtures *apptesting.TestFixtures
	chatRepo repository.ChatMessageRepository
	llm      *services.MockLLMClient
	tools    *services.MockAdsToolClient
	builds   int
}

func setupChatFlow(t *testing.T) *chatFlowFixture {
	t.Helper()

	tdb, err := apptesting.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = tdb.Cleanup() })

	f := &chatFlowFixture{
		db:       tdb,
		fixtures: apptesting.NewTestFixtures(tdb),
		chatRepo: repository.NewChatMessageRepository(tdb.DB),
		llm:      services.NewMockLLMClient(),
		tools:    services.NewMockAdsToolClient(),
	}

	cache := services.NewAgentCache(func(accessToken string) (*services.AdsAgent, error) {
		f.builds++
		return services.NewAdsAgent(f.llm, f.tools, accessToken, 5), nil
	})

	f.flow = NewChatFlow(
		f.chatRepo,
		repository.NewIntegrationRepository(tdb.DB),
		cache,
		10,
		tdb.DB,
	)
	return f
}

func chatRequest(message string, sessionID *string) *dto.ChatRequest {
	return &dto.ChatRequest{Message: message, SessionID: sessionID}
}

func testMetadata() *ClientMetadata {
	return NewClientMetadata("127.0.0.1", "test-agent")
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	f := setupChatFlow(t)

	_, err := f.flow.Chat(context.Background(), 1, chatRequest("   ", nil), testMetadata())
	require.Error(t, err)
	assert.True(t, IsEmptyChatMessage(err))
}

func TestChatRejectsMalformedSessionID(t *testing.T) {
	f := setupChatFlow(t)

	bad := "not-a-uuid"
	_, err := f.flow.Chat(context.Background(), 1, chatRequest("hello", &bad), testMetadata())
	require.Error(t, err)
	assert.True(t, IsSessionNotFound(err))
}

func TestChatGuidanceWhenNotConnected(t *testing.T) {
	f := setupChatFlow(t)

	user, err := f.fixtures.CreateTestUser()
	require.NoError(t, err)

	resp, err := f.flow.Chat(context.Background(), user.ID, chatRequest("how are my ads doing?", nil), testMetadata())
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, guidanceNotConnected, resp.Reply)

	// The agent was never built
	assert.Zero(t, f.builds)

	// Both the question and the guidance reply are persisted
	sessionID, err := uuid.Parse(resp.SessionID)
	require.NoError(t, err)
	messages, err := f.chatRepo.ListBySession(context.Background(), user.ID, sessionID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, models.ChatRoleUser, messages[0].Role)
	assert.Equal(t, models.ChatRoleAssistant, messages[1].Role)
	assert.Equal(t, "not_connected", messages[1].Metadata["reason"])
}

func TestChatGuidanceWhenNoAccountSelected(t *testing.T) {
	f := setupChatFlow(t)

	user, err := f.fixtures.CreateTestUser()
	require.NoError(t, err)

	integration, err := f.fixtures.CreateTestIntegration(user.ID)
	require.NoError(t, err)
	integration.SelectedAdAccount = nil
	require.NoError(t, f.db.DB.Save(integration).Error)

	resp, err := f.flow.Chat(context.Background(), user.ID, chatRequest("show my campaigns", nil), testMetadata())
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, guidanceNoAccountSelected, resp.Reply)
	assert.Zero(t, f.builds)

	sessionID, err := uuid.Parse(resp.SessionID)
	require.NoError(t, err)
	messages, err := f.chatRepo.ListBySession(context.Background(), user.ID, sessionID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "no_account_selected", messages[1].Metadata["reason"])
}

func TestChatRunsAgentAndPersistsReply(t *testing.T) {
	f := setupChatFlow(t)

	user, err := f.fixtures.CreateTestUser()
	require.NoError(t, err)
	_, err = f.fixtures.CreateTestIntegration(user.ID)
	require.NoError(t, err)

	f.tools.Campaigns = []models.Campaign{
		{ID: "c1", Name: "Summer Sale", Status: "ACTIVE"},
		{ID: "c2", Name: "Winter Promo", Status: "PAUSED"},
	}
	f.llm.Responses = []*services.GenerateResponse{
		{ToolCall: &services.ToolCall{Name: "get_campaigns", Args: map[string]any{"account_id": "act_123"}}},
		{Text: "You have 2 campaigns, one of them active."},
	}

	resp, err := f.flow.Chat(context.Background(), user.ID, chatRequest("how many campaigns do I have?", nil), testMetadata())
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "You have 2 campaigns, one of them active.", resp.Reply)
	require.NotNil(t, resp.Tool)
	assert.Equal(t, "get_campaigns", *resp.Tool)
	assert.Contains(t, f.tools.Calls, "ListCampaigns")

	sessionID, err := uuid.Parse(resp.SessionID)
	require.NoError(t, err)
	messages, err := f.chatRepo.ListBySession(context.Background(), user.ID, sessionID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, models.ChatRoleAssistant, messages[1].Role)
	require.NotNil(t, messages[1].Tool)
	assert.Equal(t, "get_campaigns", *messages[1].Tool)
}

func TestChatAgentFailureBecomesPoliteReply(t *testing.T) {
	f := setupChatFlow(t)

	user, err := f.fixtures.CreateTestUser()
	require.NoError(t, err)
	_, err = f.fixtures.CreateTestIntegration(user.ID)
	require.NoError(t, err)

	f.llm.Err = errors.New("model unavailable")

	resp, err := f.flow.Chat(context.Background(), user.ID, chatRequest("hello", nil), testMetadata())
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, agentErrorReply, resp.Reply)

	sessionID, err := uuid.Parse(resp.SessionID)
	require.NoError(t, err)
	messages, err := f.chatRepo.ListBySession(context.Background(), user.ID, sessionID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Contains(t, messages[1].Metadata["error"], "model unavailable")
}

func TestChatReplaysPriorTurnsOnly(t *testing.T) {
	f := setupChatFlow(t)

	user, err := f.fixtures.CreateTestUser()
	require.NoError(t, err)
	_, err = f.fixtures.CreateTestIntegration(user.ID)
	require.NoError(t, err)

	f.llm.Responses = []*services.GenerateResponse{{Text: "first answer"}}
	first, err := f.flow.Chat(context.Background(), user.ID, chatRequest("first question", nil), testMetadata())
	require.NoError(t, err)

	f.llm.Responses = []*services.GenerateResponse{{Text: "second answer"}}
	_, err = f.flow.Chat(context.Background(), user.ID, chatRequest("second question", &first.SessionID), testMetadata())
	require.NoError(t, err)

	// The second run saw the first exchange plus its own prompt, not the
	// freshly inserted second message twice.
	lastRequest := f.llm.Requests[len(f.llm.Requests)-1]
	require.Len(t, lastRequest.Turns, 3)
	assert.Equal(t, "first question", lastRequest.Turns[0].Content)
	assert.Equal(t, "model", lastRequest.Turns[1].Role)
	assert.Contains(t, lastRequest.Turns[2].Content, "second question")
}

func TestChatHistoryAndSessions(t *testing.T) {
	f := setupChatFlow(t)

	user, err := f.fixtures.CreateTestUser()
	require.NoError(t, err)

	sessionID := uuid.New()
	_, err = f.fixtures.CreateTestChatMessage(user.ID, sessionID, models.ChatRoleUser, "question")
	require.NoError(t, err)
	_, err = f.fixtures.CreateTestChatMessage(user.ID, sessionID, models.ChatRoleAssistant, "answer")
	require.NoError(t, err)

	history, err := f.flow.History(context.Background(), user.ID, sessionID.String())
	require.NoError(t, err)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "question", history.Messages[0].Content)
	assert.Equal(t, "answer", history.Messages[1].Content)

	sessions, err := f.flow.Sessions(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, sessions.Sessions, 1)
	assert.Equal(t, sessionID.String(), sessions.Sessions[0].SessionID)
	assert.Equal(t, "answer", sessions.Sessions[0].LastMessage)

	_, err = f.flow.History(context.Background(), user.ID, "garbage")
	require.Error(t, err)
	assert.True(t, IsSessionNotFound(err))
}

func TestChatDeleteOperations(t *testing.T) {
	f := setupChatFlow(t)

	user, err := f.fixtures.CreateTestUser()
	require.NoError(t, err)

	sessionID := uuid.New()
	msg, err := f.fixtures.CreateTestChatMessage(user.ID, sessionID, models.ChatRoleUser, "to delete")
	require.NoError(t, err)
	_, err = f.fixtures.CreateTestChatMessage(user.ID, sessionID, models.ChatRoleAssistant, "reply")
	require.NoError(t, err)

	otherSession := uuid.New()
	_, err = f.fixtures.CreateTestChatMessage(user.ID, otherSession, models.ChatRoleUser, "other thread")
	require.NoError(t, err)

	// Another user's history must be untouchable
	_, err = f.flow.DeleteMessage(context.Background(), user.ID+1, msg.ID)
	require.Error(t, err)

	deleted, err := f.flow.DeleteMessage(context.Background(), user.ID, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted.Deleted)

	result, err := f.flow.DeleteSession(context.Background(), user.ID, sessionID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Deleted)

	_, err = f.flow.DeleteSession(context.Background(), user.ID, sessionID.String())
	require.Error(t, err)
	assert.True(t, IsSessionNotFound(err))

	wiped, err := f.flow.DeleteAllSessions(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), wiped.Deleted)

	remaining, err := f.chatRepo.ListSessions(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestResolveSessionGeneratesFreshID(t *testing.T) {
	f := setupChatFlow(t).flow.(*ChatFlowImpl)

	id, err := f.resolveSession(nil)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	existing := uuid.New().String()
	parsed, err := f.resolveSession(&existing)
	require.NoError(t, err)
	assert.Equal(t, existing, parsed.String())

	empty := ""
	generated, err := f.resolveSession(&empty)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, generated)
}
