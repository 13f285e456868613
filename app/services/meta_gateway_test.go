package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adgenius-ai/adgenius/config"
	"github.com/adgenius-ai/adgenius/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMetaConfig() *config.MetaConfig {
	return &config.MetaConfig{
		AppID:        "app-id",
		AppSecret:    "app-secret",
		RedirectURI:  "http://localhost:8000/api/meta/oauth/callback",
		GraphVersion: "v20.0",
		Scopes:       []string{"ads_read", "ads_management"},
		Timeout:      5 * time.Second,
	}
}

// thinListingClient serves account listings without name or currency, the way
// the bulk endpoint often does, while details lookups hit the full records.
type thinListingClient struct {
	*MockAdsToolClient
	Listing []models.AdAccount
}

func (c *thinListingClient) ListAdAccounts(ctx context.Context, accessToken string) ([]models.AdAccount, error) {
	c.record("ListAdAccounts")
	return c.Listing, nil
}

// staticClientSource hands every user the same tool client
type staticClientSource struct {
	client AdsToolClient
	err    error
}

func (s *staticClientSource) GetOrCreateClient(ctx context.Context, userID uint, accessToken string) (AdsToolClient, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.client, nil
}

func TestGatewayPrefersToolClient(t *testing.T) {
	tool := NewMockAdsToolClient()
	tool.AdAccounts = []models.AdAccount{{ID: "act_1", AccountID: "1", Name: "Tool Account", Currency: "USD"}}
	direct := NewMockAdsToolClient()
	direct.AdAccounts = []models.AdAccount{{ID: "act_2", AccountID: "2", Name: "Direct Account", Currency: "USD"}}

	gw := NewMetaGateway(testMetaConfig(), nil, tool, direct, nil, "", time.Minute)

	accounts, err := gw.ListAdAccounts(context.Background(), 1, "token")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Tool Account", accounts[0].Name)
	assert.Empty(t, direct.Calls)
}

func TestGatewayPrefersCachedClient(t *testing.T) {
	cached := NewMockAdsToolClient()
	cached.AdAccounts = []models.AdAccount{{ID: "act_9", AccountID: "9", Name: "Cached Account", Currency: "USD"}}
	tool := NewMockAdsToolClient()
	tool.AdAccounts = []models.AdAccount{{ID: "act_1", AccountID: "1", Name: "Tool Account", Currency: "USD"}}

	gw := NewMetaGateway(testMetaConfig(), &staticClientSource{client: cached}, tool, nil, nil, "", time.Minute)

	accounts, err := gw.ListAdAccounts(context.Background(), 7, "token")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Cached Account", accounts[0].Name)
	assert.Empty(t, tool.Calls)
}

func TestGatewayCachedClientFailuresFallThrough(t *testing.T) {
	tool := NewMockAdsToolClient()
	tool.AdAccounts = []models.AdAccount{{ID: "act_1", AccountID: "1", Name: "Tool Account", Currency: "USD"}}

	// Resolver failure: the cold clients carry the request
	gw := NewMetaGateway(testMetaConfig(), &staticClientSource{err: errors.New("factory down")}, tool, nil, nil, "", time.Minute)

	accounts, err := gw.ListAdAccounts(context.Background(), 7, "token")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Tool Account", accounts[0].Name)

	// Cached client error: the next strategy carries the request
	broken := NewMockAdsToolClient()
	broken.Err = errors.New("stale connection")
	gw = NewMetaGateway(testMetaConfig(), &staticClientSource{client: broken}, tool, nil, nil, "", time.Minute)

	accounts, err = gw.ListAdAccounts(context.Background(), 7, "token")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Tool Account", accounts[0].Name)
	assert.Contains(t, broken.Calls, "ListAdAccounts")
}

func TestGatewayFallsBackToDirectClient(t *testing.T) {
	tool := NewMockAdsToolClient()
	tool.Err = errors.New("tool server down")
	direct := NewMockAdsToolClient()
	direct.AdAccounts = []models.AdAccount{{ID: "act_2", AccountID: "2", Name: "Direct Account", Currency: "USD"}}

	gw := NewMetaGateway(testMetaConfig(), nil, tool, direct, nil, "", time.Minute)

	accounts, err := gw.ListAdAccounts(context.Background(), 1, "token")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Direct Account", accounts[0].Name)
	assert.Contains(t, tool.Calls, "ListAdAccounts")
}

func TestGatewayEnrichesThinAccountListing(t *testing.T) {
	tool := &thinListingClient{
		MockAdsToolClient: NewMockAdsToolClient(),
		Listing: []models.AdAccount{
			{ID: "act_1", AccountID: "1"},
			{ID: "act_2", AccountID: "2", Name: "Complete Account", Currency: "EUR"},
		},
	}
	tool.AdAccounts = []models.AdAccount{
		{ID: "act_1", AccountID: "1", Name: "Enriched Account", Currency: "GBP"},
	}

	gw := NewMetaGateway(testMetaConfig(), nil, tool, nil, nil, "", time.Minute)

	accounts, err := gw.ListAdAccounts(context.Background(), 1, "token")
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	// The thin row picked up name and currency from the details lookup
	assert.Equal(t, "Enriched Account", accounts[0].Name)
	assert.Equal(t, "GBP", accounts[0].Currency)

	// The complete row never triggered a lookup
	assert.Equal(t, "Complete Account", accounts[1].Name)
	assert.Equal(t, "EUR", accounts[1].Currency)
	assert.Equal(t, 1, countCalls(tool.Calls, "AccountDetails"))
}

func TestGatewayThinListingDefaultsCurrency(t *testing.T) {
	// No details record exists anywhere, so the details lookup degrades and
	// the listing row still comes back with the default currency.
	tool := &thinListingClient{
		MockAdsToolClient: NewMockAdsToolClient(),
		Listing:           []models.AdAccount{{ID: "act_1", AccountID: "1"}},
	}

	gw := NewMetaGateway(testMetaConfig(), nil, tool, nil, nil, "", time.Minute)

	accounts, err := gw.ListAdAccounts(context.Background(), 1, "token")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "USD", accounts[0].Currency)
}

func countCalls(calls []string, name string) int {
	n := 0
	for _, call := range calls {
		if call == name {
			n++
		}
	}
	return n
}

func TestGatewayAccountDetailsDegradesToDefault(t *testing.T) {
	tool := NewMockAdsToolClient()
	tool.Err = errors.New("tool server down")
	direct := NewMockAdsToolClient()
	direct.Err = errors.New("graph down")

	gw := NewMetaGateway(testMetaConfig(), nil, tool, direct, nil, "", time.Minute)

	account, err := gw.AccountDetails(context.Background(), 1, "token", "123")
	require.NoError(t, err)
	assert.Equal(t, "act_123", account.ID)
	assert.Equal(t, "123", account.AccountID)
	assert.Equal(t, "USD", account.Currency)
}

func TestGatewayListCampaignsSurfacesErrors(t *testing.T) {
	tool := NewMockAdsToolClient()
	tool.Err = errors.New("tool server down")
	direct := NewMockAdsToolClient()
	direct.Err = errors.New("graph down")

	gw := NewMetaGateway(testMetaConfig(), nil, tool, direct, nil, "", time.Minute)

	_, err := gw.ListCampaigns(context.Background(), 1, "token", "act_123")
	require.Error(t, err)
}

func TestGatewayInsightsDegradeToEmpty(t *testing.T) {
	tool := NewMockAdsToolClient()
	tool.Err = errors.New("tool server down")
	direct := NewMockAdsToolClient()
	direct.Err = errors.New("graph down")

	gw := NewMetaGateway(testMetaConfig(), nil, tool, direct, nil, "", time.Minute)

	insights, err := gw.AccountInsights(context.Background(), 1, "token", "act_123", "last_30d")
	require.NoError(t, err)
	assert.Empty(t, insights)

	insights, err = gw.CampaignInsights(context.Background(), 1, "token", "act_123", "last_30d")
	require.NoError(t, err)
	assert.Empty(t, insights)

	budgets, err := gw.CampaignBudgets(context.Background(), 1, "token", "act_123")
	require.NoError(t, err)
	assert.Empty(t, budgets)
}

func TestGatewayAuthorizationURL(t *testing.T) {
	gw := NewMetaGateway(testMetaConfig(), nil, NewMockAdsToolClient(), nil, nil, "", time.Minute)

	authURL := gw.AuthorizationURL("state-token")

	assert.Contains(t, authURL, "https://www.facebook.com/v20.0/dialog/oauth")
	assert.Contains(t, authURL, "state=state-token")
	assert.Contains(t, authURL, "auth_type=rerequest")
	// Meta wants one comma-joined scope parameter
	assert.Contains(t, authURL, "scope=ads_read%2Cads_management")
	assert.Contains(t, authURL, "client_id=app-id")
}
