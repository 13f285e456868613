package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/adgenius-ai/adgenius/models"
	"github.com/adgenius-ai/adgenius/utils"
)

// AdsToolClient is one way of reaching the Meta Graph API. The gateway holds
// an ordered chain of these and falls through on failure.
type AdsToolClient interface {
	ListAdAccounts(ctx context.Context, accessToken string) ([]models.AdAccount, error)
	AccountDetails(ctx context.Context, accessToken, accountID string) (*models.AdAccount, error)
	ListCampaigns(ctx context.Context, accessToken, accountID string) ([]models.Campaign, error)
	AccountInsights(ctx context.Context, accessToken, accountID, datePreset string) ([]models.InsightRecord, error)
	CampaignInsights(ctx context.Context, accessToken, accountID, datePreset string) ([]models.InsightRecord, error)
	CampaignBudgets(ctx context.Context, accessToken, accountID string) ([]models.CampaignBudget, error)
}

// graphEnvelope is the standard Graph API list response.
type graphEnvelope[T any] struct {
	Data  []T `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// GraphClientImpl talks to the Meta Graph API over HTTP. The base URL is
// configurable so the same client serves both the tool server path and the
// direct path.
type GraphClientImpl struct {
	baseURL      string
	graphVersion string
	client       *http.Client
}

// NewGraphClient creates a Graph API client against the given base URL.
func NewGraphClient(baseURL, graphVersion string, timeout time.Duration) AdsToolClient {
	if graphVersion == "" {
		graphVersion = utils.MetaGraphVersion
	}
	return &GraphClientImpl{
		baseURL:      baseURL,
		graphVersion: graphVersion,
		client:       &http.Client{Timeout: timeout},
	}
}

func (g *GraphClientImpl) get(ctx context.Context, accessToken, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", accessToken)

	endpoint := fmt.Sprintf("%s/%s/%s?%s", g.baseURL, g.graphVersion, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call graph api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read graph response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graph api returned status %d: %s", resp.StatusCode, truncateBody(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode graph response: %w", err)
	}

	return nil
}

func truncateBody(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

// ListAdAccounts fetches the ad accounts visible to the token.
func (g *GraphClientImpl) ListAdAccounts(ctx context.Context, accessToken string) ([]models.AdAccount, error) {
	params := url.Values{}
	params.Set("fields", "id,account_id,name,account_status,currency")

	var envelope graphEnvelope[models.AdAccount]
	if err := g.get(ctx, accessToken, "me/adaccounts", params, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// AccountDetails fetches a single ad account by its act_ id.
func (g *GraphClientImpl) AccountDetails(ctx context.Context, accessToken, accountID string) (*models.AdAccount, error) {
	params := url.Values{}
	params.Set("fields", "id,account_id,name,account_status,currency")

	var account models.AdAccount
	if err := g.get(ctx, accessToken, utils.NormalizeAdAccountID(accountID), params, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// ListCampaigns fetches the campaigns of an ad account.
func (g *GraphClientImpl) ListCampaigns(ctx context.Context, accessToken, accountID string) ([]models.Campaign, error) {
	params := url.Values{}
	params.Set("fields", "id,name,status,objective,daily_budget,lifetime_budget,created_time")
	params.Set("limit", "100")

	var envelope graphEnvelope[models.Campaign]
	path := utils.NormalizeAdAccountID(accountID) + "/campaigns"
	if err := g.get(ctx, accessToken, path, params, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// AccountInsights fetches account-level insights for a date preset.
func (g *GraphClientImpl) AccountInsights(ctx context.Context, accessToken, accountID, datePreset string) ([]models.InsightRecord, error) {
	params := url.Values{}
	params.Set("fields", "spend,impressions,clicks,ctr,cpc,actions,action_values")
	if datePreset != "" {
		params.Set("date_preset", datePreset)
	}

	var envelope graphEnvelope[models.InsightRecord]
	path := utils.NormalizeAdAccountID(accountID) + "/insights"
	if err := g.get(ctx, accessToken, path, params, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// CampaignInsights fetches campaign-level insights for a date preset.
func (g *GraphClientImpl) CampaignInsights(ctx context.Context, accessToken, accountID, datePreset string) ([]models.InsightRecord, error) {
	params := url.Values{}
	params.Set("fields", "campaign_id,campaign_name,spend,impressions,clicks,ctr,cpc,actions,action_values")
	params.Set("level", "campaign")
	if datePreset != "" {
		params.Set("date_preset", datePreset)
	}

	var envelope graphEnvelope[models.InsightRecord]
	path := utils.NormalizeAdAccountID(accountID) + "/insights"
	if err := g.get(ctx, accessToken, path, params, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// CampaignBudgets fetches the configured budgets of every campaign.
func (g *GraphClientImpl) CampaignBudgets(ctx context.Context, accessToken, accountID string) ([]models.CampaignBudget, error) {
	campaigns, err := g.ListCampaigns(ctx, accessToken, accountID)
	if err != nil {
		return nil, err
	}

	budgets := make([]models.CampaignBudget, 0, len(campaigns))
	for _, c := range campaigns {
		budgets = append(budgets, models.CampaignBudget{
			CampaignID:     c.ID,
			CampaignName:   c.Name,
			DailyBudget:    c.DailyBudget,
			LifetimeBudget: c.LifetimeBudget,
		})
	}
	return budgets, nil
}

// MockAdsToolClient is a mock implementation for testing
type MockAdsToolClient struct {
	mu sync.Mutex

	AdAccounts []models.AdAccount
	Campaigns  []models.Campaign
	Insights   []models.InsightRecord
	Budgets    []models.CampaignBudget
	Err        error

	Calls []string
}

// NewMockAdsToolClient creates a mock ads tool client for testing
func NewMockAdsToolClient() *MockAdsToolClient {
	return &MockAdsToolClient{}
}

func (m *MockAdsToolClient) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

func (m *MockAdsToolClient) ListAdAccounts(ctx context.Context, accessToken string) ([]models.AdAccount, error) {
	m.record("ListAdAccounts")
	if m.Err != nil {
		return nil, m.Err
	}
	return m.AdAccounts, nil
}

func (m *MockAdsToolClient) AccountDetails(ctx context.Context, accessToken, accountID string) (*models.AdAccount, error) {
	m.record("AccountDetails")
	if m.Err != nil {
		return nil, m.Err
	}
	normalized := utils.NormalizeAdAccountID(accountID)
	for i := range m.AdAccounts {
		if m.AdAccounts[i].ID == normalized || m.AdAccounts[i].AccountID == utils.StripAdAccountPrefix(accountID) {
			return &m.AdAccounts[i], nil
		}
	}
	return nil, fmt.Errorf("account %s not found", accountID)
}

func (m *MockAdsToolClient) ListCampaigns(ctx context.Context, accessToken, accountID string) ([]models.Campaign, error) {
	m.record("ListCampaigns")
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Campaigns, nil
}

func (m *MockAdsToolClient) AccountInsights(ctx context.Context, accessToken, accountID, datePreset string) ([]models.InsightRecord, error) {
	m.record("AccountInsights")
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Insights, nil
}

func (m *MockAdsToolClient) CampaignInsights(ctx context.Context, accessToken, accountID, datePreset string) ([]models.InsightRecord, error) {
	m.record("CampaignInsights")
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Insights, nil
}

func (m *MockAdsToolClient) CampaignBudgets(ctx context.Context, accessToken, accountID string) ([]models.CampaignBudget, error) {
	m.record("CampaignBudgets")
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Budgets, nil
}
