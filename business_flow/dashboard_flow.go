package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/adgenius-ai/adgenius/app/dto"
	"github.com/adgenius-ai/adgenius/app/services"
	"github.com/adgenius-ai/adgenius/models"
	"github.com/adgenius-ai/adgenius/repository"
	"github.com/adgenius-ai/adgenius/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// DashboardFlow assembles the dashboard overview, campaign detail and export
type DashboardFlow interface {
	Overview(ctx context.Context, userID uint) (*dto.DashboardResponse, error)
	CampaignDetail(ctx context.Context, userID uint, campaignID string) (*dto.CampaignDetailResponse, error)
	Export(ctx context.Context, userID uint) ([]byte, error)
	RecommendationStatus(ctx context.Context, userID uint, recommendationID int, req *dto.RecommendationStatusRequest) (*dto.RecommendationStatusResponse, error)
}

// DashboardFlowImpl implements the dashboard flow
type DashboardFlowImpl struct {
	profileRepo     repository.BusinessProfileRepository
	integrationRepo repository.IntegrationRepository
	gateway         services.MetaGateway
	llm             services.LLMClient
	db              *gorm.DB
}

// NewDashboardFlow creates a new dashboard flow instance. llm may be nil; the
// recommendations then always come from the static rule set.
func NewDashboardFlow(
	profileRepo repository.BusinessProfileRepository,
	integrationRepo repository.IntegrationRepository,
	gateway services.MetaGateway,
	llm services.LLMClient,
	db *gorm.DB,
) DashboardFlow {
	return &DashboardFlowImpl{
		profileRepo:     profileRepo,
		integrationRepo: integrationRepo,
		gateway:         gateway,
		llm:             llm,
		db:              db,
	}
}

// dashboardContext is everything the builders need about the user.
type dashboardContext struct {
	userID      uint
	profile     *models.BusinessProfile
	integration *models.Integration
	connected   bool
	accountID   string
	accessToken string
	currency    string
}

func (f *DashboardFlowImpl) loadContext(ctx context.Context, userID uint) (*dashboardContext, error) {
	dc := &dashboardContext{userID: userID, currency: utils.DefaultCurrency}

	profile, err := f.profileRepo.ByUserID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("PROFILE_LOOKUP_FAILED", "Failed to load business profile", err)
	}
	dc.profile = profile

	integration, err := f.integrationRepo.ByUserAndProvider(ctx, userID, models.ProviderMeta)
	if err != nil {
		return nil, NewBusinessError("INTEGRATION_LOOKUP_FAILED", "Failed to load integration", err)
	}
	dc.integration = integration

	if integration != nil {
		dc.connected = true
		dc.accessToken = integration.AccessToken
		if integration.HasSelectedAccount() {
			dc.accountID = *integration.SelectedAdAccount
			if account := integration.FindAccount(dc.accountID); account != nil && account.Currency != "" {
				dc.currency = account.Currency
			}
		}
	}

	return dc, nil
}

// Overview builds the full dashboard payload
func (f *DashboardFlowImpl) Overview(ctx context.Context, userID uint) (*dto.DashboardResponse, error) {
	dc, err := f.loadContext(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &dto.DashboardResponse{
		Stats:             f.buildStats(ctx, dc),
		Campaigns:         f.buildCampaigns(ctx, dc),
		Notifications:     buildNotifications(dc),
		AIRecommendations: f.buildRecommendations(ctx, dc),
		Meta: dto.DashboardMetaStatus{
			Connected: dc.connected,
		},
		GeneratedAt: utils.UTCNow(),
	}

	if dc.integration != nil {
		resp.Meta.SelectedAdAccount = dc.integration.SelectedAdAccount
		resp.Meta.AdAccountCount = len(dc.integration.AdAccounts)
	}
	if dc.profile != nil {
		resp.Business = dto.DashboardBusinessSummary{
			BusinessName: dc.profile.BusinessName,
			Objective:    dc.profile.Objective,
			WebsiteURL:   dc.profile.WebsiteURL,
		}
	}

	return resp, nil
}

// buildStats computes the headline cards. Change and trend fields stay at
// placeholder values until a historical comparison exists.
func (f *DashboardFlowImpl) buildStats(ctx context.Context, dc *dashboardContext) []dto.StatCard {
	spendValue := "$0"
	campaignsValue := "0"
	roiValue := "0%"
	conversionsValue := "0"
	spendChange := "0%"
	campaignsChange := "0"
	roiChange := "0%"
	conversionsChange := "0%"

	if dc.connected && dc.accountID != "" {
		insights, insightsErr := f.gateway.AccountInsights(ctx, dc.userID, dc.accessToken, dc.accountID, "last_30d")
		campaigns, campaignsErr := f.gateway.ListCampaigns(ctx, dc.userID, dc.accessToken, dc.accountID)

		if insightsErr == nil && campaignsErr == nil {
			totals := AggregateInsights(insights)

			spendValue = FormatCurrency(totals.Spend, dc.currency)
			campaignsValue = strconv.Itoa(ActiveCampaignCount(campaigns))
			conversionsValue = FormatNumber(float64(totals.Conversions))
			if totals.Spend > 0 {
				roiValue = ComputeROI(totals.Spend, totals.Revenue)
			}

			spendChange = "+0%"
			campaignsChange = "0"
			roiChange = "+0%"
			conversionsChange = "+0%"
		}
	}

	trend := func(change string) string {
		if strings.HasPrefix(change, "+") {
			return "up"
		}
		return "down"
	}

	return []dto.StatCard{
		{ID: "spend", Title: "Total Spend", Value: spendValue, Change: spendChange, Trend: trend(spendChange)},
		{ID: "campaigns", Title: "Active Campaigns", Value: campaignsValue, Change: campaignsChange, Trend: trend(campaignsChange)},
		{ID: "roi", Title: "Avg. ROI", Value: roiValue, Change: roiChange, Trend: trend(roiChange)},
		{ID: "conversions", Title: "Conversions", Value: conversionsValue, Change: conversionsChange, Trend: trend(conversionsChange)},
	}
}

func placeholderRow(name, status, message string) dto.CampaignRow {
	return dto.CampaignRow{
		Name:        name,
		Status:      status,
		Spend:       "$0",
		ROI:         "+0%",
		Performance: "pending",
		Message:     message,
	}
}

// buildCampaigns renders up to ten campaign rows from live data, or a single
// setup/error placeholder row.
func (f *DashboardFlowImpl) buildCampaigns(ctx context.Context, dc *dashboardContext) []dto.CampaignRow {
	if !dc.connected {
		return []dto.CampaignRow{placeholderRow(
			"Connect Meta Ads", "setup",
			"Connect your Meta account to start tracking campaigns.",
		)}
	}
	if dc.accountID == "" {
		return []dto.CampaignRow{placeholderRow(
			"Select Ad Account", "setup",
			"Select an ad account to view campaigns.",
		)}
	}

	campaigns, err := f.gateway.ListCampaigns(ctx, dc.userID, dc.accessToken, dc.accountID)
	if err != nil {
		return []dto.CampaignRow{placeholderRow(
			"Error Loading Campaigns", "error",
			"Unable to fetch campaigns. Please try again later.",
		)}
	}

	insights, err := f.gateway.CampaignInsights(ctx, dc.userID, dc.accessToken, dc.accountID, "last_30d")
	if err != nil {
		insights = nil
	}

	insightLookup := make(map[string]models.InsightRecord, len(insights))
	for _, insight := range insights {
		if insight.CampaignID != "" {
			insightLookup[insight.CampaignID] = insight
		}
	}

	if len(campaigns) > 10 {
		campaigns = campaigns[:10]
	}

	rows := make([]dto.CampaignRow, 0, len(campaigns))
	for _, campaign := range campaigns {
		name := campaign.Name
		if name == "" {
			name = "Unnamed Campaign"
		}
		status := strings.ToLower(campaign.Status)
		if status == "" {
			status = "unknown"
		}

		insight := insightLookup[campaign.ID]
		spend := parseFloat(insight.Spend)
		revenue := CampaignRevenue(insight)

		roi := "0%"
		if spend > 0 {
			roi = ComputeROI(spend, revenue)
		}

		rows = append(rows, dto.CampaignRow{
			Name:        name,
			Status:      status,
			Spend:       FormatCurrency(spend, dc.currency),
			ROI:         roi,
			ROAS:        ComputeROAS(spend, revenue),
			Performance: BucketPerformance(ROASValue(spend, revenue)),
		})
	}

	if len(rows) == 0 {
		return []dto.CampaignRow{placeholderRow(
			"No Campaigns Found", "setup",
			"Create your first campaign in Meta Ads Manager.",
		)}
	}

	return rows
}

func buildNotifications(dc *dashboardContext) []dto.NotificationDTO {
	var notifications []dto.NotificationDTO

	if dc.profile == nil || dc.profile.BusinessName == nil || *dc.profile.BusinessName == "" {
		notifications = append(notifications, dto.NotificationDTO{
			ID: 1, Type: "warning",
			Message: "Add your business details to unlock tailored AI tips.",
			Time:    "Just now",
		})
	}

	switch {
	case !dc.connected:
		notifications = append(notifications, dto.NotificationDTO{
			ID: 2, Type: "warning",
			Message: "Meta Ads not connected. Connect to sync campaigns automatically.",
			Time:    "5 min ago",
		})
	case dc.accountID == "":
		notifications = append(notifications, dto.NotificationDTO{
			ID: 3, Type: "info",
			Message: "Select a primary ad account for personalized insights.",
			Time:    "12 min ago",
		})
	default:
		notifications = append(notifications, dto.NotificationDTO{
			ID: 4, Type: "success",
			Message: "Meta Ads synced successfully. Monitoring live performance.",
			Time:    "1 hour ago",
		})
	}

	return notifications
}

func staticRecommendations(dc *dashboardContext) []dto.RecommendationDTO {
	if !dc.connected {
		return []dto.RecommendationDTO{{
			ID:          1,
			Title:       "Connect Meta Ads",
			Description: "Securely connect your Meta Ads account to unlock live campaign analytics.",
			Status:      "pending",
			Campaign:    "Account Setup",
			Action:      "connect_meta",
			Impact:      "Enable Smart Insights",
		}}
	}

	suggestions := []dto.RecommendationDTO{
		{
			ID:          1,
			Title:       `Increase Budget for "Summer Sale"`,
			Description: "High-performing campaign with 145% ROI. Reinvest budget to scale returns.",
			Status:      "pending",
			Campaign:    "Summer Sale",
			Action:      "increase_budget",
			Impact:      "+$450 revenue",
		},
		{
			ID:          2,
			Title:       `Pause "Winter Promo" Campaign`,
			Description: "Detected negative ROI. Pausing now can save spend and reallocate to winners.",
			Status:      "pending",
			Campaign:    "Winter Promo",
			Action:      "pause_campaign",
			Impact:      "Save $150/day",
		},
	}

	if dc.profile != nil && dc.profile.Objective != nil && strings.Contains(strings.ToLower(*dc.profile.Objective), "lead") {
		suggestions = append(suggestions, dto.RecommendationDTO{
			ID:          3,
			Title:       "Switch to Lead Forms",
			Description: "Goal is lead generation. Use on-platform lead forms to reduce drop-off.",
			Status:      "pending",
			Campaign:    "Lead Magnet",
			Action:      "switch_objective",
			Impact:      "+35% qualified leads",
		})
	}

	return suggestions
}

// buildRecommendations asks the model for tailored recommendations when a
// connected account exists, falling back to the static rule set on any
// failure or unusable output.
func (f *DashboardFlowImpl) buildRecommendations(ctx context.Context, dc *dashboardContext) []dto.RecommendationDTO {
	static := staticRecommendations(dc)

	if f.llm == nil || !dc.connected || dc.accountID == "" {
		return static
	}

	objective := ""
	if dc.profile != nil && dc.profile.Objective != nil {
		objective = *dc.profile.Objective
	}

	prompt := fmt.Sprintf(
		"Produce up to three advertising recommendations for a Meta Ads account as a JSON array. "+
			"Each element must have the fields id (int), title, description, status, campaign, action, impact (strings); status is always \"pending\". "+
			"The advertiser's objective is %q. Respond with the JSON array only.",
		objective,
	)

	resp, err := f.llm.GenerateContent(ctx, &services.GenerateRequest{
		Turns: []services.ChatTurn{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return static
	}

	text := strings.TrimSpace(resp.Text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var generated []dto.RecommendationDTO
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &generated); err != nil || len(generated) == 0 {
		return static
	}

	for i := range generated {
		if generated[i].Status == "" {
			generated[i].Status = "pending"
		}
	}
	return generated
}

// CampaignDetail returns one campaign with its insights and budgets
func (f *DashboardFlowImpl) CampaignDetail(ctx context.Context, userID uint, campaignID string) (*dto.CampaignDetailResponse, error) {
	dc, err := f.loadContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !dc.connected {
		return nil, NewBusinessError("INTEGRATION_NOT_FOUND", "Meta integration not found", ErrIntegrationNotFound)
	}
	if dc.accountID == "" {
		return nil, NewBusinessError("NO_ACCOUNT_SELECTED", "No ad account selected", ErrNoAccountSelected)
	}

	campaigns, err := f.gateway.ListCampaigns(ctx, dc.userID, dc.accessToken, dc.accountID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGNS_FETCH_FAILED", "Failed to fetch campaigns", err)
	}

	var campaign *models.Campaign
	for i := range campaigns {
		if campaigns[i].ID == campaignID {
			campaign = &campaigns[i]
			break
		}
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrInvalidAdAccountID)
	}

	allInsights, _ := f.gateway.CampaignInsights(ctx, dc.userID, dc.accessToken, dc.accountID, "last_30d")
	insights := make([]models.InsightRecord, 0)
	for _, insight := range allInsights {
		if insight.CampaignID == campaignID {
			insights = append(insights, insight)
		}
	}

	allBudgets, _ := f.gateway.CampaignBudgets(ctx, dc.userID, dc.accessToken, dc.accountID)
	budgets := make([]models.CampaignBudget, 0)
	for _, budget := range allBudgets {
		if budget.CampaignID == campaignID {
			budgets = append(budgets, budget)
		}
	}

	return &dto.CampaignDetailResponse{
		Campaign: *campaign,
		Insights: insights,
		Budgets:  budgets,
	}, nil
}

// Export renders the campaign table as a one-sheet XLSX workbook
func (f *DashboardFlowImpl) Export(ctx context.Context, userID uint) ([]byte, error) {
	dc, err := f.loadContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !dc.connected {
		return nil, NewBusinessError("INTEGRATION_NOT_FOUND", "Meta integration not found", ErrIntegrationNotFound)
	}
	if dc.accountID == "" {
		return nil, NewBusinessError("NO_ACCOUNT_SELECTED", "No ad account selected", ErrNoAccountSelected)
	}

	campaigns, err := f.gateway.ListCampaigns(ctx, dc.userID, dc.accessToken, dc.accountID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGNS_FETCH_FAILED", "Failed to fetch campaigns", err)
	}

	insights, err := f.gateway.CampaignInsights(ctx, dc.userID, dc.accessToken, dc.accountID, "last_30d")
	if err != nil {
		insights = nil
	}
	insightLookup := make(map[string]models.InsightRecord, len(insights))
	for _, insight := range insights {
		if insight.CampaignID != "" {
			insightLookup[insight.CampaignID] = insight
		}
	}

	file := excelize.NewFile()
	defer file.Close()

	const sheet = "Campaigns"
	file.SetSheetName(file.GetSheetName(0), sheet)

	headers := []string{"Name", "Status", "Spend", "Revenue", "ROI", "ROAS", "Performance"}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to build export header: %w", err)
		}
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write export header: %w", err)
		}
	}

	for rowIdx, campaign := range campaigns {
		insight := insightLookup[campaign.ID]
		spend := parseFloat(insight.Spend)
		revenue := CampaignRevenue(insight)

		roi := "0%"
		if spend > 0 {
			roi = ComputeROI(spend, revenue)
		}

		values := []any{
			campaign.Name,
			campaign.Status,
			FormatCurrency(spend, dc.currency),
			FormatCurrency(revenue, dc.currency),
			roi,
			ComputeROAS(spend, revenue),
			BucketPerformance(ROASValue(spend, revenue)),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return nil, fmt.Errorf("failed to build export cell: %w", err)
			}
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write export cell: %w", err)
			}
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize export: %w", err)
	}
	return buf.Bytes(), nil
}

// RecommendationStatus echoes the recorded decision.
func (f *DashboardFlowImpl) RecommendationStatus(ctx context.Context, userID uint, recommendationID int, req *dto.RecommendationStatusRequest) (*dto.RecommendationStatusResponse, error) {
	return &dto.RecommendationStatusResponse{
		ID:      recommendationID,
		Status:  req.Status,
		Message: "Status recorded. Persisted storage can be added later.",
	}, nil
}
