package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/adgenius-ai/adgenius/config"
	"github.com/adgenius-ai/adgenius/models"
	"github.com/adgenius-ai/adgenius/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

var (
	gatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ads_gateway_requests_total",
			Help: "Ads gateway requests by operation, strategy and outcome",
		},
		[]string{"operation", "strategy", "outcome"},
	)

	gatewayEmptyFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ads_gateway_empty_fallbacks_total",
			Help: "Requests that exhausted every strategy and returned a typed empty result",
		},
		[]string{"operation"},
	)

	gatewayCacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ads_gateway_cache_hits_total",
			Help: "Ads gateway cache lookups by outcome",
		},
		[]string{"operation", "outcome"},
	)
)

// OAuthToken is the result of exchanging an authorization code.
type OAuthToken struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// MetaGateway is the single entry point to the Meta ad platform. Read
// operations walk an ordered strategy chain (tool server, then direct Graph
// API) and fall back to typed empty results where the product can degrade
// gracefully instead of erroring.
type MetaGateway interface {
	AuthorizationURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*OAuthToken, error)

	ListAdAccounts(ctx context.Context, userID uint, accessToken string) ([]models.AdAccount, error)
	AccountDetails(ctx context.Context, userID uint, accessToken, accountID string) (*models.AdAccount, error)
	ListCampaigns(ctx context.Context, userID uint, accessToken, accountID string) ([]models.Campaign, error)
	AccountInsights(ctx context.Context, userID uint, accessToken, accountID, datePreset string) ([]models.InsightRecord, error)
	CampaignInsights(ctx context.Context, userID uint, accessToken, accountID, datePreset string) ([]models.InsightRecord, error)
	CampaignBudgets(ctx context.Context, userID uint, accessToken, accountID string) ([]models.CampaignBudget, error)
}

// ToolClientSource resolves the per-user cached tool client. The agent cache
// implements this, so gateway reads reuse the client a user's agent already
// holds instead of a cold connection.
type ToolClientSource interface {
	GetOrCreateClient(ctx context.Context, userID uint, accessToken string) (AdsToolClient, error)
}

// gatewayStrategy names one link of the fallback chain.
type gatewayStrategy struct {
	name   string
	client AdsToolClient
}

// MetaGatewayImpl implements MetaGateway
type MetaGatewayImpl struct {
	config      *config.MetaConfig
	oauthConfig *oauth2.Config
	clients     ToolClientSource
	chain       []gatewayStrategy

	rc          *redis.Client
	cachePrefix string
	cacheTTL    time.Duration
}

// NewMetaGateway creates a gateway over the given strategy clients, in order:
// the per-user cached tool client (when clients is non-nil), the shared tool
// client, then the direct Graph client. rc may be nil when response caching
// is disabled.
func NewMetaGateway(cfg *config.MetaConfig, clients ToolClientSource, toolClient, directClient AdsToolClient, rc *redis.Client, cachePrefix string, cacheTTL time.Duration) MetaGateway {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.AppID,
		ClientSecret: cfg.AppSecret,
		RedirectURL:  cfg.RedirectURI,
		// Meta expects comma-separated scopes in a single parameter.
		Scopes: []string{strings.Join(cfg.Scopes, ",")},
		Endpoint: oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("https://www.facebook.com/%s/dialog/oauth", cfg.GraphVersion),
			TokenURL: fmt.Sprintf("https://graph.facebook.com/%s/oauth/access_token", cfg.GraphVersion),
		},
	}

	var chain []gatewayStrategy
	if toolClient != nil {
		chain = append(chain, gatewayStrategy{name: "tool", client: toolClient})
	}
	if directClient != nil {
		chain = append(chain, gatewayStrategy{name: "direct", client: directClient})
	}

	if cacheTTL <= 0 {
		cacheTTL = utils.InsightsCacheTTL
	}

	return &MetaGatewayImpl{
		config:      cfg,
		oauthConfig: oauthConfig,
		clients:     clients,
		chain:       chain,
		rc:          rc,
		cachePrefix: cachePrefix,
		cacheTTL:    cacheTTL,
	}
}

// AuthorizationURL builds the Meta OAuth dialog URL for the given state.
func (gw *MetaGatewayImpl) AuthorizationURL(state string) string {
	return gw.oauthConfig.AuthCodeURL(state, oauth2.SetAuthURLParam("auth_type", "rerequest"))
}

// ExchangeCode trades an authorization code for a user access token.
func (gw *MetaGatewayImpl) ExchangeCode(ctx context.Context, code string) (*OAuthToken, error) {
	token, err := gw.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	result := &OAuthToken{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		result.ExpiresAt = &expiry
	}
	return result, nil
}

// strategiesFor prepends the user's cached tool client to the static chain.
// A resolver failure just means the cold clients carry the request.
func (gw *MetaGatewayImpl) strategiesFor(ctx context.Context, userID uint, accessToken string) []gatewayStrategy {
	if gw.clients == nil || userID == 0 {
		return gw.chain
	}

	client, err := gw.clients.GetOrCreateClient(ctx, userID, accessToken)
	if err != nil {
		log.Printf("ads gateway: cached client for user %d unavailable: %v", userID, err)
		return gw.chain
	}

	chain := make([]gatewayStrategy, 0, len(gw.chain)+1)
	chain = append(chain, gatewayStrategy{name: "cached_tool", client: client})
	return append(chain, gw.chain...)
}

// fetchWithFallback walks the strategy chain and returns the first success.
func fetchWithFallback[T any](ctx context.Context, gw *MetaGatewayImpl, operation string, userID uint, accessToken string, fn func(AdsToolClient) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for _, strategy := range gw.strategiesFor(ctx, userID, accessToken) {
		result, err := fn(strategy.client)
		if err == nil {
			gatewayRequestsTotal.WithLabelValues(operation, strategy.name, "success").Inc()
			return result, nil
		}
		gatewayRequestsTotal.WithLabelValues(operation, strategy.name, "error").Inc()
		log.Printf("ads gateway: %s via %s failed: %v", operation, strategy.name, err)
		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no gateway strategy configured")
	}
	return zero, fmt.Errorf("%s failed on every strategy: %w", operation, lastErr)
}

// ListAdAccounts lists the ad accounts visible to the token. Listings often
// come back without name or currency; those rows are filled in from a
// per-account details lookup so nothing downstream sees an empty currency.
func (gw *MetaGatewayImpl) ListAdAccounts(ctx context.Context, userID uint, accessToken string) ([]models.AdAccount, error) {
	accounts, err := fetchWithFallback(ctx, gw, "list_ad_accounts", userID, accessToken, func(c AdsToolClient) ([]models.AdAccount, error) {
		return c.ListAdAccounts(ctx, accessToken)
	})
	if err != nil {
		return nil, err
	}

	for i := range accounts {
		if accounts[i].Name != "" && accounts[i].Currency != "" {
			continue
		}
		// AccountDetails never errors: it degrades to the USD-default record.
		details, err := gw.AccountDetails(ctx, userID, accessToken, accounts[i].ID)
		if err != nil {
			continue
		}
		if accounts[i].Name == "" {
			accounts[i].Name = details.Name
		}
		if accounts[i].Currency == "" {
			accounts[i].Currency = details.Currency
		}
		if accounts[i].Currency == "" {
			accounts[i].Currency = utils.DefaultCurrency
		}
	}
	return accounts, nil
}

// AccountDetails resolves a single ad account. When every strategy fails the
// caller still gets a usable record with the default currency.
func (gw *MetaGatewayImpl) AccountDetails(ctx context.Context, userID uint, accessToken, accountID string) (*models.AdAccount, error) {
	account, err := fetchWithFallback(ctx, gw, "account_details", userID, accessToken, func(c AdsToolClient) (*models.AdAccount, error) {
		return c.AccountDetails(ctx, accessToken, accountID)
	})
	if err != nil {
		gatewayEmptyFallbacksTotal.WithLabelValues("account_details").Inc()
		return &models.AdAccount{
			ID:        utils.NormalizeAdAccountID(accountID),
			AccountID: utils.StripAdAccountPrefix(accountID),
			Currency:  utils.DefaultCurrency,
		}, nil
	}
	return account, nil
}

// ListCampaigns lists the campaigns of an ad account. Errors surface to the
// caller so the dashboard can tell an empty account from a broken fetch.
func (gw *MetaGatewayImpl) ListCampaigns(ctx context.Context, userID uint, accessToken, accountID string) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	if gw.cacheGet(ctx, "campaigns", accessToken, accountID, "", &campaigns) {
		return campaigns, nil
	}

	campaigns, err := fetchWithFallback(ctx, gw, "list_campaigns", userID, accessToken, func(c AdsToolClient) ([]models.Campaign, error) {
		return c.ListCampaigns(ctx, accessToken, accountID)
	})
	if err != nil {
		return nil, err
	}

	gw.cacheSet(ctx, "campaigns", accessToken, accountID, "", campaigns)
	return campaigns, nil
}

// AccountInsights fetches account-level insights, degrading to an empty set.
func (gw *MetaGatewayImpl) AccountInsights(ctx context.Context, userID uint, accessToken, accountID, datePreset string) ([]models.InsightRecord, error) {
	var insights []models.InsightRecord
	if gw.cacheGet(ctx, "account_insights", accessToken, accountID, datePreset, &insights) {
		return insights, nil
	}

	insights, err := fetchWithFallback(ctx, gw, "account_insights", userID, accessToken, func(c AdsToolClient) ([]models.InsightRecord, error) {
		return c.AccountInsights(ctx, accessToken, accountID, datePreset)
	})
	if err != nil {
		gatewayEmptyFallbacksTotal.WithLabelValues("account_insights").Inc()
		return []models.InsightRecord{}, nil
	}

	gw.cacheSet(ctx, "account_insights", accessToken, accountID, datePreset, insights)
	return insights, nil
}

// CampaignInsights fetches campaign-level insights, degrading to an empty set.
func (gw *MetaGatewayImpl) CampaignInsights(ctx context.Context, userID uint, accessToken, accountID, datePreset string) ([]models.InsightRecord, error) {
	var insights []models.InsightRecord
	if gw.cacheGet(ctx, "campaign_insights", accessToken, accountID, datePreset, &insights) {
		return insights, nil
	}

	insights, err := fetchWithFallback(ctx, gw, "campaign_insights", userID, accessToken, func(c AdsToolClient) ([]models.InsightRecord, error) {
		return c.CampaignInsights(ctx, accessToken, accountID, datePreset)
	})
	if err != nil {
		gatewayEmptyFallbacksTotal.WithLabelValues("campaign_insights").Inc()
		return []models.InsightRecord{}, nil
	}

	gw.cacheSet(ctx, "campaign_insights", accessToken, accountID, datePreset, insights)
	return insights, nil
}

// CampaignBudgets fetches the configured budgets, degrading to an empty set.
func (gw *MetaGatewayImpl) CampaignBudgets(ctx context.Context, userID uint, accessToken, accountID string) ([]models.CampaignBudget, error) {
	budgets, err := fetchWithFallback(ctx, gw, "campaign_budgets", userID, accessToken, func(c AdsToolClient) ([]models.CampaignBudget, error) {
		return c.CampaignBudgets(ctx, accessToken, accountID)
	})
	if err != nil {
		gatewayEmptyFallbacksTotal.WithLabelValues("campaign_budgets").Inc()
		return []models.CampaignBudget{}, nil
	}
	return budgets, nil
}

// cacheKey keys responses by operation, account, and a digest of the token so
// two users sharing an account id never see each other's data.
func (gw *MetaGatewayImpl) cacheKey(operation, accessToken, accountID, datePreset string) string {
	digest := sha256.Sum256([]byte(accessToken))
	return fmt.Sprintf("%s%s:%s:%s:%s", gw.cachePrefix, operation, accountID, datePreset, hex.EncodeToString(digest[:8]))
}

func (gw *MetaGatewayImpl) cacheGet(ctx context.Context, operation, accessToken, accountID, datePreset string, out any) bool {
	if gw.rc == nil {
		return false
	}

	data, err := gw.rc.Get(ctx, gw.cacheKey(operation, accessToken, accountID, datePreset)).Bytes()
	if err != nil {
		gatewayCacheHitsTotal.WithLabelValues(operation, "miss").Inc()
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		gatewayCacheHitsTotal.WithLabelValues(operation, "miss").Inc()
		return false
	}
	gatewayCacheHitsTotal.WithLabelValues(operation, "hit").Inc()
	return true
}

func (gw *MetaGatewayImpl) cacheSet(ctx context.Context, operation, accessToken, accountID, datePreset string, value any) {
	if gw.rc == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := gw.rc.Set(ctx, gw.cacheKey(operation, accessToken, accountID, datePreset), data, gw.cacheTTL).Err(); err != nil {
		log.Printf("ads gateway: cache write failed: %v", err)
	}
}
