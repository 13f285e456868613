package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/adgenius-ai/adgenius/app/dto"
	"github.com/adgenius-ai/adgenius/app/services"
	"github.com/adgenius-ai/adgenius/models"
	"github.com/adgenius-ai/adgenius/repository"
	"github.com/adgenius-ai/adgenius/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OAuthFlow drives the Meta authorization handshake
type OAuthFlow interface {
	Start(ctx context.Context, userID uint, redirect string) (*dto.OAuthStartResponse, error)
	// StartLegacy builds the authorization URL without a state token; kept
	// for the original onboarding entry point.
	StartLegacy(ctx context.Context) (*dto.OAuthStartResponse, error)
	// Callback completes the handshake and returns the frontend URL to
	// redirect the browser to.
	Callback(ctx context.Context, code, state string, metadata *ClientMetadata) (string, error)
}

// OAuthFlowImpl implements the OAuth flow
type OAuthFlowImpl struct {
	integrationRepo repository.IntegrationRepository
	tokenService    services.TokenService
	gateway         services.MetaGateway
	agentCache      services.AgentCache
	frontendBaseURL string
	prewarmOnLogin  bool
	db              *gorm.DB
}

// NewOAuthFlow creates a new OAuth flow instance
func NewOAuthFlow(
	integrationRepo repository.IntegrationRepository,
	tokenService services.TokenService,
	gateway services.MetaGateway,
	agentCache services.AgentCache,
	frontendBaseURL string,
	prewarmOnLogin bool,
	db *gorm.DB,
) OAuthFlow {
	return &OAuthFlowImpl{
		integrationRepo: integrationRepo,
		tokenService:    tokenService,
		gateway:         gateway,
		agentCache:      agentCache,
		frontendBaseURL: strings.TrimRight(frontendBaseURL, "/"),
		prewarmOnLogin:  prewarmOnLogin,
		db:              db,
	}
}

// Start builds the Meta authorization URL with a signed state token that
// carries the user id and the post-connect destination through the redirect.
func (f *OAuthFlowImpl) Start(ctx context.Context, userID uint, redirect string) (*dto.OAuthStartResponse, error) {
	state, err := f.tokenService.GenerateStateToken(userID, redirect)
	if err != nil {
		return nil, NewBusinessError("OAUTH_STATE_FAILED", "Failed to sign state token", err)
	}

	return &dto.OAuthStartResponse{
		AuthURL: f.gateway.AuthorizationURL(state),
	}, nil
}

// StartLegacy builds the dialog URL without binding it to a user.
func (f *OAuthFlowImpl) StartLegacy(ctx context.Context) (*dto.OAuthStartResponse, error) {
	return &dto.OAuthStartResponse{
		AuthURL: f.gateway.AuthorizationURL(""),
	}, nil
}

// Callback validates the state, exchanges the code, stores the integration,
// and returns the frontend destination. Reconnecting overwrites the stored
// token and refreshes the ad account list.
func (f *OAuthFlowImpl) Callback(ctx context.Context, code, state string, metadata *ClientMetadata) (string, error) {
	if code == "" {
		return "", NewBusinessError("MISSING_CODE", "Missing code", ErrMissingAuthCode)
	}
	if state == "" {
		return "", NewBusinessError("MISSING_STATE_TOKEN", "Missing state token", ErrMissingStateToken)
	}

	claims, err := f.tokenService.ValidateStateToken(state)
	if err != nil {
		return "", NewBusinessError("INVALID_STATE_TOKEN", "Invalid state token", ErrInvalidStateToken)
	}

	token, err := f.gateway.ExchangeCode(ctx, code)
	if err != nil {
		return "", NewBusinessError("CODE_EXCHANGE_FAILED", "Failed to exchange authorization code", err)
	}

	accounts, err := f.gateway.ListAdAccounts(ctx, claims.UserID, token.AccessToken)
	if err != nil {
		return "", NewBusinessError("AD_ACCOUNTS_FETCH_FAILED", "Failed to fetch ad accounts", err)
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		integration := &models.Integration{
			UUID:        uuid.New(),
			UserID:      claims.UserID,
			Provider:    models.ProviderMeta,
			AccessToken: token.AccessToken,
			ExpiresAt:   token.ExpiresAt,
			AdAccounts:  models.AdAccountList(accounts),
			ConnectedAt: utils.UTCNow(),
		}
		if token.TokenType != "" {
			integration.TokenType = &token.TokenType
		}
		return f.integrationRepo.Upsert(txCtx, integration)
	})
	if err != nil {
		return "", NewBusinessError("INTEGRATION_SAVE_FAILED", "Failed to save integration", err)
	}

	if f.agentCache != nil {
		// The old agent holds the previous token; rebuild with the new one.
		f.agentCache.Evict(claims.UserID)
		if f.prewarmOnLogin {
			f.agentCache.Prewarm(claims.UserID, token.AccessToken)
		}
	}

	if claims.Redirect == "settings" {
		return fmt.Sprintf("%s/settings?meta_connected=success", f.frontendBaseURL), nil
	}
	return fmt.Sprintf("%s/onboarding?connected=meta", f.frontendBaseURL), nil
}
