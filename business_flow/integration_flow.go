package businessflow

import (
	"context"

	"github.com/adgenius-ai/adgenius/app/dto"
	"github.com/adgenius-ai/adgenius/app/services"
	"github.com/adgenius-ai/adgenius/models"
	"github.com/adgenius-ai/adgenius/repository"
	"gorm.io/gorm"
)

// IntegrationFlow handles the connected Meta Ads account of a user
type IntegrationFlow interface {
	ListAdAccounts(ctx context.Context, userID uint) (*dto.IntegrationsListResponse, error)
	SelectAccount(ctx context.Context, userID uint, req *dto.SelectAccountRequest, metadata *ClientMetadata) (*dto.SelectAccountResponse, error)
	Disconnect(ctx context.Context, userID uint, metadata *ClientMetadata) (*dto.DisconnectResponse, error)
	SettingsStatus(ctx context.Context, userID uint) (*dto.MetaSettingsStatusResponse, error)
	OAuthStatus(ctx context.Context, userID uint) (*dto.OAuthStatusResponse, error)
	RefreshAccounts(ctx context.Context, userID uint, metadata *ClientMetadata) (*dto.IntegrationsListResponse, error)
	MaskedToken(ctx context.Context, userID uint) (*dto.MaskedTokenResponse, error)
}

// IntegrationFlowImpl implements the integration flow
type IntegrationFlowImpl struct {
	integrationRepo repository.IntegrationRepository
	gateway         services.MetaGateway
	agentCache      services.AgentCache
	db              *gorm.DB
}

// NewIntegrationFlow creates a new integration flow instance
func NewIntegrationFlow(
	integrationRepo repository.IntegrationRepository,
	gateway services.MetaGateway,
	agentCache services.AgentCache,
	db *gorm.DB,
) IntegrationFlow {
	return &IntegrationFlowImpl{
		integrationRepo: integrationRepo,
		gateway:         gateway,
		agentCache:      agentCache,
		db:              db,
	}
}

func (f *IntegrationFlowImpl) metaIntegration(ctx context.Context, userID uint) (*models.Integration, error) {
	integration, err := f.integrationRepo.ByUserAndProvider(ctx, userID, models.ProviderMeta)
	if err != nil {
		return nil, NewBusinessError("INTEGRATION_LOOKUP_FAILED", "Failed to load integration", err)
	}
	if integration == nil {
		return nil, NewBusinessError("INTEGRATION_NOT_FOUND", "Meta integration not found", ErrIntegrationNotFound)
	}
	return integration, nil
}

// ListAdAccounts returns the ad accounts captured at connect time
func (f *IntegrationFlowImpl) ListAdAccounts(ctx context.Context, userID uint) (*dto.IntegrationsListResponse, error) {
	integration, err := f.metaIntegration(ctx, userID)
	if err != nil {
		return nil, err
	}

	accounts := integration.AdAccounts
	if accounts == nil {
		accounts = models.AdAccountList{}
	}

	return &dto.IntegrationsListResponse{AdAccounts: accounts}, nil
}

// SelectAccount marks one of the stored ad accounts as the primary one. The
// id must match a stored account, by either its act_ id or bare account id.
func (f *IntegrationFlowImpl) SelectAccount(ctx context.Context, userID uint, req *dto.SelectAccountRequest, metadata *ClientMetadata) (*dto.SelectAccountResponse, error) {
	integration, err := f.metaIntegration(ctx, userID)
	if err != nil {
		return nil, err
	}

	account := integration.FindAccount(req.AccountID)
	if account == nil {
		return nil, NewBusinessError("INVALID_AD_ACCOUNT_ID", "Invalid ad account id", ErrInvalidAdAccountID)
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		integration.SelectedAdAccount = &account.ID
		return f.integrationRepo.Save(txCtx, integration)
	})
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_SELECT_FAILED", "Failed to select ad account", err)
	}

	return &dto.SelectAccountResponse{
		OK:              true,
		SelectedAccount: account,
	}, nil
}

// Disconnect removes the Meta integration and drops the user's cached agent
func (f *IntegrationFlowImpl) Disconnect(ctx context.Context, userID uint, metadata *ClientMetadata) (*dto.DisconnectResponse, error) {
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		return f.integrationRepo.DeleteByUserAndProvider(txCtx, userID, models.ProviderMeta)
	})
	if err != nil {
		return nil, NewBusinessError("DISCONNECT_FAILED", "Failed to disconnect Meta Ads", err)
	}

	if f.agentCache != nil {
		f.agentCache.Evict(userID)
	}

	return &dto.DisconnectResponse{
		Success: true,
		Message: "Meta Ads disconnected successfully",
	}, nil
}

// SettingsStatus returns the full connection status for the settings page.
// Details of the selected account come from the stored list when possible
// and from the platform when the stored entry is missing.
func (f *IntegrationFlowImpl) SettingsStatus(ctx context.Context, userID uint) (*dto.MetaSettingsStatusResponse, error) {
	integration, err := f.integrationRepo.ByUserAndProvider(ctx, userID, models.ProviderMeta)
	if err != nil {
		return nil, NewBusinessError("INTEGRATION_LOOKUP_FAILED", "Failed to load integration", err)
	}
	if integration == nil {
		return &dto.MetaSettingsStatusResponse{
			Connected:  false,
			AdAccounts: models.AdAccountList{},
		}, nil
	}

	accounts := integration.AdAccounts
	if accounts == nil {
		accounts = models.AdAccountList{}
	}

	resp := &dto.MetaSettingsStatusResponse{
		Connected:         true,
		SelectedAdAccount: integration.SelectedAdAccount,
		AdAccountCount:    len(accounts),
		AdAccounts:        accounts,
	}

	if integration.HasSelectedAccount() {
		selected := *integration.SelectedAdAccount
		if account := integration.FindAccount(selected); account != nil {
			resp.SelectedAccountDetails = account
		} else if details, err := f.gateway.AccountDetails(ctx, integration.UserID, integration.AccessToken, selected); err == nil {
			resp.SelectedAccountDetails = details
		}
	}

	return resp, nil
}

// OAuthStatus returns the compact connection status
func (f *IntegrationFlowImpl) OAuthStatus(ctx context.Context, userID uint) (*dto.OAuthStatusResponse, error) {
	integration, err := f.integrationRepo.ByUserAndProvider(ctx, userID, models.ProviderMeta)
	if err != nil {
		return nil, NewBusinessError("INTEGRATION_LOOKUP_FAILED", "Failed to load integration", err)
	}
	if integration == nil {
		return &dto.OAuthStatusResponse{Connected: false}, nil
	}

	return &dto.OAuthStatusResponse{
		Connected:         true,
		SelectedAdAccount: integration.SelectedAdAccount,
		AdAccountCount:    len(integration.AdAccounts),
	}, nil
}

// RefreshAccounts re-fetches the ad account list from the platform and stores
// it. A selected account that disappeared from the list is cleared.
func (f *IntegrationFlowImpl) RefreshAccounts(ctx context.Context, userID uint, metadata *ClientMetadata) (*dto.IntegrationsListResponse, error) {
	integration, err := f.metaIntegration(ctx, userID)
	if err != nil {
		return nil, err
	}

	accounts, err := f.gateway.ListAdAccounts(ctx, integration.UserID, integration.AccessToken)
	if err != nil {
		return nil, NewBusinessError("ACCOUNTS_REFRESH_FAILED", "Failed to refresh ad accounts", err)
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		integration.AdAccounts = models.AdAccountList(accounts)
		if integration.HasSelectedAccount() && integration.FindAccount(*integration.SelectedAdAccount) == nil {
			integration.SelectedAdAccount = nil
		}
		return f.integrationRepo.Save(txCtx, integration)
	})
	if err != nil {
		return nil, NewBusinessError("ACCOUNTS_REFRESH_FAILED", "Failed to store refreshed ad accounts", err)
	}

	return &dto.IntegrationsListResponse{AdAccounts: integration.AdAccounts}, nil
}

// MaskedToken exposes only the tail of the stored platform token so support
// can match it against Meta's tooling without ever seeing the full secret.
func (f *IntegrationFlowImpl) MaskedToken(ctx context.Context, userID uint) (*dto.MaskedTokenResponse, error) {
	integration, err := f.metaIntegration(ctx, userID)
	if err != nil {
		return nil, err
	}

	token := integration.AccessToken
	preview := "****"
	if len(token) > 4 {
		preview = "****" + token[len(token)-4:]
	}

	return &dto.MaskedTokenResponse{
		TokenPreview: preview,
		TokenType:    integration.TokenType,
		ExpiresAt:    integration.ExpiresAt,
		ConnectedAt:  integration.ConnectedAt,
	}, nil
}
