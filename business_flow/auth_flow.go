// Package businessflow contains the core business logic and use cases for authentication workflows
package businessflow

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/adgenius-ai/adgenius/app/dto"
	"github.com/adgenius-ai/adgenius/app/services"
	"github.com/adgenius-ai/adgenius/models"
	"github.com/adgenius-ai/adgenius/repository"
	"github.com/adgenius-ai/adgenius/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthFlow handles signup, login, token refresh and the authenticated profile
type AuthFlow interface {
	Signup(ctx context.Context, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.SignupResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, req *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.RefreshTokenResponse, error)
	Me(ctx context.Context, userID uint) (*dto.MeResponse, error)
}

// AuthFlowImpl implements the authentication business flow
type AuthFlowImpl struct {
	userRepo        repository.UserRepository
	profileRepo     repository.BusinessProfileRepository
	integrationRepo repository.IntegrationRepository
	tokenService    services.TokenService
	agentCache      services.AgentCache
	prewarmOnLogin  bool
	db              *gorm.DB
}

// NewAuthFlow creates a new authentication flow instance. agentCache may be
// nil when prewarming is disabled.
func NewAuthFlow(
	userRepo repository.UserRepository,
	profileRepo repository.BusinessProfileRepository,
	integrationRepo repository.IntegrationRepository,
	tokenService services.TokenService,
	agentCache services.AgentCache,
	prewarmOnLogin bool,
	db *gorm.DB,
) AuthFlow {
	return &AuthFlowImpl{
		userRepo:        userRepo,
		profileRepo:     profileRepo,
		integrationRepo: integrationRepo,
		tokenService:    tokenService,
		agentCache:      agentCache,
		prewarmOnLogin:  prewarmOnLogin,
		db:              db,
	}
}

// Signup registers a new user and issues a token pair
func (f *AuthFlowImpl) Signup(ctx context.Context, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.SignupResponse, error) {
	existing, err := f.userRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	}
	if existing != nil {
		return nil, NewBusinessError("EMAIL_ALREADY_REGISTERED", "Email already registered", ErrEmailAlreadyRegistered)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	}

	var user *models.User
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		user = &models.User{
			UUID:         uuid.New(),
			Email:        req.Email,
			PasswordHash: string(passwordHash),
			FullName:     req.FullName,
			IsActive:     utils.ToPtr(true),
		}
		return f.userRepo.Save(txCtx, user)
	})
	if err != nil {
		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	}

	accessToken, refreshToken, err := f.tokenService.GenerateTokens(user.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to issue tokens", err)
	}

	return &dto.SignupResponse{
		User:    ToAuthUserDTO(*user),
		Session: ToSessionDTO(accessToken, refreshToken, utils.AccessTokenTTL),
	}, nil
}

// Login authenticates a user and issues a token pair. A missing user and a
// wrong password produce the same error so the response never leaks which
// emails exist.
func (f *AuthFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	user, err := f.userRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}
	if user == nil {
		return nil, NewBusinessError("INVALID_CREDENTIALS", "Invalid credentials", ErrInvalidCredentials)
	}
	if !utils.IsTrue(user.IsActive) {
		return nil, NewBusinessError("ACCOUNT_INACTIVE", "Account is inactive", ErrAccountInactive)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, NewBusinessError("INVALID_CREDENTIALS", "Invalid credentials", ErrInvalidCredentials)
	}

	accessToken, refreshToken, err := f.tokenService.GenerateTokens(user.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to issue tokens", err)
	}

	_ = f.userRepo.TouchLastLogin(ctx, user.ID)

	f.prewarmAgent(ctx, user.ID)

	return &dto.LoginResponse{
		User:    ToAuthUserDTO(*user),
		Session: ToSessionDTO(accessToken, refreshToken, utils.AccessTokenTTL),
	}, nil
}

// prewarmAgent kicks off a background agent build so the first chat after
// login doesn't pay the construction cost. Best effort only.
func (f *AuthFlowImpl) prewarmAgent(ctx context.Context, userID uint) {
	if !f.prewarmOnLogin || f.agentCache == nil {
		return
	}

	integration, err := f.integrationRepo.ByUserAndProvider(ctx, userID, models.ProviderMeta)
	if err != nil || integration == nil {
		return
	}

	f.agentCache.Prewarm(userID, integration.AccessToken)
}

// Refresh trades a refresh token for a new token pair
func (f *AuthFlowImpl) Refresh(ctx context.Context, req *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.RefreshTokenResponse, error) {
	accessToken, refreshToken, err := f.tokenService.RefreshToken(req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("TOKEN_REFRESH_FAILED", "Token refresh failed", err)
	}

	return &dto.RefreshTokenResponse{
		Session: ToSessionDTO(accessToken, refreshToken, utils.AccessTokenTTL),
	}, nil
}

// Me returns the authenticated user with their onboarding state
func (f *AuthFlowImpl) Me(ctx context.Context, userID uint) (*dto.MeResponse, error) {
	user, err := f.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("USER_LOOKUP_FAILED", "Failed to load user", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	resp := &dto.MeResponse{
		User: ToAuthUserDTO(*user),
	}

	if profile, err := f.profileRepo.ByUserID(ctx, userID); err == nil && profile != nil {
		profileDTO := ToBusinessProfileDTO(*profile)
		resp.BusinessProfile = &profileDTO
	}

	if integration, err := f.integrationRepo.ByUserAndProvider(ctx, userID, models.ProviderMeta); err == nil && integration != nil {
		resp.MetaConnected = true
	}

	return resp, nil
}
