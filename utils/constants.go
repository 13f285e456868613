package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// AccessTokenTTLSeconds is the time-to-live for access tokens in seconds (86400 seconds = 24 hours)
	AccessTokenTTLSeconds = 86400

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour

	// OAuthStateTTL is the time-to-live for OAuth state tokens (10 minutes)
	OAuthStateTTL = 10 * time.Minute
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Ads and agent constants
const (
	// MetaGraphVersion is the Meta Graph API version the backend talks to
	MetaGraphVersion = "v20.0"

	// DefaultCurrency is assumed when an ad account does not report one
	DefaultCurrency = "USD"

	// AgentMaxSteps bounds the tool-call loop of a single agent run
	AgentMaxSteps = 15

	// ChatHistoryWindow is the number of recent messages replayed into the agent
	ChatHistoryWindow = 10

	// InsightsCacheTTL is how long gateway responses stay in the Redis cache
	InsightsCacheTTL = 5 * time.Minute
)
