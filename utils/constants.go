package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Orchestrator constants
const (
	// DefaultOpportunityRetention is how long a pending opportunity stays actionable
	DefaultOpportunityRetention = 72 * time.Hour

	// DefaultStageTimeout bounds a single capability invocation
	DefaultStageTimeout = 5 * time.Minute
)
