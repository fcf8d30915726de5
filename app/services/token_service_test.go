package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T, accessTTL, refreshTTL time.Duration) TokenService {
	t.Helper()

	svc, err := NewTokenService(
		accessTTL, refreshTTL,
		"trendforge", "trendforge-api",
		false, "", "",
		"test-secret-key-with-enough-length",
	)
	require.NoError(t, err)
	return svc
}

func TestTokenServiceRequiresSecretKey(t *testing.T) {
	_, err := NewTokenService(time.Hour, 2*time.Hour, "trendforge", "trendforge-api", false, "", "", "")
	assert.Error(t, err)
}

func TestGenerateTokensRoundTrip(t *testing.T) {
	svc := newTestTokenService(t, time.Hour, 2*time.Hour)

	accessToken, refreshToken, err := svc.GenerateTokens(42)
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)
	require.NotEmpty(t, refreshToken)
	assert.NotEqual(t, accessToken, refreshToken)

	claims, err := svc.ValidateToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.OperatorID)
	assert.Equal(t, "access", claims.TokenType)
	assert.NotEmpty(t, claims.TokenID)

	refreshClaims, err := svc.ValidateToken(refreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refreshClaims.TokenType)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestTokenService(t, time.Hour, 2*time.Hour)

	_, err := svc.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := newTestTokenService(t, -time.Minute, 2*time.Hour)

	accessToken, _, err := svc.GenerateTokens(7)
	require.NoError(t, err)

	_, err = svc.ValidateToken(accessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshTokenRotatesPair(t *testing.T) {
	svc := newTestTokenService(t, time.Hour, 2*time.Hour)

	_, refreshToken, err := svc.GenerateTokens(42)
	require.NoError(t, err)

	newAccess, newRefresh, err := svc.RefreshToken(refreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, newAccess)
	require.NotEmpty(t, newRefresh)

	claims, err := svc.ValidateToken(newAccess)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.OperatorID)
	assert.Equal(t, "access", claims.TokenType)
}

func TestRefreshTokenRejectsAccessToken(t *testing.T) {
	svc := newTestTokenService(t, time.Hour, 2*time.Hour)

	accessToken, _, err := svc.GenerateTokens(42)
	require.NoError(t, err)

	_, _, err = svc.RefreshToken(accessToken)
	assert.Error(t, err)
}
